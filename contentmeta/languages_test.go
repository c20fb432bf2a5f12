package contentmeta_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cablehead/stacks/contentmeta"
)

func TestInferFromPipelineSuffixKnownExtension(t *testing.T) {
	stripped, ct, ok := contentmeta.InferFromPipelineSuffix("curl https://example.com | .py")
	require.True(t, ok)
	require.Equal(t, "Python", ct)
	require.Equal(t, "curl https://example.com", stripped)
}

func TestInferFromPipelineSuffixUnknownExtension(t *testing.T) {
	_, _, ok := contentmeta.InferFromPipelineSuffix("curl https://example.com | .xyz123")
	require.False(t, ok)
}

func TestInferFromPipelineSuffixNoSuffix(t *testing.T) {
	_, _, ok := contentmeta.InferFromPipelineSuffix("echo hello")
	require.False(t, ok)
}

func TestIsSourceCodeExcludesMarkdown(t *testing.T) {
	require.True(t, contentmeta.IsSourceCode("Python"))
	require.True(t, contentmeta.IsSourceCode("Go"))
	require.False(t, contentmeta.IsSourceCode("Markdown"))
	require.False(t, contentmeta.IsSourceCode("Text"))
}

func TestMatchesContentTypeAllIsWildcard(t *testing.T) {
	require.True(t, contentmeta.MatchesContentType("", "Text"))
	require.True(t, contentmeta.MatchesContentType("All", "Anything"))
	require.True(t, contentmeta.MatchesContentType("all", "Anything"))
}

func TestMatchesContentTypeSourceCodeBucket(t *testing.T) {
	require.True(t, contentmeta.MatchesContentType("source code", "Rust"))
	require.False(t, contentmeta.MatchesContentType("source code", "Markdown"))
}

func TestMatchesContentTypeExactCaseInsensitive(t *testing.T) {
	require.True(t, contentmeta.MatchesContentType("link", "Link"))
	require.False(t, contentmeta.MatchesContentType("Link", "Text"))
}
