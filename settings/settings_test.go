package settings_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cablehead/stacks/settings"
)

func openTestStore(t *testing.T) *settings.Store {
	t.Helper()
	s, err := settings.Open(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadBeforeSaveReturnsZeroValue(t *testing.T) {
	s := openTestStore(t)
	got, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, settings.Settings{}, got)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	token := "a-cross-stream-token"
	want := settings.Settings{
		OpenAIAccessToken:      "sk-test",
		OpenAISelectedModel:    "gpt-4",
		CrossStreamAccessToken: &token,
		ActivationShortcut:     &settings.Shortcut{Shift: true, Command: true},
	}
	require.NoError(t, s.Save(want))

	got, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestSaveOverwritesPriorValue(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Save(settings.Settings{OpenAIAccessToken: "first"}))
	require.NoError(t, s.Save(settings.Settings{OpenAIAccessToken: "second"}))

	got, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, "second", got.OpenAIAccessToken)
}

func TestGetPutArbitraryKeys(t *testing.T) {
	s := openTestStore(t)
	_, found, err := s.Get("nonexistent")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, s.Put("key", "value"))
	got, found, err := s.Get("key")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "value", got)
}

func TestSettingsSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.db")

	s1, err := settings.Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Save(settings.Settings{OpenAIAccessToken: "persisted"}))
	require.NoError(t, s1.Close())

	s2, err := settings.Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Load()
	require.NoError(t, err)
	require.Equal(t, "persisted", got.OpenAIAccessToken)
}
