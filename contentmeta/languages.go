package contentmeta

import "strings"

// pipelineExtensions maps a trailing "| .ext" pipeline segment to the
// content type it forces, letting a user type e.g. "curl ... | .py" to get
// Python highlighting on the captured output.
var pipelineExtensions = map[string]string{
	"md":     "Markdown",
	"c":      "C",
	"cpp":    "C++",
	"css":    "CSS",
	"diff":   "Diff",
	"erl":    "Erlang",
	"go":     "Go",
	"dot":    "Graphviz",
	"html":   "HTML",
	"hs":     "Haskell",
	"java":   "Java",
	"json":   "JSON",
	"js":     "JavaScript",
	"lisp":   "Lisp",
	"lua":    "Lua",
	"make":   "Makefile",
	"matlab": "MATLAB",
	"ml":     "OCaml",
	"m":      "Objective-C",
	"php":    "PHP",
	"pl":     "Perl",
	"py":     "Python",
	"r":      "R",
	"re":     "Regular Expression",
	"rst":    "reStructuredText",
	"rb":     "Ruby",
	"rs":     "Rust",
	"sh":     "Shell",
	"sql":    "SQL",
	"xml":    "XML",
	"yaml":   "YAML",
}

// InferFromPipelineSuffix inspects command for a trailing "| .ext" segment;
// if ext is a known language extension, it returns the command with that
// segment stripped plus the forced content type. Mirrors original_source's
// process_command.
func InferFromPipelineSuffix(command string) (stripped string, contentType string, ok bool) {
	parts := strings.Split(command, "|")
	if len(parts) == 0 {
		return command, "", false
	}
	last := strings.TrimSpace(parts[len(parts)-1])
	ext, found := strings.CutPrefix(last, ".")
	if !found {
		return command, "", false
	}
	ct, known := pipelineExtensions[ext]
	if !known {
		return command, "", false
	}
	kept := make([]string, 0, len(parts)-1)
	for _, p := range parts[:len(parts)-1] {
		kept = append(kept, strings.TrimSpace(p))
	}
	return strings.Join(kept, " | "), ct, true
}

// knownLanguages is the set of content_type values that count as "source
// code" for the navigation model's content-type predicate. Markdown is
// deliberately excluded: it's its own bucket, not source code.
var knownLanguages = buildLanguageSet()

func buildLanguageSet() map[string]struct{} {
	set := make(map[string]struct{}, len(pipelineExtensions))
	for _, lang := range pipelineExtensions {
		if lang == "Markdown" {
			continue
		}
		set[lang] = struct{}{}
	}
	return set
}

// IsSourceCode reports whether contentType is one of the known programming
// language names (the navigation model's "source code" filter bucket).
func IsSourceCode(contentType string) bool {
	_, ok := knownLanguages[contentType]
	return ok
}

// MatchesContentType implements the navigation model's content-type
// predicate: empty/"All" matches everything; "source code" matches any of
// the known language names; everything else is an exact, case-insensitive
// match against contentType.
func MatchesContentType(filter, contentType string) bool {
	if filter == "" || strings.EqualFold(filter, "All") {
		return true
	}
	if strings.EqualFold(filter, "source code") {
		return IsSourceCode(contentType)
	}
	return strings.EqualFold(filter, contentType)
}
