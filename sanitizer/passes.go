package sanitizer

import (
	"regexp"
	"strings"
)

// Pass is one named text transformation. Apply returns the new text and the
// descriptions of the fixes it made; no descriptions means nothing changed.
type Pass struct {
	Name  string
	Apply func(code string) (string, []string)
}

// DefaultPasses is the repair sequence run before syntax validation.
// Fence stripping runs first so later patterns see clean text, and the
// dangling-comma cleanup lives inside the keyword pass so it always follows it.
var DefaultPasses = []Pass{
	{Name: "strip-fences", Apply: stripFences},
	{Name: "deprecated-api", Apply: replaceDeprecated},
	{Name: "hallucinated-calls", Apply: unwrapHallucinatedCalls},
	{Name: "format-specifiers", Apply: fixFormatSpecifiers},
	{Name: "unsupported-kwargs", Apply: stripUnsupportedKwargs},
	{Name: "imports", Apply: normalizeImports},
}

const (
	manimImport = "from manim import *"
	numpyImport = "import numpy as np"
)

var (
	fencePattern     = regexp.MustCompile("```[A-Za-z0-9_+.-]*[ \\t]*\\r?\\n?")
	formatSpecifier  = regexp.MustCompile(`\{(\w+)\.(\d+)f\}`)
	danglingComma    = regexp.MustCompile(`,\s*\)`)
	numpyReference   = regexp.MustCompile(`\bnp\.`)
	identifierLetter = regexp.MustCompile(`[A-Za-z0-9_]`)
)

// deprecation maps an identifier the engine dropped onto its replacement.
// A nil word pattern means every occurrence is replaced, even inside a
// longer identifier.
type deprecation struct {
	old, new string
	word     *regexp.Regexp
}

var deprecatedAPIs = []deprecation{
	{old: "GrowArrow", new: "Create"},
	{old: "ShowCreation", new: "Create", word: wordPattern("ShowCreation")},
	{old: "TextMobject", new: "Text", word: wordPattern("TextMobject")},
	{old: "TexMobject", new: "MathTex", word: wordPattern("TexMobject")},
}

func wordPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
}

// hallucinatedCalls are helper methods models invent; the call is unwrapped to its arguments.
var hallucinatedCalls = []string{"self.create"}

// unsupportedKwargs are Graph options newer engine releases added and older ones reject.
var unsupportedKwargs = []string{"node_scale_factor", "layout_scale", "layout_config"}

const unsupportedKwargsFix = "Removed unsupported Graph kwargs (node_scale_factor/layout_scale/layout_config)"

func stripFences(code string) (string, []string) {
	if !fencePattern.MatchString(code) {
		return strings.TrimSpace(code), nil
	}
	return strings.TrimSpace(fencePattern.ReplaceAllString(code, "")), []string{"Stripped markdown code fences"}
}

func replaceDeprecated(code string) (string, []string) {
	var fixes []string
	for _, d := range deprecatedAPIs {
		if d.word == nil {
			if !strings.Contains(code, d.old) {
				continue
			}
			code = strings.ReplaceAll(code, d.old, d.new)
		} else {
			if !d.word.MatchString(code) {
				continue
			}
			code = d.word.ReplaceAllLiteralString(code, d.new)
		}
		fixes = append(fixes, "Replaced "+d.old+" with "+d.new)
	}
	return code, fixes
}

func unwrapHallucinatedCalls(code string) (string, []string) {
	var fixes []string
	for _, call := range hallucinatedCalls {
		needle := call + "("
		changed := false
		from := 0
		for {
			i := strings.Index(code[from:], needle)
			if i < 0 {
				break
			}
			start := from + i
			if start > 0 && identifierLetter.MatchString(code[start-1:start]) {
				from = start + len(needle)
				continue
			}
			open := start + len(needle) - 1
			end := matchingClose(code, open)
			if end < 0 {
				break
			}
			code = code[:start] + code[open+1:end] + code[end+1:]
			changed = true
			from = start
		}
		if changed {
			fixes = append(fixes, "Removed hallucinated "+call+"()")
		}
	}
	return code, fixes
}

func fixFormatSpecifiers(code string) (string, []string) {
	if !formatSpecifier.MatchString(code) {
		return code, nil
	}
	return formatSpecifier.ReplaceAllString(code, "{${1}:.${2}f}"), []string{"Fixed f-string format"}
}

func stripUnsupportedKwargs(code string) (string, []string) {
	removed := 0
	for _, name := range unsupportedKwargs {
		var n int
		code, n = removeKwarg(code, name)
		removed += n
	}
	if removed == 0 {
		return code, nil
	}
	return danglingComma.ReplaceAllString(code, ")"), []string{unsupportedKwargsFix}
}

// removeKwarg deletes every `name=value` that sits in an argument list, i.e.
// directly after `(` or `,`. Plain assignments and comparisons are left alone.
func removeKwarg(code, name string) (string, int) {
	removed := 0
	from := 0
	for {
		i := strings.Index(code[from:], name)
		if i < 0 {
			return code, removed
		}
		start := from + i
		after := start + len(name)
		from = after

		if start > 0 && identifierLetter.MatchString(code[start-1:start]) {
			continue
		}
		eq := skipSpace(code, after)
		if eq >= len(code) || code[eq] != '=' || (eq+1 < len(code) && code[eq+1] == '=') {
			continue
		}
		prev := start - 1
		for prev >= 0 && isSpace(code[prev]) {
			prev--
		}
		if prev < 0 || (code[prev] != '(' && code[prev] != ',') {
			continue
		}

		end := scanArgValue(code, eq+1)
		if end < len(code) && code[end] == ',' {
			end++
			for end < len(code) && (code[end] == ' ' || code[end] == '\t') {
				end++
			}
		}
		code = code[:start] + code[end:]
		removed++
		from = start
	}
}

// scanArgValue returns the index just past an argument value starting at i:
// the first top-level ',' or closing bracket, or a newline outside brackets.
func scanArgValue(code string, i int) int {
	depth := 0
	for i < len(code) {
		switch c := code[i]; c {
		case '"', '\'':
			i = skipString(code, i)
			continue
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth == 0 {
				return i
			}
			depth--
		case ',':
			if depth == 0 {
				return i
			}
		case '\n':
			if depth == 0 {
				return i
			}
		}
		i++
	}
	return i
}

func normalizeImports(code string) (string, []string) {
	var fixes []string
	if !strings.Contains(code, manimImport) {
		code = manimImport + "\n" + code
		fixes = append(fixes, "Auto-injected '"+manimImport+"'")
	}
	if numpyReference.MatchString(code) && !strings.Contains(code, numpyImport) {
		at := strings.Index(code, manimImport) + len(manimImport)
		if nl := strings.IndexByte(code[at:], '\n'); nl >= 0 {
			at += nl
		} else {
			at = len(code)
		}
		code = code[:at] + "\n" + numpyImport + code[at:]
		fixes = append(fixes, "Auto-injected '"+numpyImport+"'")
	}
	return code, fixes
}

// matchingClose returns the index of the bracket closing the one at open,
// skipping string literals and comments, or -1 when it is unbalanced.
func matchingClose(code string, open int) int {
	depth := 0
	for i := open; i < len(code); {
		switch code[i] {
		case '"', '\'':
			i = skipString(code, i)
			continue
		case '#':
			nl := strings.IndexByte(code[i:], '\n')
			if nl < 0 {
				return -1
			}
			i += nl
			continue
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return i
			}
		}
		i++
	}
	return -1
}

// skipString returns the index just past the string literal starting at i.
func skipString(code string, i int) int {
	quote := code[i]
	if strings.HasPrefix(code[i:], strings.Repeat(string(quote), 3)) {
		delim := strings.Repeat(string(quote), 3)
		if end := strings.Index(code[i+3:], delim); end >= 0 {
			return i + 3 + end + 3
		}
		return len(code)
	}
	for j := i + 1; j < len(code); j++ {
		switch code[j] {
		case '\\':
			j++
		case quote, '\n':
			return j + 1
		}
	}
	return len(code)
}

func skipSpace(code string, i int) int {
	for i < len(code) && isSpace(code[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
