// Package tmpl implements the template rewriter: a small macro engine
// specialized to the `#keyword` and `$MACRO{i}` / `$MACRO{i,j}` protocol
// mapped objects use to render themselves against code-emission
// templates. This is deliberately not a general-purpose template
// library — fidelity to the exact bracket-and-comma protocol is
// load-bearing (SPEC_FULL.md design note).
package tmpl

import (
	"sort"
	"strings"

	"symcore/internal/kernerr"
)

// Morph supplies the 1-argument and 2-argument rewrite rules ReplaceMacro
// applies at each macro occurrence, the Go shape of MorphBase.
type Morph interface {
	One(i string) string
	Two(i, j string) string
}

// MorphFunc adapts a pair of plain functions to the Morph interface.
type MorphFunc struct {
	OneFn func(i string) string
	TwoFn func(i, j string) string
}

func (m MorphFunc) One(i string) string {
	if m.OneFn == nil {
		return ""
	}
	return m.OneFn(i)
}

func (m MorphFunc) Two(i, j string) string {
	if m.TwoFn == nil {
		return ""
	}
	return m.TwoFn(i, j)
}

// ReplaceMacro scans str for every occurrence of the literal macro token
// (e.g. "$VALUE") and rewrites the macro{…} span that follows it. If the
// braces contain a top-level comma, the span is split into two arguments
// and Two is invoked; otherwise One is invoked with the whole interior.
// Scanning resumes immediately after the closing brace, so rewritten
// text — which must not reintroduce the macro token — is never
// rescanned (idempotence, SPEC_FULL.md §8 invariant 5).
func ReplaceMacro(str, macro string, morph Morph) (string, error) {
	var b strings.Builder
	pos := 0
	for {
		idx := strings.Index(str[pos:], macro)
		if idx < 0 {
			b.WriteString(str[pos:])
			break
		}
		matchStart := pos + idx
		b.WriteString(str[pos:matchStart])

		open := strings.IndexByte(str[matchStart:], '{')
		if open < 0 {
			return "", kernerr.AtMacro("macro token with no opening brace", matchStart, len(str))
		}
		open += matchStart
		closeIdx := strings.IndexByte(str[open:], '}')
		if closeIdx < 0 {
			return "", kernerr.AtMacro("unmatched macro brace", matchStart, len(str))
		}
		closeIdx += open

		inner := str[open+1 : closeIdx]
		var rewritten string
		if commaIdx := strings.IndexByte(inner, ','); commaIdx >= 0 {
			i := inner[:commaIdx]
			j := inner[commaIdx+1:]
			rewritten = morph.Two(i, j)
		} else {
			rewritten = morph.One(inner)
		}
		b.WriteString(rewritten)
		pos = closeIdx + 1
	}
	return b.String(), nil
}

// ReplaceKeywords performs the literal keyword→value substitution pass
// between preprocess and postprocess. Keys are visited in sorted order so
// the result is a pure, deterministic function of s and the keyword
// table (SPEC_FULL.md §8 invariant 3), independent of Go's randomized map
// iteration order.
func ReplaceKeywords(s string, keywords map[string]string) string {
	keys := make([]string, 0, len(keywords))
	for k := range keywords {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s = strings.ReplaceAll(s, k, keywords[k])
	}
	return s
}
