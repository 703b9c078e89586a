package engine

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/odyssey/handoff/internal/rules"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokSpace
	tokOther
)

// token is a piece of a plain segment. Words are maximal runs of word
// runes, so a word token is always boundary-anchored.
type token struct {
	kind tokenKind
	text string
	// frozen marks text produced by a substitution stage; later stages
	// leave it alone.
	frozen bool
}

func tokenize(s string) []token {
	var toks []token
	i := 0
	for i < len(s) {
		r, _ := utf8.DecodeRuneInString(s[i:])
		kind := classifyRune(r)
		start := i
		for i < len(s) {
			r, size := utf8.DecodeRuneInString(s[i:])
			if classifyRune(r) != kind {
				break
			}
			i += size
		}
		toks = append(toks, token{kind: kind, text: s[start:i]})
	}
	return toks
}

func classifyRune(r rune) tokenKind {
	switch {
	case rules.IsWordRune(r):
		return tokWord
	case unicode.IsSpace(r):
		return tokSpace
	default:
		return tokOther
	}
}

func render(toks []token) string {
	var sb strings.Builder
	for _, t := range toks {
		sb.WriteString(t.text)
	}
	return sb.String()
}

// isInlineSpace reports whether a space token stays on one line.
func isInlineSpace(t token) bool {
	return t.kind == tokSpace && !strings.ContainsAny(t.text, "\r\n")
}

// gatherWords collects up to max words starting at toks[i], following only
// same-line whitespace between them and stopping at frozen text. It returns
// the words and the index of each word token.
func gatherWords(toks []token, i int, max int) ([]string, []int) {
	words := []string{toks[i].text}
	idx := []int{i}
	j := i + 1
	for len(words) < max && j+1 < len(toks) {
		if !isInlineSpace(toks[j]) || toks[j+1].kind != tokWord || toks[j+1].frozen {
			break
		}
		words = append(words, toks[j+1].text)
		idx = append(idx, j+1)
		j += 2
	}
	return words, idx
}

// substituteWords replaces word sequences found by m with their
// replacement, longest match first, scanning left to right. When accept is
// set, a match spanning toks[first..last] is only replaced if it approves.
func substituteWords(toks []token, m *rules.Matcher, accept func(first, last int) bool) []token {
	max := m.MaxWords()
	if max == 0 {
		return toks
	}
	out := make([]token, 0, len(toks))
	for i := 0; i < len(toks); {
		t := toks[i]
		if t.kind != tokWord || t.frozen {
			out = append(out, t)
			i++
			continue
		}
		words, idx := gatherWords(toks, i, max)
		repl, n, ok := m.Match(words)
		if ok && accept != nil && !accept(i, idx[n-1]) {
			ok = false
		}
		if !ok {
			out = append(out, t)
			i++
			continue
		}
		out = append(out, token{kind: replacementKind(repl), text: repl, frozen: true})
		i = idx[n-1] + 1
	}
	return out
}

func replacementKind(s string) tokenKind {
	if rules.IsWord(s) {
		return tokWord
	}
	return tokOther
}

// symbolSlot reports whether a symbol placed over toks[first..last] would
// be found again by Table.FindSymbols: each side must touch whitespace, a
// segment edge that touches whitespace, or a symbol boundary rune.
func symbolSlot(toks []token, first, last int, edges boundary) bool {
	if first == 0 {
		if !edges.spaceBefore {
			return false
		}
	} else if prev := toks[first-1]; prev.kind != tokSpace {
		r, _ := utf8.DecodeLastRuneInString(prev.text)
		if prev.kind != tokOther || !rules.IsSymbolBoundary(r) {
			return false
		}
	}
	if last == len(toks)-1 {
		return edges.spaceAfter
	}
	next := toks[last+1]
	if next.kind == tokSpace {
		return true
	}
	r, _ := utf8.DecodeRuneInString(next.text)
	return next.kind == tokOther && rules.IsSymbolBoundary(r)
}

// standalone reports whether toks[i] is bounded by whitespace or by a
// segment edge that itself touches whitespace.
func standalone(toks []token, i int, edges boundary) bool {
	if i == 0 {
		if !edges.spaceBefore {
			return false
		}
	} else if toks[i-1].kind != tokSpace {
		return false
	}
	if i == len(toks)-1 {
		return edges.spaceAfter
	}
	return toks[i+1].kind == tokSpace
}

// boundary describes what surrounds a plain segment in the document.
type boundary struct {
	spaceBefore bool
	spaceAfter  bool
}
