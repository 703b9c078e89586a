package engine

import (
	"strings"
	"unicode"

	"github.com/odyssey/handoff/internal/rules"
)

// elideArticles removes standalone articles. The article goes together with
// the run of spaces after it; an article that ends a line or the segment
// takes the spaces before it instead, so no double or stray space remains.
func elideArticles(toks []token, table *rules.Table, edges boundary) []token {
	drop := make([]bool, len(toks))
	for i, t := range toks {
		if t.kind != tokWord || t.frozen || drop[i] || !table.IsArticle(t.text) {
			continue
		}
		if !standalone(toks, i, edges) {
			continue
		}
		drop[i] = true
		switch {
		case i+1 < len(toks) && isInlineSpace(toks[i+1]):
			drop[i+1] = true
		case i > 0 && isInlineSpace(toks[i-1]) && !drop[i-1]:
			drop[i-1] = true
		}
	}

	out := make([]token, 0, len(toks))
	for i, t := range toks {
		if !drop[i] {
			out = append(out, t)
		}
	}
	return out
}

// VowelSettings bounds vowel reduction.
type VowelSettings struct {
	// MinWordLength: only words longer than this many runes are reduced.
	MinWordLength int
	// MinReducedLength: a reduction shorter than this is discarded.
	MinReducedLength int
}

// reduceVowels drops interior vowels from long prose words.
func reduceVowels(toks []token, table *rules.Table, settings VowelSettings) []token {
	for i, t := range toks {
		if t.kind != tokWord || t.frozen {
			continue
		}
		if rules.RuneLen(t.text) <= settings.MinWordLength {
			continue
		}
		if table.IsShortForm(t.text) || table.NeverReduce(t.text) || isIdentifier(t.text) {
			continue
		}
		reduced := stripInteriorVowels(t.text)
		if reduced == t.text || rules.RuneLen(reduced) < settings.MinReducedLength {
			continue
		}
		toks[i] = token{kind: tokWord, text: reduced, frozen: true}
	}
	return toks
}

func stripInteriorVowels(word string) string {
	runes := []rune(word)
	if len(runes) <= 2 {
		return word
	}
	var sb strings.Builder
	sb.WriteRune(runes[0])
	for _, r := range runes[1 : len(runes)-1] {
		if !isVowel(r) {
			sb.WriteRune(r)
		}
	}
	sb.WriteRune(runes[len(runes)-1])
	return sb.String()
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
		return true
	}
	return false
}

// isIdentifier flags words that look like code names: digits, underscores
// or a capital after the first letter (camelCase, ACRONYMS).
func isIdentifier(word string) bool {
	for i, r := range word {
		if r == '_' || unicode.IsDigit(r) {
			return true
		}
		if i > 0 && unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

// expandSymbols replaces symbols with their phrases. A symbol may touch
// punctuation, brackets or emphasis markers, but never a word.
func expandSymbols(toks []token, table *rules.Table, edges boundary) []token {
	out := make([]token, 0, len(toks))
	for i, t := range toks {
		if t.kind != tokOther || t.frozen {
			out = append(out, t)
			continue
		}
		openLeft := edges.spaceBefore
		if i > 0 {
			openLeft = toks[i-1].kind == tokSpace
		}
		openRight := edges.spaceAfter
		if i < len(toks)-1 {
			openRight = toks[i+1].kind == tokSpace
		}
		pos := 0
		for _, m := range table.FindSymbols(t.text) {
			if (m.Start == 0 && !openLeft) || (m.End == len(t.text) && !openRight) {
				continue
			}
			if m.Start > pos {
				out = append(out, token{kind: tokOther, text: t.text[pos:m.Start]})
			}
			out = append(out, token{kind: tokWord, text: m.Phrase, frozen: true})
			pos = m.End
		}
		if pos < len(t.text) {
			out = append(out, token{kind: tokOther, text: t.text[pos:]})
		}
	}
	return out
}
