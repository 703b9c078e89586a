package rules

import (
	"sort"
	"strings"
)

// Matcher performs longest-match lookup of word sequences. Candidates are
// indexed by their first word; among candidates sharing a first word the
// one spanning the most words wins, then the one with the longest text.
type Matcher struct {
	byFirst map[string][]candidate
}

type candidate struct {
	words       []string
	replacement string
}

func newMatcher(rules []Rule, expand bool) *Matcher {
	m := &Matcher{byFirst: make(map[string][]candidate)}
	for _, r := range rules {
		from, to := r.Long, r.Short
		if expand {
			from, to = r.Short, r.Long
		}
		words := strings.Fields(from)
		m.byFirst[words[0]] = append(m.byFirst[words[0]], candidate{words: words, replacement: to})
	}
	for first := range m.byFirst {
		cands := m.byFirst[first]
		sort.SliceStable(cands, func(i, j int) bool {
			if len(cands[i].words) != len(cands[j].words) {
				return len(cands[i].words) > len(cands[j].words)
			}
			return RuneLen(strings.Join(cands[i].words, " ")) > RuneLen(strings.Join(cands[j].words, " "))
		})
	}
	return m
}

// Match looks for the longest candidate that is a prefix of words. It
// returns the replacement and how many words it consumed.
func (m *Matcher) Match(words []string) (string, int, bool) {
	if m == nil || len(words) == 0 {
		return "", 0, false
	}
	for _, c := range m.byFirst[words[0]] {
		if len(c.words) > len(words) {
			continue
		}
		matched := true
		for i, w := range c.words {
			if words[i] != w {
				matched = false
				break
			}
		}
		if matched {
			return c.replacement, len(c.words), true
		}
	}
	return "", 0, false
}

// MaxWords returns the longest candidate length, so callers know how many
// upcoming words to gather before calling Match.
func (m *Matcher) MaxWords() int {
	if m == nil {
		return 0
	}
	max := 0
	for _, cands := range m.byFirst {
		if len(cands) > 0 && len(cands[0].words) > max {
			max = len(cands[0].words)
		}
	}
	return max
}

// Len returns the number of entries in the matcher.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, cands := range m.byFirst {
		n += len(cands)
	}
	return n
}
