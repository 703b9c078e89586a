package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind distinguishes the two rule namespaces.
type Kind int

const (
	KindDictionary Kind = iota
	KindSymbol
)

func (k Kind) String() string {
	switch k {
	case KindDictionary:
		return "dictionary"
	case KindSymbol:
		return "symbol"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Rule maps a long-form (or connector phrase) to its short-form (or symbol).
type Rule struct {
	Kind  Kind
	Long  string
	Short string
}

// ConfigurationError reports a rule table that cannot be used. It is fatal
// for a whole batch and is raised before any document is read.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid rule table: " + e.Reason
}

func configErrorf(format string, args ...interface{}) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// Options is the raw material for a Table. Maps go from long-form to
// short-form (dictionary) and from phrase to symbol (symbols).
type Options struct {
	Dictionary  map[string]string
	Symbols     map[string]string
	Articles    []string
	NeverReduce []string
}

// Table is the immutable, validated rule set shared by every pipeline run
// in a process. Build it once with NewTable and pass it explicitly.
type Table struct {
	dictionary []Rule
	symbols    []Rule

	dictCompress   *Matcher
	symbolCompress *Matcher
	dictExpand     *Matcher
	symbolExpand   map[string]string
	symbolOrder    []string

	articles    map[string]bool
	neverReduce map[string]bool
	longWords   map[string]bool
	shortForms  map[string]bool

	fingerprint string
}

// NewTable validates opts and builds the matchers for both directions.
//
// Validation enforces that:
//   - no term is empty and no rule maps a term to itself
//   - dictionary short-forms are single words and symbols contain no whitespace
//   - the long side of both tables forms one disjoint namespace
//   - the short side is injective across both tables
//   - no short-form or symbol appears as a word of any long-form or phrase
func NewTable(opts Options) (*Table, error) {
	if len(opts.Dictionary) == 0 && len(opts.Symbols) == 0 {
		return nil, configErrorf("no dictionary or symbol rules defined")
	}

	t := &Table{
		articles:    make(map[string]bool),
		neverReduce: make(map[string]bool),
		longWords:   make(map[string]bool),
		shortForms:  make(map[string]bool),
	}

	longOwner := make(map[string]Kind)
	shortOwner := make(map[string]string)

	add := func(kind Kind, long, short string) error {
		if strings.TrimSpace(long) == "" || strings.TrimSpace(short) == "" {
			return configErrorf("%s rule '%s' -> '%s' has an empty side", kind, long, short)
		}
		long = normalizePhrase(long)
		if long == short {
			return configErrorf("%s rule '%s' maps to itself", kind, long)
		}
		if strings.ContainsFunc(short, unicode.IsSpace) {
			return configErrorf("%s short form '%s' must not contain whitespace", kind, short)
		}
		if kind == KindDictionary && !IsWord(short) {
			return configErrorf("dictionary short form '%s' must consist of letters, digits or underscores", short)
		}
		if kind == KindSymbol && strings.IndexFunc(short, IsWordRune) >= 0 {
			return configErrorf("symbol '%s' must not contain letters or digits", short)
		}
		for _, w := range strings.Fields(long) {
			if !IsWord(w) {
				return configErrorf("%s term '%s' contains non-word text '%s'", kind, long, w)
			}
		}
		if owner, ok := longOwner[long]; ok {
			return configErrorf("term '%s' is defined as both a %s rule and a %s rule", long, owner, kind)
		}
		longOwner[long] = kind
		if prev, ok := shortOwner[short]; ok {
			return configErrorf("'%s' and '%s' both map to '%s'", prev, long, short)
		}
		shortOwner[short] = long

		rule := Rule{Kind: kind, Long: long, Short: short}
		if kind == KindDictionary {
			t.dictionary = append(t.dictionary, rule)
		} else {
			t.symbols = append(t.symbols, rule)
		}
		return nil
	}

	for _, long := range sortedKeys(opts.Dictionary) {
		if err := add(KindDictionary, long, opts.Dictionary[long]); err != nil {
			return nil, err
		}
	}
	for _, phrase := range sortedKeys(opts.Symbols) {
		if err := add(KindSymbol, phrase, opts.Symbols[phrase]); err != nil {
			return nil, err
		}
	}

	for long := range longOwner {
		for _, w := range strings.Fields(long) {
			t.longWords[w] = true
		}
	}
	for short, long := range shortOwner {
		if t.longWords[short] {
			return nil, configErrorf("short form '%s' (for '%s') is also a word of another term", short, long)
		}
		t.shortForms[short] = true
	}

	for _, a := range opts.Articles {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		if !IsWord(a) {
			return nil, configErrorf("article '%s' must be a single word", a)
		}
		if t.shortForms[a] {
			return nil, configErrorf("article '%s' collides with a short form", a)
		}
		t.articles[a] = true
	}
	for _, w := range opts.NeverReduce {
		t.neverReduce[strings.ToLower(w)] = true
	}

	t.dictCompress = newMatcher(t.dictionary, false)
	t.symbolCompress = newMatcher(t.symbols, false)
	t.dictExpand = newMatcher(t.dictionary, true)
	t.symbolExpand = make(map[string]string, len(t.symbols))
	for _, r := range t.symbols {
		t.symbolExpand[r.Short] = r.Long
		t.symbolOrder = append(t.symbolOrder, r.Short)
	}
	sort.Slice(t.symbolOrder, func(i, j int) bool {
		a, b := t.symbolOrder[i], t.symbolOrder[j]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
	t.fingerprint = t.computeFingerprint()

	return t, nil
}

// Default returns the table built from DefaultOptions. The defaults are
// validated by tests, so a failure here is a programming error.
func Default() *Table {
	t, err := NewTable(DefaultOptions())
	if err != nil {
		panic(err)
	}
	return t
}

// Dictionary returns a copy of the dictionary rules sorted by long-form.
func (t *Table) Dictionary() []Rule {
	return append([]Rule(nil), t.dictionary...)
}

// Symbols returns a copy of the symbol rules sorted by phrase.
func (t *Table) Symbols() []Rule {
	return append([]Rule(nil), t.symbols...)
}

func (t *Table) DictionaryCompressor() *Matcher { return t.dictCompress }
func (t *Table) SymbolCompressor() *Matcher     { return t.symbolCompress }
func (t *Table) DictionaryExpander() *Matcher   { return t.dictExpand }

// ExpandSymbol returns the phrase for a symbol.
func (t *Table) ExpandSymbol(symbol string) (string, bool) {
	phrase, ok := t.symbolExpand[symbol]
	return phrase, ok
}

// SymbolMatch locates a symbol inside a token by byte offsets.
type SymbolMatch struct {
	Start  int
	End    int
	Phrase string
}

// symbolBoundaries may sit directly against a symbol without hiding it.
const symbolBoundaries = `.,;:!?()[]{}"'*~`

// IsSymbolBoundary reports whether r is sentence punctuation, a bracket, a
// quote or an emphasis marker.
func IsSymbolBoundary(r rune) bool {
	return strings.ContainsRune(symbolBoundaries, r)
}

// FindSymbols returns the symbols in s, left to right, whose neighbours
// are either an end of s or a symbol boundary rune. The longest symbol
// wins at each offset, and two symbols never match back to back.
func (t *Table) FindSymbols(s string) []SymbolMatch {
	var found []SymbolMatch
	open := true
	for i := 0; i < len(s); {
		if open {
			if sym, ok := t.symbolAt(s[i:]); ok {
				end := i + len(sym)
				next, _ := utf8.DecodeRuneInString(s[end:])
				if end == len(s) || IsSymbolBoundary(next) {
					found = append(found, SymbolMatch{Start: i, End: end, Phrase: t.symbolExpand[sym]})
					i = end
					open = false
					continue
				}
			}
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		open = IsSymbolBoundary(r)
		i += size
	}
	return found
}

func (t *Table) symbolAt(s string) (string, bool) {
	for _, sym := range t.symbolOrder {
		if strings.HasPrefix(s, sym) {
			return sym, true
		}
	}
	return "", false
}

// IsArticle reports whether word is an elidable article, ignoring case.
func (t *Table) IsArticle(word string) bool {
	return t.articles[strings.ToLower(word)]
}

// IsShortForm reports whether word is a dictionary short-form or a symbol.
func (t *Table) IsShortForm(word string) bool {
	return t.shortForms[word]
}

// NeverReduce reports whether vowel reduction must leave word alone.
func (t *Table) NeverReduce(word string) bool {
	return t.neverReduce[strings.ToLower(word)]
}

// IsCompressTerm reports whether word is something the compress direction
// rewrites: an article or a word of a long-form or phrase. The extractor
// keeps such words plain even when they are short.
func (t *Table) IsCompressTerm(word string) bool {
	return t.IsArticle(word) || t.longWords[word]
}

// IsExpandTerm reports whether token is a short-form or symbol that the
// decompress direction rewrites. A symbol still counts when punctuation
// touches it, as in "→." or "(∵".
func (t *Table) IsExpandTerm(token string) bool {
	return t.shortForms[token] || len(t.FindSymbols(token)) > 0
}

// Fingerprint identifies the table contents. Artifacts produced with a
// different fingerprint are considered stale.
func (t *Table) Fingerprint() string {
	return t.fingerprint
}

func (t *Table) computeFingerprint() string {
	h := sha256.New()
	for _, r := range t.dictionary {
		fmt.Fprintf(h, "d\x00%s\x00%s\n", r.Long, r.Short)
	}
	for _, r := range t.symbols {
		fmt.Fprintf(h, "s\x00%s\x00%s\n", r.Long, r.Short)
	}
	for _, a := range sortedSet(t.articles) {
		fmt.Fprintf(h, "a\x00%s\n", a)
	}
	for _, w := range sortedSet(t.neverReduce) {
		fmt.Fprintf(h, "n\x00%s\n", w)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// IsWordRune reports whether r counts as part of a word for boundary
// anchoring: letters, digits and underscore.
func IsWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// IsWord reports whether s is a non-empty run of word runes.
func IsWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !IsWordRune(r) {
			return false
		}
	}
	return true
}

// RuneLen is a shorthand for utf8.RuneCountInString.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

func normalizePhrase(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSet(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
