// Package engine implements the compression and decompression pipelines.
//
// Compression runs extraction, dictionary substitution, symbol
// substitution, article elision and (in aggressive mode) vowel reduction
// over the plain segments of a document, then reassembles it. The last two
// stages are lossy. Decompression runs extraction, symbol expansion and
// dictionary expansion; it never tries to restore articles or vowels, so a
// human artifact approximates the original document.
package engine

import (
	"unicode"
	"unicode/utf8"

	"github.com/odyssey/handoff/internal/extract"
	"github.com/odyssey/handoff/internal/rules"
)

// Stage names a step of the per-document state machine.
type Stage string

const (
	StageLoaded            Stage = "loaded"
	StageExtracted         Stage = "extracted"
	StageDictSubstituted   Stage = "dict-substituted"
	StageSymbolSubstituted Stage = "symbol-substituted"
	StageArticlesElided    Stage = "articles-elided"
	StageVowelsReduced     Stage = "vowels-reduced"
	StageSymbolsExpanded   Stage = "symbols-expanded"
	StageDictExpanded      Stage = "dict-expanded"
	StageDevLogRendered    Stage = "dev-log-rendered"
	StageReassembled       Stage = "reassembled"
	StageWritten           Stage = "written"
	StageFailed            Stage = "failed"
)

const (
	DefaultMinWordLength    = 6
	DefaultMinReducedLength = 4
)

// Settings configures a pipeline run.
type Settings struct {
	// Aggressive enables vowel reduction.
	Aggressive bool
	Vowels     VowelSettings
	// ShortTokenMaxLen is passed to the extractor; zero means default.
	ShortTokenMaxLen int
}

// DefaultSettings returns non-aggressive settings with default thresholds.
func DefaultSettings() Settings {
	return Settings{
		Vowels: VowelSettings{
			MinWordLength:    DefaultMinWordLength,
			MinReducedLength: DefaultMinReducedLength,
		},
	}
}

// Stats compares input and output sizes in runes.
type Stats struct {
	InputRunes  int
	OutputRunes int
}

// Reduction returns the percentage by which the output is smaller than the
// input. It is negative when the output grew.
func (s Stats) Reduction() float64 {
	if s.InputRunes == 0 {
		return 0
	}
	return (1 - float64(s.OutputRunes)/float64(s.InputRunes)) * 100
}

// Result is the outcome of one pipeline run over one document body.
type Result struct {
	Output   string
	Segments []extract.Segment
	Stages   []Stage
	Stats    Stats
}

// document holds the per-run working state: the extracted segments and the
// token streams of the plain ones.
type document struct {
	segments []extract.Segment
	plain    map[int][]token
	edges    map[int]boundary
	stages   []Stage
}

func load(body string, opts extract.Options) (*document, error) {
	doc := &document{stages: []Stage{StageLoaded}}
	segments, err := extract.Extract(body, opts)
	if err != nil {
		return nil, err
	}
	doc.segments = segments
	doc.plain = make(map[int][]token)
	doc.edges = make(map[int]boundary)
	for i, s := range segments {
		if s.Protected() {
			continue
		}
		doc.plain[i] = tokenize(s.Text)
		edges := boundary{spaceBefore: true, spaceAfter: true}
		if i > 0 {
			r, _ := utf8.DecodeLastRuneInString(segments[i-1].Text)
			edges.spaceBefore = unicode.IsSpace(r)
		}
		if i+1 < len(segments) {
			r, _ := utf8.DecodeRuneInString(segments[i+1].Text)
			edges.spaceAfter = unicode.IsSpace(r)
		}
		doc.edges[i] = edges
	}
	doc.stages = append(doc.stages, StageExtracted)
	return doc, nil
}

// apply runs fn over every plain segment and records stage.
func (d *document) apply(stage Stage, fn func(toks []token, edges boundary) []token) {
	for i := range d.segments {
		toks, ok := d.plain[i]
		if !ok {
			continue
		}
		d.plain[i] = fn(toks, d.edges[i])
	}
	d.stages = append(d.stages, stage)
}

func (d *document) reassemble(input string) *Result {
	out := make([]extract.Segment, len(d.segments))
	copy(out, d.segments)
	for i := range out {
		if toks, ok := d.plain[i]; ok {
			out[i].Text = render(toks)
		}
	}
	output := extract.Join(out)
	d.stages = append(d.stages, StageReassembled)
	return &Result{
		Output:   output,
		Segments: d.segments,
		Stages:   d.stages,
		Stats: Stats{
			InputRunes:  rules.RuneLen(input),
			OutputRunes: rules.RuneLen(output),
		},
	}
}

// Compressor runs the compression pipeline. It holds only immutable state
// and is safe for concurrent use.
type Compressor struct {
	table    *rules.Table
	settings Settings
}

func NewCompressor(table *rules.Table, settings Settings) *Compressor {
	return &Compressor{table: table, settings: settings}
}

// Compress turns a document body into its compact form. The only error is
// an *extract.MalformedDocumentError.
func (c *Compressor) Compress(body string) (*Result, error) {
	doc, err := load(body, extract.Options{
		Exempt:           c.table.IsCompressTerm,
		ShortTokenMaxLen: c.settings.ShortTokenMaxLen,
	})
	if err != nil {
		return nil, err
	}

	doc.apply(StageDictSubstituted, func(toks []token, _ boundary) []token {
		return substituteWords(toks, c.table.DictionaryCompressor(), nil)
	})
	doc.apply(StageSymbolSubstituted, func(toks []token, edges boundary) []token {
		return substituteWords(toks, c.table.SymbolCompressor(), func(first, last int) bool {
			return symbolSlot(toks, first, last, edges)
		})
	})
	doc.apply(StageArticlesElided, func(toks []token, edges boundary) []token {
		return elideArticles(toks, c.table, edges)
	})
	if c.settings.Aggressive {
		doc.apply(StageVowelsReduced, func(toks []token, _ boundary) []token {
			return reduceVowels(toks, c.table, c.settings.Vowels)
		})
	}

	return doc.reassemble(body), nil
}

// Decompressor runs the decompression pipeline. Safe for concurrent use.
type Decompressor struct {
	table    *rules.Table
	settings Settings
}

func NewDecompressor(table *rules.Table, settings Settings) *Decompressor {
	return &Decompressor{table: table, settings: settings}
}

// Decompress expands symbols and short-forms back to their long forms.
func (d *Decompressor) Decompress(body string) (*Result, error) {
	doc, err := load(body, extract.Options{
		Exempt:           d.table.IsExpandTerm,
		ShortTokenMaxLen: d.settings.ShortTokenMaxLen,
	})
	if err != nil {
		return nil, err
	}

	doc.apply(StageSymbolsExpanded, func(toks []token, edges boundary) []token {
		return expandSymbols(toks, d.table, edges)
	})
	doc.apply(StageDictExpanded, func(toks []token, _ boundary) []token {
		return substituteWords(toks, d.table.DictionaryExpander(), nil)
	})

	return doc.reassemble(body), nil
}
