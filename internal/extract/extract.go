// Package extract splits a markdown body into protected and plain segments.
//
// Protected segments (code fences, inline code, URLs, paths, command-like
// tokens and short words) pass through every pipeline stage byte for byte.
// Plain segments are the only text the compression and decompression
// stages may rewrite. Concatenating the segments in order always yields
// the original body.
package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind tags what a segment is.
type Kind int

const (
	KindPlain Kind = iota
	KindFence
	KindInlineCode
	KindURL
	KindPath
	KindCommand
	KindShort
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindFence:
		return "fence"
	case KindInlineCode:
		return "inline-code"
	case KindURL:
		return "url"
	case KindPath:
		return "path"
	case KindCommand:
		return "command"
	case KindShort:
		return "short"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// DefaultShortTokenMaxLen is the longest token, in runes, that the
// short-token rule protects.
const DefaultShortTokenMaxLen = 3

// Segment is a contiguous slice of a document body.
type Segment struct {
	Kind   Kind
	Text   string
	Offset int
}

// Protected reports whether the segment must pass through unchanged.
func (s Segment) Protected() bool {
	return s.Kind != KindPlain
}

// MalformedDocumentError rejects a document whose protected regions cannot
// be delimited safely.
type MalformedDocumentError struct {
	Line   int
	Reason string
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("malformed document at line %d: %s", e.Line, e.Reason)
}

// Options tunes extraction for one pipeline direction.
type Options struct {
	// Exempt keeps a short token plain when it returns true. It is called
	// with the raw token and with the token stripped of punctuation.
	Exempt func(token string) bool

	// ShortTokenMaxLen overrides DefaultShortTokenMaxLen when positive.
	ShortTokenMaxLen int
}

var (
	urlPattern        = regexp.MustCompile(`[A-Za-z][A-Za-z0-9+.-]*://`)
	flagPattern       = regexp.MustCompile(`^--?[A-Za-z]`)
	envPattern        = regexp.MustCompile(`^\$[A-Za-z_{(]`)
	callPattern       = regexp.MustCompile(`[A-Za-z0-9_]\(`)
	operatorPattern   = regexp.MustCompile(`=|::|->`)
	dottedNamePattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_-]*\.[A-Za-z_][A-Za-z0-9_]*`)
)

// Extract partitions body into segments. The only error is a
// *MalformedDocumentError for an unterminated code fence.
func Extract(body string, opts Options) ([]Segment, error) {
	b := &builder{opts: opts}
	if b.opts.ShortTokenMaxLen <= 0 {
		b.opts.ShortTokenMaxLen = DefaultShortTokenMaxLen
	}

	lines := splitLines(body)
	offset := 0
	chunkStart := 0
	for i := 0; i < len(lines); i++ {
		char, runLen, ok := openingFence(lines[i])
		if !ok {
			offset += len(lines[i])
			continue
		}

		closeIdx := -1
		for j := i + 1; j < len(lines); j++ {
			if isClosingFence(lines[j], char, runLen) {
				closeIdx = j
				break
			}
		}
		if closeIdx < 0 {
			return nil, &MalformedDocumentError{
				Line:   i + 1,
				Reason: fmt.Sprintf("code fence opened with %s is never closed", strings.Repeat(string(char), runLen)),
			}
		}

		b.inline(body[chunkStart:offset], chunkStart)
		fenceLen := 0
		for j := i; j <= closeIdx; j++ {
			fenceLen += len(lines[j])
		}
		b.emit(KindFence, body[offset:offset+fenceLen], offset)
		offset += fenceLen
		chunkStart = offset
		i = closeIdx
	}
	b.inline(body[chunkStart:], chunkStart)

	return b.segments, nil
}

// Join concatenates segment texts in order.
func Join(segments []Segment) string {
	var sb strings.Builder
	for _, s := range segments {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

type builder struct {
	opts     Options
	segments []Segment
}

// emit appends a segment, merging consecutive plain text into one segment.
func (b *builder) emit(kind Kind, text string, offset int) {
	if text == "" {
		return
	}
	if kind == KindPlain && len(b.segments) > 0 {
		last := &b.segments[len(b.segments)-1]
		if last.Kind == KindPlain && last.Offset+len(last.Text) == offset {
			last.Text += text
			return
		}
	}
	b.segments = append(b.segments, Segment{Kind: kind, Text: text, Offset: offset})
}

// inline extracts inline code spans from a fence-free chunk and hands the
// text between them to the token classifier.
func (b *builder) inline(chunk string, base int) {
	textStart := 0
	i := 0
	for i < len(chunk) {
		if chunk[i] != '`' {
			i++
			continue
		}
		runLen := countRun(chunk[i:], '`')
		closeAt := findClosingBackticks(chunk, i+runLen, runLen)
		if closeAt < 0 {
			i += runLen
			continue
		}
		b.tokens(chunk[textStart:i], base+textStart)
		end := closeAt + runLen
		b.emit(KindInlineCode, chunk[i:end], base+i)
		i = end
		textStart = end
	}
	b.tokens(chunk[textStart:], base+textStart)
}

// tokens classifies whitespace-delimited tokens.
func (b *builder) tokens(text string, base int) {
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			start := i
			for i < len(text) {
				r, size = utf8.DecodeRuneInString(text[i:])
				if !unicode.IsSpace(r) {
					break
				}
				i += size
			}
			b.emit(KindPlain, text[start:i], base+start)
			continue
		}
		start := i
		for i < len(text) {
			r, size = utf8.DecodeRuneInString(text[i:])
			if unicode.IsSpace(r) {
				break
			}
			i += size
		}
		token := text[start:i]
		b.emit(b.classify(token), token, base+start)
	}
}

func (b *builder) classify(token string) Kind {
	switch {
	case urlPattern.MatchString(token):
		return KindURL
	case strings.ContainsAny(token, `/\`):
		return KindPath
	case isCommandLike(token):
		return KindCommand
	case utf8.RuneCountInString(token) <= b.opts.ShortTokenMaxLen && !b.exempt(token):
		return KindShort
	default:
		return KindPlain
	}
}

func (b *builder) exempt(token string) bool {
	if b.opts.Exempt == nil {
		return false
	}
	if b.opts.Exempt(token) {
		return true
	}
	core := strings.TrimFunc(token, func(r rune) bool {
		return !(r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r))
	})
	return core != "" && core != token && b.opts.Exempt(core)
}

func isCommandLike(token string) bool {
	return flagPattern.MatchString(token) ||
		envPattern.MatchString(token) ||
		callPattern.MatchString(token) ||
		operatorPattern.MatchString(token) ||
		dottedNamePattern.MatchString(token)
}

// splitLines splits s after each '\n', keeping the terminators.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.SplitAfter(s, "\n")
}

// openingFence reports whether line opens a fenced code block.
func openingFence(line string) (rune, int, bool) {
	trimmed, ok := trimIndent(line)
	if !ok || len(trimmed) < 3 {
		return 0, 0, false
	}
	char := rune(trimmed[0])
	if char != '`' && char != '~' {
		return 0, 0, false
	}
	runLen := countRun(trimmed, byte(char))
	if runLen < 3 {
		return 0, 0, false
	}
	// A backtick fence's info string may not contain backticks; otherwise
	// the line is inline code such as ```x```.
	if char == '`' && strings.Contains(trimmed[runLen:], "`") {
		return 0, 0, false
	}
	return char, runLen, true
}

func isClosingFence(line string, char rune, minLen int) bool {
	trimmed, ok := trimIndent(line)
	if !ok {
		return false
	}
	runLen := countRun(trimmed, byte(char))
	if runLen < minLen {
		return false
	}
	return strings.TrimSpace(trimmed[runLen:]) == ""
}

// trimIndent strips up to three leading spaces; more indentation is not a
// fence delimiter.
func trimIndent(line string) (string, bool) {
	n := 0
	for n < len(line) && line[n] == ' ' {
		n++
	}
	if n > 3 {
		return "", false
	}
	return line[n:], true
}

func countRun(s string, c byte) int {
	n := 0
	for n < len(s) && s[n] == c {
		n++
	}
	return n
}

// findClosingBackticks returns the index of a backtick run of exactly
// runLen starting at or after from on the same line, or -1.
func findClosingBackticks(s string, from int, runLen int) int {
	i := from
	for i < len(s) && s[i] != '\n' {
		if s[i] != '`' {
			i++
			continue
		}
		n := countRun(s[i:], '`')
		if n == runLen {
			return i
		}
		i += n
	}
	return -1
}
