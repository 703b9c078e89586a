package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/odyssey/handoff/internal/extract"
	"github.com/odyssey/handoff/internal/rules"
)

func exampleTable(t *testing.T) *rules.Table {
	t.Helper()
	table, err := rules.NewTable(rules.Options{
		Dictionary: map[string]string{"authentication": "auth", "function": "fn"},
		Symbols:    map[string]string{"returns": "→", "because": "∵"},
		Articles:   rules.DefaultArticles,
	})
	if err != nil {
		t.Fatalf("failed to build table: %v", err)
	}
	return table
}

func TestCompress_WorkedExample(t *testing.T) {
	table := exampleTable(t)
	source := "The authentication function returns a token because the request is valid."

	compressed, err := NewCompressor(table, DefaultSettings()).Compress(source)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	wantCompact := "auth fn → token ∵ request is valid."
	if compressed.Output != wantCompact {
		t.Errorf("expected %q, got %q", wantCompact, compressed.Output)
	}

	expanded, err := NewDecompressor(table, DefaultSettings()).Decompress(compressed.Output)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	wantHuman := "authentication function returns token because request is valid."
	if expanded.Output != wantHuman {
		t.Errorf("expected %q, got %q", wantHuman, expanded.Output)
	}
}

func TestCompress_EmphasisMarkersArePreserved(t *testing.T) {
	table := exampleTable(t)
	res, err := NewCompressor(table, DefaultSettings()).Compress("The **authentication** function")
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if res.Output != "**auth** fn" {
		t.Errorf("expected %q, got %q", "**auth** fn", res.Output)
	}
}

func TestCompress_StagesInOrder(t *testing.T) {
	table := exampleTable(t)

	res, err := NewCompressor(table, DefaultSettings()).Compress("some text")
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	want := []Stage{StageLoaded, StageExtracted, StageDictSubstituted, StageSymbolSubstituted, StageArticlesElided, StageReassembled}
	assertStages(t, res.Stages, want)

	settings := DefaultSettings()
	settings.Aggressive = true
	res, err = NewCompressor(table, settings).Compress("some text")
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	want = []Stage{StageLoaded, StageExtracted, StageDictSubstituted, StageSymbolSubstituted, StageArticlesElided, StageVowelsReduced, StageReassembled}
	assertStages(t, res.Stages, want)
}

func assertStages(t *testing.T, got []Stage, want []Stage) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected stages %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected stages %v, got %v", want, got)
		}
	}
}

func TestCompress_ProtectedRegionsSurviveRoundTrip(t *testing.T) {
	table := rules.Default()
	source := strings.Join([]string{
		"# The configuration guide",
		"",
		"The function `initialize(configuration)` reads the configuration from https://example.com/configuration and the directory ./configuration/local.",
		"",
		"```go",
		"// the function returns the configuration because it is required",
		"func configuration() {}",
		"```",
		"",
		"Pass --configuration to the command.",
		"",
	}, "\n")

	compressed, err := NewCompressor(table, DefaultSettings()).Compress(source)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	expanded, err := NewDecompressor(table, DefaultSettings()).Decompress(compressed.Output)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}

	for _, seg := range compressed.Segments {
		switch seg.Kind {
		case extract.KindFence, extract.KindInlineCode, extract.KindURL, extract.KindPath, extract.KindCommand:
		default:
			continue
		}
		if !strings.Contains(compressed.Output, seg.Text) {
			t.Errorf("compact artifact lost protected %s region %q", seg.Kind, seg.Text)
		}
		if !strings.Contains(expanded.Output, seg.Text) {
			t.Errorf("human artifact lost protected %s region %q", seg.Kind, seg.Text)
		}
	}
	if strings.Contains(compressed.Output, "The configuration guide") {
		t.Errorf("expected prose to be compressed, got %q", compressed.Output)
	}
}

func TestCompress_ShortProtectedSegmentsUnchanged(t *testing.T) {
	table := rules.Default()
	source := "It is ok to use git and npm in a dev env."
	res, err := NewCompressor(table, DefaultSettings()).Compress(source)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	for _, seg := range res.Segments {
		if seg.Kind == extract.KindShort && !strings.Contains(res.Output, seg.Text) {
			t.Errorf("short token %q missing from output %q", seg.Text, res.Output)
		}
	}
	want := "It is ok to use git & npm in dev env."
	if res.Output != want {
		t.Errorf("expected %q, got %q", want, res.Output)
	}
}

func TestDictionaryRoundTrip(t *testing.T) {
	table := rules.Default()
	compressor := NewCompressor(table, DefaultSettings())
	decompressor := NewDecompressor(table, DefaultSettings())

	for _, r := range table.Dictionary() {
		source := "we check " + r.Long + " today"
		compressed, err := compressor.Compress(source)
		if err != nil {
			t.Fatalf("Compress(%q) failed: %v", source, err)
		}
		if want := "we check " + r.Short + " today"; compressed.Output != want {
			t.Errorf("compress %q: expected %q, got %q", r.Long, want, compressed.Output)
			continue
		}
		expanded, err := decompressor.Decompress(compressed.Output)
		if err != nil {
			t.Fatalf("Decompress(%q) failed: %v", compressed.Output, err)
		}
		if expanded.Output != source {
			t.Errorf("decompress %q: expected %q, got %q", r.Short, source, expanded.Output)
		}
	}
}

func TestSymbolRoundTrip(t *testing.T) {
	table := rules.Default()
	compressor := NewCompressor(table, DefaultSettings())
	decompressor := NewDecompressor(table, DefaultSettings())

	for _, r := range table.Symbols() {
		source := "we check " + r.Long + " today"
		compressed, err := compressor.Compress(source)
		if err != nil {
			t.Fatalf("Compress(%q) failed: %v", source, err)
		}
		if want := "we check " + r.Short + " today"; compressed.Output != want {
			t.Errorf("compress %q: expected %q, got %q", r.Long, want, compressed.Output)
			continue
		}
		expanded, err := decompressor.Decompress(compressed.Output)
		if err != nil {
			t.Fatalf("Decompress(%q) failed: %v", compressed.Output, err)
		}
		if expanded.Output != source {
			t.Errorf("decompress %q: expected %q, got %q", r.Short, source, expanded.Output)
		}
	}
}

func TestSymbolRoundTrip_TouchingPunctuation(t *testing.T) {
	table := rules.Default()
	compressor := NewCompressor(table, DefaultSettings())
	decompressor := NewDecompressor(table, DefaultSettings())

	tests := []struct {
		source  string
		compact string
		human   string
	}{
		{"The handler returns.", "handler →.", "handler returns."},
		{"It failed because, frankly, it broke.", "It failed ∵, frankly, it broke.", "It failed because, frankly, it broke."},
		{"This is **important** stuff.", "This is **❗** stuff.", "This is **important** stuff."},
		{"(because reasons) happen", "(∵ reasons) happen", "(because reasons) happen"},
		{"we check (what it returns)", "we check (what it →)", "we check (what it returns)"},
		{"The parser returns a token", "parser → token", "parser returns token"},
	}
	for _, tt := range tests {
		compressed, err := compressor.Compress(tt.source)
		if err != nil {
			t.Fatalf("Compress(%q) failed: %v", tt.source, err)
		}
		if compressed.Output != tt.compact {
			t.Errorf("compress %q: expected %q, got %q", tt.source, tt.compact, compressed.Output)
			continue
		}
		expanded, err := decompressor.Decompress(compressed.Output)
		if err != nil {
			t.Fatalf("Decompress(%q) failed: %v", compressed.Output, err)
		}
		if expanded.Output != tt.human {
			t.Errorf("decompress %q: expected %q, got %q", compressed.Output, tt.human, expanded.Output)
		}
	}
}

func TestSymbolsNextToOtherMarksStayLiteral(t *testing.T) {
	table := rules.Default()

	compressed, err := NewCompressor(table, DefaultSettings()).Compress("it returns&more")
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if compressed.Output != "it returns&more" {
		t.Errorf("expected a phrase touching '&' to stay, got %q", compressed.Output)
	}

	for _, compact := range []string{"x&&y", "use ->→<- here"} {
		expanded, err := NewDecompressor(table, DefaultSettings()).Decompress(compact)
		if err != nil {
			t.Fatalf("Decompress(%q) failed: %v", compact, err)
		}
		if expanded.Output != compact {
			t.Errorf("expected %q unchanged, got %q", compact, expanded.Output)
		}
	}
}

func TestCompress_Idempotent(t *testing.T) {
	table := rules.Default()
	compressor := NewCompressor(table, DefaultSettings())
	source := strings.Join([]string{
		"## Session handoff",
		"",
		"The database connection returns an error because the configuration directory is missing.",
		"Update the documentation and the repository description, then initialize the environment.",
		"A temporary variable holds the response for the request.",
		"",
	}, "\n")

	first, err := compressor.Compress(source)
	if err != nil {
		t.Fatalf("first Compress failed: %v", err)
	}
	second, err := compressor.Compress(first.Output)
	if err != nil {
		t.Fatalf("second Compress failed: %v", err)
	}
	if first.Output != second.Output {
		t.Errorf("compression is not idempotent:\nfirst  %q\nsecond %q", first.Output, second.Output)
	}
}

func TestElideArticles(t *testing.T) {
	table := rules.Default()
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"leading article", "The plan works", "plan works"},
		{"article before newline", "Ship the\nnext build", "Ship\nnext build"},
		{"trailing article", "ship the", "ship"},
		{"double space after article", "keep a  gap", "keep gap"},
		{"article inside word untouched", "theme another", "theme another"},
		{"article next to punctuation untouched", "(a) option", "(a) option"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewCompressor(table, DefaultSettings()).Compress(tt.source)
			if err != nil {
				t.Fatalf("Compress failed: %v", err)
			}
			if res.Output != tt.want {
				t.Errorf("expected %q, got %q", tt.want, res.Output)
			}
		})
	}
}

func TestVowelReduction(t *testing.T) {
	table := rules.Default()
	settings := DefaultSettings()
	settings.Aggressive = true
	compressor := NewCompressor(table, settings)

	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"long word reduced", "deployment", "dplymnt"},
		{"short word kept", "deploy", "deploy"},
		{"identifier kept", "userIdentifierValue", "userIdentifierValue"},
		{"snake case kept", "snake_case_name", "snake_case_name"},
		{"never reduce list", "kubernetes", "kubernetes"},
		{"substituted word kept", "configuration", "config"},
		{"result too short kept", "aaaaaaa", "aaaaaaa"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := compressor.Compress(tt.source)
			if err != nil {
				t.Fatalf("Compress failed: %v", err)
			}
			if res.Output != tt.want {
				t.Errorf("expected %q, got %q", tt.want, res.Output)
			}
		})
	}
}

func TestVowelReductionSkippedByDefault(t *testing.T) {
	res, err := NewCompressor(rules.Default(), DefaultSettings()).Compress("deployment")
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if res.Output != "deployment" {
		t.Errorf("expected vowel reduction to be skipped, got %q", res.Output)
	}
}

func TestCompress_UnterminatedFence(t *testing.T) {
	_, err := NewCompressor(rules.Default(), DefaultSettings()).Compress("text\n```\nnever closed\n")
	var malformed *extract.MalformedDocumentError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected *extract.MalformedDocumentError, got %v", err)
	}
}

func TestStatsReduction(t *testing.T) {
	res, err := NewCompressor(rules.Default(), DefaultSettings()).Compress("The configuration")
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if res.Stats.InputRunes != 17 || res.Stats.OutputRunes != 6 {
		t.Errorf("unexpected stats %+v", res.Stats)
	}
	if got := res.Stats.Reduction(); got < 64 || got > 65 {
		t.Errorf("expected reduction around 64.7%%, got %.2f", got)
	}
	if (Stats{}).Reduction() != 0 {
		t.Errorf("expected zero reduction for empty input")
	}
}

func TestDecompressDocument_DevLog(t *testing.T) {
	body := `[{t: "2024-03-01 14:00", changes: ["added auth fn", "db conn pooling"], issues: ["req timeout"], next: "update docs"}]`

	res, err := NewDecompressor(rules.Default(), DefaultSettings()).DecompressDocument("dev_log_COMPACT.md", body)
	if err != nil {
		t.Fatalf("DecompressDocument failed: %v", err)
	}
	want := strings.Join([]string{
		"## 2024-03-01 14:00",
		"",
		"### What Changed",
		"- added authentication function",
		"- database connection pooling",
		"",
		"### Issues Encountered",
		"- request timeout",
		"",
		"### Next Steps",
		"- update documentation",
		"",
		"---",
		"",
		"",
	}, "\n")
	if res.Output != want {
		t.Errorf("unexpected dev log rendering:\nwant %q\ngot  %q", want, res.Output)
	}
}

func TestDecompressDocument_DevLogStatsCountRunes(t *testing.T) {
	body := `[{t: "2024-03-01 14:00", changes: ["fn → value ∵ cache"]}]`

	res, err := NewDecompressor(rules.Default(), DefaultSettings()).DecompressDocument("dev_log_COMPACT.md", body)
	if err != nil {
		t.Fatalf("DecompressDocument failed: %v", err)
	}
	if res.Stats.InputRunes != rules.RuneLen(body) || res.Stats.InputRunes == len(body) {
		t.Errorf("expected input stats in runes (%d), got %d", rules.RuneLen(body), res.Stats.InputRunes)
	}
	if res.Stats.OutputRunes != rules.RuneLen(res.Output) {
		t.Errorf("expected output stats in runes (%d), got %d", rules.RuneLen(res.Output), res.Stats.OutputRunes)
	}
}

func TestDecompressDocument_NonDevLogUsesPipeline(t *testing.T) {
	res, err := NewDecompressor(rules.Default(), DefaultSettings()).DecompressDocument("notes_COMPACT.md", "[link] to cfg")
	if err != nil {
		t.Fatalf("DecompressDocument failed: %v", err)
	}
	if res.Output != "[link] to cfg" {
		t.Errorf("expected unchanged text, got %q", res.Output)
	}
}
