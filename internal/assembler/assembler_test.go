package assembler

import (
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func testAssembler(reserved int) *Assembler {
	return New(reserved, zerolog.Nop())
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

// codeLines builds n lines of plain code-ish text, w words each.
func codeLines(n, w int) string {
	line := strings.TrimSpace(strings.Repeat("stmt ", w))
	lines := make([]string, n)
	for i := range lines {
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func TestBuildOversizedCodeIsCompressedBeforeAcceptance(t *testing.T) {
	// Budget 1000, reserved 200. System ~100 tokens, code ~900+:
	// accepting the raw code would blow the budget, so it must be
	// compressed first.
	a := testAssembler(200)
	w := a.Build(BuildRequest{
		SystemPrompt: words(100),
		CurrentCode:  codeLines(100, 9),
		CurrentFile:  "main.py",
		Query:        "fix the bug",
		MaxTokens:    1000,
	})

	if w.TotalTokens()+w.ReservedForResponse() > w.MaxTokens() {
		t.Fatalf("budget exceeded: %d + %d > %d", w.TotalTokens(), w.ReservedForResponse(), w.MaxTokens())
	}
	var codeChunk *Chunk
	for _, c := range w.Chunks() {
		if c.Source == SourceFile {
			cc := c
			codeChunk = &cc
		}
	}
	if codeChunk == nil {
		t.Fatalf("code chunk missing entirely")
	}
	if !strings.Contains(codeChunk.Content, "lines omitted") {
		t.Fatalf("code was accepted uncompressed (%d tokens)", codeChunk.Tokens)
	}
}

func TestBuildQueryAlwaysSurvivesCode(t *testing.T) {
	a := testAssembler(200)
	query := "please explain what this does"
	w := a.Build(BuildRequest{
		CurrentCode: codeLines(200, 9),
		Query:       query,
		MaxTokens:   1000,
	})
	found := false
	for _, c := range w.Chunks() {
		if c.Source == SourceChat && c.Content == query {
			found = true
		}
	}
	if !found {
		t.Fatalf("query chunk missing; code starved it out")
	}
}

func TestBuildToolResultsStopOnFirstRejection(t *testing.T) {
	a := testAssembler(0)
	w := a.Build(BuildRequest{
		Query:     "q",
		MaxTokens: 60,
		ToolResults: []ToolResult{
			{Name: "grep", Output: words(20)},
			{Name: "huge", Output: words(500)}, // summarized but still too big for what is left
			{Name: "tiny", Output: "ok"},       // must not be reached
		},
	})
	var tools []string
	for _, c := range w.Chunks() {
		if c.Source == SourceTool {
			tools = append(tools, c.Metadata["tool"])
		}
	}
	if len(tools) != 1 || tools[0] != "grep" {
		t.Fatalf("expected only the first tool result, got %v", tools)
	}
}

func TestBuildOversizedToolResultSummarized(t *testing.T) {
	a := testAssembler(0)
	long := strings.Repeat("log line with detail\n", 300)
	w := a.Build(BuildRequest{
		Query:       "q",
		MaxTokens:   2000,
		ToolResults: []ToolResult{{Name: "run", Output: long}},
	})
	for _, c := range w.Chunks() {
		if c.Source == SourceTool {
			if !strings.Contains(c.Content, "lines omitted") {
				t.Fatalf("oversized tool result not summarized")
			}
			return
		}
	}
	t.Fatalf("tool chunk missing")
}

func TestBuildHistoryCompressedAndTagged(t *testing.T) {
	a := testAssembler(0)
	var history []Turn
	history = append(history, Turn{Role: "system", Content: "stay terse"})
	for i := 0; i < 30; i++ {
		history = append(history, Turn{Role: "user", Content: words(5)})
	}
	w := a.Build(BuildRequest{Query: "q", MaxTokens: 500, History: history})

	var chat int
	sysSeen := false
	for _, c := range w.Chunks() {
		if c.Source == SourceChat && c.Tier == TierMedium {
			chat++
			if c.Metadata["role"] == "system" {
				sysSeen = true
			}
		}
	}
	if !sysSeen {
		t.Fatalf("system turn dropped by history compression")
	}
	// maxHistoryTurns non-system turns plus the system turn.
	if chat > maxHistoryTurns+1 {
		t.Fatalf("history not capped: %d turns", chat)
	}
}

func TestBuildRelatedFiles(t *testing.T) {
	a := testAssembler(0)
	files := map[string]string{
		"ok.go": "package ok\n" + codeLines(100, 3),
	}
	a.readFile = func(path string) ([]byte, error) {
		if c, ok := files[path]; ok {
			return []byte(c), nil
		}
		return nil, errors.New("no such file")
	}
	w := a.Build(BuildRequest{
		Query:        "q",
		MaxTokens:    2000,
		RelatedFiles: []string{"missing.go", "ok.go"},
	})
	var related *Chunk
	for _, c := range w.Chunks() {
		if c.Source == SourceFile && c.Tier == TierLow {
			cc := c
			related = &cc
		}
	}
	if related == nil {
		t.Fatalf("readable related file missing")
	}
	if related.Metadata["path"] != "ok.go" {
		t.Fatalf("wrong path metadata: %v", related.Metadata)
	}
	if !strings.Contains(related.Content, "lines omitted") {
		t.Fatalf("related file not line-capped")
	}
}

func TestBuildEmptyRequest(t *testing.T) {
	a := testAssembler(100)
	w := a.Build(BuildRequest{MaxTokens: 500})
	if w.TotalTokens() != 0 {
		t.Fatalf("empty request produced chunks: %+v", w.Chunks())
	}
	if w.BuildPrompt() != "" {
		t.Fatalf("empty request produced prompt text")
	}
}
