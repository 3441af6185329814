package assembler

import (
	"strings"
	"testing"
)

func TestWindowBudgetInvariant(t *testing.T) {
	w := NewWindow(100, 20)
	chunks := []Chunk{
		{Content: "a", Tier: TierCritical, Tokens: 30},
		{Content: "b", Tier: TierHigh, Tokens: 30},
		{Content: "c", Tier: TierMedium, Tokens: 30}, // would exceed 80
		{Content: "d", Tier: TierLow, Tokens: 20},
	}
	accepted := 0
	for _, c := range chunks {
		if w.Add(c) {
			accepted++
		}
		if w.TotalTokens()+w.ReservedForResponse() > w.MaxTokens() {
			t.Fatalf("budget invariant broken: total=%d reserved=%d max=%d",
				w.TotalTokens(), w.ReservedForResponse(), w.MaxTokens())
		}
	}
	if accepted != 3 {
		t.Fatalf("expected 3 accepted chunks, got %d", accepted)
	}
}

func TestWindowRejectedAddLeavesTotalsUnchanged(t *testing.T) {
	w := NewWindow(50, 10)
	if !w.Add(Chunk{Content: "x", Tokens: 35}) {
		t.Fatalf("first add should fit")
	}
	before := w.TotalTokens()
	if w.Add(Chunk{Content: "y", Tokens: 6}) {
		t.Fatalf("second add should be rejected (available=%d)", w.AvailableTokens())
	}
	if w.TotalTokens() != before {
		t.Fatalf("rejected add changed totals: %d -> %d", before, w.TotalTokens())
	}
	if len(w.Chunks()) != 1 {
		t.Fatalf("rejected add appended a chunk")
	}
}

func TestWindowAvailableNeverNegative(t *testing.T) {
	w := NewWindow(10, 50)
	if got := w.AvailableTokens(); got != 0 {
		t.Fatalf("expected 0 available, got %d", got)
	}
}

func TestBuildPromptTierOrderAndFormatting(t *testing.T) {
	w := NewWindow(1000, 0)
	w.Add(NewChunk("low file body", SourceFile, TierLow).WithMeta("path", "notes/low.txt"))
	w.Add(NewChunk("you are helpful", SourceSystem, TierCritical))
	w.Add(NewChunk("earlier message", SourceChat, TierMedium).WithMeta("role", "assistant"))
	w.Add(NewChunk("tool output", SourceTool, TierHigh))

	prompt := w.BuildPrompt()
	iSys := strings.Index(prompt, "you are helpful")
	iTool := strings.Index(prompt, "tool output")
	iChat := strings.Index(prompt, "assistant: earlier message")
	iFile := strings.Index(prompt, "### File: notes/low.txt\nlow file body")
	if iSys < 0 || iTool < 0 || iChat < 0 || iFile < 0 {
		t.Fatalf("missing or misformatted sections:\n%s", prompt)
	}
	if !(iSys < iTool && iTool < iChat && iChat < iFile) {
		t.Fatalf("tier ordering wrong:\n%s", prompt)
	}
}

func TestBuildPromptStableWithinTier(t *testing.T) {
	w := NewWindow(1000, 0)
	w.Add(NewChunk("first", SourceSystem, TierCritical))
	w.Add(NewChunk("second", SourceSystem, TierCritical))
	prompt := w.BuildPrompt()
	if strings.Index(prompt, "first") > strings.Index(prompt, "second") {
		t.Fatalf("insertion order lost within tier:\n%s", prompt)
	}
}
