// Package assembler builds one token-budgeted prompt out of everything
// that wants to be in it: system prompt, code, query, tool results,
// history and related files, in strict priority order.
package assembler

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

const (
	// codeShare is the soft share of the remaining budget (net of the
	// query) the current code selection may occupy uncompressed.
	codeShare = 0.35
	// softToolResultTokens is the per-result size above which a tool
	// result is head/tail summarized before insertion.
	softToolResultTokens = 400
	// toolResultLines is the summarization target for oversized tool
	// results.
	toolResultLines = 30
	// maxHistoryTurns caps how many prior turns survive compression.
	maxHistoryTurns = 10
	// relatedFileLines is the fixed line cap for related files.
	relatedFileLines = 50
)

// ToolResult is one serialized tool invocation output.
type ToolResult struct {
	Name   string
	Output string
}

// BuildRequest carries everything a request may want in its prompt.
type BuildRequest struct {
	Query        string
	CurrentFile  string
	CurrentCode  string
	History      []Turn
	RelatedFiles []string
	ToolResults  []ToolResult
	SystemPrompt string
	MaxTokens    int
}

// Assembler turns BuildRequests into Windows.
type Assembler struct {
	reserved int
	log      zerolog.Logger
	// readFile is swappable for tests.
	readFile func(string) ([]byte, error)
}

// New builds an assembler reserving reservedForResponse tokens of
// every window for the model's reply.
func New(reservedForResponse int, log zerolog.Logger) *Assembler {
	return &Assembler{reserved: reservedForResponse, log: log, readFile: os.ReadFile}
}

// Build assembles a window under req.MaxTokens. Categories are
// processed in priority order; within each category the first rejected
// add ends that category.
func (a *Assembler) Build(req BuildRequest) *Window {
	w := NewWindow(req.MaxTokens, a.reserved)

	// 1. System prompt.
	if req.SystemPrompt != "" {
		if !w.Add(NewChunk(req.SystemPrompt, SourceSystem, TierCritical)) {
			a.log.Warn().Msg("system prompt exceeds context budget")
		}
	}

	// 2. Current code. The soft limit is computed net of the query's
	// own size so the query always has room left; oversized code is
	// compressed and re-estimated before the add.
	queryTokens := EstimateTokens(req.Query)
	if req.CurrentCode != "" {
		soft := int(codeShare * float64(w.AvailableTokens()-queryTokens))
		if soft < 0 {
			soft = 0
		}
		code := req.CurrentCode
		if EstimateTokens(code) > soft {
			code = CompressCode(code, soft)
		}
		chunk := NewChunk(code, SourceFile, TierCritical).WithMeta("path", req.CurrentFile)
		if !w.Add(chunk) {
			a.log.Debug().Int("tokens", chunk.Tokens).Msg("current code rejected after compression")
		}
	}

	// 3. The literal user query.
	if req.Query != "" {
		if !w.Add(NewChunk(req.Query, SourceChat, TierCritical).WithMeta("role", "user")) {
			a.log.Warn().Int("tokens", queryTokens).Msg("query exceeds remaining context budget")
		}
	}

	// 4. Tool results.
	for _, tr := range req.ToolResults {
		serialized := fmt.Sprintf("[%s]\n%s", tr.Name, tr.Output)
		if EstimateTokens(serialized) > softToolResultTokens {
			serialized = SummarizeHeadTail(serialized, toolResultLines)
		}
		if !w.Add(NewChunk(serialized, SourceTool, TierHigh).WithMeta("tool", tr.Name)) {
			break
		}
	}

	// 5. Chat history, compressed as a whole first.
	for _, t := range CompressHistory(req.History, maxHistoryTurns, w.AvailableTokens()) {
		if !w.Add(NewChunk(t.Content, SourceChat, TierMedium).WithMeta("role", t.Role)) {
			break
		}
	}

	// 6. Related files.
	for _, path := range req.RelatedFiles {
		b, err := a.readFile(path)
		if err != nil {
			a.log.Debug().Err(err).Str("path", path).Msg("related file unreadable, skipped")
			continue
		}
		content := TruncateLines(string(b), relatedFileLines)
		if !w.Add(NewChunk(content, SourceFile, TierLow).WithMeta("path", path)) {
			break
		}
	}

	return w
}
