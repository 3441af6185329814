package assembler

import (
	"sort"
	"strings"
)

// Tier orders chunks by how expendable they are when the budget is
// tight. Lower values survive longer.
type Tier int

const (
	TierCritical Tier = iota
	TierHigh
	TierMedium
	TierLow
	TierOptional
)

func (t Tier) String() string {
	switch t {
	case TierCritical:
		return "critical"
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	case TierLow:
		return "low"
	case TierOptional:
		return "optional"
	}
	return "unknown"
}

// Source tags where a chunk came from; it picks the render format.
type Source string

const (
	SourceSystem Source = "system"
	SourceFile   Source = "file"
	SourceChat   Source = "chat-turn"
	SourceTool   Source = "tool-result"
)

// Chunk is one candidate piece of context. Created transiently per
// request, never persisted.
type Chunk struct {
	Content  string
	Source   Source
	Tier     Tier
	Tokens   int
	Metadata map[string]string
}

// NewChunk builds a chunk with its token estimate filled in.
func NewChunk(content string, source Source, tier Tier) Chunk {
	return Chunk{Content: content, Source: source, Tier: tier, Tokens: EstimateTokens(content)}
}

// WithMeta returns a copy of c carrying one metadata entry.
func (c Chunk) WithMeta(key, value string) Chunk {
	m := make(map[string]string, len(c.Metadata)+1)
	for k, v := range c.Metadata {
		m[k] = v
	}
	m[key] = value
	c.Metadata = m
	return c
}

// Window is the token-budgeted container of accepted chunks.
// Invariant: TotalTokens() + reservedForResponse <= maxTokens.
type Window struct {
	chunks   []Chunk
	max      int
	reserved int
	used     int
}

// NewWindow builds a window with maxTokens total and reserved tokens
// held back for the model's response.
func NewWindow(maxTokens, reservedForResponse int) *Window {
	if maxTokens < 0 {
		maxTokens = 0
	}
	if reservedForResponse < 0 {
		reservedForResponse = 0
	}
	return &Window{max: maxTokens, reserved: reservedForResponse}
}

// AvailableTokens is the room left for further chunks.
func (w *Window) AvailableTokens() int {
	avail := w.max - w.reserved - w.used
	if avail < 0 {
		return 0
	}
	return avail
}

// TotalTokens is the sum of accepted chunk estimates.
func (w *Window) TotalTokens() int { return w.used }

// MaxTokens returns the window's total budget.
func (w *Window) MaxTokens() int { return w.max }

// ReservedForResponse returns the response reservation.
func (w *Window) ReservedForResponse() int { return w.reserved }

// Chunks returns the accepted chunks in insertion order.
func (w *Window) Chunks() []Chunk {
	out := make([]Chunk, len(w.chunks))
	copy(out, w.chunks)
	return out
}

// Add accepts the chunk if its estimate fits the available budget.
// There is no partial acceptance: an oversized chunk is rejected
// untouched and the window is unchanged.
func (w *Window) Add(c Chunk) bool {
	if c.Tokens > w.AvailableTokens() {
		return false
	}
	w.chunks = append(w.chunks, c)
	w.used += c.Tokens
	return true
}

// BuildPrompt renders accepted chunks sorted critical-first (stable
// within a tier), each formatted by its source tag, separated by blank
// lines.
func (w *Window) BuildPrompt() string {
	sorted := make([]Chunk, len(w.chunks))
	copy(sorted, w.chunks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Tier < sorted[j].Tier })

	parts := make([]string, 0, len(sorted))
	for _, c := range sorted {
		switch c.Source {
		case SourceFile:
			if path := c.Metadata["path"]; path != "" {
				parts = append(parts, "### File: "+path+"\n"+c.Content)
				continue
			}
			parts = append(parts, c.Content)
		case SourceChat:
			role := c.Metadata["role"]
			if role == "" {
				role = "user"
			}
			parts = append(parts, role+": "+c.Content)
		default:
			parts = append(parts, c.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}
