package assembler

import (
	"fmt"
	"regexp"
	"strings"
)

// importantLine matches lines worth keeping when code is compressed:
// definitions, control flow, flagged comments and decorators.
var importantLine = regexp.MustCompile(`^\s*(func |def |class |type |struct |interface |var |const |import |package |if |else|elif |for |while |switch |case |return|try|except|catch|finally|@\w+)|(//|#).*(TODO|FIXME|NOTE|BUG|HACK)`)

// leadingFraction of lines always retained by CompressCode, on the
// theory that the head of a file carries declarations and intent.
const leadingFraction = 0.3

// omittedMarker renders a run of elided lines.
func omittedMarker(n int) string {
	return fmt.Sprintf("... %d lines omitted ...", n)
}

// CompressCode shrinks code toward maxTokens by keeping the leading
// fraction of lines plus any line matching importantLine, replacing
// each dropped run with an omitted-count marker. Returns code
// unchanged when it already fits.
func CompressCode(code string, maxTokens int) string {
	if EstimateTokens(code) <= maxTokens {
		return code
	}
	lines := strings.Split(code, "\n")
	head := int(float64(len(lines)) * leadingFraction)

	keep := make([]bool, len(lines))
	for i, line := range lines {
		keep[i] = i < head || importantLine.MatchString(line)
	}

	var out []string
	dropped := 0
	for i, line := range lines {
		if keep[i] {
			if dropped > 0 {
				out = append(out, omittedMarker(dropped))
				dropped = 0
			}
			out = append(out, line)
			continue
		}
		dropped++
	}
	if dropped > 0 {
		out = append(out, omittedMarker(dropped))
	}
	result := strings.Join(out, "\n")

	// The important-line pass may still overshoot on dense files; halve
	// from the bottom until the estimate fits.
	for EstimateTokens(result) > maxTokens {
		kept := strings.Split(result, "\n")
		if len(kept) <= 2 {
			break
		}
		result = TruncateLines(result, len(kept)/2)
	}
	return result
}

// SummarizeHeadTail keeps the first and last lines of text, eliding
// the middle with an omitted-count marker. Text within maxLines is
// returned unchanged.
func SummarizeHeadTail(text string, maxLines int) string {
	if maxLines < 2 {
		maxLines = 2
	}
	lines := strings.Split(text, "\n")
	if len(lines) <= maxLines {
		return text
	}
	head := maxLines / 2
	tail := maxLines - head
	out := make([]string, 0, maxLines+1)
	out = append(out, lines[:head]...)
	out = append(out, omittedMarker(len(lines)-maxLines))
	out = append(out, lines[len(lines)-tail:]...)
	return strings.Join(out, "\n")
}

// TruncateLines keeps the first maxLines lines, appending a marker for
// the rest. Used for related files, where only the opening matters.
func TruncateLines(text string, maxLines int) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= maxLines {
		return text
	}
	out := append([]string{}, lines[:maxLines]...)
	out = append(out, omittedMarker(len(lines)-maxLines))
	return strings.Join(out, "\n")
}

// Turn is one prior conversation turn.
type Turn struct {
	Role    string
	Content string
}

// oversizedTurnLines bounds a single turn that alone would blow the
// remaining history budget: it is head/tail summarized to this many
// lines before inclusion.
const oversizedTurnLines = 12

// CompressHistory caps history to maxTurns and maxTokens. System
// turns are always preserved; of the rest, only the most recent turns
// that fit survive, and a turn that alone exceeds the remaining budget
// is head/tail summarized. The result stays in chronological order.
func CompressHistory(turns []Turn, maxTurns, maxTokens int) []Turn {
	if len(turns) == 0 {
		return nil
	}
	var system []Turn
	budget := maxTokens
	for _, t := range turns {
		if t.Role == "system" {
			system = append(system, t)
			budget -= EstimateTokens(t.Content)
		}
	}

	// Walk recent-first over non-system turns.
	var recent []Turn
	for i := len(turns) - 1; i >= 0 && len(recent) < maxTurns; i-- {
		t := turns[i]
		if t.Role == "system" {
			continue
		}
		cost := EstimateTokens(t.Content)
		if cost > budget {
			summarized := SummarizeHeadTail(t.Content, oversizedTurnLines)
			cost = EstimateTokens(summarized)
			if cost > budget {
				break
			}
			t.Content = summarized
		}
		recent = append(recent, t)
		budget -= cost
	}

	// recent is reversed; stitch back chronologically after systems.
	out := append([]Turn{}, system...)
	for i := len(recent) - 1; i >= 0; i-- {
		out = append(out, recent[i])
	}
	return out
}
