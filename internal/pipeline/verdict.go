package pipeline

import (
	"regexp"
	"strconv"
	"strings"
)

// Verdict is the reviewer's decision token.
type Verdict string

const (
	VerdictAccepted    Verdict = "accepted"
	VerdictNeedsRework Verdict = "needs-rework"
	VerdictRejected    Verdict = "rejected"
	// VerdictUnknown is the documented fallback when no verdict token
	// can be found in the reviewer's output.
	VerdictUnknown Verdict = "unknown"
)

// fallbackScore is the documented mid-range default when the reviewer
// emitted no usable score.
const fallbackScore = 50

// Review is the structured verdict parsed out of free-form reviewer
// output.
type Review struct {
	Verdict  Verdict
	Score    int
	Problems string
}

var (
	verdictRe  = regexp.MustCompile(`(?i)verdict\s*[:=\-]?\s*(accepted|needs[-_ ]?rework|rejected)`)
	scoreRe    = regexp.MustCompile(`(?i)score\s*[:=\-]?\s*(\d{1,3})`)
	problemsRe = regexp.MustCompile(`(?is)problems\s*[:=\-]?\s*(.+)`)
)

// ParseReview extracts a Review from free-form model output. It never
// fails: a missing verdict becomes VerdictUnknown, a missing or absurd
// score becomes fallbackScore, and an absent problems section is empty.
func ParseReview(s string) Review {
	r := Review{Verdict: VerdictUnknown, Score: fallbackScore}
	if m := verdictRe.FindStringSubmatch(s); m != nil {
		switch strings.ToLower(strings.NewReplacer("_", "-", " ", "-").Replace(m[1])) {
		case "accepted":
			r.Verdict = VerdictAccepted
		case "needs-rework":
			r.Verdict = VerdictNeedsRework
		case "rejected":
			r.Verdict = VerdictRejected
		}
	}
	if m := scoreRe.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 0 && n <= 100 {
			r.Score = n
		}
	}
	if m := problemsRe.FindStringSubmatch(s); m != nil {
		p := strings.TrimSpace(m[1])
		if strings.EqualFold(p, "none") || strings.EqualFold(p, "none.") {
			p = ""
		}
		r.Problems = p
	}
	return r
}
