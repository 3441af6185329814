package pipeline

import "testing"

func TestParseReviewWellFormed(t *testing.T) {
	r := ParseReview("VERDICT: accepted\nSCORE: 91\nPROBLEMS: none")
	if r.Verdict != VerdictAccepted || r.Score != 91 || r.Problems != "" {
		t.Fatalf("unexpected: %+v", r)
	}
}

func TestParseReviewVariants(t *testing.T) {
	cases := []struct {
		in      string
		verdict Verdict
		score   int
	}{
		{"verdict: needs_rework\nscore: 40", VerdictNeedsRework, 40},
		{"Verdict - NEEDS REWORK, Score - 55", VerdictNeedsRework, 55},
		{"the verdict: rejected. score: 5.", VerdictRejected, 5},
		{"I think this is fine overall", VerdictUnknown, fallbackScore},
		{"score: 950", VerdictUnknown, fallbackScore}, // absurd score ignored
		{"", VerdictUnknown, fallbackScore},
	}
	for _, tc := range cases {
		r := ParseReview(tc.in)
		if r.Verdict != tc.verdict || r.Score != tc.score {
			t.Errorf("ParseReview(%q) = %+v, want verdict=%s score=%d", tc.in, r, tc.verdict, tc.score)
		}
	}
}

func TestParseReviewProblemsSection(t *testing.T) {
	r := ParseReview("VERDICT: needs-rework\nSCORE: 30\nPROBLEMS: missing error handling\nalso no tests")
	if r.Problems == "" || r.Problems != "missing error handling\nalso no tests" {
		t.Fatalf("problems: %q", r.Problems)
	}
}

func TestParseReviewNeverPanicsOnGarbage(t *testing.T) {
	for _, s := range []string{"\x00\xff", "score:", "verdict:", "PROBLEMS:", "verdict: maybe"} {
		_ = ParseReview(s) // must not panic
	}
}
