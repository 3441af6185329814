package assembler

import "testing"

func TestEstimateTokensExactValues(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"two words", "hello world", 2},
		{"punctuation runs", "hello, world!", 4},
		{"punct run collapses", "wait... what", 3},
		{"newlines count", "a\nb\nc", 5},
		{"identifier is one token", "some_var_name", 1},
		{"digits", "x = 42", 3},
		{"cyrillic scaled", "привет мир как дела сегодня", 6},
		{"latin not scaled", "hello there my dear friend", 5},
	}
	for _, tc := range cases {
		if got := EstimateTokens(tc.in); got != tc.want {
			t.Errorf("%s: EstimateTokens(%q) = %d, want %d", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestEstimateTokensPure(t *testing.T) {
	in := "the same string, every time\nточно так же"
	first := EstimateTokens(in)
	for i := 0; i < 5; i++ {
		if got := EstimateTokens(in); got != first {
			t.Fatalf("estimate changed between calls: %d vs %d", first, got)
		}
	}
}
