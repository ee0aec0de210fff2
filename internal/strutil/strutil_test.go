package strutil

import "testing"

func TestCountWords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		all  bool
		want int
	}{
		{"plain words", "hello bot", false, 2},
		{"wildcards excluded", "my name is *", false, 3},
		{"pound and underscore excluded", "# _ hello", false, 1},
		{"optional group excluded", "[the] weather", false, 1},
		{"all counts everything", "my name is *", true, 4},
		{"empty", "", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountWords(tt.in, tt.all); got != tt.want {
				t.Errorf("CountWords(%q, %v) = %d, want %d", tt.in, tt.all, got, tt.want)
			}
		})
	}
}

func TestIsAtomic(t *testing.T) {
	tests := []struct {
		pattern string
		want    bool
	}{
		{"hello bot", true},
		{"my name is *", false},
		{"phone #", false},
		{"say _", false},
		{"[the] weather", false},
	}
	for _, tt := range tests {
		if got := IsAtomic(tt.pattern); got != tt.want {
			t.Errorf("IsAtomic(%q) = %v, want %v", tt.pattern, got, tt.want)
		}
	}
}

func TestCollapseWhitespace(t *testing.T) {
	if got := CollapseWhitespace("  hello   there\tbot \n"); got != "hello there bot" {
		t.Errorf("CollapseWhitespace = %q", got)
	}
}

func TestStripNasties(t *testing.T) {
	if got := StripNasties("Kive-Bot 9000!"); got != "KiveBot 9000" {
		t.Errorf("StripNasties = %q", got)
	}
}

func TestWordBoundaryRegexp(t *testing.T) {
	re := WordBoundaryRegexp("bot")
	if !re.MatchString("hello bot") {
		t.Error("expected match at word boundary")
	}
	if re.MatchString("robots") {
		t.Error("matched inside a longer word")
	}
}

func TestCountRunes(t *testing.T) {
	if got := CountRunes("안녕하세요"); got != 5 {
		t.Errorf("CountRunes = %d, want 5", got)
	}
}
