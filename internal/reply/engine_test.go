package reply

import (
	"context"
	"reflect"
	"testing"

	"github.com/hanspeak/kivescript/internal/parser"
	"github.com/hanspeak/kivescript/internal/sorter"
)

func testEngine(t *testing.T, lines []string) *Engine {
	t.Helper()
	p := parser.New(parser.DefaultConfig(), nil, nil)
	if err := p.Parse("test.rive", lines); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	root := p.Root()
	buf := sorter.Build(root, root.Begin.Sub, root.Begin.Person)
	return New(DefaultConfig(), root, buf, nil, nil, nil)
}

func TestFormatMessageIdempotent(t *testing.T) {
	e := testEngine(t, []string{
		"! sub what's = what is",
		"+ hello",
		"- hi",
	})

	inputs := []string{"What's   up, Bot?!", "HELLO THERE", "plain text"}
	for _, in := range inputs {
		once := e.formatMessage(in, false)
		twice := e.formatMessage(once, false)
		if once != twice {
			t.Errorf("formatMessage not idempotent on %q: %q != %q", in, once, twice)
		}
	}
}

func TestFormatMessageSubstitutions(t *testing.T) {
	e := testEngine(t, []string{
		"! sub what's = what is",
		"! sub im = i am",
		"+ hello",
		"- hi",
	})
	if got := e.formatMessage("What's up? Im here.", false); got != "what is up i am here" {
		t.Errorf("formatted = %q", got)
	}
}

func TestApplySubstitutionsWholeWordsOnly(t *testing.T) {
	got := applySubstitutions("im swimming", []string{"im"}, map[string]string{"im": "i am"}, 50)
	if got != "i am swimming" {
		t.Errorf("got %q; substitution must not fire inside words", got)
	}
}

func TestTriggerRegexp(t *testing.T) {
	e := testEngine(t, []string{
		"! var name = kivebot",
		"! array colors = red|green|blue",
		"+ hello",
		"- hi",
	})

	tests := []struct {
		name    string
		pattern string
		message string
		match   bool
		capture string
	}{
		{"star", "my name is *", "my name is alice", true, "alice"},
		{"star no match", "my name is *", "your name is alice", false, ""},
		{"zero width star", "*", "", true, ""},
		{"pound digits", "i am # years old", "i am 25 years old", true, "25"},
		{"pound rejects letters", "i am # years old", "i am old years old", false, ""},
		{"underscore letters", "my _ is big", "my dog is big", true, "dog"},
		{"underscore rejects digits", "my _ is big", "my 12 is big", false, ""},
		{"optional present", "i am [really] happy", "i am really happy", true, ""},
		{"optional absent", "i am [really] happy", "i am happy", true, ""},
		{"array ref", "i like (@colors)", "i like green", true, ""},
		{"array ref no match", "i like (@colors)", "i like mauve", false, ""},
		{"bot var", "is your name <bot name>", "is your name kivebot", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re, err := e.triggerRegexp("u", tt.pattern)
			if err != nil {
				t.Fatalf("triggerRegexp(%q): %v", tt.pattern, err)
			}
			groups := re.FindStringSubmatch(tt.message)
			if (groups != nil) != tt.match {
				t.Fatalf("match(%q, %q) = %v, want %v", tt.pattern, tt.message, groups != nil, tt.match)
			}
			if tt.capture != "" && groups[1] != tt.capture {
				t.Errorf("capture = %q, want %q", groups[1], tt.capture)
			}
		})
	}
}

func TestEvalOperator(t *testing.T) {
	tests := []struct {
		op          string
		left, right string
		want        bool
	}{
		{"==", "a", "a", true},
		{"eq", "a", "b", false},
		{"!=", "a", "b", true},
		{"<>", "a", "a", false},
		{"<", "2", "10", true},
		{"<=", "10", "10", true},
		{">", "10", "2", true},
		{">=", "1", "2", false},
		{"<", "apple", "2", false}, // non-numeric comparisons silently fail
	}
	for _, tt := range tests {
		if got := evalOperator(tt.op, tt.left, tt.right); got != tt.want {
			t.Errorf("evalOperator(%q, %q, %q) = %v, want %v", tt.op, tt.left, tt.right, got, tt.want)
		}
	}
}

func TestParseCallArgs(t *testing.T) {
	tests := []struct {
		body     string
		wantName string
		wantArgs []string
	}{
		{"upper hello", "upper", []string{"hello"}},
		{`greet "alice smith" now`, "greet", []string{"alice smith", "now"}},
		{`greet "unterminated rest`, "greet", []string{"unterminated rest"}},
		{"solo", "solo", []string{}},
	}
	for _, tt := range tests {
		name, args := parseCallArgs(tt.body)
		if name != tt.wantName || !reflect.DeepEqual(args, tt.wantArgs) {
			t.Errorf("parseCallArgs(%q) = %q %v, want %q %v", tt.body, name, args, tt.wantName, tt.wantArgs)
		}
	}
}

func TestPickWeightedReply(t *testing.T) {
	e := testEngine(t, []string{"+ hello", "- hi"})
	e.SetSeed(7)

	counts := map[string]int{}
	replies := []string{"a{weight=3}", "b"}
	for i := 0; i < 400; i++ {
		counts[e.pickWeightedReply(replies)]++
	}
	if counts["a{weight=3}"] <= counts["b"]*2 {
		t.Errorf("weighted pick counts = %v; the weight=3 reply should dominate", counts)
	}
}

func TestUnknownTagsPreservedAndLaterTagsEvaluated(t *testing.T) {
	e := testEngine(t, []string{"+ hello", "- hi"})
	e.sessions.Set("u", "name", "alice")

	out, err := e.processTags(context.Background(), "u", "", "<mystery> and <get name>", buildCaptures(nil), buildCaptures(nil), 0)
	if err != nil {
		t.Fatalf("processTags: %v", err)
	}
	if out != "<mystery> and alice" {
		t.Errorf("out = %q", out)
	}
}

func TestFormatBlocks(t *testing.T) {
	e := testEngine(t, []string{
		"! person i = you",
		"! person you = i",
		"+ hello",
		"- hi",
	})

	tests := []struct {
		in, want string
	}{
		{"{uppercase}shout{/uppercase}", "SHOUT"},
		{"{lowercase}QUIET{/lowercase}", "quiet"},
		{"{formal}alice marie smith{/formal}", "Alice Marie Smith"},
		{"{sentence}it works{/sentence}", "It works"},
		{"{person}i told you{/person}", "you told i"},
	}
	for _, tt := range tests {
		if got := e.evaluateFormatBlocks(tt.in); got != tt.want {
			t.Errorf("format(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
