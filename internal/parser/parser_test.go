package parser

import (
	"errors"
	"reflect"
	"testing"

	"github.com/hanspeak/kivescript/internal/ast"
)

func parseLines(t *testing.T, cfg Config, lines []string) (*ast.Root, []Warning) {
	t.Helper()
	var warnings []Warning
	p := New(cfg, nil, func(w Warning) { warnings = append(warnings, w) })
	if err := p.Parse("test.rive", lines); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return p.Root(), warnings
}

func TestDefines(t *testing.T) {
	root, _ := parseLines(t, DefaultConfig(), []string{
		"! version = 2.0",
		"! global debug = true",
		"! var name = kivebot",
		"! sub what's = what is",
		"! person i = you",
	})

	if root.Begin.Global["debug"] != "true" {
		t.Errorf("global debug = %q", root.Begin.Global["debug"])
	}
	if root.Begin.Var["name"] != "kivebot" {
		t.Errorf("var name = %q", root.Begin.Var["name"])
	}
	if root.Begin.Sub["what's"] != "what is" {
		t.Errorf("sub = %q", root.Begin.Sub["what's"])
	}
	if root.Begin.Person["i"] != "you" {
		t.Errorf("person = %q", root.Begin.Person["i"])
	}
}

func TestArrayDefines(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		array string
		want  []string
	}{
		{
			"pipe separated",
			[]string{"! array colors = red|green|blue"},
			"colors", []string{"red", "green", "blue"},
		},
		{
			"whitespace separated",
			[]string{"! array greek = alpha beta gamma"},
			"greek", []string{"alpha", "beta", "gamma"},
		},
		{
			"continuation joins with crlf",
			[]string{"! array many = a b c", "^ d|e"},
			"many", []string{"a", "b", "c", "d", "e"},
		},
		{
			"escaped space",
			[]string{`! array phrases = hello\sthere|bye`},
			"phrases", []string{"hello there", "bye"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, _ := parseLines(t, DefaultConfig(), tt.lines)
			if got := root.Begin.Array[tt.array]; !reflect.DeepEqual(got, tt.want) {
				t.Errorf("array %s = %v, want %v", tt.array, got, tt.want)
			}
		})
	}
}

func TestTopicLabels(t *testing.T) {
	root, _ := parseLines(t, DefaultConfig(), []string{
		"> topic support includes common inherits base",
		"+ help me",
		"- support here",
		"< topic",
		"+ hello",
		"- hi",
	})

	support := root.Topics["support"]
	if support == nil {
		t.Fatal("topic support missing")
	}
	if !support.Includes["common"] || !support.Inherits["base"] {
		t.Errorf("includes/inherits not recorded: %v / %v", support.Includes, support.Inherits)
	}
	if len(support.Triggers) != 1 || support.Triggers[0].Pattern != "help me" {
		t.Errorf("support triggers = %+v", support.Triggers)
	}
	random := root.Topics["random"]
	if random == nil || len(random.Triggers) != 1 || random.Triggers[0].Pattern != "hello" {
		t.Error("trigger after < topic did not land in random")
	}
}

func TestPreviousLookahead(t *testing.T) {
	root, _ := parseLines(t, DefaultConfig(), []string{
		"+ knock knock",
		"- who is there",
		"+ *",
		"% who is there",
		"- <star> who?",
	})

	triggers := root.Topics["random"].Triggers
	if len(triggers) != 2 {
		t.Fatalf("got %d triggers", len(triggers))
	}
	if triggers[0].Previous != "" {
		t.Errorf("first trigger previous = %q, want empty", triggers[0].Previous)
	}
	if triggers[1].Previous != "who is there" {
		t.Errorf("second trigger previous = %q", triggers[1].Previous)
	}
}

func TestContinuationModes(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"none", Config{Concat: ConcatNone, Depth: 50}, "helloworld"},
		{"space", Config{Concat: ConcatSpace, Depth: 50}, "hello world"},
		{"newline", Config{Concat: ConcatNewline, Depth: 50}, "hello\nworld"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, _ := parseLines(t, tt.cfg, []string{
				"+ greet",
				"- hello",
				"^ world",
			})
			reply := root.Topics["random"].Triggers[0].Reply[0]
			if reply != tt.want {
				t.Errorf("reply = %q, want %q", reply, tt.want)
			}
		})
	}
}

func TestLocalConcatOverridesConfig(t *testing.T) {
	root, _ := parseLines(t, DefaultConfig(), []string{
		"! local concat = space",
		"+ greet",
		"- hello",
		"^ world",
	})
	if reply := root.Topics["random"].Triggers[0].Reply[0]; reply != "hello world" {
		t.Errorf("reply = %q, want local concat applied", reply)
	}
}

func TestComments(t *testing.T) {
	root, _ := parseLines(t, DefaultConfig(), []string{
		"// full line comment",
		"/* block",
		"still a comment",
		"*/",
		"+ hello // trailing comment",
		"- hi",
	})
	triggers := root.Topics["random"].Triggers
	if len(triggers) != 1 || triggers[0].Pattern != "hello" {
		t.Errorf("triggers = %+v", triggers)
	}
}

func TestObjectMacroCapture(t *testing.T) {
	root, _ := parseLines(t, DefaultConfig(), []string{
		"> object upper js",
		"return args[0].toUpperCase();",
		"< object",
		"+ hello",
		"- hi",
	})
	if len(root.Objects) != 1 {
		t.Fatalf("got %d objects", len(root.Objects))
	}
	obj := root.Objects[0]
	if obj.Name != "upper" || obj.Language != "js" {
		t.Errorf("object header = %s/%s", obj.Name, obj.Language)
	}
	if len(obj.Code) != 1 || obj.Code[0] != "return args[0].toUpperCase();" {
		t.Errorf("object body = %v", obj.Code)
	}
}

func TestRedirectConflictsWithReply(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strict = true
	p := New(cfg, nil, nil)
	err := p.Parse("test.rive", []string{
		"+ hey",
		"- hi",
		"@ hello",
	})
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if perr.Kind != KindRedirectReply {
		t.Errorf("kind = %s", perr.Kind)
	}
}

func TestStrictRejectsMalformedPrevious(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strict = true
	p := New(cfg, nil, nil)
	err := p.Parse("test.rive", []string{
		"+ *",
		"% who is (there",
		"- <star> who?",
	})
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError for unbalanced previous pattern, got %v", err)
	}
	if perr.Kind != KindSyntax {
		t.Errorf("kind = %s", perr.Kind)
	}
}

func TestStrictRejectsMalformedRedirect(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strict = true
	p := New(cfg, nil, nil)
	err := p.Parse("test.rive", []string{
		"+ hey",
		"@ hello [bot",
	})
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError for unbalanced redirect target, got %v", err)
	}
	if perr.Kind != KindSyntax {
		t.Errorf("kind = %s", perr.Kind)
	}
}

func TestLenientSkipsMalformedPrevious(t *testing.T) {
	root, warnings := parseLines(t, DefaultConfig(), []string{
		"+ *",
		"% who is (there",
		"- <star> who?",
	})
	if len(warnings) == 0 {
		t.Error("expected a warning for the malformed previous pattern")
	}
	if got := root.Topics["random"].Triggers[0].Previous; got != "" {
		t.Errorf("previous = %q, want empty after skipped pattern", got)
	}
}

func TestStrictVersionCheck(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strict = true
	p := New(cfg, nil, nil)
	err := p.Parse("test.rive", []string{"! version = 3.0"})
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if perr.Kind != KindVersion {
		t.Errorf("kind = %s", perr.Kind)
	}
}

func TestLenientModeWarnsAndContinues(t *testing.T) {
	root, warnings := parseLines(t, DefaultConfig(), []string{
		"- orphan reply",
		"+ hello",
		"- hi",
	})
	if len(warnings) == 0 {
		t.Error("expected a warning for the orphan reply")
	}
	if len(root.Topics["random"].Triggers) != 1 {
		t.Error("valid trigger after bad line was not parsed")
	}
}

func TestForceCaseLowercasesTriggers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ForceCase = true
	root, _ := parseLines(t, cfg, []string{
		"+ HELLO Bot",
		"- hi",
	})
	if got := root.Topics["random"].Triggers[0].Pattern; got != "hello bot" {
		t.Errorf("pattern = %q", got)
	}
}
