package sorter

import (
	"reflect"
	"testing"

	"github.com/hanspeak/kivescript/internal/ast"
)

func addTriggers(topic *ast.Topic, patterns ...string) {
	for _, p := range patterns {
		topic.Triggers = append(topic.Triggers, &ast.Trigger{Pattern: p, Reply: []string{"x"}})
	}
}

func TestSpecificityOrdering(t *testing.T) {
	root := ast.NewRoot()
	addTriggers(root.Topic("random"),
		"*", "#", "_", "hello *", "[hi] there", "hi", "hello bot",
	)

	buf := Build(root, nil, nil)

	want := []string{"hello bot", "hi", "[hi] there", "hello *", "_", "#", "*"}
	got := make([]string, 0, len(buf.Topics["random"]))
	for _, e := range buf.Topics["random"] {
		got = append(got, e.MatchText)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("sorted order = %v, want %v", got, want)
	}
}

func TestWeightBeatsSpecificity(t *testing.T) {
	root := ast.NewRoot()
	addTriggers(root.Topic("random"), "hello robot friend", "hi {weight=10}")

	buf := Build(root, nil, nil)
	if got := buf.Topics["random"][0].MatchText; got != "hi {weight=10}" {
		t.Errorf("first entry = %q, want the weighted trigger", got)
	}
}

func TestInheritanceLayering(t *testing.T) {
	root := ast.NewRoot()
	addTriggers(root.Topic("parent"), "*")
	child := root.Topic("child")
	child.Inherits["parent"] = true
	addTriggers(child, "hello")

	buf := Build(root, nil, nil)
	entries := buf.Topics["child"]
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].MatchText != "{inherits=0}hello" {
		t.Errorf("entries[0] = %q, want child's own trigger first", entries[0].MatchText)
	}
	if entries[1].MatchText != "{inherits=1}*" {
		t.Errorf("entries[1] = %q, want inherited catch-all last", entries[1].MatchText)
	}
}

func TestInheritanceChainLayersEveryHop(t *testing.T) {
	root := ast.NewRoot()
	addTriggers(root.Topic("grandparent"), "gp trigger")
	parent := root.Topic("parent")
	parent.Inherits["grandparent"] = true
	addTriggers(parent, "p trigger")
	child := root.Topic("child")
	child.Inherits["parent"] = true
	addTriggers(child, "c trigger")

	buf := Build(root, nil, nil)
	got := make([]string, 0, 3)
	for _, e := range buf.Topics["child"] {
		got = append(got, e.MatchText)
	}
	want := []string{"{inherits=0}c trigger", "{inherits=1}p trigger", "{inherits=2}gp trigger"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("chain order = %v, want %v", got, want)
	}
}

func TestIncludesPoolAtEqualPriority(t *testing.T) {
	root := ast.NewRoot()
	addTriggers(root.Topic("common"), "shared question here")
	topic := root.Topic("support")
	topic.Includes["common"] = true
	addTriggers(topic, "hi")

	buf := Build(root, nil, nil)
	entries := buf.Topics["support"]
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	// No {inherits=} labels anywhere: included triggers pool at the same
	// priority level, so the longer atomic trigger sorts first.
	if entries[0].MatchText != "shared question here" || entries[1].MatchText != "hi" {
		t.Errorf("got order %q, %q", entries[0].MatchText, entries[1].MatchText)
	}
}

func TestThatsListsOnlyPreviousTriggers(t *testing.T) {
	root := ast.NewRoot()
	topic := root.Topic("random")
	topic.Triggers = append(topic.Triggers,
		&ast.Trigger{Pattern: "knock knock", Reply: []string{"who is there"}},
		&ast.Trigger{Pattern: "*", Previous: "who is there", Reply: []string{"<star> who?"}},
	)

	buf := Build(root, nil, nil)
	if len(buf.Thats["random"]) != 1 {
		t.Fatalf("thats entries = %d, want 1", len(buf.Thats["random"]))
	}
	if got := buf.Thats["random"][0].MatchText; got != "who is there" {
		t.Errorf("thats entry keyed by %q, want the %%Previous text", got)
	}
}

func TestSubstitutionKeyOrder(t *testing.T) {
	subs := map[string]string{
		"im":        "i am",
		"i m":       "i am",
		"what's up": "what is up",
	}
	got := sortSubstitutionKeys(subs)
	want := []string{"what's up", "i m", "im"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("key order = %v, want %v", got, want)
	}
}

func TestDoubleSortIsNoOp(t *testing.T) {
	root := ast.NewRoot()
	addTriggers(root.Topic("random"), "hello bot", "my name is *", "[hi] there")
	subs := map[string]string{"im": "i am"}

	first := Build(root, subs, nil)
	second := Build(root, subs, nil)
	if !reflect.DeepEqual(first, second) {
		t.Error("two Build calls over the same AST produced different buffers")
	}
}
