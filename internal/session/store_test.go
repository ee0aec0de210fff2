package session

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestSetGet(t *testing.T) {
	s := New()

	if got := s.Get("alice", "name"); got != Undefined {
		t.Errorf("unset var = %q, want %q", got, Undefined)
	}

	s.Set("alice", "name", "alice")
	if got := s.Get("alice", "name"); got != "alice" {
		t.Errorf("get after set = %q", got)
	}

	// Setting empty clears the key again.
	s.Set("alice", "name", "")
	if got := s.Get("alice", "name"); got != Undefined {
		t.Errorf("get after clear = %q, want %q", got, Undefined)
	}
}

func TestHistoryInvariant(t *testing.T) {
	s := New()
	s.Init("bob")

	hist := s.GetHistory("bob")
	if len(hist.Input) != HistorySize || len(hist.Reply) != HistorySize {
		t.Fatalf("history lengths = %d/%d, want %d", len(hist.Input), len(hist.Reply), HistorySize)
	}
	for i := range hist.Input {
		if hist.Input[i] != Undefined || hist.Reply[i] != Undefined {
			t.Fatalf("fresh history slot %d not %q", i, Undefined)
		}
	}

	for i := 0; i < HistorySize+3; i++ {
		s.AddHistory("bob", "in", "out")
		hist = s.GetHistory("bob")
		if len(hist.Input) != HistorySize || len(hist.Reply) != HistorySize {
			t.Fatalf("history length drifted after %d pushes", i+1)
		}
	}
}

func TestHistoryOrder(t *testing.T) {
	s := New()
	s.AddHistory("bob", "first", "reply one")
	s.AddHistory("bob", "second", "reply two")

	hist := s.GetHistory("bob")
	if hist.Input[0] != "second" || hist.Input[1] != "first" {
		t.Errorf("input order = %v, want newest at index 0", hist.Input[:2])
	}
	if hist.Reply[0] != "reply two" || hist.Reply[1] != "reply one" {
		t.Errorf("reply order = %v", hist.Reply[:2])
	}
}

func TestLastMatch(t *testing.T) {
	s := New()
	s.SetLastMatch("alice", "hello *")
	if got := s.GetLastMatch("alice"); got != "hello *" {
		t.Errorf("last match = %q", got)
	}
	s.SetLastMatch("alice", "")
	if got := s.GetLastMatch("alice"); got != "" {
		t.Errorf("cleared last match = %q", got)
	}
}

func TestFreezeThaw(t *testing.T) {
	s := New()
	s.Set("alice", "mood", "happy")
	s.Freeze("alice")
	s.Set("alice", "mood", "grumpy")

	if !s.Thaw("alice", Thaw) {
		t.Fatal("Thaw reported no frozen copy")
	}
	if got := s.Get("alice", "mood"); got != "happy" {
		t.Errorf("mood after thaw = %q, want pre-freeze value", got)
	}
	// The frozen copy is gone now.
	if s.Thaw("alice", Thaw) {
		t.Error("second Thaw found a frozen copy")
	}
}

func TestThawKeepRetainsSnapshot(t *testing.T) {
	s := New()
	s.Set("alice", "mood", "happy")
	s.Freeze("alice")
	s.Set("alice", "mood", "grumpy")

	if !s.Thaw("alice", Keep) {
		t.Fatal("Keep reported no frozen copy")
	}
	if got := s.Get("alice", "mood"); got != "happy" {
		t.Errorf("mood after keep = %q", got)
	}

	// Mutate again; the kept snapshot still restores.
	s.Set("alice", "mood", "tired")
	if !s.Thaw("alice", Thaw) {
		t.Fatal("frozen copy was not kept")
	}
	if got := s.Get("alice", "mood"); got != "happy" {
		t.Errorf("mood after second thaw = %q", got)
	}
}

func TestThawDiscard(t *testing.T) {
	s := New()
	s.Set("alice", "mood", "happy")
	s.Freeze("alice")
	s.Set("alice", "mood", "grumpy")

	if !s.Thaw("alice", Discard) {
		t.Fatal("Discard reported no frozen copy")
	}
	if got := s.Get("alice", "mood"); got != "grumpy" {
		t.Errorf("Discard changed live vars: mood = %q", got)
	}
	if s.Thaw("alice", Thaw) {
		t.Error("Discard left the frozen copy behind")
	}
}

func TestClear(t *testing.T) {
	s := New()
	s.Set("alice", "name", "alice")
	s.AddHistory("alice", "hi", "hello")
	s.Clear("alice")

	if got := s.Get("alice", "name"); got != Undefined {
		t.Errorf("var survived Clear: %q", got)
	}
	if hist := s.GetHistory("alice"); hist.Input[0] != Undefined {
		t.Error("history survived Clear")
	}
}

func TestClearAll(t *testing.T) {
	s := New()
	s.Set("alice", "k", "v")
	s.Set("bob", "k", "v")
	s.ClearAll()
	if len(s.Usernames()) != 0 {
		t.Errorf("users after ClearAll = %v", s.Usernames())
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")

	s := New()
	s.Set("alice", "name", "alice")
	s.Set("alice", "topic", "support")
	s.AddHistory("alice", "hi", "hello")
	s.SetLastMatch("alice", "hi")
	if err := s.SaveSnapshot(path); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	restored := New()
	if err := restored.LoadSnapshot(path); err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}

	if !reflect.DeepEqual(restored.GetAll("alice"), s.GetAll("alice")) {
		t.Errorf("vars = %v, want %v", restored.GetAll("alice"), s.GetAll("alice"))
	}
	if restored.GetLastMatch("alice") != "hi" {
		t.Errorf("last match = %q", restored.GetLastMatch("alice"))
	}
	if hist := restored.GetHistory("alice"); hist.Input[0] != "hi" || hist.Reply[0] != "hello" {
		t.Errorf("history head = %q/%q", hist.Input[0], hist.Reply[0])
	}
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	s := New()
	if err := s.LoadSnapshot(filepath.Join(t.TempDir(), "absent.json")); err != nil {
		t.Errorf("missing snapshot should not error: %v", err)
	}
}
