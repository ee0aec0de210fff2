package session

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

// snapshotFile is the on-disk shape of a full Store dump, keyed by
// username. It exists so a Store can survive a process restart and so
// multiple cooperating processes (e.g. the telegram and discord front ends
// sharing one engine's vars) can hand off state without a database.
type snapshotFile struct {
	Users map[string]snapshotUser `json:"users"`
}

type snapshotUser struct {
	Vars      map[string]string `json:"vars"`
	LastMatch string            `json:"last_match"`
	Input     []string          `json:"input_history"`
	Reply     []string          `json:"reply_history"`
}

// SaveSnapshot writes every known user's live data to path, guarded by a
// file lock so a concurrent writer (another process sharing the same
// snapshot file) cannot interleave a torn write. The file is rewritten in
// place, so the lock is also what keeps LoadSnapshot from reading it
// mid-write.
func (s *Store) SaveSnapshot(path string) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("session: lock snapshot: %w", err)
	}
	defer lock.Unlock()

	out := snapshotFile{Users: make(map[string]snapshotUser)}
	for _, username := range s.Usernames() {
		r := s.record(username)
		r.mu.RLock()
		out.Users[username] = snapshotUser{
			Vars:      copyMap(r.live.Vars),
			LastMatch: r.live.LastMatch,
			Input:     append([]string(nil), r.live.History.Input...),
			Reply:     append([]string(nil), r.live.History.Reply...),
		}
		r.mu.RUnlock()
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("session: marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("session: write snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot replaces every user record in s with what path contains.
// Missing files are treated as an empty snapshot, not an error, so a first
// run with no prior state starts clean.
func (s *Store) LoadSnapshot(path string) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("session: lock snapshot: %w", err)
	}
	defer lock.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("session: read snapshot: %w", err)
	}

	var in snapshotFile
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("session: unmarshal snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[string]*record, len(in.Users))
	for username, u := range in.Users {
		ud := newUserData()
		for k, v := range u.Vars {
			ud.Vars[k] = v
		}
		ud.LastMatch = u.LastMatch
		if len(u.Input) == HistorySize && len(u.Reply) == HistorySize {
			ud.History.Input = append([]string(nil), u.Input...)
			ud.History.Reply = append([]string(nil), u.Reply...)
		}
		s.users[username] = &record{live: ud}
	}
	return nil
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
