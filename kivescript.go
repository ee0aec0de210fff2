// Package kivescript is a RiveScript-style chatbot scripting engine with
// an optional Korean-morpheme preprocessing mode. It wires together a
// parser, a trigger sorter, a reply engine, and a session store behind
// the single Engine type exported here.
package kivescript

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/hanspeak/kivescript/internal/ast"
	"github.com/hanspeak/kivescript/internal/handler"
	"github.com/hanspeak/kivescript/internal/morph"
	"github.com/hanspeak/kivescript/internal/parser"
	"github.com/hanspeak/kivescript/internal/reply"
	"github.com/hanspeak/kivescript/internal/session"
	"github.com/hanspeak/kivescript/internal/sorter"
)

// Re-exported so callers configuring an Engine don't need to import the
// internal packages directly.
type (
	ConcatMode    = parser.ConcatMode
	MorphemeMode  = parser.MorphemeMode
	ThawAction    = session.ThawAction
	ErrorKind     = reply.Kind
	ObjectHandler = handler.ObjectHandler
	Subroutine    = handler.Subroutine
	Preprocessor  = morph.Preprocessor
)

const (
	ConcatNone    = parser.ConcatNone
	ConcatNewline = parser.ConcatNewline
	ConcatSpace   = parser.ConcatSpace

	ModeNoSeparation = parser.ModeNoSeparation
	ModeSeparation   = parser.ModeSeparation

	Discard = session.Discard
	Keep    = session.Keep
	Thaw    = session.Thaw
)

// Config is the full set of engine knobs, covering both the parse and
// reply phases.
type Config struct {
	Strict             bool
	UTF8               bool
	ForceCase          bool
	Concat             ConcatMode
	Morpheme           MorphemeMode
	Depth              int
	ThrowExceptions    bool
	UnicodePunctuation string
	ErrorMessages      map[ErrorKind]string
	Preprocessor       Preprocessor
	Sessions           *session.Store
}

// DefaultConfig mirrors the parser's and reply engine's documented
// defaults.
func DefaultConfig() Config {
	return Config{
		Strict:          false,
		UTF8:            false,
		ForceCase:       false,
		Concat:          ConcatNone,
		Morpheme:        ModeNoSeparation,
		Depth:           50,
		ThrowExceptions: false,
		ErrorMessages:   map[ErrorKind]string{},
	}
}

// Engine is the public facade over components A-H: loading scripts,
// sorting triggers, and serving replies.
type Engine struct {
	mu       sync.Mutex // guards parser/sorted transition, not the reply phase
	cfg      Config
	p        *parser.Parser
	sorted   bool
	rep      *reply.Engine
	warnings []parser.Warning
}

// New returns an Engine ready to accept LoadLines calls.
func New(cfg Config) *Engine {
	pre := cfg.Preprocessor

	pcfg := parser.Config{
		Strict:    cfg.Strict,
		UTF8:      cfg.UTF8,
		ForceCase: cfg.ForceCase,
		Concat:    cfg.Concat,
		Morpheme:  cfg.Morpheme,
		Depth:     cfg.Depth,
	}

	e := &Engine{cfg: cfg}
	e.p = parser.New(pcfg, pre, func(w parser.Warning) {
		e.mu.Lock()
		e.warnings = append(e.warnings, w)
		e.mu.Unlock()
	})

	rcfg := reply.DefaultConfig()
	rcfg.UTF8 = cfg.UTF8
	rcfg.Morpheme = cfg.Morpheme
	rcfg.Depth = cfg.Depth
	rcfg.ThrowExceptions = cfg.ThrowExceptions
	if cfg.UnicodePunctuation != "" {
		if re, err := regexp.Compile(cfg.UnicodePunctuation); err == nil {
			rcfg.UnicodePunctuation = re
		}
	}
	for k, v := range cfg.ErrorMessages {
		rcfg.ErrorMessages[k] = v
	}

	sessions := cfg.Sessions
	if sessions == nil {
		sessions = session.New()
	}
	e.rep = reply.New(rcfg, ast.NewRoot(), &sorter.Buffer{Topics: map[string][]sorter.Entry{}, Thats: map[string][]sorter.Entry{}}, sessions, handler.New(), pre)
	return e
}

// LoadLines parses one file's worth of script lines and merges it into the
// engine's AST. label is used only for error/warning messages. Must be
// called before SortReplies; calling it again after SortReplies has run
// returns an error since the reply phase has already frozen the buffer.
func (e *Engine) LoadLines(label string, lines []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sorted {
		return fmt.Errorf("kivescript: LoadLines called after SortReplies for %q", label)
	}
	return e.p.Parse(label, lines)
}

// Warnings returns every lenient-mode parse warning collected so far.
func (e *Engine) Warnings() []parser.Warning {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]parser.Warning(nil), e.warnings...)
}

// SortReplies builds the sort buffer from every trigger loaded so far
// and freezes the AST for the reply phase. It is safe to call more than
// once; a repeat sort over the same AST produces an identical buffer.
func (e *Engine) SortReplies() {
	e.mu.Lock()
	defer e.mu.Unlock()
	root := e.p.Root()
	buf := sorter.Build(root, root.Begin.Sub, root.Begin.Person)
	e.rep.SetBuffer(root, buf)
	e.loadObjects(root)
	e.sorted = true
}

func (e *Engine) loadObjects(root *ast.Root) {
	for _, obj := range root.Objects {
		_ = e.rep.Handlers().LoadObject(obj.Name, obj.Language, obj.Code)
	}
}

// SetSeed reseeds the engine's weighted-random selector so tests (and
// anything else needing reproducible conversations) get deterministic
// reply picks.
func (e *Engine) SetSeed(seed int64) {
	e.rep.SetSeed(seed)
}

// Reply matches message against the sorted buffer for username and
// returns the fully tag-evaluated reply.
func (e *Engine) Reply(ctx context.Context, username, message string) (string, error) {
	return e.rep.Reply(ctx, username, message)
}

// SetGlobal / GetGlobal manage `! global` (env) values.
func (e *Engine) SetGlobal(name, value string) { e.rep.SetGlobal(name, value) }
func (e *Engine) GetGlobal(name string) string { return e.rep.GetGlobal(name) }

// SetVariable / GetVariable manage `! var` (bot) values.
func (e *Engine) SetVariable(name, value string) { e.rep.SetVariable(name, value) }
func (e *Engine) GetVariable(name string) string { return e.rep.GetVariable(name) }

// SetSubstitution / GetSubstitution manage the `! sub` map.
func (e *Engine) SetSubstitution(key, value string) { e.rep.SetSubstitution(key, value) }
func (e *Engine) GetSubstitution(key string) (string, bool) { return e.rep.GetSubstitution(key) }

// SetPerson / GetPerson manage the `! person` map.
func (e *Engine) SetPerson(key, value string) { e.rep.SetPerson(key, value) }
func (e *Engine) GetPerson(key string) (string, bool) { return e.rep.GetPerson(key) }

// SetUservar / GetUservar manage one per-user session variable.
func (e *Engine) SetUservar(username, key, value string) {
	e.rep.Sessions().Set(username, key, value)
}
func (e *Engine) GetUservar(username, key string) string {
	return e.rep.Sessions().Get(username, key)
}

// SetUservars writes every key/value pair in vars for username.
func (e *Engine) SetUservars(username string, vars map[string]string) {
	e.rep.Sessions().SetMany(username, vars)
}

// GetUservars returns a defensive copy of every variable set for username.
func (e *Engine) GetUservars(username string) map[string]string {
	return e.rep.Sessions().GetAll(username)
}

// LastMatch returns the pattern text of the last trigger matched for
// username, or "" if none.
func (e *Engine) LastMatch(username string) string {
	return e.rep.Sessions().GetLastMatch(username)
}

// FreezeUservars snapshots username's session for later ThawUservars.
func (e *Engine) FreezeUservars(username string) {
	e.rep.Sessions().Freeze(username)
}

// ThawUservars restores or discards username's frozen snapshot.
func (e *Engine) ThawUservars(username string, action ThawAction) bool {
	return e.rep.Sessions().Thaw(username, action)
}

// ClearUservars resets one user's session, leaving any frozen copy intact.
func (e *Engine) ClearUservars(username string) {
	e.rep.Sessions().Clear(username)
}

// ClearAllUservars resets every known user's session.
func (e *Engine) ClearAllUservars() {
	e.rep.Sessions().ClearAll()
}

// SetHandler registers an ObjectHandler for a scripting language. Objects
// already loaded under that language name at the time of the next
// SortReplies call are (re)dispatched to it.
func (e *Engine) SetHandler(lang string, h ObjectHandler) {
	e.rep.Handlers().SetHandler(lang, h)
}

// SetSubroutine registers a native Go callable, which takes precedence
// over any language handler sharing its name.
func (e *Engine) SetSubroutine(name string, fn Subroutine) {
	e.rep.Handlers().SetSubroutine(name, fn)
}

// CurrentUser returns the username bound to ctx by an in-flight Reply
// call, or "" outside of one. Intended for use inside Subroutine and
// ObjectHandler implementations that need to know who they're serving.
func CurrentUser(ctx context.Context) string {
	return reply.UserFromContext(ctx)
}

// SaveSnapshot / LoadSnapshot persist the session store to a JSON file
// guarded by a sidecar lock file (internal/session, built on gofrs/flock).
func (e *Engine) SaveSnapshot(path string) error {
	return e.rep.Sessions().SaveSnapshot(path)
}

func (e *Engine) LoadSnapshot(path string) error {
	return e.rep.Sessions().LoadSnapshot(path)
}
