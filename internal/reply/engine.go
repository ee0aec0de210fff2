// Package reply implements the matching, tag-evaluation, and session
// mutation engine: the largest of the engine's components.
package reply

import (
	"context"
	"math/rand"
	"sync"

	"github.com/hanspeak/kivescript/internal/ast"
	"github.com/hanspeak/kivescript/internal/handler"
	"github.com/hanspeak/kivescript/internal/morph"
	"github.com/hanspeak/kivescript/internal/session"
	"github.com/hanspeak/kivescript/internal/sorter"
)

// Engine holds everything a reply call needs: the frozen AST and sort
// buffer, the session store, the object/subroutine registry, and the
// mutable bot/global variable maps. Once Root/Buffer are installed by
// SetBuffer they must not be mutated again — the reply phase treats them
// as immutable and relies on that to avoid locking them.
type Engine struct {
	cfg   Config
	root  *ast.Root
	buf   *sorter.Buffer
	sessions *session.Store
	handlers *handler.Registry
	pre   morph.Preprocessor
	rng   *rand.Rand
	rngMu sync.Mutex

	// mu guards root.Begin.Var (bot vars) and root.Begin.Global (env vars),
	// the only AST fields the reply phase still mutates via <bot>/<env>
	// tags.
	mu sync.RWMutex
}

// New returns an Engine. root and buf are expected to already reflect a
// completed parse+sort pass. The random selector starts from seed 1;
// SetSeed reseeds it.
func New(cfg Config, root *ast.Root, buf *sorter.Buffer, sessions *session.Store, handlers *handler.Registry, pre morph.Preprocessor) *Engine {
	if pre == nil {
		pre = morph.Passthrough{}
	}
	if sessions == nil {
		sessions = session.New()
	}
	if handlers == nil {
		handlers = handler.New()
	}
	return &Engine{
		cfg:      cfg,
		root:     root,
		buf:      buf,
		sessions: sessions,
		handlers: handlers,
		pre:      pre,
		rng:      rand.New(rand.NewSource(1)),
	}
}

// SetSeed reseeds the weighted-random reply/format selector, for
// deterministic tests.
func (e *Engine) SetSeed(seed int64) {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	e.rng = rand.New(rand.NewSource(seed))
}

func (e *Engine) randFloat() float64 {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Float64()
}

func (e *Engine) randIntn(n int) int {
	if n <= 0 {
		return 0
	}
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Intn(n)
}

// SetBuffer installs a freshly sorted AST/buffer pair, e.g. after the
// engine's owner reruns the parser and sorter. Callers must not call this
// concurrently with in-flight Reply calls.
func (e *Engine) SetBuffer(root *ast.Root, buf *sorter.Buffer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.root = root
	e.buf = buf
}

// Sessions exposes the session store so the owning package can implement
// the public freeze/thaw/uservar API surface without duplicating it.
func (e *Engine) Sessions() *session.Store {
	return e.sessions
}

// Handlers exposes the object/subroutine registry for the same reason.
func (e *Engine) Handlers() *handler.Registry {
	return e.handlers
}

// GetGlobal reads a `! global` value (env var in tag terms).
func (e *Engine) GetGlobal(name string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.root.Begin.Global[name]
	if !ok {
		return session.Undefined
	}
	return v
}

// SetGlobal writes a `! global` value.
func (e *Engine) SetGlobal(name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if value == "" {
		delete(e.root.Begin.Global, name)
		return
	}
	e.root.Begin.Global[name] = value
}

// GetVariable reads a `! var` (bot) value.
func (e *Engine) GetVariable(name string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.root.Begin.Var[name]
	if !ok {
		return session.Undefined
	}
	return v
}

// SetVariable writes a `! var` (bot) value.
func (e *Engine) SetVariable(name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if value == "" {
		delete(e.root.Begin.Var, name)
		return
	}
	e.root.Begin.Var[name] = value
}

// GetSubstitution / SetSubstitution manage the `! sub` map. Changing these
// after SortReplies has run does not re-sort the sub key list — callers
// that add substitutions at runtime are expected to re-run the sorter.
func (e *Engine) GetSubstitution(key string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.root.Begin.Sub[key]
	return v, ok
}

func (e *Engine) SetSubstitution(key, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.root.Begin.Sub[key] = value
}

// GetPerson / SetPerson manage the `! person` map used by {person} blocks.
func (e *Engine) GetPerson(key string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.root.Begin.Person[key]
	return v, ok
}

func (e *Engine) SetPerson(key, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.root.Begin.Person[key] = value
}

// Reply is the top-level entry point for one exchange. ctx carries the
// request-scoped current-user binding consulted by object-macro calls
// through UserFromContext — it is set here and needs no explicit teardown
// since it lives only as long as this call's ctx.
func (e *Engine) Reply(ctx context.Context, username, message string) (string, error) {
	ctx = withUser(ctx, username)
	e.sessions.Init(username)

	formatted := e.formatMessage(message, false)

	var out string
	var err error
	if _, ok := e.topic(BeginTopicName); ok {
		beginReply, beginErr := e.getReply(ctx, username, "request", true, 0)
		if beginErr != nil {
			return "", beginErr
		}
		inner, innerErr := e.getReply(ctx, username, formatted, false, 0)
		if innerErr != nil {
			return "", innerErr
		}
		combined := replaceOK(beginReply, inner)
		out, err = e.processTags(ctx, username, formatted, combined, []string{"", session.Undefined}, []string{"", session.Undefined}, 0)
	} else {
		out, err = e.getReply(ctx, username, formatted, false, 0)
	}
	if err != nil {
		return "", err
	}

	e.sessions.AddHistory(username, message, out)
	return out, nil
}

// BeginTopicName is re-exported for callers that need to check whether a
// begin block exists without going through Reply.
const BeginTopicName = "__begin__"

func (e *Engine) topic(name string) (*ast.Topic, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.root.Topics[name]
	return t, ok
}
