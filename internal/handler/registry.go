// Package handler implements the object-macro plug-in boundary: one
// ObjectHandler per scripting language, plus native Go subroutines that
// take precedence over language handlers when names collide.
package handler

import (
	"context"
	"fmt"
	"sync"
)

// ObjectHandler loads and invokes object macros written in one scripting
// language. Implementations are external collaborators — e.g. a JS
// runtime or a shell-out bridge.
type ObjectHandler interface {
	Load(name string, code []string) error
	Call(ctx context.Context, name string, args []string) (string, error)
}

// Subroutine is a natively registered callable, bypassing any language
// handler.
type Subroutine func(ctx context.Context, args []string) (string, error)

// Registry tracks language handlers, native subroutines, and which
// language owns each loaded object macro name.
type Registry struct {
	mu        sync.RWMutex
	languages map[string]ObjectHandler
	objLang   map[string]string
	subs      map[string]Subroutine
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		languages: make(map[string]ObjectHandler),
		objLang:   make(map[string]string),
		subs:      make(map[string]Subroutine),
	}
}

// SetHandler registers the handler for a language name, e.g. "go" or "js".
func (r *Registry) SetHandler(lang string, h ObjectHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.languages[lang] = h
}

// SetSubroutine registers a native callable by name.
func (r *Registry) SetSubroutine(name string, fn Subroutine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[name] = fn
}

// LoadObject dispatches a parsed ObjectMacro to its language's handler.
// Object macros naming a language with no registered handler are kept
// silently unreachable, since <call> reports ObjectNotFound uniformly for
// both "never loaded" and "no handler" cases.
func (r *Registry) LoadObject(name, lang string, code []string) error {
	r.mu.RLock()
	h, ok := r.languages[lang]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	if err := h.Load(name, code); err != nil {
		return fmt.Errorf("load object %q (%s): %w", name, lang, err)
	}

	r.mu.Lock()
	r.objLang[name] = lang
	r.mu.Unlock()
	return nil
}

// Call invokes name with args, preferring a native subroutine over any
// language handler. found is false when name resolves to neither.
func (r *Registry) Call(ctx context.Context, name string, args []string) (result string, found bool, err error) {
	r.mu.RLock()
	sub, hasSub := r.subs[name]
	lang, hasLang := r.objLang[name]
	var h ObjectHandler
	if hasLang {
		h = r.languages[lang]
	}
	r.mu.RUnlock()

	if hasSub {
		result, err = sub(ctx, args)
		return result, true, err
	}
	if hasLang && h != nil {
		result, err = h.Call(ctx, name, args)
		return result, true, err
	}
	return "", false, nil
}
