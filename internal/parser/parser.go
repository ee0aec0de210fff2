// Package parser turns reply-script source lines into the AST defined in
// internal/ast. One Parser accumulates a single ast.Root across as many
// Parse calls as the caller makes (one per loaded file or line array),
// so every file merges into the same in-memory tables.
package parser

import (
	"github.com/hanspeak/kivescript/internal/ast"
	"github.com/hanspeak/kivescript/internal/morph"
)

// Parser holds the accumulated AST plus the configuration and plug-ins that
// affect parsing.
type Parser struct {
	cfg  Config
	root *ast.Root
	pre  morph.Preprocessor
	warn func(Warning)

	// currentTopicName/currentTrigger are reset per Parse call's begin/end
	// label handling, but Root persists across calls.
	currentTopicName string
	currentTrigger   *ast.Trigger
}

// New returns a Parser with an empty Root. pre may be nil, in which case
// morpheme separation (if enabled) is a no-op passthrough. warn may be nil
// to silently drop lenient-mode warnings.
func New(cfg Config, pre morph.Preprocessor, warn func(Warning)) *Parser {
	if pre == nil {
		pre = morph.Passthrough{}
	}
	return &Parser{
		cfg:              cfg,
		root:             ast.NewRoot(),
		pre:              pre,
		warn:             warn,
		currentTopicName: ast.DefaultTopicName,
	}
}

// Root returns the AST built so far.
func (p *Parser) Root() *ast.Root {
	return p.root
}

// Parse consumes one file's lines (label is used only for error/warning
// messages) and merges the result into p.Root(). In strict mode the first
// syntax error aborts the whole call and returns a *ParseError; otherwise
// malformed lines are reported via warn and skipped.
func (p *Parser) Parse(label string, lines []string) error {
	p.currentTopicName = ast.DefaultTopicName
	p.currentTrigger = nil

	raw := p.stripCommentsAndObjects(label, lines, p.root)
	directives, err := p.mergeContinuations(label, raw)
	if err != nil {
		return err
	}

	for _, d := range directives {
		if err := p.execute(label, d); err != nil {
			return err
		}
	}
	return nil
}

// reject handles a failed validation: in strict mode it builds the
// *ParseError to abort the whole Parse call with; in lenient mode it emits
// a warning and asks the caller to skip just this one directive.
func (p *Parser) reject(label string, no int, kind ErrorKind, msg string) (skip bool, err error) {
	if p.cfg.Strict {
		return true, &ParseError{Kind: kind, File: label, Line: no, Msg: msg}
	}
	p.warnf(label, no, "%s", msg)
	return true, nil
}
