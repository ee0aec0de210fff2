package parser

// ConcatMode selects how consecutive `^` continuation lines are joined.
type ConcatMode int

const (
	// ConcatNone joins continuations with no separator at all.
	ConcatNone ConcatMode = iota
	// ConcatNewline joins continuations with "\n".
	ConcatNewline
	// ConcatSpace joins continuations with " ".
	ConcatSpace
)

func (m ConcatMode) separator() string {
	switch m {
	case ConcatNewline:
		return "\n"
	case ConcatSpace:
		return " "
	default:
		return ""
	}
}

// MorphemeMode selects whether `+` triggers and, later, user messages are
// routed through a Preprocessor before use.
type MorphemeMode int

const (
	// ModeNoSeparation leaves triggers and messages untouched.
	ModeNoSeparation MorphemeMode = iota
	// ModeSeparation runs the Preprocessor plug-in over every `+` trigger
	// at parse time (and, symmetrically, over every user message at reply
	// time — see internal/reply).
	ModeSeparation
)

// RSVersion is the highest `! version` a script is allowed to declare.
const RSVersion = 2.0

// Config holds the subset of the engine's knobs that affect parsing.
type Config struct {
	Strict       bool
	UTF8         bool
	ForceCase    bool
	Concat       ConcatMode
	Morpheme     MorphemeMode
	Depth        int
}

// DefaultConfig returns the engine's documented defaults.
func DefaultConfig() Config {
	return Config{
		Strict:    false,
		UTF8:      false,
		ForceCase: false,
		Concat:    ConcatNone,
		Morpheme:  ModeNoSeparation,
		Depth:     50,
	}
}
