package reply

import (
	"regexp"

	"github.com/hanspeak/kivescript/internal/parser"
	"github.com/hanspeak/kivescript/internal/rsre"
)

// Config holds the subset of the engine's knobs that affect the reply
// phase. UTF8, Morpheme and Depth mirror the parser's Config so scripts
// are matched under the same assumptions they were parsed under.
type Config struct {
	UTF8               bool
	Morpheme           parser.MorphemeMode
	Depth              int
	ThrowExceptions    bool
	UnicodePunctuation *regexp.Regexp
	ErrorMessages      map[Kind]string
}

// DefaultConfig mirrors parser.DefaultConfig's values plus the reply-only
// defaults: exceptions off (errors render as strings), default
// unicode-punctuation class, no error message overrides.
func DefaultConfig() Config {
	return Config{
		UTF8:               false,
		Morpheme:           parser.ModeNoSeparation,
		Depth:              50,
		ThrowExceptions:    false,
		UnicodePunctuation: rsre.UnicodePunctDefault,
		ErrorMessages:      map[Kind]string{},
	}
}
