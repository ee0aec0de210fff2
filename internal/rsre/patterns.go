// Package rsre is the pre-compiled regex catalogue shared by the parser,
// sorter, and reply engine. Every pattern used more than once lives here
// so the cost of compiling it is paid exactly once per process: one
// package-level regexp.MustCompile per concern, never re-compiled per
// call.
package rsre

import "regexp"

var (
	// Weight is `{weight=N}`.
	Weight = regexp.MustCompile(`\{weight=(\d+)\}`)

	// Inherits is `{inherits=N}`.
	Inherits = regexp.MustCompile(`\{inherits=(\d+)\}`)

	// TopicSetter is `{topic=NAME}`.
	TopicSetter = regexp.MustCompile(`\{topic=(.+?)\}`)

	// SetTag is `<set NAME=VALUE>`.
	SetTag = regexp.MustCompile(`<set (.+?)=(.+?)>`)

	// Random is `{random}a|b|c{/random}`.
	Random = regexp.MustCompile(`\{random\}(.+?)\{/random\}`)

	// CallTag is `<call>name args</call>`.
	CallTag = regexp.MustCompile(`<call>(.+?)</call>`)

	// Redirect is `{@message}`, an inline redirect matched as a new message.
	Redirect = regexp.MustCompile(`\{@(.+?)\}`)

	// Condition splits a `*` line's LEFT OP RIGHT triple (before the `=>`).
	Condition = regexp.MustCompile(`^(.+?)\s+(==|eq|!=|ne|<>|<=|>=|<|>)\s+(.+?)$`)

	// AnyTag matches a single tag with no other `<`/`>` nested inside it —
	// used iteratively so the innermost tag of a nested expression is
	// always evaluated first.
	AnyTag = regexp.MustCompile(`<([^<>]+?)>`)

	// Optional matches a `[...]` alternation group in a trigger pattern.
	Optional = regexp.MustCompile(`\[(.+?)\]`)

	// ArrayRef matches `(@name)`.
	ArrayRef = regexp.MustCompile(`\(@([A-Za-z0-9_]+)\)`)

	// BotVar matches `<bot name>` or `<bot name=value>`.
	BotVar = regexp.MustCompile(`<bot (.+?)>`)

	// EnvVar matches `<env name>` or `<env name=value>`.
	EnvVar = regexp.MustCompile(`<env (.+?)>`)

	// GetVar matches `<get name>`.
	GetVar = regexp.MustCompile(`<get (.+?)>`)

	// Placeholder matches the `\x00N\x00` substitution marker.
	Placeholder = regexp.MustCompile(`\x00(\d+)\x00`)

	// ZeroWidthStar matches patterns that collapse to pure `*` wildcards
	// with nothing else — these compile to `(.*?)` instead of `(.+?)`.
	ZeroWidthStar = regexp.MustCompile(`^\*$|^(\*\s+)*\*$`)

	// StarTag matches `<star>` or `<starN>`.
	StarTag = regexp.MustCompile(`<star(\d*)>`)

	// BotStarTag matches `<botstar>` or `<botstarN>`.
	BotStarTag = regexp.MustCompile(`<botstar(\d*)>`)

	// InputTag matches `<input1..9>`; the bare, non-numbered `<input>` is
	// not matched.
	InputTag = regexp.MustCompile(`<input([1-9])>`)

	// ReplyTag matches `<reply1..9>`.
	ReplyTag = regexp.MustCompile(`<reply([1-9])>`)

	// IDTag matches `<id>`.
	IDTag = regexp.MustCompile(`<id>`)

	// MathTag matches `<add|sub|mult|div name=value>`.
	MathTag = regexp.MustCompile(`<(add|sub|mult|div) (.+?)=(.+?)>`)

	// FormatBlock matches `{person|formal|sentence|uppercase|lowercase}...{/...}`.
	FormatBlock = regexp.MustCompile(`\{(person|formal|sentence|uppercase|lowercase)\}(.+?)\{/(?:person|formal|sentence|uppercase|lowercase)\}`)

	// PipeAdjacentOpen strips a `|` immediately after `(`, `[`.
	PipeAdjacentOpen = regexp.MustCompile(`([(\[])\|`)

	// PipeAdjacentClose strips a `|` immediately before `)`, `]`.
	PipeAdjacentClose = regexp.MustCompile(`\|([)\]])`)

	// ConsecutivePipes collapses `||+` down to a single `|`.
	ConsecutivePipes = regexp.MustCompile(`\|{2,}`)

	// UnicodePunctDefault is the default `unicodePunctuation` config value.
	UnicodePunctDefault = regexp.MustCompile(`[.,!?;:]`)

	// MetaCharacters is stripped in non-UTF-8 formatMessage mode: every
	// character that is not alphanumeric or whitespace.
	MetaCharacters = regexp.MustCompile(`[^a-zA-Z0-9\s]`)

	// UTF8MetaCharacters is the narrower strip applied in UTF-8 mode: just
	// the RiveScript-reserved symbols, leaving other scripts' letters alone.
	UTF8MetaCharacters = regexp.MustCompile("[\\\\<>{}]")

	// BotReplySymbols is the broader symbol class stripped from the bot's
	// own previous reply before %Previous matching in UTF-8 mode.
	BotReplySymbols = regexp.MustCompile(`[.,!?;:"']`)

	// InnerCaptureGroup demotes a capturing group to non-capturing inside an
	// expanded `[...]` optional — matches a bare `(` not already followed by
	// `?`.
	InnerCaptureGroup = regexp.MustCompile(`\((?:[^?])`)
)

// CompileTrigger compiles a fully-rewritten trigger pattern (produced by
// the reply engine's triggerRegexp) into an anchored, case-sensitive
// regexp.
func CompileTrigger(rewritten string) (*regexp.Regexp, error) {
	return regexp.Compile(`^` + rewritten + `$`)
}
