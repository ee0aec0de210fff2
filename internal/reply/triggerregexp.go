package reply

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hanspeak/kivescript/internal/rsre"
	"github.com/hanspeak/kivescript/internal/session"
	"github.com/hanspeak/kivescript/internal/strutil"
)

// escUnderscore is a placeholder used to protect a literal `\_` from the
// wildcard-to-regex rewrite below, then restored to a plain `_`.
const escUnderscore = "\x01"

// triggerRegexp compiles a trigger (or %Previous) pattern into the
// anchored regular expression used to match a formatted message, through
// an ordered pipeline of rewrites. It is re-derived on every match
// attempt rather than cached, since the later rewrites depend on the
// current bot vars, the calling user's vars, and their history.
func (e *Engine) triggerRegexp(username, pattern string) (*regexp.Regexp, error) {
	p := strutil.CollapseWhitespace(rsre.Inherits.ReplaceAllString(pattern, ""))
	p = rsre.Weight.ReplaceAllString(p, "")

	zeroWidth := isZeroWidthStar(p)

	p = strings.ReplaceAll(p, `\_`, escUnderscore)
	p = strings.ReplaceAll(p, "*", "(.+?)")
	p = strings.ReplaceAll(p, "#", `(\d+?)`)
	p = strings.ReplaceAll(p, "_", `(\w+?)`)
	p = strings.ReplaceAll(p, escUnderscore, "_")
	if zeroWidth {
		p = strings.Replace(p, "(.+?)", "(.*?)", 1)
	}

	p = rsre.ConsecutivePipes.ReplaceAllString(p, "|")
	p = rsre.PipeAdjacentOpen.ReplaceAllString(p, "$1")
	p = rsre.PipeAdjacentClose.ReplaceAllString(p, "$1")

	if e.cfg.UTF8 {
		p = strings.ReplaceAll(p, `\@`, `\x40`)
	}

	p = expandOptionals(p)
	p = strings.ReplaceAll(p, `\w`, `[^\s\d]`)

	p = e.expandArrayRefs(p)
	p = e.expandBotVars(p)
	p = e.expandGetVars(username, p)
	p = e.expandHistoryTags(username, p)

	if e.cfg.UTF8 {
		p = strings.ReplaceAll(p, `\x40`, "@")
	}

	return rsre.CompileTrigger(p)
}

// isZeroWidthStar reports whether pattern, once {weight=}/{inherits=} tags
// are stripped, is composed only of `*` tokens — such a pattern must match
// the empty string too, so it compiles to `(.*?)` rather than `(.+?)`.
func isZeroWidthStar(pattern string) bool {
	return rsre.ZeroWidthStar.MatchString(pattern)
}

// optionalWithSpace is an optional group together with the whitespace
// around it, which the expanded group absorbs.
var optionalWithSpace = regexp.MustCompile(`\s*\[(.+?)\]\s*`)

// expandOptionals rewrites every `[alt1|alt2|...]` group, and the
// whitespace on either side of it, into a non-capturing alternation where
// each alternative is loosely word-bounded, plus a final all-whitespace
// branch so the whole group may also match nothing.
func expandOptionals(p string) string {
	return optionalWithSpace.ReplaceAllStringFunc(p, func(m string) string {
		sub := optionalWithSpace.FindStringSubmatch(m)
		alts := strings.Split(sub[1], "|")
		parts := make([]string, 0, len(alts)+1)
		for _, a := range alts {
			a = demoteCaptureGroups(strings.TrimSpace(a))
			parts = append(parts, `(?:\s|\b)+`+a+`(?:\s|\b)+`)
		}
		parts = append(parts, `(?:\s|\b)+`)
		return "(?:" + strings.Join(parts, "|") + ")"
	})
}

// demoteCaptureGroups turns a capturing `(` inside an expanded optional
// into a non-capturing `(?:`, so optionals never shift later `<starN>`
// capture-group numbering.
func demoteCaptureGroups(s string) string {
	return rsre.InnerCaptureGroup.ReplaceAllStringFunc(s, func(m string) string {
		return "(?:" + m[1:]
	})
}

// expandArrayRefs expands `(@name)` into a non-capturing alternation of the
// array's items (regex-quoted), or an empty alternative if the array is
// unknown or empty.
func (e *Engine) expandArrayRefs(p string) string {
	return rsre.ArrayRef.ReplaceAllStringFunc(p, func(m string) string {
		sub := rsre.ArrayRef.FindStringSubmatch(m)
		e.mu.RLock()
		items := e.root.Begin.Array[sub[1]]
		e.mu.RUnlock()
		if len(items) == 0 {
			return "(?:)"
		}
		quoted := make([]string, len(items))
		for i, it := range items {
			quoted[i] = regexp.QuoteMeta(it)
		}
		return "(?:" + strings.Join(quoted, "|") + ")"
	})
}

// expandBotVars resolves `<bot name>` to the current bot-var value
// (lowercased, nasties-stripped), or empty if unset.
func (e *Engine) expandBotVars(p string) string {
	return rsre.BotVar.ReplaceAllStringFunc(p, func(m string) string {
		sub := rsre.BotVar.FindStringSubmatch(m)
		e.mu.RLock()
		val, ok := e.root.Begin.Var[sub[1]]
		e.mu.RUnlock()
		if !ok {
			return ""
		}
		return strutil.StripNasties(strings.ToLower(val))
	})
}

// expandGetVars resolves `<get name>` to the calling user's var value
// (lowercased), defaulting to the "undefined" sentinel.
func (e *Engine) expandGetVars(username, p string) string {
	return rsre.GetVar.ReplaceAllStringFunc(p, func(m string) string {
		sub := rsre.GetVar.FindStringSubmatch(m)
		return strings.ToLower(e.sessions.Get(username, sub[1]))
	})
}

// expandHistoryTags resolves `<input1..9>`/`<reply1..9>` against the
// calling user's history, regex-quoting the recalled text since it is
// spliced directly into the pattern being compiled.
func (e *Engine) expandHistoryTags(username, p string) string {
	if !strings.Contains(p, "<input") && !strings.Contains(p, "<reply") {
		return p
	}
	hist := e.sessions.GetHistory(username)

	p = rsre.InputTag.ReplaceAllStringFunc(p, func(m string) string {
		sub := rsre.InputTag.FindStringSubmatch(m)
		n, _ := strconv.Atoi(sub[1])
		idx := n - 1
		if idx < 0 || idx >= len(hist.Input) {
			return session.Undefined
		}
		return regexp.QuoteMeta(hist.Input[idx])
	})
	p = rsre.ReplyTag.ReplaceAllStringFunc(p, func(m string) string {
		sub := rsre.ReplyTag.FindStringSubmatch(m)
		n, _ := strconv.Atoi(sub[1])
		idx := n - 1
		if idx < 0 || idx >= len(hist.Reply) {
			return session.Undefined
		}
		return regexp.QuoteMeta(hist.Reply[idx])
	})
	return p
}
