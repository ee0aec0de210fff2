package reply

import (
	"context"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/hanspeak/kivescript/internal/rsre"
	"github.com/hanspeak/kivescript/internal/session"
)

// processTags is the full, non-begin tag expansion pipeline run over a
// selected reply template.
func (e *Engine) processTags(ctx context.Context, username, _ string, replyText string, stars, botstars []string, step int) (string, error) {
	text := e.expandArrayShortcut(replyText)
	text = expandLegacyShortcuts(text)
	text = rsre.Weight.ReplaceAllString(text, "")

	hist := e.sessions.GetHistory(username)
	text = substitutePositional(text, stars, botstars, username, hist)

	text = e.evaluateRandomBlocks(text)
	text = e.evaluateFormatBlocks(text)

	text, err := e.evaluateInnerTags(ctx, username, text, step)
	if err != nil {
		return "", err
	}

	text = restoreCallMarkers(text)
	text = e.applyTopicSetter(username, text)
	text, err = e.applyInlineRedirect(ctx, username, text, step)
	if err != nil {
		return "", err
	}

	return e.evaluateCalls(ctx, username, text)
}

// processBeginTags is the begin-block's reduced pass: only {topic=X} and
// <set k=v> mutate state and disappear; everything else is left raw for
// the outer processTags call made on the combined {ok}-substituted text.
func (e *Engine) processBeginTags(username, text string) string {
	text = e.applyTopicSetter(username, text)
	return rsre.SetTag.ReplaceAllStringFunc(text, func(m string) string {
		sub := rsre.SetTag.FindStringSubmatch(m)
		e.sessions.Set(username, strings.TrimSpace(sub[1]), strings.TrimSpace(sub[2]))
		return ""
	})
}

// expandArrayShortcut is processTags step 1: `(@name)` becomes a
// `{random}` block over the array's items.
func (e *Engine) expandArrayShortcut(text string) string {
	return rsre.ArrayRef.ReplaceAllStringFunc(text, func(m string) string {
		sub := rsre.ArrayRef.FindStringSubmatch(m)
		e.mu.RLock()
		items := e.root.Begin.Array[sub[1]]
		e.mu.RUnlock()
		if len(items) == 0 {
			return ""
		}
		return "{random}" + strings.Join(items, "|") + "{/random}"
	})
}

// expandLegacyShortcuts is processTags step 2.
func expandLegacyShortcuts(text string) string {
	replacer := strings.NewReplacer(
		"<person>", "{person}<star>{/person}",
		"<@>", "{@<star>}",
		"<formal>", "{formal}<star>{/formal}",
		"<sentence>", "{sentence}<star>{/sentence}",
		"<uppercase>", "{uppercase}<star>{/uppercase}",
		"<lowercase>", "{lowercase}<star>{/lowercase}",
	)
	return replacer.Replace(text)
}

// substitutePositional is processTags step 4: star/botstar/history/id
// placeholders and the `\s`, `\n`, `\#` escapes.
func substitutePositional(text string, stars, botstars []string, username string, hist *session.History) string {
	text = rsre.StarTag.ReplaceAllStringFunc(text, func(m string) string {
		return indexedCapture(rsre.StarTag.FindStringSubmatch(m)[1], stars)
	})
	text = rsre.BotStarTag.ReplaceAllStringFunc(text, func(m string) string {
		return indexedCapture(rsre.BotStarTag.FindStringSubmatch(m)[1], botstars)
	})
	text = rsre.InputTag.ReplaceAllStringFunc(text, func(m string) string {
		return historySlot(rsre.InputTag.FindStringSubmatch(m)[1], hist.Input)
	})
	text = rsre.ReplyTag.ReplaceAllStringFunc(text, func(m string) string {
		return historySlot(rsre.ReplyTag.FindStringSubmatch(m)[1], hist.Reply)
	})
	text = rsre.IDTag.ReplaceAllString(text, username)

	replacer := strings.NewReplacer(`\s`, " ", `\n`, "\n", `\#`, "#")
	return replacer.Replace(text)
}

func indexedCapture(digits string, captures []string) string {
	n := 1
	if digits != "" {
		n, _ = strconv.Atoi(digits)
	}
	if n >= 0 && n < len(captures) {
		return captures[n]
	}
	return session.Undefined
}

func historySlot(digits string, slots []string) string {
	n, _ := strconv.Atoi(digits)
	idx := n - 1
	if idx < 0 || idx >= len(slots) {
		return session.Undefined
	}
	return slots[idx]
}

// evaluateRandomBlocks is processTags step 5.
func (e *Engine) evaluateRandomBlocks(text string) string {
	limit := e.loopLimit()
	for i := 0; i < limit; i++ {
		loc := rsre.Random.FindStringSubmatchIndex(text)
		if loc == nil {
			break
		}
		inner := text[loc[2]:loc[3]]
		var options []string
		if strings.Contains(inner, "|") {
			options = strings.Split(inner, "|")
		} else {
			options = strings.Fields(inner)
		}
		choice := ""
		if len(options) > 0 {
			choice = options[e.randIntn(len(options))]
		}
		text = text[:loc[0]] + choice + text[loc[1]:]
	}
	return text
}

// evaluateFormatBlocks is processTags step 6.
func (e *Engine) evaluateFormatBlocks(text string) string {
	limit := e.loopLimit()
	for i := 0; i < limit; i++ {
		loc := rsre.FormatBlock.FindStringSubmatchIndex(text)
		if loc == nil {
			break
		}
		kind := text[loc[2]:loc[3]]
		content := text[loc[4]:loc[5]]
		text = text[:loc[0]] + e.formatBlock(kind, content) + text[loc[1]:]
	}
	return text
}

func (e *Engine) formatBlock(kind, content string) string {
	switch kind {
	case "person":
		e.mu.RLock()
		persons := e.root.Begin.Person
		keys := e.buf.Person
		e.mu.RUnlock()
		return applySubstitutions(content, keys, persons, e.cfg.Depth)
	case "formal":
		return titleCase(content)
	case "sentence":
		return capitalizeFirst(content)
	case "uppercase":
		return strings.ToUpper(content)
	case "lowercase":
		return strings.ToLower(content)
	default:
		return content
	}
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		if len(r) > 0 {
			r[0] = unicode.ToUpper(r[0])
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// evaluateInnerTags is processTags step 7: protect <call> bodies, then
// repeatedly resolve the innermost (no-nested-angle-bracket) tag.
func (e *Engine) evaluateInnerTags(ctx context.Context, username, text string, step int) (string, error) {
	text = rsre.CallTag.ReplaceAllString(text, "{__call__}$1{/__call__}")

	limit := e.loopLimit()
	for i := 0; i < limit; i++ {
		loc := rsre.AnyTag.FindStringSubmatchIndex(text)
		if loc == nil {
			break
		}
		inner := text[loc[2]:loc[3]]
		replacement, err := e.evaluateOneTag(ctx, username, inner)
		if err != nil {
			return "", err
		}
		text = text[:loc[0]] + replacement + text[loc[1]:]
	}

	// Unknown tags were parked behind placeholder brackets so the loop
	// could move past them; put their angle brackets back.
	replacer := strings.NewReplacer("{__lt__}", "<", "{__gt__}", ">")
	return replacer.Replace(text), nil
}

func (e *Engine) evaluateOneTag(ctx context.Context, username, inner string) (string, error) {
	switch {
	case strings.HasPrefix(inner, "bot "):
		return e.evalBotTag(inner[len("bot "):]), nil
	case strings.HasPrefix(inner, "env "):
		return e.evalEnvTag(inner[len("env "):]), nil
	case strings.HasPrefix(inner, "set "):
		return e.evalSetTag(username, inner[len("set "):]), nil
	case strings.HasPrefix(inner, "get "):
		v := e.sessions.Get(username, strings.TrimSpace(inner[len("get "):]))
		return v, nil
	case strings.HasPrefix(inner, "add "), strings.HasPrefix(inner, "sub "),
		strings.HasPrefix(inner, "mult "), strings.HasPrefix(inner, "div "):
		return e.evalMathTag(username, inner)
	default:
		// Unknown tag: escape it so the innermost-tag loop doesn't find it
		// again, and preserve it in the output.
		return "{__lt__}" + inner + "{__gt__}", nil
	}
}

func (e *Engine) evalBotTag(rest string) string {
	if idx := strings.Index(rest, "="); idx >= 0 {
		e.SetVariable(strings.TrimSpace(rest[:idx]), strings.TrimSpace(rest[idx+1:]))
		return ""
	}
	v := e.GetVariable(strings.TrimSpace(rest))
	if v == session.Undefined {
		return ""
	}
	return v
}

func (e *Engine) evalEnvTag(rest string) string {
	if idx := strings.Index(rest, "="); idx >= 0 {
		e.SetGlobal(strings.TrimSpace(rest[:idx]), strings.TrimSpace(rest[idx+1:]))
		return ""
	}
	v := e.GetGlobal(strings.TrimSpace(rest))
	if v == session.Undefined {
		return ""
	}
	return v
}

func (e *Engine) evalSetTag(username, rest string) string {
	idx := strings.Index(rest, "=")
	if idx < 0 {
		return ""
	}
	e.sessions.Set(username, strings.TrimSpace(rest[:idx]), strings.TrimSpace(rest[idx+1:]))
	return ""
}

func (e *Engine) evalMathTag(username, inner string) (string, error) {
	fields := strings.SplitN(inner, " ", 2)
	if len(fields) != 2 {
		return "<" + inner + ">", nil
	}
	op, rest := fields[0], fields[1]
	idx := strings.Index(rest, "=")
	if idx < 0 {
		return "<" + inner + ">", nil
	}
	name := strings.TrimSpace(rest[:idx])
	operand := strings.TrimSpace(rest[idx+1:])

	delta, err := strconv.ParseFloat(operand, 64)
	if err != nil {
		return e.fail(KindCannotMathValue, "non-numeric math operand "+operand)
	}

	current := e.sessions.Get(username, name)
	curVal := 0.0
	if current != session.Undefined {
		curVal, err = strconv.ParseFloat(current, 64)
		if err != nil {
			return e.fail(KindCannotMathVariable, "non-numeric variable "+name)
		}
	}

	switch op {
	case "add":
		curVal += delta
	case "sub":
		curVal -= delta
	case "mult":
		curVal *= delta
	case "div":
		if delta == 0 {
			return e.fail(KindCannotDivideByZero, "division by zero on "+name)
		}
		curVal /= delta
	}

	result := formatNumber(curVal)
	e.sessions.Set(username, name, result)
	return "", nil
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func restoreCallMarkers(text string) string {
	replacer := strings.NewReplacer("{__call__}", "<call>", "{/__call__}", "</call>")
	return replacer.Replace(text)
}

// applyTopicSetter is part of processTags step 8: `{topic=X}` mutates the
// user's topic var and disappears from the output.
func (e *Engine) applyTopicSetter(username, text string) string {
	return rsre.TopicSetter.ReplaceAllStringFunc(text, func(m string) string {
		sub := rsre.TopicSetter.FindStringSubmatch(m)
		e.sessions.Set(username, "topic", strings.TrimSpace(sub[1]))
		return ""
	})
}

// applyInlineRedirect is the rest of processTags step 8: `{@target}`
// recurses into getReply and splices the result in place.
func (e *Engine) applyInlineRedirect(ctx context.Context, username, text string, step int) (string, error) {
	limit := e.loopLimit()
	for i := 0; i < limit; i++ {
		loc := rsre.Redirect.FindStringSubmatchIndex(text)
		if loc == nil {
			break
		}
		target := strings.ToLower(strings.TrimSpace(text[loc[2]:loc[3]]))
		resolved, err := e.getReply(ctx, username, target, false, step+1)
		if err != nil {
			return "", err
		}
		text = text[:loc[0]] + resolved + text[loc[1]:]
	}
	return text, nil
}

// evaluateCalls is processTags step 9.
func (e *Engine) evaluateCalls(ctx context.Context, username, text string) (string, error) {
	limit := e.loopLimit()
	for i := 0; i < limit; i++ {
		loc := rsre.CallTag.FindStringSubmatchIndex(text)
		if loc == nil {
			break
		}
		name, args := parseCallArgs(text[loc[2]:loc[3]])

		result, found, err := e.handlers.Call(ctx, name, args)
		switch {
		case err != nil:
			msg, ferr := e.fail(KindObjectNotFound, "object "+name+" failed: "+err.Error())
			if ferr != nil {
				return "", ferr
			}
			result = msg
		case !found:
			msg, ferr := e.fail(KindObjectNotFound, "object "+name+" not found")
			if ferr != nil {
				return "", ferr
			}
			result = msg
		}

		text = text[:loc[0]] + result + text[loc[1]:]
	}
	return text, nil
}

// parseCallArgs splits `<call>` body text on whitespace outside double
// quotes; a quoted run becomes one argument with its quotes consumed.
func parseCallArgs(body string) (string, []string) {
	tokens := tokenizeCallArgs(body)
	if len(tokens) == 0 {
		return "", nil
	}
	return tokens[0], tokens[1:]
}

func tokenizeCallArgs(body string) []string {
	var tokens []string
	var cur strings.Builder
	inQuotes := false

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for _, r := range body {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ' ' && !inQuotes:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func (e *Engine) loopLimit() int {
	if e.cfg.Depth <= 0 {
		return 50
	}
	return e.cfg.Depth
}
