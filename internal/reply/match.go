package reply

import (
	"context"
	"strconv"
	"strings"

	"github.com/hanspeak/kivescript/internal/ast"
	"github.com/hanspeak/kivescript/internal/rsre"
	"github.com/hanspeak/kivescript/internal/session"
	"github.com/hanspeak/kivescript/internal/sorter"
	"github.com/hanspeak/kivescript/internal/strutil"
)

// getReply is the matching loop: %Previous matching first (only at step
// 0), then plain trigger matching, then response selection (redirect /
// condition / weighted random) and, for non-begin calls, full tag
// post-processing.
func (e *Engine) getReply(ctx context.Context, username, message string, isBegin bool, step int) (string, error) {
	if len(e.buf.Topics) == 0 {
		return e.fail(KindRepliesNotSorted, "sortReplies has not been run")
	}
	if step > e.cfg.Depth {
		return e.fail(KindDeepRecursion, "recursion depth exceeded at step "+strconv.Itoa(step))
	}

	topicName := e.sessions.Get(username, "topic")
	if topicName == session.Undefined || topicName == "" {
		topicName = ast.DefaultTopicName
	}
	if _, ok := e.topic(topicName); !ok {
		topicName = ast.DefaultTopicName
	}
	if isBegin {
		topicName = BeginTopicName
	}
	if _, ok := e.topic(ast.DefaultTopicName); !ok {
		return e.fail(KindNoDefaultTopic, "no topic named 'random'")
	}

	var (
		matched  *ast.Trigger
		stars    []string
		botstars []string
	)

	if step == 0 {
		matched, stars, botstars = e.matchPrevious(username, topicName, message)
	}

	if matched == nil {
		matched, stars = e.matchTopic(username, topicName, message)
		botstars = []string{"", session.Undefined}
	}

	if matched == nil {
		e.sessions.SetLastMatch(username, "")
		return e.fail(KindReplyNotMatched, "no trigger matched in topic "+topicName)
	}
	e.sessions.SetLastMatch(username, matched.Pattern)

	if matched.Redirect != "" {
		resolved, err := e.processTags(ctx, username, message, matched.Redirect, stars, botstars, step)
		if err != nil {
			return "", err
		}
		resolved = strings.ToLower(resolved)
		return e.getReply(ctx, username, resolved, isBegin, step+1)
	}

	candidate, err := e.selectCandidate(ctx, username, matched, stars, botstars, step)
	if err != nil {
		return "", err
	}
	if candidate == "" {
		return e.fail(KindReplyNotFound, "trigger matched with no usable reply")
	}

	if isBegin {
		return e.processBeginTags(username, candidate), nil
	}
	return e.processTags(ctx, username, message, candidate, stars, botstars, step)
}

// matchPrevious implements the %Previous scan: the sorter's Thats buffer
// for topicName already merges the full includes/inherits tree in
// priority order, so this only needs one pass over it.
func (e *Engine) matchPrevious(username, topicName, message string) (*ast.Trigger, []string, []string) {
	entries := e.buf.Thats[topicName]
	if len(entries) == 0 {
		return nil, nil, nil
	}

	lastReply := session.Undefined
	hist := e.sessions.GetHistory(username)
	if len(hist.Reply) > 0 {
		lastReply = hist.Reply[0]
	}
	botSide := e.formatMessage(lastReply, true)

	for _, entry := range entries {
		botRe, err := e.triggerRegexp(username, entry.MatchText)
		if err != nil {
			continue
		}
		botGroups := botRe.FindStringSubmatch(botSide)
		if botGroups == nil {
			continue
		}

		trigger, stars := e.matchTrigger(username, entry.Trigger, message)
		if trigger == nil {
			continue
		}
		return trigger, stars, buildCaptures(botGroups[1:])
	}
	return nil, nil, nil
}

// matchTopic is the plain matching pass over sorted.topics[topicName].
func (e *Engine) matchTopic(username, topicName, message string) (*ast.Trigger, []string) {
	for _, entry := range e.buf.Topics[topicName] {
		if trigger, stars := e.matchEntry(username, entry, message); trigger != nil {
			return trigger, stars
		}
	}
	return nil, nil
}

func (e *Engine) matchEntry(username string, entry sorter.Entry, message string) (*ast.Trigger, []string) {
	return e.matchPattern(username, entry.MatchText, entry.Trigger, message)
}

// matchTrigger matches a trigger's own `+` pattern against message — used
// by %Previous once the bot-side half has already matched, since at that
// point there is exactly one candidate trigger left to check.
func (e *Engine) matchTrigger(username string, trigger *ast.Trigger, message string) (*ast.Trigger, []string) {
	return e.matchPattern(username, trigger.Pattern, trigger, message)
}

// matchPattern is the shared atomic-fast-path/regex matcher: pattern is
// the text to compile (which may carry a sort-only `{inherits=N}` prefix),
// trigger is the AST node to report back on success.
func (e *Engine) matchPattern(username, pattern string, trigger *ast.Trigger, message string) (*ast.Trigger, []string) {
	clean := cleanMatchText(pattern)
	if strutil.IsAtomic(clean) {
		if clean == message {
			return trigger, buildCaptures(nil)
		}
		return nil, nil
	}
	re, err := e.triggerRegexp(username, pattern)
	if err != nil {
		return nil, nil
	}
	groups := re.FindStringSubmatch(message)
	if groups == nil {
		return nil, nil
	}
	return trigger, buildCaptures(groups[1:])
}

func cleanMatchText(text string) string {
	text = rsre.Inherits.ReplaceAllString(text, "")
	text = rsre.Weight.ReplaceAllString(text, "")
	return strutil.CollapseWhitespace(text)
}

// buildCaptures assembles a stars/botstars slice: index 0 is a reserved
// empty sentinel, index 1 is the first real capture; with no captures,
// index 1 holds the "undefined" sentinel instead.
func buildCaptures(groups []string) []string {
	if len(groups) == 0 {
		return []string{"", session.Undefined}
	}
	out := make([]string, 0, len(groups)+1)
	out = append(out, "")
	out = append(out, groups...)
	return out
}

// selectCandidate picks the response text for a matched, non-redirect
// trigger: conditions first, else a weighted-random pick from its reply
// pool.
func (e *Engine) selectCandidate(ctx context.Context, username string, trigger *ast.Trigger, stars, botstars []string, step int) (string, error) {
	for _, cond := range trigger.Condition {
		ok, replyText, err := e.evalCondition(ctx, username, cond, stars, botstars, step)
		if err != nil {
			return "", err
		}
		if ok {
			return replyText, nil
		}
	}
	if len(trigger.Reply) == 0 {
		return "", nil
	}
	return e.pickWeightedReply(trigger.Reply), nil
}

// evalCondition parses one `* LEFT OP RIGHT => REPLY` line and reports
// whether it passes.
func (e *Engine) evalCondition(ctx context.Context, username, line string, stars, botstars []string, step int) (bool, string, error) {
	arrow := strings.Index(line, "=>")
	if arrow < 0 {
		return false, "", nil
	}
	test := strings.TrimSpace(line[:arrow])
	replyText := strings.TrimSpace(line[arrow+2:])

	m := rsre.Condition.FindStringSubmatch(test)
	if m == nil {
		return false, "", nil
	}
	left, op, right := strings.TrimSpace(m[1]), m[2], strings.TrimSpace(m[3])

	leftVal, err := e.processTags(ctx, username, "", left, stars, botstars, step)
	if err != nil {
		return false, "", err
	}
	rightVal, err := e.processTags(ctx, username, "", right, stars, botstars, step)
	if err != nil {
		return false, "", err
	}
	if leftVal == "" {
		leftVal = session.Undefined
	}
	if rightVal == "" {
		rightVal = session.Undefined
	}

	if evalOperator(op, leftVal, rightVal) {
		return true, replyText, nil
	}
	return false, "", nil
}

func evalOperator(op, left, right string) bool {
	switch op {
	case "eq", "==":
		return left == right
	case "ne", "!=", "<>":
		return left != right
	default:
		lf, lerr := strconv.ParseFloat(left, 64)
		rf, rerr := strconv.ParseFloat(right, 64)
		if lerr != nil || rerr != nil {
			return false
		}
		switch op {
		case "<":
			return lf < rf
		case "<=":
			return lf <= rf
		case ">":
			return lf > rf
		case ">=":
			return lf >= rf
		default:
			return false
		}
	}
}

// pickWeightedReply builds a repeated-entry pool from each reply's
// `{weight=K}` tag (default 1, K<=0 treated as 1) and picks uniformly.
func (e *Engine) pickWeightedReply(replies []string) string {
	var pool []string
	for _, r := range replies {
		weight := 1
		if m := rsre.Weight.FindStringSubmatch(r); m != nil {
			if w, err := strconv.Atoi(m[1]); err == nil && w > 0 {
				weight = w
			}
		}
		for i := 0; i < weight; i++ {
			pool = append(pool, r)
		}
	}
	if len(pool) == 0 {
		return ""
	}
	return pool[e.randIntn(len(pool))]
}

// replaceOK substitutes the first literal "{ok}" in beginText with
// inner, the already-computed non-begin reply.
func replaceOK(beginText, inner string) string {
	return strings.Replace(beginText, "{ok}", inner, 1)
}
