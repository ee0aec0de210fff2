package reply

import (
	"strconv"
	"strings"

	"github.com/hanspeak/kivescript/internal/parser"
	"github.com/hanspeak/kivescript/internal/rsre"
	"github.com/hanspeak/kivescript/internal/strutil"
)

// formatMessage is the normalization pipeline applied to every incoming
// user message and to the bot's own previous reply before %Previous
// matching (botReply=true, which in UTF-8 mode also strips
// BotReplySymbols).
func (e *Engine) formatMessage(message string, botReply bool) string {
	if e.cfg.Morpheme == parser.ModeSeparation {
		if out, err := e.pre.Analyze(message); err == nil {
			message = out
		}
	}
	message = strings.ToLower(message)

	e.mu.RLock()
	subs := e.root.Begin.Sub
	keys := e.buf.Sub
	e.mu.RUnlock()
	message = applySubstitutions(message, keys, subs, e.cfg.Depth)

	if e.cfg.UTF8 {
		message = rsre.UTF8MetaCharacters.ReplaceAllString(message, "")
		if e.cfg.UnicodePunctuation != nil {
			message = e.cfg.UnicodePunctuation.ReplaceAllString(message, "")
		}
		if botReply {
			message = rsre.BotReplySymbols.ReplaceAllString(message, "")
		}
	} else {
		message = rsre.MetaCharacters.ReplaceAllString(message, "")
	}

	return strutil.CollapseWhitespace(message)
}

// applySubstitutions is the substitution engine: each key in keys
// (already ranked longest/most specific first) replaces its full-word
// occurrences with a numbered
// placeholder before any key can be re-matched inside another key's
// replacement text; placeholders are resolved to their values afterward in
// a bounded number of passes to catch pathological nesting.
func applySubstitutions(message string, keys []string, values map[string]string, depth int) string {
	if len(keys) == 0 {
		return message
	}

	values_ := make([]string, len(keys))
	for i, key := range keys {
		re := strutil.WordBoundaryRegexp(key)
		if !re.MatchString(message) {
			continue
		}
		message = re.ReplaceAllString(message, "\x00"+strconv.Itoa(i)+"\x00")
		values_[i] = values[key]
	}

	if depth <= 0 {
		depth = 50
	}
	for iter := 0; iter < depth && rsre.Placeholder.MatchString(message); iter++ {
		message = rsre.Placeholder.ReplaceAllStringFunc(message, func(m string) string {
			sub := rsre.Placeholder.FindStringSubmatch(m)
			idx, err := strconv.Atoi(sub[1])
			if err != nil || idx < 0 || idx >= len(values_) {
				return ""
			}
			return values_[idx]
		})
	}
	return message
}
