// Package strutil holds the small text helpers the parser, sorter, and
// reply engine all share: word counting, nasty-character stripping, regex
// metacharacter quoting, and whitespace collapsing.
package strutil

import (
	"regexp"
	"strings"
)

var (
	wordsRe      = regexp.MustCompile(`[a-zA-Z0-9]+`)
	nastyRe      = regexp.MustCompile(`[^a-zA-Z0-9 ]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// nonWordTokens are pattern tokens that CountWords(s, false) must not treat
// as words of their own: the bare wildcards. CountWords skips `[...]`
// optional groups separately. Both still contribute to specificity class
// selection in the sorter, but not to the plain word count.
var nonWordTokens = map[string]bool{
	"*": true,
	"#": true,
	"_": true,
}

// CountWords counts whitespace-separated tokens in s. When all is false,
// the wildcard tokens `*`, `#`, `_` and any `[...]` optional group are
// excluded — this is the sorter's specificity metric. When all is true
// every token counts, which is how substitution keys are ranked for
// longest-first replacement.
func CountWords(s string, all bool) int {
	fields := strings.Fields(s)
	if all {
		return len(fields)
	}
	n := 0
	for _, f := range fields {
		if nonWordTokens[f] {
			continue
		}
		if strings.HasPrefix(f, "[") && strings.HasSuffix(f, "]") {
			continue
		}
		n++
	}
	return n
}

// StripNasties removes every character that is not a letter, digit, or
// space, used when formatting the bot's own variables for embedding into
// compiled trigger regexes.
func StripNasties(s string) string {
	return nastyRe.ReplaceAllString(s, "")
}

// QuoteMeta escapes every regex metacharacter in s so it can be spliced
// into a larger pattern as a literal.
func QuoteMeta(s string) string {
	return regexp.QuoteMeta(s)
}

// CollapseWhitespace turns any run of whitespace into a single space and
// trims the result.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// Join concatenates parts with sep; empty parts are kept, so they still
// produce their separators.
func Join(parts []string, sep string) string {
	return strings.Join(parts, sep)
}

// IsAtomic reports whether pattern contains none of the wildcard/optional/
// tag markers that require it to be compiled to a regular expression — an
// atomic trigger can instead be matched with a plain string comparison.
func IsAtomic(pattern string) bool {
	return !strings.ContainsAny(pattern, "_#*[(<")
}

// WordBoundaryRegexp compiles the whole-word matcher for key: bounded by
// start/end of string or a non-word rune on both sides. It is the
// substitution engine's core primitive, exported (rather than folded
// into a single Replace call) so the caller can replace each key's matches
// with its own placeholder tokens instead of the literal replacement.
func WordBoundaryRegexp(key string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(key) + `\b`)
}

// CountRunes returns the length of s in runes, used for the sorter's
// length tie-break so multi-byte (e.g. Hangul) triggers sort the same way
// regardless of UTF-8 byte width.
func CountRunes(s string) int {
	return len([]rune(s))
}
