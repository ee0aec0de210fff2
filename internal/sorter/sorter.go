// Package sorter orders a topic's triggers into the strict priority used
// for matching, and collects a topic's effective trigger set across its
// includes/inherits graph into the engine's sort buffer.
package sorter

import (
	"sort"
	"strconv"
	"strings"

	"github.com/hanspeak/kivescript/internal/ast"
	"github.com/hanspeak/kivescript/internal/rsre"
	"github.com/hanspeak/kivescript/internal/strutil"
)

// MaxDepth bounds the includes/inherits walk so a cyclic topic graph
// cannot recurse forever.
const MaxDepth = 50

// Entry is one sorted slot: MatchText is the text the comparator ranks
// and the reply engine compiles — the trigger's own pattern for a
// topics-list entry, or its %Previous text for a thats-list entry.
// Trigger is the back-pointer, never mutated.
type Entry struct {
	MatchText string
	Trigger   *ast.Trigger
}

// Buffer is the engine's SortBuffer: one ordered entry list per topic, a
// parallel thats list (only %Previous-bearing triggers, keyed the same
// way), and the substitution key orderings.
type Buffer struct {
	Topics map[string][]Entry
	Thats  map[string][]Entry
	Sub    []string
	Person []string
}

// Build runs the sorter once over every topic in root, after all parsing
// completes. subs and persons are the raw
// substitution/person maps from the begin block; their sorted key order is
// computed here since it depends only on the keys' own text.
func Build(root *ast.Root, subs, persons map[string]string) *Buffer {
	buf := &Buffer{
		Topics: make(map[string][]Entry, len(root.Topics)),
		Thats:  make(map[string][]Entry, len(root.Topics)),
	}

	for name := range root.Topics {
		buf.Topics[name] = collect(root, name, false)
		buf.Thats[name] = collect(root, name, true)
	}

	buf.Sub = sortSubstitutionKeys(subs)
	buf.Person = sortSubstitutionKeys(persons)

	return buf
}

// sortSubstitutionKeys ranks substitution/person keys by word count
// (all tokens counted) descending, then rune length descending, then
// lexicographically — the longest, most specific phrase always tried
// first so substrings of a longer key never pre-empt it.
func sortSubstitutionKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		wi, wj := strutil.CountWords(keys[i], true), strutil.CountWords(keys[j], true)
		if wi != wj {
			return wi > wj
		}
		li, lj := strutil.CountRunes(keys[i]), strutil.CountRunes(keys[j])
		if li != lj {
			return li > lj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// rankedEntry is one collected trigger plus the precomputed sort keys the
// comparator uses.
type rankedEntry struct {
	entry     Entry
	weight    int
	inherited int // -1 if not reached via/under an inherits edge
	class     int
	words     int
	length    int
}

// specificity classes, highest-priority first. A pattern's class is the
// first of these rules that applies: any optional group, then `_`, `#`,
// `*` alongside plain words, then word-less `_`, `#`, `*`; otherwise
// atomic.
const (
	classAtomic = iota
	classOption
	classAlpha
	classNumber
	classWild
	classUnderscore
	classPound
	classStar
)

// collect implements getTopicTriggers(name, thatsOnly, …): gathers every
// trigger (or, when thatsOnly, every %Previous text) reachable from name
// through includes/inherits, in final match order.
func collect(root *ast.Root, name string, thatsOnly bool) []Entry {
	var ranked []rankedEntry
	walk(root, name, -1, 0, map[string]bool{}, thatsOnly, &ranked)

	sort.SliceStable(ranked, func(i, j int) bool {
		return less(&ranked[i], &ranked[j])
	})

	out := make([]Entry, len(ranked))
	for i, r := range ranked {
		out[i] = r.entry
	}
	return out
}

func walk(root *ast.Root, name string, inheritDepth, depth int, seen map[string]bool, thatsOnly bool, out *[]rankedEntry) {
	if depth > MaxDepth || seen[name] {
		return
	}
	seen[name] = true

	topic, ok := root.Topics[name]
	if !ok {
		return
	}

	inheritedHere := inheritDepth >= 0 || len(topic.Inherits) > 0

	for _, t := range topic.Triggers {
		if thatsOnly {
			if !t.HasPrevious() {
				continue
			}
			*out = append(*out, makeEntry(t.Previous, t, inheritDepth, inheritedHere))
			continue
		}
		*out = append(*out, makeEntry(t.Pattern, t, inheritDepth, inheritedHere))
	}

	for inc := range topic.Includes {
		walk(root, inc, inheritDepth, depth+1, seen, thatsOnly, out)
	}
	for inh := range topic.Inherits {
		// The inheritance counter bumps on every inherits hop, so each
		// level of a chain sorts strictly below the one above it.
		level := 1
		if inheritDepth >= 0 {
			level = inheritDepth + 1
		}
		walk(root, inh, level, depth+1, seen, thatsOnly, out)
	}
}

func makeEntry(matchText string, t *ast.Trigger, inheritDepth int, inherited bool) rankedEntry {
	text := matchText
	if inherited {
		level := inheritDepth
		if level < 0 {
			level = 0
		}
		text = "{inherits=" + strconv.Itoa(level) + "}" + matchText
	}

	weight := 0
	if m := rsre.Weight.FindStringSubmatch(matchText); m != nil {
		weight, _ = strconv.Atoi(m[1])
	}

	return rankedEntry{
		entry:     Entry{MatchText: text, Trigger: t},
		weight:    weight,
		inherited: inheritDepth,
		class:     classify(matchText),
		words:     strutil.CountWords(matchText, false),
		length:    strutil.CountRunes(matchText),
	}
}

// classify returns pattern's specificity class: the first matching rule
// in the order listed on the class constants.
func classify(pattern string) int {
	hasWord, hasOption, hasUnder, hasPound, hasStar := false, false, false, false, false

	for _, field := range strings.Fields(pattern) {
		switch {
		case field == "*":
			hasStar = true
		case field == "#":
			hasPound = true
		case field == "_":
			hasUnder = true
		case strings.HasPrefix(field, "[") && strings.HasSuffix(field, "]"):
			hasOption = true
		default:
			hasWord = true
		}
	}

	switch {
	case hasOption:
		return classOption
	case hasUnder && hasWord:
		return classAlpha
	case hasPound && hasWord:
		return classNumber
	case hasStar && hasWord:
		return classWild
	case hasUnder:
		return classUnderscore
	case hasPound:
		return classPound
	case hasStar:
		return classStar
	default:
		return classAtomic
	}
}

// less implements the matching total order: weight descending, then
// inheritance level ascending (own-topic triggers, inherited==-1,
// always beat inherited ones; among inherited triggers lower N wins), then
// specificity class ascending (atomic first), then word count descending,
// then rune length descending, then lexicographic as the final
// deterministic tie-break.
func less(a, b *rankedEntry) bool {
	if a.weight != b.weight {
		return a.weight > b.weight
	}

	aInh, bInh := a.inherited, b.inherited
	if (aInh < 0) != (bInh < 0) {
		return aInh < 0
	}
	if aInh >= 0 && bInh >= 0 && aInh != bInh {
		return aInh < bInh
	}

	if a.class != b.class {
		return a.class < b.class
	}
	if a.words != b.words {
		return a.words > b.words
	}
	if a.length != b.length {
		return a.length > b.length
	}
	return a.entry.MatchText < b.entry.MatchText
}
