package parser

import (
	"regexp"
	"strings"
)

var (
	defineShapeRe = regexp.MustCompile(`^(version|local|global|var|array|sub|person)(\s+.+)?\s*=\s*.+$`)
	topicNameRe   = regexp.MustCompile(`^[a-z0-9_-]+$`)
	topicNameUCRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	objectNameRe  = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	triggerUTF8Re = regexp.MustCompile(`[A-Z]|\\\s*\.`)
	triggerASCIIRe = regexp.MustCompile(`^[a-z0-9(|)\[\]*_#@{}<>=/\s]+$`)
	conditionRe   = regexp.MustCompile(`^.+?\s*(==|eq|!=|ne|<>|<=|>=|<|>)\s*.+?=>.+?$`)
)

// checkDefine validates a `!` line's shape; line is the full post-`!`
// text.
func checkDefine(line string) bool {
	if !defineShapeRe.MatchString(strings.TrimSpace(line)) {
		return false
	}
	if strings.HasPrefix(strings.TrimSpace(line), "array") {
		idx := strings.Index(line, "=")
		if idx >= 0 {
			val := strings.TrimSpace(line[idx+1:])
			if strings.HasPrefix(val, "|") || strings.HasSuffix(val, "|") || strings.Contains(val, "||") {
				return false
			}
		}
	}
	return true
}

// checkTopicName validates the NAME of a `> topic NAME ...` label.
func checkTopicName(name string, forceCase bool) bool {
	if forceCase {
		return topicNameUCRe.MatchString(name)
	}
	return topicNameRe.MatchString(name)
}

func checkObjectName(name string) bool {
	return objectNameRe.MatchString(name)
}

// checkTrigger validates `+`, `%`, `@` line bodies.
func checkTrigger(line string, utf8 bool) bool {
	if utf8 {
		if triggerUTF8Re.MatchString(line) {
			return false
		}
	} else if !triggerASCIIRe.MatchString(line) {
		return false
	}
	if pipeAdjacentBadRe.MatchString(line) {
		return false
	}
	return balanced(line, '(', ')') && balanced(line, '[', ']') && balanced(line, '{', '}') && balanced(line, '<', '>')
}

var pipeAdjacentBadRe = regexp.MustCompile(`\|[()\[\]]|[()\[\]]\|`)

func balanced(s string, open, close rune) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case open:
			depth++
		case close:
			if open != close {
				depth--
			}
		}
	}
	if open == close {
		return true
	}
	return depth == 0
}

// checkCondition validates `*` line bodies.
func checkCondition(line string) bool {
	return conditionRe.MatchString(line)
}
