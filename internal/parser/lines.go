package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hanspeak/kivescript/internal/ast"
)

// rawLine is one non-blank, non-comment, non-object-body source line after
// the comment/object-body state machine has run over the raw script text.
type rawLine struct {
	no   int
	cmd  byte
	body string
}

// stripCommentsAndObjects runs the `//`/`/* */`/object-body state
// machine over the raw script text. Finished ObjectMacro values are
// appended directly to root
// since object capture is purely sequential and needs no look-ahead.
func (p *Parser) stripCommentsAndObjects(label string, lines []string, root *ast.Root) []rawLine {
	var out []rawLine

	inComment := false
	inObject := false
	var objName, objLang string
	var objectBuffer []string
	objectStartLine := 0

	flushObject := func() {
		root.Objects = append(root.Objects, &ast.ObjectMacro{
			Name:     objName,
			Language: objLang,
			Code:     objectBuffer,
		})
		inObject = false
		objectBuffer = nil
	}

	for i, line := range lines {
		no := i + 1

		if inComment {
			if strings.Contains(line, "*/") {
				inComment = false
			}
			continue
		}

		if inObject {
			trimmed := strings.TrimSpace(line)
			if strings.Contains(trimmed, "< object") || strings.Contains(trimmed, "<object") {
				flushObject()
				continue
			}
			objectBuffer = append(objectBuffer, line)
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "//") {
			continue
		}
		if strings.HasPrefix(trimmed, "/*") {
			if strings.Contains(trimmed[2:], "*/") {
				continue
			}
			inComment = true
			continue
		}

		cmd := trimmed[0]
		body := strings.TrimSpace(trimmed[1:])

		if idx := strings.Index(body, " // "); idx >= 0 {
			body = strings.TrimSpace(body[:idx])
		}

		if cmd == '>' && looksLikeObjectOpen(body) {
			name, lang := splitObjectHeader(body)
			if !checkObjectName(name) {
				p.warnf(label, no, "invalid object name %q", name)
			}
			objName, objLang = name, lang
			objectBuffer = nil
			objectStartLine = no
			inObject = true
			continue
		}

		out = append(out, rawLine{no: no, cmd: cmd, body: body})
	}

	if inObject {
		p.warnf(label, objectStartLine, "unterminated object macro %q", objName)
	}
	if inComment {
		p.warnf(label, len(lines), "unterminated block comment")
	}

	return out
}

func looksLikeObjectOpen(body string) bool {
	return strings.HasPrefix(body, "object ") || body == "object" || strings.HasPrefix(body, "object\t")
}

func splitObjectHeader(body string) (name, lang string) {
	fields := strings.Fields(body)
	if len(fields) < 2 {
		return "", ""
	}
	name = fields[1]
	if len(fields) >= 3 {
		lang = fields[2]
	}
	return name, lang
}

func (p *Parser) warnf(label string, line int, format string, args ...any) {
	if p.warn == nil {
		return
	}
	p.warn(Warning{File: label, Line: line, Msg: fmt.Sprintf(format, args...)})
}

// parseVersionFloat parses a `! version = X` value, used by directives.go.
func parseVersionFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
