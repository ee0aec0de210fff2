package parser

import "strings"

// directive is one fully-merged logical line: an owning command plus
// whatever `%`/`^` continuation lines the look-ahead consumed for it.
type directive struct {
	no       int
	cmd      byte
	body     string
	previous string // only meaningful for cmd == '+'
}

// mergeContinuations runs the continuation look-ahead: for every owning
// line (cmd not '%' or '^'), scan forward while subsequent lines are '%'
// or '^', folding them into the owner.
func (p *Parser) mergeContinuations(label string, raw []rawLine) ([]directive, error) {
	var out []directive
	localConcat := p.cfg.Concat

	i := 0
	for i < len(raw) {
		owner := raw[i]
		if owner.cmd == '%' || owner.cmd == '^' {
			// An orphaned continuation with no owner; skip it rather than
			// crash — lenient behavior matches the rest of the parser's
			// "log and continue" stance outside strict mode.
			p.warnf(label, owner.no, "orphaned %q continuation line", string(owner.cmd))
			i++
			continue
		}

		previous := ""
		var concatParts []string
		j := i + 1
		for j < len(raw) && (raw[j].cmd == '%' || raw[j].cmd == '^') {
			switch raw[j].cmd {
			case '%':
				if owner.cmd == '+' && previous == "" {
					// %Previous patterns compile through the same trigger
					// pipeline as + patterns, so they validate the same way.
					if !checkTrigger(raw[j].body, p.cfg.UTF8) {
						if skip, err := p.reject(label, raw[j].no, KindSyntax, "invalid previous pattern "+raw[j].body); skip {
							if err != nil {
								return nil, err
							}
							j++
							continue
						}
					}
					previous = raw[j].body
				}
			case '^':
				concatParts = append(concatParts, raw[j].body)
			}
			j++
		}

		body := owner.body
		if len(concatParts) > 0 {
			sep := "<crlf>"
			if owner.cmd != '!' {
				sep = localConcat.separator()
			}
			body = owner.body + sep + strings.Join(concatParts, sep)
		}

		if owner.cmd == '!' {
			if mode, ok := parseLocalConcat(body); ok {
				localConcat = mode
			}
		}

		out = append(out, directive{no: owner.no, cmd: owner.cmd, body: body, previous: previous})
		i = j
	}

	return out, nil
}

// parseLocalConcat recognizes `local concat = NONE|NEWLINE|SPACE` bodies
// (the body of a `!` line, i.e. with the leading "!" already stripped) and
// reports the ConcatMode it selects.
func parseLocalConcat(body string) (ConcatMode, bool) {
	fields := strings.Fields(body)
	if len(fields) < 1 || fields[0] != "local" {
		return 0, false
	}
	idx := strings.Index(body, "=")
	if idx < 0 {
		return 0, false
	}
	name := strings.TrimSpace(body[:idx])
	if name != "local concat" {
		return 0, false
	}
	switch strings.ToUpper(strings.TrimSpace(body[idx+1:])) {
	case "NONE":
		return ConcatNone, true
	case "NEWLINE":
		return ConcatNewline, true
	case "SPACE":
		return ConcatSpace, true
	default:
		return 0, false
	}
}
