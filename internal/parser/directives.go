package parser

import (
	"strings"

	"github.com/hanspeak/kivescript/internal/ast"
)

// execute runs one merged directive's command handler. Handlers validate
// the directive first; a failed check aborts the parse in strict mode and
// skips the directive with a warning otherwise.
func (p *Parser) execute(label string, d directive) error {
	switch d.cmd {
	case '!':
		return p.execDefine(label, d)
	case '>':
		return p.execOpenLabel(label, d)
	case '<':
		return p.execCloseLabel(label, d)
	case '+':
		return p.execTrigger(label, d)
	case '-':
		return p.execReply(label, d)
	case '*':
		return p.execCondition(label, d)
	case '@':
		return p.execRedirect(label, d)
	default:
		// Unknown commands are ignored in lenient mode and reported as a
		// warning; strict mode treats an unrecognized leading character as
		// a syntax error.
		if skip, err := p.reject(label, d.no, KindSyntax, "unknown command "+string(d.cmd)); skip {
			return err
		}
		return nil
	}
}

func (p *Parser) execDefine(label string, d directive) error {
	if !checkDefine(d.body) {
		skip, err := p.reject(label, d.no, KindSyntax, "malformed ! definition: "+d.body)
		if skip {
			return err
		}
	}

	kind, name, value, ok := splitDefine(d.body)
	if !ok {
		skip, err := p.reject(label, d.no, KindSyntax, "malformed ! definition: "+d.body)
		if skip {
			return err
		}
		return nil
	}

	switch kind {
	case "version":
		v, ok := parseVersionFloat(value)
		if !ok || v > RSVersion {
			skip, err := p.reject(label, d.no, KindVersion, "unsupported script version "+value)
			if skip {
				return err
			}
		}
	case "local":
		// "local concat = ..." is consumed by mergeContinuations already;
		// any other `! local` key is not part of this spec and is ignored.
	case "global":
		p.root.Begin.Global[name] = value
	case "var":
		p.root.Begin.Var[name] = value
	case "sub":
		p.root.Begin.Sub[name] = value
	case "person":
		p.root.Begin.Person[name] = value
	case "array":
		p.root.Begin.Array[name] = splitArrayValue(value)
	}
	return nil
}

// splitDefine parses "KIND NAME = VALUE" (KIND and NAME separated by
// whitespace, VALUE separated from "KIND NAME" by "="). "local concat = X"
// has no NAME component, so kind "local" returns name == "".
func splitDefine(body string) (kind, name, value string, ok bool) {
	eq := strings.Index(body, "=")
	if eq < 0 {
		return "", "", "", false
	}
	left := strings.TrimSpace(body[:eq])
	value = strings.TrimSpace(body[eq+1:])
	fields := strings.Fields(left)
	if len(fields) == 0 {
		return "", "", "", false
	}
	kind = fields[0]
	if len(fields) > 1 {
		name = strings.Join(fields[1:], " ")
	}
	return kind, name, value, true
}

// splitArrayValue parses an array definition's value: split on the
// "<crlf>" continuation marker first, then on "|" if present, else on
// whitespace; un-escape "\s" to a literal space in each resulting item.
func splitArrayValue(value string) []string {
	var items []string
	for _, chunk := range strings.Split(value, "<crlf>") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		var parts []string
		if strings.Contains(chunk, "|") {
			parts = strings.Split(chunk, "|")
		} else {
			parts = strings.Fields(chunk)
		}
		for _, part := range parts {
			part = strings.ReplaceAll(strings.TrimSpace(part), `\s`, " ")
			if part != "" {
				items = append(items, part)
			}
		}
	}
	return items
}

func (p *Parser) execOpenLabel(label string, d directive) error {
	fields := strings.Fields(d.body)
	if len(fields) == 0 {
		skip, err := p.reject(label, d.no, KindSyntax, "empty > label")
		if skip {
			return err
		}
		return nil
	}

	switch fields[0] {
	case "begin":
		p.currentTopicName = ast.BeginTopicName
		p.root.Topic(ast.BeginTopicName)
	case "topic":
		if len(fields) < 2 {
			skip, err := p.reject(label, d.no, KindSyntax, "> topic missing name")
			if skip {
				return err
			}
			return nil
		}
		name := fields[1]
		if !checkTopicName(name, p.cfg.ForceCase) {
			skip, err := p.reject(label, d.no, KindSyntax, "invalid topic name "+name)
			if skip {
				return err
			}
		}
		if p.cfg.ForceCase {
			name = strings.ToLower(name)
		}
		topic := p.root.Topic(name)
		mode := ""
		for _, tok := range fields[2:] {
			switch tok {
			case "includes":
				mode = "includes"
			case "inherits":
				mode = "inherits"
			default:
				switch mode {
				case "includes":
					topic.Includes[tok] = true
				case "inherits":
					topic.Inherits[tok] = true
				}
			}
		}
		p.currentTopicName = name
	default:
		skip, err := p.reject(label, d.no, KindSyntax, "unknown > label "+fields[0])
		if skip {
			return err
		}
	}
	return nil
}

func (p *Parser) execCloseLabel(label string, d directive) error {
	switch strings.TrimSpace(d.body) {
	case "begin":
		p.currentTopicName = ast.DefaultTopicName
	case "topic":
		p.currentTopicName = ast.DefaultTopicName
	case "object":
		// Object bodies are closed during comment/object stripping; a
		// stray "< object" here means the body was never opened.
	default:
		skip, err := p.reject(label, d.no, KindSyntax, "unknown < label "+d.body)
		if skip {
			return err
		}
	}
	p.currentTrigger = nil
	return nil
}

func (p *Parser) execTrigger(label string, d directive) error {
	pattern := d.body
	if p.cfg.Morpheme == ModeSeparation {
		if analyzed, err := p.pre.Analyze(pattern); err == nil {
			pattern = analyzed
		}
	}
	if p.cfg.ForceCase {
		pattern = strings.ToLower(pattern)
	}

	if !checkTrigger(pattern, p.cfg.UTF8) {
		skip, err := p.reject(label, d.no, KindSyntax, "invalid trigger pattern "+pattern)
		if skip {
			return err
		}
	}

	trig := &ast.Trigger{Pattern: pattern, Previous: d.previous}
	topic := p.root.Topic(p.currentTopicName)
	topic.Triggers = append(topic.Triggers, trig)
	p.currentTrigger = trig
	return nil
}

func (p *Parser) execReply(label string, d directive) error {
	if p.currentTrigger == nil {
		skip, err := p.reject(label, d.no, KindNoTrigger, "- reply with no current trigger")
		if skip {
			return err
		}
		return nil
	}
	if p.currentTrigger.Redirect != "" {
		skip, err := p.reject(label, d.no, KindRedirectReply, "- reply conflicts with existing @ redirect")
		if skip {
			return err
		}
		return nil
	}
	p.currentTrigger.Reply = append(p.currentTrigger.Reply, d.body)
	return nil
}

func (p *Parser) execCondition(label string, d directive) error {
	if p.currentTrigger == nil {
		skip, err := p.reject(label, d.no, KindNoTrigger, "* condition with no current trigger")
		if skip {
			return err
		}
		return nil
	}
	if !checkCondition(d.body) {
		skip, err := p.reject(label, d.no, KindSyntax, "malformed * condition: "+d.body)
		if skip {
			return err
		}
		return nil
	}
	p.currentTrigger.Condition = append(p.currentTrigger.Condition, d.body)
	return nil
}

func (p *Parser) execRedirect(label string, d directive) error {
	if p.currentTrigger == nil {
		skip, err := p.reject(label, d.no, KindNoTrigger, "@ redirect with no current trigger")
		if skip {
			return err
		}
		return nil
	}
	if len(p.currentTrigger.Reply) > 0 {
		skip, err := p.reject(label, d.no, KindRedirectReply, "@ redirect conflicts with existing - reply")
		if skip {
			return err
		}
		return nil
	}
	if !checkTrigger(d.body, p.cfg.UTF8) {
		skip, err := p.reject(label, d.no, KindSyntax, "invalid redirect target "+d.body)
		if skip {
			return err
		}
		return nil
	}
	p.currentTrigger.Redirect = d.body
	return nil
}
