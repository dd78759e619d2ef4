// Package schedule evaluates per-area schedule templates and keeps the
// evaluated values in sync with the host's area resources.
//
// A template is a sequence of `-`-separated segments. Each segment is a
// clock literal ("7", "07:30"), the `?` placeholder (substituted with the
// resolved quest reset time), or a function call:
//
//	add(time, offset)   offset "H" or "H:M", hour wraps modulo 24
//	min(t1, t2, ...)    earliest of the given times
//	max(t1, t2, ...)    latest of the given times
//	ifevent(a, b)       a while an event governs the reset time, else b
//
// Calls nest arbitrarily. Evaluation is pure; malformed segments yield a
// parse or evaluation error instead of a silent no-op.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

// Placeholder is the substitution token replaced by the resolved reset time.
const Placeholder = "?"

// expr is a parsed template segment.
type expr interface{ isExpr() }

type literal string

type placeholder struct{}

type call struct {
	name string
	args []expr
}

func (literal) isExpr()     {}
func (placeholder) isExpr() {}
func (call) isExpr()        {}

// parseSegment parses one `-`-separated segment into an expression tree.
func parseSegment(s string) (expr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty segment")
	}
	if s == Placeholder {
		return placeholder{}, nil
	}

	if i := strings.IndexByte(s, '('); i > 0 {
		name := strings.TrimSpace(s[:i])
		if !strings.HasSuffix(s, ")") {
			return nil, fmt.Errorf("unterminated call %q", s)
		}
		rawArgs, err := splitTopLevel(s[i+1:len(s)-1], ',')
		if err != nil {
			return nil, fmt.Errorf("call %q: %w", s, err)
		}
		args := make([]expr, 0, len(rawArgs))
		for _, raw := range rawArgs {
			arg, err := parseSegment(raw)
			if err != nil {
				return nil, fmt.Errorf("call %q: %w", name, err)
			}
			args = append(args, arg)
		}
		return call{name: name, args: args}, nil
	}

	return literal(s), nil
}

// splitTopLevel splits s on sep, ignoring separators nested inside
// parentheses.
func splitTopLevel(s string, sep byte) ([]string, error) {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced parentheses in %q", s)
			}
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses in %q", s)
	}
	parts = append(parts, s[start:])
	return parts, nil
}

// Evaluator resolves templates against one cycle's reset-time value.
type Evaluator struct {
	// Resolved is the quest reset time substituted for the placeholder.
	Resolved string

	// Default is the configured fallback reset time; ifevent() compares
	// Resolved against it.
	Default string
}

// EvaluateTemplate evaluates a full area template, re-joining the evaluated
// segments with the original `-` separators.
func (e Evaluator) EvaluateTemplate(template string) (string, error) {
	segments, err := splitTopLevel(template, '-')
	if err != nil {
		return "", err
	}
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		node, err := parseSegment(seg)
		if err != nil {
			return "", err
		}
		val, err := e.eval(node)
		if err != nil {
			return "", err
		}
		out = append(out, val)
	}
	return strings.Join(out, "-"), nil
}

func (e Evaluator) eval(node expr) (string, error) {
	switch n := node.(type) {
	case literal:
		return normalizeClock(string(n))
	case placeholder:
		return normalizeClock(e.Resolved)
	case call:
		return e.evalCall(n)
	default:
		return "", fmt.Errorf("unknown expression node %T", node)
	}
}

func (e Evaluator) evalCall(c call) (string, error) {
	switch c.name {
	case "add":
		if len(c.args) != 2 {
			return "", fmt.Errorf("add expects 2 arguments, got %d", len(c.args))
		}
		base, err := e.eval(c.args[0])
		if err != nil {
			return "", err
		}
		offset, err := e.eval(c.args[1])
		if err != nil {
			return "", err
		}
		return addClock(base, offset)

	case "min", "max":
		if len(c.args) == 0 {
			return "", fmt.Errorf("%s expects at least 1 argument", c.name)
		}
		best := ""
		for i, arg := range c.args {
			val, err := e.eval(arg)
			if err != nil {
				return "", err
			}
			// Zero-padded HH:MM compares chronologically as a string.
			if i == 0 || (c.name == "min" && val < best) || (c.name == "max" && val > best) {
				best = val
			}
		}
		return best, nil

	case "ifevent":
		if len(c.args) != 2 {
			return "", fmt.Errorf("ifevent expects 2 arguments, got %d", len(c.args))
		}
		resolved, err := normalizeClock(e.Resolved)
		if err != nil {
			return "", err
		}
		def, err := normalizeClock(e.Default)
		if err != nil {
			return "", err
		}
		if resolved != def {
			return e.eval(c.args[0])
		}
		return e.eval(c.args[1])

	default:
		return "", fmt.Errorf("unknown function %q", c.name)
	}
}

// normalizeClock brings a clock token into zero-padded HH:MM form. A bare
// digit sequence is treated as an hour.
func normalizeClock(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty clock value")
	}

	hourPart := s
	minutePart := "0"
	if i := strings.IndexByte(s, ':'); i >= 0 {
		hourPart = s[:i]
		minutePart = s[i+1:]
	}

	hour, err := strconv.Atoi(hourPart)
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid clock value %q", s)
	}
	minute, err := strconv.Atoi(minutePart)
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid clock value %q", s)
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

// addClock adds an offset (normalized HH:MM) to a base time, carrying minute
// overflow into hours and wrapping hours modulo 24.
func addClock(base, offset string) (string, error) {
	bh, bm, err := splitClock(base)
	if err != nil {
		return "", err
	}
	oh, om, err := splitClock(offset)
	if err != nil {
		return "", err
	}

	minute := bm + om
	hour := bh + oh + minute/60
	minute %= 60
	hour %= 24

	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

func splitClock(s string) (hour, minute int, err error) {
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return 0, 0, fmt.Errorf("invalid clock value %q", s)
	}
	hour, err = strconv.Atoi(s[:i])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock value %q", s)
	}
	minute, err = strconv.Atoi(s[i+1:])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock value %q", s)
	}
	return hour, minute, nil
}
