// Package pattern implements the SCA content-matching dialect.
//
// A pattern is a list of chains separated by a literal "&&". A line of
// candidate text matches when every chain holds for it; the pattern
// matches a text when at least one of its lines does. The dialect is not
// standard regex: an unescaped dot is always a literal dot, "*" is a lazy
// wildcard, and "r:" chains are substring searches rather than full
// matches. These are compatibility requirements for existing policy
// documents, not defects.
package pattern

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type chainKind int

const (
	chainLiteral chainKind = iota
	chainSearch
	chainNegSearch
	chainNumeric
)

// numericRe pulls apart "n:<expr> compare <op> <int>" chains.
var numericRe = regexp.MustCompile(`(?i)n:(.*)\s+compare\s+([<>=!]*)\s+(\d+)`)

// comparators accepted by numeric chains. "=<" and "=>" are legacy
// aliases kept for document compatibility.
var comparators = map[string]func(a, b int) bool{
	"<":  func(a, b int) bool { return a < b },
	"<=": func(a, b int) bool { return a <= b },
	"=<": func(a, b int) bool { return a <= b },
	"==": func(a, b int) bool { return a == b },
	"!=": func(a, b int) bool { return a != b },
	">=": func(a, b int) bool { return a >= b },
	"=>": func(a, b int) bool { return a >= b },
	">":  func(a, b int) bool { return a > b },
}

type chain struct {
	text string // preprocessed chain text
	kind chainKind

	re  *regexp.Regexp // search expression, nil for literal chains
	err error          // deferred compile/parse error, surfaced on Match

	compare func(a, b int) bool // numeric chains only
	operand int
}

// Pattern is a compiled pattern. Compile never fails; malformed
// sub-expressions surface as errors from Match, mirroring the original
// behaviour where a bad chain fails the rule check, not the rule parse.
type Pattern struct {
	raw    string
	chains []*chain
}

const dotPlaceholder = "REGEX_DOT"

// preprocess rewrites the dialect into RE2 syntax. The order of the
// rewrites is significant and must not change: the lazy-star marker goes
// first, then dot escaping (with a placeholder protecting escaped dots),
// then the character-class shorthands.
func preprocess(p string) string {
	p = strings.ReplaceAll(p, "*", "*?")
	p = strings.ReplaceAll(p, `\.`, dotPlaceholder)
	p = strings.ReplaceAll(p, ".", `\.`)
	p = strings.ReplaceAll(p, dotPlaceholder, ".")
	p = strings.ReplaceAll(p, `\w`, "[A-Za-z0-9-@_]")
	p = strings.ReplaceAll(p, `\W`, "[^A-Za-z0-9-@_]")
	p = strings.ReplaceAll(p, `\s`, "[ ]")
	p = strings.ReplaceAll(p, `\S`, "[^ ]")
	p = strings.ReplaceAll(p, `\p`, `[()*+,\-.:;<=>?\[\]!"'#$%&|{}]`)
	return p
}

// Compile preprocesses the pattern and splits it into chains.
func Compile(raw string) *Pattern {
	p := &Pattern{raw: raw}
	for _, text := range strings.Split(preprocess(raw), "&&") {
		p.chains = append(p.chains, newChain(strings.TrimSpace(text)))
	}
	return p
}

func newChain(text string) *chain {
	c := &chain{text: text}
	switch {
	case strings.HasPrefix(text, "r:"):
		c.kind = chainSearch
		c.re, c.err = compileSearch(text[2:])
	case strings.HasPrefix(text, "!r:"):
		c.kind = chainNegSearch
		c.re, c.err = compileSearch(text[3:])
	case strings.HasPrefix(text, "n:"):
		c.kind = chainNumeric
		m := numericRe.FindStringSubmatch(text)
		if m == nil {
			c.err = fmt.Errorf("malformed numeric chain %q", text)
			return c
		}
		compare, ok := comparators[m[2]]
		if !ok {
			c.err = fmt.Errorf("unknown comparison operator %q", m[2])
			return c
		}
		c.compare = compare
		c.operand, _ = strconv.Atoi(m[3]) // \d+ guaranteed by numericRe
		c.re, c.err = compileSearch(m[1])
	default:
		c.kind = chainLiteral
	}
	return c
}

func compileSearch(expr string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, fmt.Errorf("bad expression %q: %w", expr, err)
	}
	return re, nil
}

// String returns the original pattern text.
func (p *Pattern) String() string {
	return p.raw
}

// Match reports whether any line of text satisfies every chain.
func (p *Pattern) Match(text string) (bool, error) {
	for _, line := range strings.Split(text, "\n") {
		ok := true
		for _, c := range p.chains {
			hit, err := c.eval(line)
			if err != nil {
				return false, err
			}
			if !hit {
				ok = false
				break
			}
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (c *chain) eval(line string) (bool, error) {
	if c.err != nil {
		return false, c.err
	}

	switch c.kind {
	case chainSearch:
		return c.re.MatchString(line), nil
	case chainNegSearch:
		return !c.re.MatchString(line), nil
	case chainNumeric:
		m := c.re.FindStringSubmatch(line)
		if m == nil {
			return false, nil // no capture, chain fails
		}
		captured := m[0]
		if c.re.NumSubexp() > 0 {
			captured = m[1]
		}
		value, err := strconv.Atoi(captured)
		if err != nil {
			return false, fmt.Errorf("non-numeric capture %q in chain %q", captured, c.text)
		}
		return c.compare(value, c.operand), nil
	default:
		// Exact equality against the whole line, using the
		// preprocessed chain text.
		return c.text == line, nil
	}
}
