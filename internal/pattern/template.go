package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultConstraint is the regular expression a wildcard matches when
// neither the template nor the rule constrains it.
const DefaultConstraint = ".+"

var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// segment is either a literal run of text or a single wildcard slot.
type segment struct {
	literal    string
	wildcard   string
	constraint string
}

func (s segment) isWildcard() bool { return s.wildcard != "" }

// Template is a compiled path template such as "sims/{seed}/{chrom,chr[0-9]+}.trees".
//
// Slots are written {name} or {name,regex}. Literal braces are written {{
// and }}. A name used twice must bind the same value in a match.
type Template struct {
	raw      string
	segments []segment
	names    []string
	re       *regexp.Regexp
	// groups maps generated capture-group names to wildcard names.
	groups map[string]string
}

// Compile parses raw into a Template. constraints supplies per-wildcard
// regular expressions for slots that carry no inline constraint.
func Compile(raw string, constraints map[string]string) (*Template, error) {
	segments, err := parse(raw)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", raw, err)
	}
	for i := range segments {
		if !segments[i].isWildcard() || segments[i].constraint != "" {
			continue
		}
		if c, ok := constraints[segments[i].wildcard]; ok && c != "" {
			segments[i].constraint = c
		} else {
			segments[i].constraint = DefaultConstraint
		}
	}
	t, err := build(raw, segments)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", raw, err)
	}
	return t, nil
}

// MustCompile is like Compile but panics on error. Intended for tests and
// static templates.
func MustCompile(raw string) *Template {
	t, err := Compile(raw, nil)
	if err != nil {
		panic(err)
	}
	return t
}

func parse(raw string) ([]segment, error) {
	var segments []segment
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			segments = append(segments, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '{' && i+1 < len(raw) && raw[i+1] == '{':
			lit.WriteByte('{')
			i++
		case c == '}' && i+1 < len(raw) && raw[i+1] == '}':
			lit.WriteByte('}')
			i++
		case c == '}':
			return nil, fmt.Errorf("unmatched '}' at offset %d", i)
		case c == '{':
			// Constraints may themselves contain braces ("\d{2}"), so the
			// slot ends at the brace that balances the opening one.
			depth := 1
			j := i + 1
			for ; j < len(raw) && depth > 0; j++ {
				switch raw[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
			}
			if depth != 0 {
				return nil, fmt.Errorf("unterminated wildcard at offset %d", i)
			}
			body := raw[i+1 : j-1]
			name, constraint, _ := strings.Cut(body, ",")
			name = strings.TrimSpace(name)
			if !identRegex.MatchString(name) {
				return nil, fmt.Errorf("invalid wildcard name %q", name)
			}
			flush()
			segments = append(segments, segment{wildcard: name, constraint: strings.TrimSpace(constraint)})
			i = j - 1
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return segments, nil
}

func build(raw string, segments []segment) (*Template, error) {
	t := &Template{raw: raw, segments: segments, groups: make(map[string]string)}
	seen := make(map[string]bool)

	var expr strings.Builder
	expr.WriteByte('^')
	for i, seg := range segments {
		if !seg.isWildcard() {
			expr.WriteString(regexp.QuoteMeta(seg.literal))
			continue
		}
		if _, err := regexp.Compile(seg.constraint); err != nil {
			return nil, fmt.Errorf("wildcard %q: invalid constraint: %w", seg.wildcard, err)
		}
		group := fmt.Sprintf("w%d", i)
		t.groups[group] = seg.wildcard
		fmt.Fprintf(&expr, "(?P<%s>%s)", group, seg.constraint)
		if !seen[seg.wildcard] {
			seen[seg.wildcard] = true
			t.names = append(t.names, seg.wildcard)
		}
	}
	expr.WriteByte('$')

	re, err := regexp.Compile(expr.String())
	if err != nil {
		return nil, err
	}
	t.re = re
	return t, nil
}

// String returns the template source.
func (t *Template) String() string {
	return t.raw
}

// Wildcards returns the distinct wildcard names in order of first appearance.
func (t *Template) Wildcards() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// HasWildcards reports whether the template contains any slot.
func (t *Template) HasWildcards() bool {
	return len(t.names) > 0
}

// Match matches path against the template. It never touches the filesystem.
func (t *Template) Match(path string) (Binding, bool) {
	m := t.re.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	b := make(Binding, len(t.names))
	for i, group := range t.re.SubexpNames() {
		name, ok := t.groups[group]
		if !ok {
			continue
		}
		if prev, dup := b[name]; dup && prev != m[i] {
			return nil, false
		}
		b[name] = m[i]
	}
	return b, true
}

// Expand substitutes every slot from b. All wildcards must be bound.
func (t *Template) Expand(b Binding) (string, error) {
	var sb strings.Builder
	for _, seg := range t.segments {
		if !seg.isWildcard() {
			sb.WriteString(seg.literal)
			continue
		}
		v, ok := b[seg.wildcard]
		if !ok {
			return "", fmt.Errorf("template %q: wildcard %q is not bound", t.raw, seg.wildcard)
		}
		sb.WriteString(v)
	}
	return sb.String(), nil
}

// Partial substitutes the wildcards bound in b and keeps the others as slots.
func (t *Template) Partial(b Binding) (*Template, error) {
	var segments []segment
	var raw strings.Builder
	for _, seg := range t.segments {
		if seg.isWildcard() {
			if v, ok := b[seg.wildcard]; ok {
				segments = appendLiteral(segments, v)
				raw.WriteString(escape(v))
				continue
			}
			segments = append(segments, seg)
			if seg.constraint == DefaultConstraint {
				fmt.Fprintf(&raw, "{%s}", seg.wildcard)
			} else {
				fmt.Fprintf(&raw, "{%s,%s}", seg.wildcard, seg.constraint)
			}
			continue
		}
		segments = appendLiteral(segments, seg.literal)
		raw.WriteString(escape(seg.literal))
	}
	return build(raw.String(), segments)
}

func appendLiteral(segments []segment, text string) []segment {
	if n := len(segments); n > 0 && !segments[n-1].isWildcard() {
		segments[n-1].literal += text
		return segments
	}
	return append(segments, segment{literal: text})
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "{", "{{")
	return strings.ReplaceAll(s, "}", "}}")
}
