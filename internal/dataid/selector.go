package dataid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrSyntax is returned for malformed selector expressions.
var ErrSyntax = errors.New("invalid data ID selector")

// maxRangeItems bounds the expansion of a single a..b range.
const maxRangeItems = 100000

// Term restricts one data ID key to a set of values.
type Term struct {
	Key    string
	Values []string
}

// Selector is a parsed data ID expression such as "visit=12345 ccd=1..3^7".
// A data ID matches when it satisfies every term.
type Selector struct {
	Terms []Term
}

// Parse parses a selector expression. Terms are whitespace separated
// key=value pairs; a value is a ^ separated list whose items are literals or
// integer ranges written a..b or a..b:stride.
func Parse(expr string) (Selector, error) {
	fields := strings.Fields(expr)
	if len(fields) == 0 {
		return Selector{}, fmt.Errorf("%w: empty expression", ErrSyntax)
	}

	var sel Selector
	seen := make(map[string]bool, len(fields))
	for _, field := range fields {
		key, value, ok := strings.Cut(field, "=")
		if !ok || key == "" || value == "" {
			return Selector{}, fmt.Errorf("%w: %q is not of the form key=value", ErrSyntax, field)
		}
		if seen[key] {
			return Selector{}, fmt.Errorf("%w: key %q given more than once", ErrSyntax, key)
		}
		seen[key] = true

		values, err := parseValues(value)
		if err != nil {
			return Selector{}, fmt.Errorf("%w: key %q: %v", ErrSyntax, key, err)
		}
		sel.Terms = append(sel.Terms, Term{Key: key, Values: values})
	}
	return sel, nil
}

// ParseAll parses each expression in turn.
func ParseAll(exprs []string) ([]Selector, error) {
	out := make([]Selector, 0, len(exprs))
	for _, expr := range exprs {
		sel, err := Parse(expr)
		if err != nil {
			return nil, err
		}
		out = append(out, sel)
	}
	return out, nil
}

func parseValues(value string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(v string) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}

	for _, item := range strings.Split(value, "^") {
		if item == "" {
			return nil, fmt.Errorf("empty item in %q", value)
		}
		lo, hi, isRange := strings.Cut(item, "..")
		if !isRange {
			add(Canonical(item))
			continue
		}

		stride := 1
		if h, s, ok := strings.Cut(hi, ":"); ok {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("invalid stride in %q", item)
			}
			hi, stride = h, n
		}
		start, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("invalid range start in %q", item)
		}
		end, err := strconv.Atoi(hi)
		if err != nil {
			return nil, fmt.Errorf("invalid range end in %q", item)
		}
		if end < start {
			return nil, fmt.Errorf("range %q runs backwards", item)
		}
		// The unsigned difference cannot overflow once end >= start.
		steps := (uint64(end) - uint64(start)) / uint64(stride)
		if steps >= maxRangeItems {
			return nil, fmt.Errorf("range %q is too large", item)
		}
		for n := 0; n <= int(steps); n++ {
			add(strconv.Itoa(start + n*stride))
		}
	}
	return out, nil
}

// Matches reports whether id satisfies every term of the selector.
func (s Selector) Matches(id DataID) bool {
	for _, term := range s.Terms {
		got, ok := id[term.Key]
		if !ok {
			return false
		}
		found := false
		for _, v := range term.Values {
			if v == got {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// String renders the selector back into expression form.
func (s Selector) String() string {
	parts := make([]string, 0, len(s.Terms))
	for _, term := range s.Terms {
		parts = append(parts, term.Key+"="+strings.Join(term.Values, "^"))
	}
	return strings.Join(parts, " ")
}
