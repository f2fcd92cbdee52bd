package dataid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Raw is one fully concrete data identifier before type validation. Values
// are the literal strings taken from the command line.
type Raw map[string]string

// rangeRe matches the inclusive range grammar START..END[:STRIDE].
var rangeRe = regexp.MustCompile(`^(\d+)\.\.(\d+)(?::(\d+))?$`)

// ParseTokens parses the KEY=VALUE1[^VALUE2...] tokens of a single identifier
// option occurrence and returns the cross product of all candidate values as
// concrete identifiers.
//
// Keys are ordered by first appearance and the product is key-major: the last
// key's candidates vary fastest. That ordering is load-bearing for callers
// that compare resolved identifier lists against golden output.
func ParseTokens(option string, tokens []string) ([]Raw, error) {
	var keys []string
	candidates := map[string][]string{}

	for _, token := range tokens {
		key, valueStr, found := strings.Cut(token, "=")
		if !found || key == "" || valueStr == "" {
			return nil, fmt.Errorf("%s value %q must be in form key=value", option, token)
		}
		var values []string
		for _, cand := range strings.Split(valueStr, "^") {
			expanded, ok, err := expandRange(cand)
			if err != nil {
				return nil, fmt.Errorf("%s value %q: %w", option, token, err)
			}
			if ok {
				values = append(values, expanded...)
			} else {
				values = append(values, cand)
			}
		}
		if _, seen := candidates[key]; !seen {
			keys = append(keys, key)
		}
		candidates[key] = values
	}

	return crossProduct(keys, candidates), nil
}

// expandRange expands a START..END[:STRIDE] candidate into the inclusive
// integer sequence rendered back to strings. The second result is false when
// the candidate is not a range at all.
func expandRange(cand string) ([]string, bool, error) {
	m := rangeRe.FindStringSubmatch(cand)
	if m == nil {
		return nil, false, nil
	}
	start, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, false, fmt.Errorf("range start %q out of range", m[1])
	}
	end, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, false, fmt.Errorf("range end %q out of range", m[2])
	}
	stride := 1
	if m[3] != "" {
		stride, err = strconv.Atoi(m[3])
		if err != nil || stride < 1 {
			return nil, false, fmt.Errorf("invalid range stride %q", m[3])
		}
	}
	var out []string
	for v := start; v <= end; v += stride {
		out = append(out, strconv.Itoa(v))
	}
	return out, true, nil
}

// crossProduct emits every combination of the per-key candidate values, in
// key-major order (conventional nested-loop order).
func crossProduct(keys []string, candidates map[string][]string) []Raw {
	if len(keys) == 0 {
		return nil
	}
	total := 1
	for _, key := range keys {
		total *= len(candidates[key])
	}
	if total == 0 {
		return nil
	}

	out := make([]Raw, 0, total)
	idx := make([]int, len(keys))
	for {
		id := make(Raw, len(keys))
		for i, key := range keys {
			id[key] = candidates[key][idx[i]]
		}
		out = append(out, id)

		// Advance the odometer; the last key varies fastest.
		i := len(keys) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(candidates[keys[i]]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return out
		}
	}
}
