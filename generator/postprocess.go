package generator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
)

// fencedBlock matches a Markdown code fence, with or without a language tag.
var fencedBlock = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \t]*\\r?\\n?(.*?)\\r?\\n?[ \t]*```")

// StripFences removes code-fence wrappers and surrounding prose from a
// reply that should hold a single JSON object.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if m := fencedBlock.FindStringSubmatch(s); len(m) == 2 {
		s = strings.TrimSpace(m[1])
	}
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// ParseMarkers turns a reply into marker/value pairs. The reply must be
// a flat JSON object; string, number and boolean values are accepted,
// anything else fails with ErrParseFailure. Keys are normalised to
// d.Open+NAME+d.Close and values are sanitised. Pairs come back in the
// order of wanted, then any extra keys sorted.
func ParseMarkers(raw string, d Delimiters, wanted []string) ([]Pair, error) {
	body := StripFences(raw)
	if body == "" {
		return nil, parseErr("empty reply")
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, parseErr("invalid JSON: %v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, parseErr("trailing content after JSON object")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, parseErr("expected a JSON object, got %T", v)
	}
	if len(obj) == 0 {
		return nil, parseErr("reply holds no markers")
	}

	values := make(map[string]string, len(obj))
	for k, raw := range obj {
		name, err := MarkerName(k, d)
		if err != nil {
			return nil, err
		}
		val, err := scalarString(raw)
		if err != nil {
			return nil, parseErr("key %q: %v", k, err)
		}
		key := d.Wrap(name)
		if _, dup := values[key]; dup {
			return nil, parseErr("keys collide on marker %s", key)
		}
		values[key] = Sanitize(val, d)
	}

	out := make([]Pair, 0, len(values))
	used := make(map[string]bool, len(values))
	for _, w := range wanted {
		key := d.Wrap(w)
		if v, ok := values[key]; ok && !used[key] {
			out = append(out, Pair{Key: key, Value: v})
			used[key] = true
		}
	}
	var extra []string
	for k := range values {
		if !used[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		out = append(out, Pair{Key: k, Value: values[k]})
	}
	return out, nil
}

func scalarString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		if t {
			return "true", nil
		}
		return "false", nil
	case nil:
		return "", errors.New("null value")
	default:
		return "", fmt.Errorf("nested %T value", v)
	}
}

// MarkerName reduces a key in any of the forms NAME, {NAME} or {{NAME}}
// to NAME. Names that are empty or still contain delimiter characters
// fail with ErrParseFailure.
func MarkerName(key string, d Delimiters) (string, error) {
	chars := delimiterChars(d)
	name := strings.TrimSpace(key)
	name = strings.TrimLeft(name, chars)
	name = strings.TrimRight(name, chars)
	name = strings.TrimSpace(name)
	if name == "" {
		return "", parseErr("empty marker key %q", key)
	}
	if strings.ContainsAny(name, chars) {
		return "", parseErr("marker key %q contains delimiter characters", key)
	}
	return name, nil
}

// Sanitize strips every delimiter character from a replacement value so
// it can never form a marker on a later pass.
func Sanitize(value string, d Delimiters) string {
	chars := delimiterChars(d)
	if chars == "" {
		return strings.TrimSpace(value)
	}
	value = strings.Map(func(r rune) rune {
		if strings.ContainsRune(chars, r) {
			return -1
		}
		return r
	}, value)
	return strings.TrimSpace(value)
}

func delimiterChars(d Delimiters) string {
	var b bytes.Buffer
	seen := make(map[rune]bool)
	for _, r := range d.Open + d.Close {
		if !seen[r] {
			seen[r] = true
			b.WriteRune(r)
		}
	}
	return b.String()
}
