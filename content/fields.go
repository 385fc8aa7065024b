package content

import (
	"strconv"
	"strings"
)

// fields reads loosely typed story content. Keys may be dotted paths
// ("footer.links"); the first key with a usable value wins.
type fields map[string]any

func (f fields) lookup(key string) (any, bool) {
	var cur any = map[string]any(f)
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

func (f fields) value(keys ...string) any {
	for _, k := range keys {
		if v, ok := f.lookup(k); ok {
			return v
		}
	}
	return nil
}

func (f fields) str(keys ...string) string {
	for _, k := range keys {
		v, ok := f.lookup(k)
		if !ok {
			continue
		}
		if s := strings.TrimSpace(toString(v)); s != "" {
			return s
		}
	}
	return ""
}

func (f fields) list(keys ...string) []any {
	for _, k := range keys {
		v, ok := f.lookup(k)
		if !ok {
			continue
		}
		switch l := v.(type) {
		case []any:
			return l
		case []map[string]any:
			out := make([]any, len(l))
			for i, m := range l {
				out[i] = m
			}
			return out
		case map[string]any:
			// {items: [...]} wrapper
			if items, ok := l["items"].([]any); ok {
				return items
			}
		}
	}
	return nil
}

func (f fields) object(keys ...string) fields {
	for _, k := range keys {
		if v, ok := f.lookup(k); ok {
			if m, ok := v.(map[string]any); ok {
				return fields(m)
			}
		}
	}
	return nil
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}
