package storage

import (
	"sort"
	"strings"
)

// ApplyUpdate mutates a decoded document in place according to one field
// update. Adapters that cannot push an operator down to the backend use this
// to apply it inside their own transaction.
func ApplyUpdate(doc Doc, u Update) {
	switch u.Op {
	case OpSet:
		doc[u.Field] = deepCopyValue(u.Value)
	case OpUnion:
		set := toStringSlice(doc[u.Field])
		for _, v := range toStringSlice(u.Value) {
			if !sliceContains(set, v) {
				set = append(set, v)
			}
		}
		doc[u.Field] = toAnySlice(set)
	case OpRemove:
		set := toStringSlice(doc[u.Field])
		removed := toStringSlice(u.Value)
		kept := make([]string, 0, len(set))
		for _, v := range set {
			if !sliceContains(removed, v) {
				kept = append(kept, v)
			}
		}
		doc[u.Field] = toAnySlice(kept)
	case OpIncrement:
		cur, _ := asFloat(doc[u.Field])
		delta, _ := asFloat(u.Value)
		doc[u.Field] = cur + delta
	}
}

// SortDocs orders documents by a top-level field. Numbers sort numerically,
// strings lexicographically; a missing field sorts first ascending.
func SortDocs(docs []Doc, orderBy string, desc bool) {
	if orderBy == "" {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i][orderBy], docs[j][orderBy]
		if desc {
			return lessValue(b, a)
		}
		return lessValue(a, b)
	})
}

func toStringSlice(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{t}
	default:
		return nil
	}
}

func toAnySlice(set []string) []any {
	out := make([]any, len(set))
	for i, v := range set {
		out[i] = v
	}
	return out
}

func sliceContains(set []string, v string) bool {
	for _, e := range set {
		if e == v {
			return true
		}
	}
	return false
}

func lessValue(a, b any) bool {
	if af, ok := asFloat(a); ok {
		bf, bok := asFloat(b)
		return bok && af < bf
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs) < 0
	}
	return false
}

func deepCopy(doc Doc) Doc {
	out := make(Doc, len(doc))
	for k, v := range doc {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopy(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	case []string:
		return toAnySlice(t)
	default:
		return v
	}
}
