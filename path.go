package listgrab

import (
	"sort"
	"strconv"
	"strings"
)

// Path is a parsed accessor into a decoded JSON tree.
//
// Syntax: dot-separated object keys, "[n]" for sequence indexes, and a
// trailing "*" on a key to select the first key with that prefix in sorted
// order. Examples: "item.title", "photos[0].url",
// "ROOT_QUERY.listing(*.title". The empty path selects the node itself.
type Path struct {
	raw  string
	segs []segment
}

type segment struct {
	key    string
	index  int
	isIdx  bool
	prefix bool
}

// ParsePath parses s into a Path. Returns EINVALID on malformed syntax.
func ParsePath(s string) (Path, error) {
	p := Path{raw: s}
	if s == "" {
		return p, nil
	}

	for _, part := range strings.Split(s, ".") {
		if part == "" {
			return Path{}, Errorf(EINVALID, "invalid path %q: empty segment", s)
		}

		key := part
		var idxs []int
		if i := strings.IndexByte(part, '['); i >= 0 {
			key = part[:i]
			rest := part[i:]
			for rest != "" {
				if rest[0] != '[' {
					return Path{}, Errorf(EINVALID, "invalid path %q: unexpected %q", s, rest)
				}
				end := strings.IndexByte(rest, ']')
				if end < 0 {
					return Path{}, Errorf(EINVALID, "invalid path %q: unterminated index", s)
				}
				n, err := strconv.Atoi(rest[1:end])
				if err != nil || n < 0 {
					return Path{}, Errorf(EINVALID, "invalid path %q: bad index %q", s, rest[1:end])
				}
				idxs = append(idxs, n)
				rest = rest[end+1:]
			}
		}

		if key != "" {
			seg := segment{key: key}
			if strings.HasSuffix(key, "*") {
				seg.key = strings.TrimSuffix(key, "*")
				seg.prefix = true
			}
			p.segs = append(p.segs, seg)
		}
		for _, n := range idxs {
			p.segs = append(p.segs, segment{index: n, isIdx: true})
		}
	}

	return p, nil
}

// MustParsePath is like ParsePath but panics on error.
// Intended for static policy tables.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// MustParsePaths parses each string with MustParsePath.
func MustParsePaths(ss ...string) []Path {
	paths := make([]Path, 0, len(ss))
	for _, s := range ss {
		paths = append(paths, MustParsePath(s))
	}
	return paths
}

// String returns the path in its textual form.
func (p Path) String() string {
	return p.raw
}

// Join returns a path that applies p and then q.
func (p Path) Join(q Path) Path {
	switch {
	case p.raw == "":
		return q
	case q.raw == "":
		return p
	}

	segs := make([]segment, 0, len(p.segs)+len(q.segs))
	segs = append(segs, p.segs...)
	segs = append(segs, q.segs...)

	raw := p.raw + "." + q.raw
	if strings.HasPrefix(q.raw, "[") {
		raw = p.raw + q.raw
	}
	return Path{raw: raw, segs: segs}
}

// resolver walks paths over a tree, following Apollo-style
// {"__ref": "Type:id"} pointers through the given normalized caches.
type resolver struct {
	caches []map[string]any
}

// lookup returns the node at p under root. The second result is false when
// any segment is missing or the final node is null.
func (r resolver) lookup(root any, p Path) (any, bool) {
	cur := r.deref(root)
	for _, seg := range p.segs {
		switch {
		case seg.isIdx:
			arr, ok := cur.([]any)
			if !ok || seg.index >= len(arr) {
				return nil, false
			}
			cur = arr[seg.index]
		case seg.prefix:
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			key, ok := firstKeyWithPrefix(m, seg.key)
			if !ok {
				return nil, false
			}
			cur = m[key]
		default:
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			if cur, ok = m[seg.key]; !ok {
				return nil, false
			}
		}
		cur = r.deref(cur)
	}
	return cur, cur != nil
}

// deref replaces a reference node with its target when one is known.
func (r resolver) deref(node any) any {
	m, ok := node.(map[string]any)
	if !ok || len(m) != 1 {
		return node
	}
	ref, ok := m["__ref"].(string)
	if !ok {
		return node
	}
	for _, cache := range r.caches {
		if target, ok := cache[ref]; ok {
			return target
		}
	}
	return node
}

func firstKeyWithPrefix(m map[string]any, prefix string) (string, bool) {
	keys := make([]string, 0, len(m))
	for k := range m {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", false
	}
	sort.Strings(keys)
	return keys[0], true
}
