// Package path resolves dotted field paths against untyped documents.
//
// Documents are the map/slice/scalar trees produced by encoding/json.
// Every value is classified into exactly one Node kind before it is
// inspected, so traversal code switches over Kind instead of probing
// dynamic types.
package path

import "strings"

// Kind tags the variant held by a Node.
type Kind int

// Node kinds.
const (
	Absent Kind = iota
	Scalar
	Sequence
	Mapping
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Absent:
		return "absent"
	case Scalar:
		return "scalar"
	case Sequence:
		return "sequence"
	case Mapping:
		return "mapping"
	}
	return "unknown"
}

// Node is a classified document value.
type Node struct {
	kind   Kind
	scalar any
	seq    []any
	fields map[string]any
}

// Of classifies a raw document value. JSON null is Absent.
func Of(v any) Node {
	switch t := v.(type) {
	case nil:
		return Node{kind: Absent}
	case map[string]any:
		return Node{kind: Mapping, fields: t}
	case []any:
		return Node{kind: Sequence, seq: t}
	case []map[string]any:
		seq := make([]any, len(t))
		for i, m := range t {
			seq[i] = m
		}
		return Node{kind: Sequence, seq: seq}
	default:
		return Node{kind: Scalar, scalar: t}
	}
}

// Kind returns the variant tag.
func (n Node) Kind() Kind { return n.kind }

// IsAbsent reports whether nothing was found.
func (n Node) IsAbsent() bool { return n.kind == Absent }

// Scalar returns the scalar value when the node is a Scalar.
func (n Node) Scalar() (any, bool) {
	return n.scalar, n.kind == Scalar
}

// Text returns the value when the node is a string scalar.
func (n Node) Text() (string, bool) {
	if n.kind != Scalar {
		return "", false
	}
	s, ok := n.scalar.(string)
	return s, ok
}

// Sequence returns the elements when the node is a Sequence.
func (n Node) Sequence() ([]any, bool) {
	return n.seq, n.kind == Sequence
}

// Mapping returns the fields when the node is a Mapping.
func (n Node) Mapping() (map[string]any, bool) {
	return n.fields, n.kind == Mapping
}

// Field returns the child at key of a Mapping node; Absent otherwise.
func (n Node) Field(key string) Node {
	if n.kind != Mapping {
		return Node{kind: Absent}
	}
	v, ok := n.fields[key]
	if !ok {
		return Node{kind: Absent}
	}
	return Of(v)
}

// Len returns the number of occurrences the node represents: the
// element count of a Sequence, 1 for a Scalar or Mapping, 0 when Absent.
func (n Node) Len() int {
	switch n.kind {
	case Absent:
		return 0
	case Sequence:
		return len(n.seq)
	case Scalar, Mapping:
		return 1
	}
	return 0
}

// Raw returns the underlying document value.
func (n Node) Raw() any {
	switch n.kind {
	case Scalar:
		return n.scalar
	case Sequence:
		return n.seq
	case Mapping:
		return n.fields
	case Absent:
		return nil
	}
	return nil
}

// Split breaks a dotted path into segments. An empty path has no segments.
func Split(p string) []string {
	if p == "" {
		return nil
	}
	return strings.Split(p, ".")
}

// FieldPath strips the leading kind segment from an element path:
// "Patient.name.given" becomes "name.given". A bare kind yields "".
func FieldPath(elementPath string) string {
	_, rest, found := strings.Cut(elementPath, ".")
	if !found {
		return ""
	}
	return rest
}

// IsRoot reports whether an element path names the document root.
func IsRoot(elementPath string) bool {
	return !strings.Contains(elementPath, ".")
}

// ResolveValue descends the document along a kind-stripped field path.
// A Sequence met before the path is exhausted is returned as is; no
// further descent happens past an array boundary.
func ResolveValue(doc map[string]any, fieldPath string) Node {
	current := Of(doc)
	for _, seg := range Split(fieldPath) {
		switch current.kind {
		case Sequence:
			return current
		case Mapping:
			next, ok := current.fields[seg]
			if !ok {
				return Node{kind: Absent}
			}
			current = Of(next)
		case Scalar, Absent:
			return Node{kind: Absent}
		}
	}
	return current
}

// Exists reports whether a kind-stripped field path is present. When a
// Sequence is met, the first element that is a Mapping holding the next
// segment is followed; later elements are not consulted for deeper
// segments. The empty path is the document root and always exists.
func Exists(doc map[string]any, fieldPath string) bool {
	current := Of(doc)
	for _, seg := range Split(fieldPath) {
		switch current.kind {
		case Sequence:
			next, ok := firstWithKey(current.seq, seg)
			if !ok {
				return false
			}
			current = next
		case Mapping:
			v, ok := current.fields[seg]
			if !ok {
				return false
			}
			current = Of(v)
		case Scalar, Absent:
			return false
		}
	}
	return true
}

func firstWithKey(seq []any, key string) (Node, bool) {
	for _, item := range seq {
		n := Of(item)
		if n.kind != Mapping {
			continue
		}
		if v, ok := n.fields[key]; ok {
			return Of(v), true
		}
	}
	return Node{}, false
}
