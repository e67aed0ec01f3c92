// Package jsonnode holds an order-preserving JSON tree and nested key lookup over it.
//
// Source payloads have no fixed shape: the same field may sit at the top of a record or
// several objects deep. Node keeps object members in document order so lookups are
// deterministic.
package jsonnode

import (
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Node
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "null"
	}
}

// Member is one key/value pair of an object node
type Member struct {
	Key   string
	Value Node
}

// Node is a tagged union over object, array and scalar JSON values.
// The zero value is a null node.
type Node struct {
	kind    Kind
	text    string // string value, or the literal text of a number
	num     float64
	badNum  bool // number literal outside the float64 range
	boolean bool
	items   []Node
	members []Member
}

// Null returns a null node
func Null() Node { return Node{} }

// String returns a string node
func String(s string) Node { return Node{kind: KindString, text: s} }

// Number returns a number node
func Number(f float64) Node {
	return Node{kind: KindNumber, num: f, text: strconv.FormatFloat(f, 'f', -1, 64)}
}

// Bool returns a boolean node
func Bool(b bool) Node { return Node{kind: KindBool, boolean: b} }

// Array returns an array node holding items in order
func Array(items ...Node) Node { return Node{kind: KindArray, items: items} }

// Object returns an object node holding members in order
func Object(members ...Member) Node { return Node{kind: KindObject, members: members} }

// Kind returns the variant of the node
func (n Node) Kind() Kind { return n.kind }

// Items returns the elements of an array node
func (n Node) Items() []Node { return n.items }

// Members returns the members of an object node in document order
func (n Node) Members() []Member { return n.members }

// Get returns the value of the first member named key on this object only
func (n Node) Get(key string) (Node, bool) {
	for _, m := range n.members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Node{}, false
}

// Text returns the scalar value as a string. Numbers keep their source spelling.
// Null and container nodes report false.
func (n Node) Text() (string, bool) {
	switch n.kind {
	case KindString, KindNumber:
		return n.text, true
	case KindBool:
		return strconv.FormatBool(n.boolean), true
	default:
		return "", false
	}
}

// Number returns the numeric value of number nodes and of strings holding a number.
// Number literals that do not fit a float64 report false.
func (n Node) Number() (float64, bool) {
	switch n.kind {
	case KindNumber:
		return n.num, !n.badNum
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(n.text), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Strings flattens an array of scalars (or a single scalar) into strings.
// Nested containers and nulls are skipped.
func (n Node) Strings() []string {
	if n.kind != KindArray {
		if s, ok := n.Text(); ok {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(n.items))
	for _, item := range n.items {
		if s, ok := item.Text(); ok {
			out = append(out, s)
		}
	}
	return out
}

// Missing reports whether the node carries no usable value: null or an empty string
func (n Node) Missing() bool {
	switch n.kind {
	case KindNull:
		return true
	case KindString:
		return n.text == ""
	default:
		return false
	}
}

func (n Node) container() bool {
	return n.kind == KindObject || n.kind == KindArray
}
