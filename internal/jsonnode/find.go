package jsonnode

import "iter"

// FindNested yields every (key, value) pair named key inside root.
//
// For an object, matches on the object itself come first, then each container member is
// searched in document order; arrays are searched element by element. The sequence is
// lazy: iteration stops as soon as the consumer stops pulling.
func FindNested(key string, root Node) iter.Seq2[string, Node] {
	return func(yield func(string, Node) bool) {
		walk(key, root, yield)
	}
}

// First returns the first value FindNested would yield for key
func First(key string, root Node) (Node, bool) {
	for _, v := range FindNested(key, root) {
		return v, true
	}
	return Node{}, false
}

func walk(key string, n Node, yield func(string, Node) bool) bool {
	switch n.kind {
	case KindObject:
		for _, m := range n.members {
			if m.Key == key && !yield(m.Key, m.Value) {
				return false
			}
		}
		for _, m := range n.members {
			if m.Value.container() && !walk(key, m.Value, yield) {
				return false
			}
		}
	case KindArray:
		for _, item := range n.items {
			if item.container() && !walk(key, item, yield) {
				return false
			}
		}
	}
	return true
}
