package jsonnode

import (
	"fmt"

	"github.com/buger/jsonparser"
)

// Parse decodes a JSON document into a Node, preserving object member order
func Parse(data []byte) (Node, error) {
	value, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return Node{}, fmt.Errorf("jsonnode: %w", err)
	}
	return build(value, dataType)
}

func build(value []byte, dataType jsonparser.ValueType) (Node, error) {
	switch dataType {
	case jsonparser.Object:
		n := Node{kind: KindObject}
		err := jsonparser.ObjectEach(value, func(key, v []byte, vt jsonparser.ValueType, _ int) error {
			child, err := build(v, vt)
			if err != nil {
				return err
			}
			n.members = append(n.members, Member{Key: string(key), Value: child})
			return nil
		})
		if err != nil {
			return Node{}, fmt.Errorf("jsonnode: object: %w", err)
		}
		return n, nil

	case jsonparser.Array:
		n := Node{kind: KindArray}
		var itemErr error
		_, err := jsonparser.ArrayEach(value, func(v []byte, vt jsonparser.ValueType, _ int, err error) {
			if itemErr != nil {
				return
			}
			if err != nil {
				itemErr = err
				return
			}
			child, err := build(v, vt)
			if err != nil {
				itemErr = err
				return
			}
			n.items = append(n.items, child)
		})
		if err == nil {
			err = itemErr
		}
		if err != nil {
			return Node{}, fmt.Errorf("jsonnode: array: %w", err)
		}
		return n, nil

	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return Node{}, fmt.Errorf("jsonnode: string: %w", err)
		}
		return String(s), nil

	case jsonparser.Number:
		f, err := jsonparser.ParseFloat(value)
		if err != nil {
			return Node{kind: KindNumber, text: string(value), badNum: true}, nil
		}
		return Node{kind: KindNumber, num: f, text: string(value)}, nil

	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(value)
		if err != nil {
			return Node{}, fmt.Errorf("jsonnode: bool: %w", err)
		}
		return Bool(b), nil

	case jsonparser.Null:
		return Null(), nil

	default:
		return Node{}, fmt.Errorf("jsonnode: unsupported value %q", value)
	}
}
