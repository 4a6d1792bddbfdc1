package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ----------------------------------------------------------------------------
// Ordered Map

// A map that remembers insertion order. Go's built-in map iterates in randomized
// order, which would make label numbering (and therefore compiled output) differ
// between runs on the very same input. OrderedMap trades O(1) deletion for a
// reproducible 'Entries()' walk, which is all the Lowerer(s) ever need.
type OrderedMap[K comparable, V any] struct {
	index map[K]int
	slots []MapEntry[K, V]
}

// A single key/value pair, also used as the transfer type for 'NewOrderedMapFromList'.
type MapEntry[K comparable, V any] struct {
	Key   K
	Value V
}

// Builds a brand new (empty) OrderedMap, ready to use without further initialization
// (the zero value also works, this is just for symmetry with 'NewOrderedMapFromList').
func NewOrderedMap[K comparable, V any]() OrderedMap[K, V] {
	return OrderedMap[K, V]{}
}

// Builds an OrderedMap from a slice of entries, preserving the slice's order.
// Later entries with a duplicate key overwrite earlier ones in place (no reordering).
func NewOrderedMapFromList[K comparable, V any](entries []MapEntry[K, V]) OrderedMap[K, V] {
	om := OrderedMap[K, V]{}
	for _, entry := range entries {
		om.Set(entry.Key, entry.Value)
	}
	return om
}

// Inserts or updates the value associated to 'key'. If 'key' is new it's appended
// at the end of the iteration order, otherwise the existing slot is overwritten.
func (om *OrderedMap[K, V]) Set(key K, value V) {
	if om.index == nil {
		om.index = map[K]int{}
	}

	if i, found := om.index[key]; found {
		om.slots[i].Value = value
		return
	}

	om.index[key] = len(om.slots)
	om.slots = append(om.slots, MapEntry[K, V]{Key: key, Value: value})
}

// Looks up the value associated to 'key', the second return mirrors the Go
// built-in map's "comma ok" idiom to distinguish absence from a zero value.
func (om *OrderedMap[K, V]) Get(key K) (V, bool) {
	if i, found := om.index[key]; found {
		return om.slots[i].Value, true
	}

	var zero V
	return zero, false
}

// Returns the number of entries currently stored.
func (om *OrderedMap[K, V]) Size() int { return len(om.slots) }

// Returns the stored values in insertion order.
func (om *OrderedMap[K, V]) Entries() []V {
	values := make([]V, 0, len(om.slots))
	for _, entry := range om.slots {
		values = append(values, entry.Value)
	}
	return values
}

// Returns the stored key/value pairs in insertion order.
func (om *OrderedMap[K, V]) Pairs() []MapEntry[K, V] {
	return om.slots
}

// MarshalJSON renders the map as a plain JSON object, in insertion order. Only
// string-keyed maps are supported since JSON object keys are always strings.
func (om OrderedMap[K, V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, entry := range om.slots {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, ok := any(entry.Key).(string)
		if !ok {
			return nil, fmt.Errorf("OrderedMap.MarshalJSON only supports string keys, got %T", entry.Key)
		}

		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		valJSON, err := json.Marshal(entry.Value)
		if err != nil {
			return nil, err
		}

		buf.Write(keyJSON)
		buf.WriteByte(':')
		buf.Write(valJSON)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON populates the map from a JSON object, preserving the key order
// the object was encoded in (Go's encoding/json otherwise only exposes an
// unordered map). Only string-keyed maps are supported.
func (om *OrderedMap[K, V]) UnmarshalJSON(data []byte) error {
	var zero K
	if _, ok := any(zero).(string); !ok {
		return fmt.Errorf("OrderedMap.UnmarshalJSON only supports string keys")
	}

	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected a JSON object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		keyStr, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected a string object key, got %v", keyTok)
		}

		var value V
		if err := dec.Decode(&value); err != nil {
			return err
		}

		om.Set(any(keyStr).(K), value)
	}

	_, err = dec.Token() // consumes the closing '}'
	return err
}
