package boltstore

import (
	"bytes"
	"encoding/gob"
)

// encode serializes a record to bytes using gob.
func encode[T any](v *T) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decode deserializes bytes back into a record.
func decode[T any](data []byte) (*T, error) {
	var v T
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return nil, err
	}
	return &v, nil
}
