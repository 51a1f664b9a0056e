package repository

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get when no value is stored under the key.
	ErrNotFound = errors.New("repository: key not found")
	// ErrKeyExists is returned by Create when the key is already taken.
	ErrKeyExists = errors.New("repository: key already exists")
)

// Entry is one key/value pair returned from a prefix scan.
type Entry struct {
	Key   string
	Value json.RawMessage
}

func encodeValue(key string, value any) (string, error) {
	if key == "" {
		return "", errors.New("repository: key is required")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("repository: encode %q: %w", key, err)
	}
	return string(raw), nil
}
