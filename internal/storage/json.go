package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// GetJSON reads key and unmarshals it into out. An absent key leaves out
// untouched and returns false.
func GetJSON(ctx context.Context, s Store, key string, out any) (bool, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to decode document %q: %w", key, err)
	}
	return true, nil
}

// SetJSON marshals v and stores it under key, replacing the whole document.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode document %q: %w", key, err)
	}
	return s.Set(ctx, key, data)
}
