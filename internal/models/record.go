// Package models defines the client-side data model: free-form collection
// records plus the typed projections used by permission filtering and auth.
package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Record is one free-form document inside a collection. The only field with
// guaranteed meaning is "id", unique within the collection. Legacy documents
// may carry the class name under either "class" or "className".
type Record map[string]any

func (r Record) str(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// ID returns the record id, or "" when absent.
func (r Record) ID() string { return r.str("id") }

// Name returns the record display name, or "".
func (r Record) Name() string { return r.str("name") }

// Phone returns the record phone number, or "".
func (r Record) Phone() string { return r.str("phone") }

// Class returns the record's class name, reading the current field first and
// the legacy alias second.
func (r Record) Class() string {
	if c := r.str("class"); c != "" {
		return c
	}
	return r.str("className")
}

// contentIDSpace is the namespace for ids derived from record content.
var contentIDSpace = uuid.MustParse("f2f1a7e4-9c1e-4f3a-9d6b-54a1c9c2e8d0")

// contentID derives a stable id from the record content. encoding/json writes
// map keys in sorted order, so the same content always yields the same id and
// re-downloading an id-less record never reassigns it.
func contentID(r Record) string {
	data, err := json.Marshal(r)
	if err != nil {
		return uuid.NewString()
	}
	return uuid.NewSHA1(contentIDSpace, data).String()
}

// Normalize migrates legacy field aliases in place and fills missing ids, so
// downstream consumers only ever read the canonical fields. It is executed
// once when a collection is read, not in every consumer.
func Normalize(recs []Record) []Record {
	for _, r := range recs {
		if r == nil {
			continue
		}
		if r.str("id") == "" {
			r["id"] = contentID(r)
		}
		if r.str("class") == "" {
			if legacy := r.str("className"); legacy != "" {
				r["class"] = legacy
			}
		}
	}
	return recs
}

// DedupeByID removes records sharing an id, keeping the first occurrence.
// Records without an id are kept as-is.
func DedupeByID(recs []Record) []Record {
	seen := make(map[string]struct{}, len(recs))
	result := make([]Record, 0, len(recs))
	for _, r := range recs {
		id := r.ID()
		if id == "" {
			result = append(result, r)
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, r)
	}
	return result
}

// DuplicateNames counts how many deduped records share each display name.
// Only names occurring more than once are returned.
func DuplicateNames(recs []Record) map[string]int {
	counts := make(map[string]int)
	for _, r := range recs {
		if n := r.Name(); n != "" {
			counts[n]++
		}
	}
	for n, c := range counts {
		if c < 2 {
			delete(counts, n)
		}
	}
	return counts
}

// IndexByID converts a record slice into an id-keyed index. Records without
// an id are dropped.
func IndexByID(recs []Record) map[string]Record {
	idx := make(map[string]Record, len(recs))
	for _, r := range recs {
		if id := r.ID(); id != "" {
			idx[id] = r
		}
	}
	return idx
}

// As decodes a Record into a typed struct via a JSON round trip.
func As[T any](r Record, out *T) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
