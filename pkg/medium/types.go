package medium

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrKeyRequired = errors.New("medium: key is required")

var ErrClosed = errors.New("medium: closed")

// Medium is a synchronous string-valued key-value store.
type Medium interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Lister is implemented by media that can enumerate their keys.
type Lister interface {
	Keys(ctx context.Context) ([]string, error)
}

// Record is the envelope persisted for one store.
type Record struct {
	Key       string    `json:"key" yaml:"key"`
	Version   *int      `json:"version,omitempty" yaml:"version,omitempty"`
	State     any       `json:"state" yaml:"state"`
	WriteID   string    `json:"write_id,omitempty" yaml:"write_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// HasVersion reports whether the record was written by a versioned store.
func (r Record) HasVersion() bool {
	return r.Version != nil
}

// VersionOr returns the record version or fallback when unversioned.
func (r Record) VersionOr(fallback int) int {
	if r.Version == nil {
		return fallback
	}
	return *r.Version
}

// IntPtr is a small helper for populating Record.Version.
func IntPtr(v int) *int {
	return &v
}

// Plain converts a typed value into its JSON data model (maps, slices,
// strings, bools, json.Number and nil). Values that cannot round-trip through
// JSON are rejected.
func Plain(value any) (any, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("medium: encode plain value: %w", err)
	}
	return decodePlain(payload)
}

func decodePlain(payload []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()
	var out any
	if err := decoder.Decode(&out); err != nil {
		return nil, fmt.Errorf("medium: decode plain value: %w", err)
	}
	return out, nil
}

// Read fetches and decodes the record stored under key.
func Read(ctx context.Context, m Medium, codec Codec, key string) (Record, bool, error) {
	if m == nil {
		return Record{}, false, fmt.Errorf("medium: medium is required")
	}
	if codec == nil {
		codec = JSONCodec{}
	}
	raw, ok, err := m.Get(ctx, key)
	if err != nil || !ok {
		return Record{}, ok, err
	}
	record, err := codec.Decode(raw)
	if err != nil {
		return Record{}, true, err
	}
	return record, true, nil
}

// Write encodes record with codec and stores it under record.Key.
func Write(ctx context.Context, m Medium, codec Codec, record Record) error {
	if m == nil {
		return fmt.Errorf("medium: medium is required")
	}
	if codec == nil {
		codec = JSONCodec{}
	}
	raw, err := codec.Encode(record)
	if err != nil {
		return err
	}
	return m.Set(ctx, record.Key, raw)
}
