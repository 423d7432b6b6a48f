package medium

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Codec serializes records into the string form a Medium stores.
type Codec interface {
	Name() string
	Encode(record Record) (string, error)
	Decode(raw string) (Record, error)
}

// CodecByName resolves "json" (default when empty) or "yaml".
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSONCodec{}, nil
	case "yaml", "yml":
		return YAMLCodec{}, nil
	default:
		return nil, fmt.Errorf("medium: unknown codec %q", name)
	}
}

// JSONCodec writes compact JSON records. Numbers are decoded as json.Number so
// integer state survives the round trip without float truncation.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(record Record) (string, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("medium: json encode %q: %w", record.Key, err)
	}
	return string(payload), nil
}

func (JSONCodec) Decode(raw string) (Record, error) {
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.UseNumber()
	var record Record
	if err := decoder.Decode(&record); err != nil {
		return Record{}, fmt.Errorf("medium: json decode: %w", err)
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return Record{}, fmt.Errorf("medium: json decode: trailing data after record %q", record.Key)
	}
	return record, nil
}

// YAMLCodec writes human-editable YAML records.
type YAMLCodec struct{}

func (YAMLCodec) Name() string { return "yaml" }

func (YAMLCodec) Encode(record Record) (string, error) {
	record.State = normalizeNumbers(record.State)
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(record); err != nil {
		return "", fmt.Errorf("medium: yaml encode %q: %w", record.Key, err)
	}
	if err := encoder.Close(); err != nil {
		return "", fmt.Errorf("medium: yaml encode %q: %w", record.Key, err)
	}
	return buf.String(), nil
}

func (YAMLCodec) Decode(raw string) (Record, error) {
	var record Record
	if err := yaml.Unmarshal([]byte(raw), &record); err != nil {
		return Record{}, fmt.Errorf("medium: yaml decode: %w", err)
	}
	if record.Key == "" {
		return Record{}, fmt.Errorf("medium: yaml decode: record key missing")
	}
	return record, nil
}

// normalizeNumbers replaces json.Number leaves with int64/float64 so YAML
// emits them as numbers rather than quoted strings.
func normalizeNumbers(value any) any {
	switch typed := value.(type) {
	case json.Number:
		if i, err := typed.Int64(); err == nil {
			return i
		}
		if f, err := typed.Float64(); err == nil {
			return f
		}
		return typed.String()
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = normalizeNumbers(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = normalizeNumbers(item)
		}
		return out
	default:
		return value
	}
}
