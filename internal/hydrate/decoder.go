// Package hydrate turns persisted plain payloads back into typed state.
package hydrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goliatone/go-uistate/layering"
)

// Stages reported by Error.
const (
	StagePayload = "payload"
	StagePreHook = "pre-hook"
	StageDecode  = "decode"
	StagePost    = "post-hook"
)

// ErrNilPayload is returned when there is nothing to decode.
var ErrNilPayload = errors.New("payload is nil")

// Context identifies the payload being hydrated.
type Context struct {
	Key string
	// Version is the version the store expects.
	Version int
	// StoredVersion is the version recorded alongside the payload.
	StoredVersion int
}

// Migrating reports whether the payload was written under another version.
func (c Context) Migrating() bool {
	return c.StoredVersion != c.Version
}

// Error reports which stage of hydration failed for a key.
type Error struct {
	Key   string
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("hydrate: %s key %q: %v", e.Stage, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// PreHook rewrites the plain payload before decoding, typically to migrate
// an older shape. Returning nil keeps the current payload.
type PreHook func(Context, any) (any, error)

// PostHook inspects or adjusts the typed value after decoding.
type PostHook[T any] func(Context, *T) error

// CustomDecoder replaces JSON decoding. It receives a detached copy of base.
type CustomDecoder[T any] func(Context, T, any) (T, error)

type DecoderOption[T any] func(*Decoder[T])

// Decoder layers a plain payload over a base value, so fields the payload
// does not mention keep their base contents.
type Decoder[T any] struct {
	pre       []PreHook
	post      []PostHook[T]
	configure []func(*json.Decoder)
	custom    CustomDecoder[T]
}

func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.pre = append(d.pre, hook)
		}
	}
}

func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.post = append(d.post, hook)
		}
	}
}

// WithUseNumber keeps numbers as json.Number while decoding into any.
func WithUseNumber[T any]() DecoderOption[T] {
	return WithDecoderConfig[T]((*json.Decoder).UseNumber)
}

// WithDisallowUnknownFields rejects payload fields T does not declare.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return WithDecoderConfig[T]((*json.Decoder).DisallowUnknownFields)
}

// WithDecoderConfig exposes the underlying json.Decoder.
func WithDecoderConfig[T any](configure func(*json.Decoder)) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if configure != nil {
			d.configure = append(d.configure, configure)
		}
	}
}

func WithCustomDecoder[T any](decoder CustomDecoder[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.custom = decoder
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode runs the pre-hooks, decodes payload over a deep copy of base and
// runs the post-hooks. base is never modified. Failures are *Error values.
func (d *Decoder[T]) Decode(ctx Context, base T, payload any) (T, error) {
	var zero T
	if payload == nil {
		return zero, &Error{Key: ctx.Key, Stage: StagePayload, Err: ErrNilPayload}
	}
	payload, err := d.migrate(ctx, payload)
	if err != nil {
		return zero, &Error{Key: ctx.Key, Stage: StagePreHook, Err: err}
	}
	result, err := d.decodeOver(ctx, layering.Clone(base), payload)
	if err != nil {
		return zero, &Error{Key: ctx.Key, Stage: StageDecode, Err: err}
	}
	for _, hook := range d.post {
		if err := hook(ctx, &result); err != nil {
			return zero, &Error{Key: ctx.Key, Stage: StagePost, Err: err}
		}
	}
	return result, nil
}

func (d *Decoder[T]) migrate(ctx Context, payload any) (any, error) {
	for _, hook := range d.pre {
		next, err := hook(ctx, payload)
		if err != nil {
			return nil, err
		}
		if next != nil {
			payload = next
		}
	}
	return payload, nil
}

func (d *Decoder[T]) decodeOver(ctx Context, result T, payload any) (T, error) {
	if d.custom != nil {
		return d.custom(ctx, result, payload)
	}
	buffer, err := json.Marshal(payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(buffer))
	for _, configure := range d.configure {
		configure(dec)
	}
	if err := dec.Decode(&result); err != nil {
		return result, err
	}
	return result, nil
}
