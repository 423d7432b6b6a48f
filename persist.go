package uistate

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-uistate/internal/hydrate"
	"github.com/goliatone/go-uistate/layering"
	"github.com/goliatone/go-uistate/pkg/activity"
	"github.com/goliatone/go-uistate/pkg/medium"
	"github.com/sirupsen/logrus"
)

// Hydration sources reported in store.created events.
const (
	SourcePersisted = "persisted"
	SourceMigrated  = "migrated"
	SourceDefaults  = "defaults"
	SourceEphemeral = "ephemeral"
)

// Reasons reported when a persisted record is discarded.
const (
	ReasonUnreadable      = "unreadable"
	ReasonKeyMismatch     = "key_mismatch"
	ReasonVersionMismatch = "version_mismatch"
	ReasonMigrationFailed = "migration_failed"
	ReasonSchemaInvalid   = "schema_invalid"
	ReasonMalformed       = "malformed"
	ReasonInvalid         = "invalid"
)

// hydrate establishes the initial state and reports where it came from.
// Anything other than a usable record yields the defaults, which are written
// through so the medium reflects the live state.
func (s *Store[S, A]) hydrate() string {
	if s.cfg.ephemeral {
		s.state = layering.Clone(s.defaults)
		return SourceEphemeral
	}

	state, source, err := s.rehydrate()
	if err != nil {
		s.discard(err)
		state, source = layering.Clone(s.defaults), SourceDefaults
	}
	s.state = state

	if source == SourcePersisted {
		return source
	}
	plain, err := medium.Plain(state)
	if err != nil {
		// Defaults were checked in newStore; a migrated state that fails here
		// cannot be persisted and the store keeps running from memory.
		s.recordPersistError("", err)
		return source
	}
	s.persist(plain)
	return source
}

// rehydrate decodes the stored record over the defaults. It returns
// SourceDefaults with a nil error when no record exists.
func (s *Store[S, A]) rehydrate() (S, string, error) {
	var zero S
	f := s.factory
	record, ok, err := medium.Read(f.cfg.ctx, f.cfg.medium, f.cfg.codec, s.key)
	if err != nil {
		return zero, "", &discardError{reason: ReasonUnreadable, err: err}
	}
	if !ok {
		return layering.Clone(s.defaults), SourceDefaults, nil
	}
	if record.Key != "" && record.Key != s.key {
		return zero, "", &discardError{
			reason: ReasonKeyMismatch,
			err:    fmt.Errorf("record key %q", record.Key),
		}
	}

	hctx := hydrate.Context{
		Key:           s.key,
		Version:       s.cfg.version,
		StoredVersion: record.VersionOr(0),
	}
	mismatch := s.cfg.versioned && (!record.HasVersion() || *record.Version != s.cfg.version)
	if mismatch && s.cfg.migrate == nil {
		return zero, "", &discardError{
			reason: ReasonVersionMismatch,
			err:    fmt.Errorf("%w: stored %s, want %d", errVersionMismatch, describeVersion(record), s.cfg.version),
		}
	}

	var opts []hydrate.DecoderOption[S]
	if mismatch {
		migrate := s.cfg.migrate
		opts = append(opts, hydrate.WithPreHook[S](func(hctx hydrate.Context, payload any) (any, error) {
			migrated, err := migrate(payload, hctx.StoredVersion)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", errMigration, err)
			}
			return migrated, nil
		}))
	}
	if s.validator != nil {
		validator := s.validator
		opts = append(opts, hydrate.WithPreHook[S](func(_ hydrate.Context, payload any) (any, error) {
			if err := validator.Validate(payload); err != nil {
				return nil, fmt.Errorf("%w: %w", errSchema, err)
			}
			return payload, nil
		}))
	}
	opts = append(opts, hydrate.WithPostHook[S](func(_ hydrate.Context, value *S) error {
		if err := validateValue(*value); err != nil {
			return &discardError{reason: ReasonInvalid, err: err}
		}
		return nil
	}))

	state, err := hydrate.NewDecoder[S](opts...).Decode(hctx, s.defaults, record.State)
	if err != nil {
		return zero, "", classifyHydrateError(err)
	}
	if mismatch {
		return state, SourceMigrated, nil
	}
	return state, SourcePersisted, nil
}

func describeVersion(record medium.Record) string {
	if !record.HasVersion() {
		return "unversioned"
	}
	return fmt.Sprintf("%d", *record.Version)
}

type discardError struct {
	reason string
	err    error
}

func (e *discardError) Error() string {
	return fmt.Sprintf("%s: %v", e.reason, e.err)
}

func (e *discardError) Unwrap() error {
	return e.err
}

func classifyHydrateError(err error) error {
	var discard *discardError
	switch {
	case errors.As(err, &discard):
		return &discardError{reason: discard.reason, err: err}
	case errors.Is(err, errMigration):
		return &discardError{reason: ReasonMigrationFailed, err: err}
	case errors.Is(err, errSchema):
		return &discardError{reason: ReasonSchemaInvalid, err: err}
	default:
		return &discardError{reason: ReasonMalformed, err: err}
	}
}

func (s *Store[S, A]) discard(err error) {
	reason := ReasonMalformed
	var discard *discardError
	if errors.As(err, &discard) {
		reason = discard.reason
	}
	s.factory.cfg.logger.WithFields(logrus.Fields{
		"key":    s.key,
		"reason": reason,
	}).WithError(err).Warn("persisted state discarded, using defaults")
	s.emit(activity.BuildRehydrateDiscardedEvent(activity.StoreEventInput{
		Key:     s.key,
		Version: s.versionPtr(),
		Reason:  reason,
		Err:     err,
	}))
}

// persist writes plain through to the medium and returns the record write
// id. Failures are logged and recorded but never returned; the in-memory
// state stays authoritative.
func (s *Store[S, A]) persist(plain any) string {
	if s.cfg.ephemeral {
		return ""
	}
	f := s.factory
	record := medium.Record{
		Key:       s.key,
		Version:   s.versionPtr(),
		State:     plain,
		WriteID:   f.cfg.newID(),
		UpdatedAt: f.cfg.now().UTC(),
	}
	if err := medium.Write(f.cfg.ctx, f.cfg.medium, f.cfg.codec, record); err != nil {
		s.recordPersistError(record.WriteID, err)
		return record.WriteID
	}
	s.mu.Lock()
	s.persistErr = nil
	s.mu.Unlock()
	return record.WriteID
}

func (s *Store[S, A]) recordPersistError(writeID string, err error) {
	s.mu.Lock()
	s.persistErr = err
	s.mu.Unlock()
	s.factory.cfg.logger.WithFields(logrus.Fields{
		"key":      s.key,
		"write_id": writeID,
	}).WithError(err).Warn("write-through failed, keeping in-memory state")
	s.emit(activity.BuildPersistFailedEvent(activity.StoreEventInput{
		Key:     s.key,
		Version: s.versionPtr(),
		WriteID: writeID,
		Err:     err,
	}))
}
