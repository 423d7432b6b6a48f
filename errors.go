package uistate

import "errors"

var (
	// ErrKeyRequired indicates Create received an empty key.
	ErrKeyRequired = errors.New("uistate: key is required")
	// ErrActionsRequired indicates Create received a nil actions builder.
	ErrActionsRequired = errors.New("uistate: actions builder is required")
	// ErrKeyConflict indicates the key is already registered with different
	// state or action types.
	ErrKeyConflict = errors.New("uistate: key registered with a different store type")
	// ErrInvalidDefaults indicates the default state cannot be serialized.
	ErrInvalidDefaults = errors.New("uistate: default state is not serializable")
	// ErrRecipeRequired indicates Mutate received a nil recipe.
	ErrRecipeRequired = errors.New("uistate: mutation recipe is required")
	// ErrUnserializableState indicates a recipe produced state that cannot be
	// persisted; the mutation is rolled back.
	ErrUnserializableState = errors.New("uistate: state is not serializable")
)

var (
	errVersionMismatch = errors.New("version mismatch")
	errMigration       = errors.New("migration failed")
	errSchema          = errors.New("schema validation failed")
)
