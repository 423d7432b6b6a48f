// Package uistate provides named, versioned, persisted state containers for
// UI preferences.
//
// A Factory owns a registry of stores keyed by string. Create is idempotent:
// the first call for a key rehydrates state from the configured medium (or
// falls back to the supplied defaults) and builds the store's actions; later
// calls with the same key return the same *Store.
//
// State is only ever replaced through Mutate. The recipe receives a deep copy
// of the current state; the copy is swapped in only when the recipe returns
// nil, after which the new state is written through to the medium and every
// subscriber is notified once.
//
//	type Theme struct {
//		Theme string `json:"theme"`
//	}
//
//	type ThemeActions struct {
//		Toggle func() error
//	}
//
//	store, err := uistate.Create(factory, "theme_store", Theme{Theme: "light"},
//		func(mutate uistate.MutateFunc[Theme], _ uistate.Getter[Theme]) ThemeActions {
//			return ThemeActions{Toggle: func() error {
//				return mutate(func(draft *Theme) error {
//					if draft.Theme == "light" {
//						draft.Theme = "dark"
//					} else {
//						draft.Theme = "light"
//					}
//					return nil
//				})
//			}}
//		})
//
// Persisted records carry the store version. A record written under another
// version is discarded unless WithMigrate converts it; fields missing from a
// stored record keep their default values.
package uistate
