// Package gridwire is a headless, configuration-driven data-grid state
// engine. It keeps hierarchical row selection, sorting, filtering and
// pagination synchronized with URL query parameters, deduplicates
// concurrent API requests, and emits an observable RenderState for the
// presentation layer to draw.
//
// The URL is the durable source of truth: every bookmarkable interaction
// writes its parameters first, and the resulting parameter-change
// notification applies the state transformation. Copying a URL therefore
// reproduces the full table state, and back/forward navigation replays it.
//
// A Table composes three subsystems, each usable on its own:
//
//   - pkg/selection: hierarchical parent/child selection with binary
//     parent aggregates, keyed by value so it survives re-sorting.
//   - pkg/urlstate: the query-parameter snapshot, its codecs, and the
//     per-parameter watch mechanism.
//   - pkg/coordinator: request deduplication for API-backed tables, so
//     concurrent identical fetches collapse into one network call.
package gridwire
