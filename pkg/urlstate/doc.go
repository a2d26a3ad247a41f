// Package urlstate synchronizes table state with a canonical, bookmarkable
// URL parameter encoding.
//
// It has two layers:
//
//   - The codec: pure encode/decode functions for selection
//     ("parent:child,parent:child"), sort ("field:asc|desc"), per-column
//     filters ("f_<column>=<value>"), pagination (1-indexed page +
//     pageSize) and typed projections (comma slices, ints, bools, JSON).
//     Decoding is lenient: URLs are user-editable, so malformed input
//     degrades to defaults instead of erroring.
//
//   - The Controller: owner of the live parameter snapshot. Writes merge by
//     default (unrelated parameters survive) or replace on request, and are
//     pushed to the host through the Navigator collaborator, which reports
//     success as a boolean. Inbound host navigations replace the snapshot
//     wholesale via Sync.
//
// Parameters prefixed "h_" form the secondary highlight namespace: state
// that is shareable in the URL but never triggers a data refetch.
package urlstate
