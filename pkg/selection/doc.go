// Package selection implements the hierarchical checkbox selection engine
// for two-level catalog data (parent → child, e.g. manufacturer → model).
//
// Parent state is strictly binary: a parent reads checked only when every
// child currently known to the engine is selected; "none" and "some" both
// read unchecked. There is no indeterminate state.
//
// Selection is keyed by value ("parent|child"), not by row position, so it
// survives sorting, filtering and pagination. Re-anchoring the engine onto
// a new dataset slice (Anchor) rebuilds the visible-children index while
// preserving the selected-keys set verbatim; only the denominator of the
// parent aggregate changes.
package selection
