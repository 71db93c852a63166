// Package hierarchy turns a flat list of sub-task records into a forest and
// provides the traversals the tree views are rendered from.
//
// Everything here is pure: a forest is rebuilt from scratch whenever the
// underlying records change, and the expand/collapse state lives in an
// ExpandedSet owned by the caller.
package hierarchy
