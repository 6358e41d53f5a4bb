// Package graph holds the persistent task graph: sections of tasks keyed
// by identifier, per-file line and note associations, free-form notes, and
// the derived reverse indices (file to tasks, status to tasks). Mutation
// here is low-level; callers that finish a structural edit rebuild the
// index before reading it.
package graph
