// Package scan turns raw file text into task graph mutations. It contains
// the annotation line parser (precedence-ordered comment shapes), the
// per-file scanner producing ordered (line, label) hits, and the
// reconciler that merges those hits into a graph.Project idempotently.
package scan
