// Package anchora tracks development tasks declared as inline comment
// annotations in source code. It scans workspace files for the
// section:task_id annotation grammar, reconciles what it finds into a
// persistent task graph under .anchora/, and serves queries, search,
// statistics, and validation over that graph.
package anchora
