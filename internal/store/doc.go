// Package store provides SQLite-backed storage for saved queries.
//
// Saved queries are named fragments of Lucene query text. The compiler
// expands them through the include pseudo-field (@include:name), so a
// store doubles as an include resolver.
//
// # Critical Patterns
//
// Revision ordering:
//   - Every write takes the next value of a logical revision counter
//   - Ordering never uses wall-clock timestamps
//
// Deterministic query results:
//   - All list queries MUST include: ORDER BY name COLLATE BINARY
//
// Content hashing:
//   - Each saved query carries the SHA-256 of its text with a domain
//     separator, so unchanged rewrites keep their revision
//
// # Database Configuration
//
// Connections open in WAL mode with synchronous=NORMAL and a five second
// busy timeout. Schema changes are numbered migrations tracked in
// PRAGMA user_version.
package store
