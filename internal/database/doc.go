// Package database provides SQLite storage for studyhelper.
//
// HistoryDB keeps two tables:
//   - solves: one row per solve request, including failed ones
//   - ocr_cache: recognized text keyed by the SHA3-256 digest of the photo
//
// The database is opt-in. The solve pipeline itself keeps no history; the
// CLI and the HTTP server attach a HistoryDB when saving is enabled.
//
// SQLite is accessed through modernc.org/sqlite, which needs no cgo.
package database
