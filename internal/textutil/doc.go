// Package textutil provides the naming conventions shared by the reconciler,
// mover, and feed ingestion.
//
// The primary use cases are:
//   - Parsing "Title (Year)" names and reconstructing library folder names
//   - Cleaning release-style torrent names ("The.Matrix.1999.1080p") into a
//     title and year
//   - Recognising serialized TV naming patterns that the catalog skips
//   - Building case- and accent-insensitive deduplication keys
//   - Sanitizing filenames and path segments for safe filesystem use
package textutil
