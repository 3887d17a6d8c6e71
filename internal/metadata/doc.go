// Package metadata provides the minimal TMDB API client used to enrich new
// catalog entries.
//
// It exposes movie search, detail, credit and external-id lookups, folds them
// into a single Record, and downloads poster and backdrop artwork into the
// state directory. Options allow tests to supply custom HTTP clients and image
// hosts without modifying production code.
package metadata
