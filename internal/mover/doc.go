// Package mover relocates finished torrents into the library.
//
// ProcessItem is the single-item flow: locate the content under the source
// directory, parse its "Title (Year)" name, create the library folder, copy
// through the copy engine, append the outcome to the move ledger and announce
// successful moves. Launch runs that flow on a tracked goroutine so API
// handlers and the poll loop return immediately; Close cancels and waits for
// every launched move.
package mover
