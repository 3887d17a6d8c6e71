// Package preflight provides readiness checks for the filesystem paths and
// external services plexmover depends on.
//
// The daemon runs RunAll at startup and logs failures as warnings; nothing
// here stops the daemon from starting. The CLI "plexmover status" command
// shows the same results.
package preflight
