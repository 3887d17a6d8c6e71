// Package dispatch decides whether a freshly completed torrent should be
// moved into the library without operator action.
//
// Decisions come from ordered label rules (one per configured feed) and the
// manual-search tag. Match is a pure function; Dispatcher wraps it with the
// trigger side effect and logging used by the poll loop.
package dispatch
