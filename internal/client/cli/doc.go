// Package cli provides the interactive command-line client for the
// key-value store server.
//
// It wires client configuration, a wire protocol connection, and an
// interactive REPL. There is no persistent server-side session: every
// command re-authenticates with a cached username/password pair over its
// own connection, so "login" here means caching credentials locally and
// verifying them with one cheap authenticated call.
//
// Key features:
//   - Register / Login / Logout
//   - Per-user content: setcontent / getcontent / allusers
//   - Global key-value store: kvput / kvupsert / kvget / kvdelete / kvkeys / kvtop
//   - Map/reduce plugins: regmr / invmr
//   - Admin operations: save (snapshot), bye (shut down)
//
// The REPL is started via App.Root(ctx), which blocks until the user exits
// or issues an authenticated bye. See App and runREPL for details.
package cli
