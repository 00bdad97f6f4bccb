// Package report renders the event stream and run totals for humans and tools.
//
// Reporters are event.Handler subscribers. Handlers cannot return errors, so
// each reporter keeps the first error it hit (unknown status, write failure)
// and exposes it through Err. An unknown status is always an error: reporters
// never guess a rendering for a code they do not know.
package report
