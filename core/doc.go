// Package core defines the shared data model for routermesh: the append-only
// conversation History driving the orchestration loop, the closed set of
// Entry types recorded in it, and the terminal Outcome of a routed request.
//
// The loop's behavior is a pure function of the History content and the
// iteration counter, so entries are immutable once appended and History
// accessors hand out defensive copies. A History belongs to exactly one
// request; it is never shared across requests.
package core
