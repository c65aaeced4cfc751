// Package store defines interfaces for persistence dependencies (e.g. the
// progress event repository). Implementations live in other packages; this
// package must not import database drivers or concrete clients.
package store
