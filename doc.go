// Package lfmap implements a lock-free, linearizable concurrent map: a
// single open-addressed hash table with an atomic per-slot state
// machine, resized in place by a cooperative, incremental, lock-free
// migration protocol. No operation ever blocks on a lock held by
// another goroutine.
//
// The package exposes the core operations — Lookup, PutIfMatch,
// GetOrAdd, Clear, Count, and Snapshot, plus Range (a convenience over
// Snapshot) and Stats — not a conventional typed
// Put/Get/Delete wrapper; callers wanting that shape build it as a
// thin layer over these primitives (see Match and the PutIfMatch doc
// comment for the four conditional-write modes a wrapper would use to
// implement Insert/Update/Remove/TryAdd).
package lfmap
