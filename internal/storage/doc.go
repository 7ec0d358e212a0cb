// Package storage owns the persisted scheduling state:
//   - schedule definitions (recurring posting policies)
//   - the active queue of scheduled posts
//   - the append-only job history
//
// Two drivers are provided: a flat-file JSON backend (default) and an
// optional SQLite backend behind the "sqlite" build tag. Both round-trip
// losslessly: SaveQueue(LoadQueue()) is a no-op.
package storage
