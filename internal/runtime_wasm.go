//go:build wasm

package internal

// wasm runs every goroutine on one thread and the engine never blocks,
// so all callers share a single lock owner.
func getGID() int64 {
	return 1
}
