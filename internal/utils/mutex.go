package utils

import "sync"

var mu sync.Mutex

// ExecuteWithMutex serializes fn against every other caller. Worker pool jobs
// use it to write into shared result maps.
func ExecuteWithMutex(fn func()) {
	mu.Lock()
	defer mu.Unlock()
	fn()
}
