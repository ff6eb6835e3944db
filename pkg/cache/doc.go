// Package cache provides a generic, concurrency-safe LRU cache with an
// eviction callback for releasing resources held by evicted values.
package cache
