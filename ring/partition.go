// Package ring maps hotel names onto workers and keeps the master's
// directory of persistent worker connections.
package ring

import (
	"booking/entities"
	"booking/utils"
)

// SelectWorker returns the id of the worker owning key. Every node computes
// it the same way, so routing needs no coordination.
func SelectWorker(key string, n int) int {
	if n <= 0 {
		return 0
	}
	return int(utils.KeyHash(key)) % n
}

// Partition buckets hotels by owning worker, preserving catalog order.
func Partition(hotels []entities.Hotel, n int) [][]entities.Hotel {
	shards := make([][]entities.Hotel, n)
	for i := range shards {
		shards[i] = []entities.Hotel{}
	}
	for _, h := range hotels {
		id := SelectWorker(h.HotelName, n)
		shards[id] = append(shards[id], h)
	}
	return shards
}
