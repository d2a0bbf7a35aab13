package dataset

import "math/rand"

// Iterator yields shuffled minibatch index slices, one epoch at a time.
// The final batch of an epoch may be short.
type Iterator struct {
	rng       *rand.Rand
	order     []int
	batchSize int
	pos       int
}

// NewIterator builds an iterator over n samples.
func NewIterator(n, batchSize int, seed int64) *Iterator {
	it := &Iterator{
		rng:       rand.New(rand.NewSource(seed)),
		order:     make([]int, n),
		batchSize: batchSize,
	}
	for i := range it.order {
		it.order[i] = i
	}
	it.Reset()
	return it
}

// Reset reshuffles the sample order and starts a new epoch.
func (it *Iterator) Reset() {
	it.rng.Shuffle(len(it.order), func(i, j int) {
		it.order[i], it.order[j] = it.order[j], it.order[i]
	})
	it.pos = 0
}

// Next returns the next batch of indices, or false at the end of the
// epoch.
func (it *Iterator) Next() ([]int, bool) {
	if it.pos >= len(it.order) {
		return nil, false
	}
	end := it.pos + it.batchSize
	if end > len(it.order) {
		end = len(it.order)
	}
	batch := it.order[it.pos:end]
	it.pos = end
	return batch, true
}

// Len returns the number of batches per epoch.
func (it *Iterator) Len() int {
	if it.batchSize <= 0 {
		return 0
	}
	return (len(it.order) + it.batchSize - 1) / it.batchSize
}
