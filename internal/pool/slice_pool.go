package pool

import "sync"

// Typed slice pools for per-trial scratch space. A rarefaction run allocates
// one count vector and one cumulative-sum vector per (trial, sample); pooling
// them keeps a 1000-trial run from churning the allocator.
var (
	countSlicePool = sync.Pool{
		New: func() any { return &[]uint64{} },
	}
	float64SlicePool = sync.Pool{
		New: func() any { return &[]float64{} },
	}
)

func getSlice[T any](p *sync.Pool, size int) ([]T, func()) {
	ptr, _ := p.Get().(*[]T)
	slice := (*ptr)[:0]

	if cap(slice) < size {
		slice = make([]T, size)
	} else {
		slice = slice[:size]
		clear(slice)
	}
	*ptr = slice

	return slice, func() { p.Put(ptr) }
}

// GetCountSlice returns a zeroed []uint64 of length size and a cleanup
// function that hands it back to the pool. The slice must not be used after
// cleanup runs.
//
// Example:
//
//	counts, cleanup := pool.GetCountSlice(numTaxa)
//	defer cleanup()
func GetCountSlice(size int) ([]uint64, func()) {
	return getSlice[uint64](&countSlicePool, size)
}

// GetFloat64Slice returns a zeroed []float64 of length size and its cleanup function.
func GetFloat64Slice(size int) ([]float64, func()) {
	return getSlice[float64](&float64SlicePool, size)
}
