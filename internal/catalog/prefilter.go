// Package catalog holds read-side helpers layered over the product
// repository.
package catalog

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

const prefilterFPR = 0.001

// Prefilter is a bloom filter over known product ids. It sits in front of the
// catalog on the order path so requests referencing ids that cannot exist are
// rejected without a database round trip.
//
// False positives fall through to the catalog lookup, which remains the
// source of truth; a negative answer is definitive.
type Prefilter struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewPrefilter builds a Prefilter warmed with the given ids.
func NewPrefilter(ids []string) *Prefilter {
	n := uint(len(ids))
	if n < 1024 {
		n = 1024
	}
	f := bloom.NewWithEstimates(n, prefilterFPR)
	for _, id := range ids {
		f.AddString(id)
	}
	return &Prefilter{filter: f}
}

// MayExist reports whether the id might be a known product.
func (p *Prefilter) MayExist(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.filter.TestString(id)
}

// Add registers a newly created product id.
func (p *Prefilter) Add(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filter.AddString(id)
}
