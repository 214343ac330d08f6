package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aurashop/storefront/internal/domain/cart"
)

var _ cart.Store = (*CartStore)(nil)

// CartStore implements cart.Store with per-session line slices. Get returns
// lines sorted by product id, matching the redis implementation.
type CartStore struct {
	mu       sync.Mutex
	sessions map[string][]cart.Line
}

// NewCartStore creates an empty CartStore.
func NewCartStore() *CartStore {
	return &CartStore{sessions: make(map[string][]cart.Line)}
}

func (s *CartStore) Get(_ context.Context, sessionID string) ([]cart.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.sessions[sessionID]
	out := make([]cart.Line, len(lines))
	copy(out, lines)
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (s *CartStore) Add(_ context.Context, sessionID, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.sessions[sessionID]
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity += quantity
			return nil
		}
	}
	s.sessions[sessionID] = append(lines, cart.Line{ProductID: productID, Quantity: quantity})
	return nil
}

func (s *CartStore) SetQuantity(_ context.Context, sessionID, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.sessions[sessionID]
	for i := range lines {
		if lines[i].ProductID == productID {
			if quantity <= 0 {
				s.sessions[sessionID] = append(lines[:i], lines[i+1:]...)
			} else {
				lines[i].Quantity = quantity
			}
			return nil
		}
	}
	return cart.ErrNotInCart
}

func (s *CartStore) Remove(_ context.Context, sessionID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.sessions[sessionID]
	for i := range lines {
		if lines[i].ProductID == productID {
			s.sessions[sessionID] = append(lines[:i], lines[i+1:]...)
			return nil
		}
	}
	return cart.ErrNotInCart
}

func (s *CartStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}
