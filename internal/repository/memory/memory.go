package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/jafarshop/dropsim/internal/domain"
	"github.com/jafarshop/dropsim/internal/repository"
	"github.com/jafarshop/dropsim/pkg/errors"
)

// Store is a mutex-guarded in-memory repository. Values are cloned on the way
// in and on the way out.
type Store[T repository.Entity[T]] struct {
	mu       sync.RWMutex
	resource string
	items    map[string]T
}

// New creates an empty store. resource names the entity in errors.
func New[T repository.Entity[T]](resource string) *Store[T] {
	return &Store[T]{
		resource: resource,
		items:    make(map[string]T),
	}
}

var _ repository.Store[*domain.Order] = (*Store[*domain.Order])(nil)

func (s *Store[T]) Get(ctx context.Context, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		var zero T
		return zero, &errors.ErrNotFound{Resource: s.resource, ID: id}
	}
	return item.Clone(), nil
}

// List returns copies sorted by key
func (s *Store[T]) List(ctx context.Context) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.items[k].Clone())
	}
	return out, nil
}

func (s *Store[T]) Create(ctx context.Context, entity T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[entity.Key()]; exists {
		return &errors.ErrConflict{Resource: s.resource, ID: entity.Key()}
	}
	s.items[entity.Key()] = entity.Clone()
	return nil
}

// Save inserts or replaces
func (s *Store[T]) Save(ctx context.Context, entity T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[entity.Key()] = entity.Clone()
	return nil
}

func (s *Store[T]) Update(ctx context.Context, id string, fn repository.MutateFunc[T]) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.items[id]
	if !ok {
		return zero, &errors.ErrNotFound{Resource: s.resource, ID: id}
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return zero, err
	}
	s.items[id] = next
	return next.Clone(), nil
}

func (s *Store[T]) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return &errors.ErrNotFound{Resource: s.resource, ID: id}
	}
	delete(s.items, id)
	return nil
}

// NewRepositories builds a full set of in-memory stores
func NewRepositories() *repository.Repositories {
	return &repository.Repositories{
		Suppliers:        New[*domain.Supplier]("supplier"),
		SupplierProducts: New[*domain.SupplierProduct]("supplier product"),
		SupplierOrders:   New[*domain.SupplierOrder]("supplier order"),
		StoreProducts:    New[*domain.StoreProduct]("product"),
		Orders:           New[*domain.Order]("order"),
		Discounts:        New[*domain.DiscountCode]("discount code"),
		Carts:            New[*domain.AbandonedCart]("abandoned cart"),
		Campaigns:        New[*domain.Campaign]("campaign"),
		Settings:         New[*domain.StoreSettings]("store settings"),
		IdempotencyKeys:  New[*domain.IdempotencyKey]("idempotency key"),
	}
}
