package repository

import (
	"context"

	"github.com/jafarshop/dropsim/internal/domain"
)

// Entity is anything the stores can hold. Clone must return a deep copy so
// callers never share memory with the stored value.
type Entity[T any] interface {
	Key() string
	Clone() T
}

// MutateFunc edits a private copy of an entity inside an atomic update.
// Returning an error aborts the update and leaves the stored value untouched.
type MutateFunc[T any] func(T) error

// Store is the persistence contract every entity repository satisfies
type Store[T Entity[T]] interface {
	Get(ctx context.Context, id string) (T, error)
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, entity T) error
	Save(ctx context.Context, entity T) error
	// Update runs fn against a copy of the current value and stores the result
	// atomically. The returned entity is the committed value.
	Update(ctx context.Context, id string, fn MutateFunc[T]) (T, error)
	Delete(ctx context.Context, id string) error
}

// Repositories groups every store the services need
type Repositories struct {
	Suppliers        Store[*domain.Supplier]
	SupplierProducts Store[*domain.SupplierProduct]
	SupplierOrders   Store[*domain.SupplierOrder]
	StoreProducts    Store[*domain.StoreProduct]
	Orders           Store[*domain.Order]
	Discounts        Store[*domain.DiscountCode]
	Carts            Store[*domain.AbandonedCart]
	Campaigns        Store[*domain.Campaign]
	Settings         Store[*domain.StoreSettings]
	IdempotencyKeys  Store[*domain.IdempotencyKey]
}

// Filter returns the entities matching keep, in store order
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
