package gormstore

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jafarshop/dropsim/internal/domain"
	"github.com/jafarshop/dropsim/internal/repository"
	"github.com/jafarshop/dropsim/pkg/errors"
)

// DefaultMaxRetries bounds the optimistic update loop
const DefaultMaxRetries = 8

// PoolConfig mirrors database/sql pool settings
type PoolConfig struct {
	MaxOpenConns           int
	MaxIdleConns           int
	ConnMaxLifetimeSeconds int
}

// document is the single table backing every entity kind. Entities are kept as
// JSON payloads; version drives compare-and-swap updates.
type document struct {
	Kind      string    `gorm:"primaryKey;size:64"`
	ID        string    `gorm:"primaryKey;size:128"`
	Version   int64     `gorm:"not null"`
	Payload   string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (document) TableName() string { return "documents" }

// Open connects to sqlite or postgres and migrates the documents table
func Open(driver, dsn string, pool PoolConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	normalized := strings.ToLower(strings.TrimSpace(driver))
	switch normalized {
	case "", "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers; one connection avoids "database is locked"
	if pool.MaxOpenConns == 0 && (normalized == "" || normalized == "sqlite") {
		pool.MaxOpenConns = 1
	}
	applyPool(sqlDB, pool)

	if err := db.AutoMigrate(&document{}); err != nil {
		return nil, fmt.Errorf("failed to migrate documents: %w", err)
	}
	log.Info("Database ready", zap.String("driver", normalized))
	return db, nil
}

func applyPool(sqlDB *sql.DB, pool PoolConfig) {
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetimeSeconds > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeSeconds) * time.Second)
	}
}

// Store persists one entity kind in the documents table
type Store[E any, T interface {
	*E
	repository.Entity[T]
}] struct {
	db         *gorm.DB
	kind       string
	maxRetries int
}

// New creates a store for entity kind. The kind doubles as the resource name in errors.
func New[E any, T interface {
	*E
	repository.Entity[T]
}](db *gorm.DB, kind string) *Store[E, T] {
	return &Store[E, T]{db: db, kind: kind, maxRetries: DefaultMaxRetries}
}

// WithMaxRetries overrides the optimistic retry budget
func (s *Store[E, T]) WithMaxRetries(n int) *Store[E, T] {
	if n > 0 {
		s.maxRetries = n
	}
	return s
}

var _ repository.Store[*domain.Order] = (*Store[domain.Order, *domain.Order])(nil)

func (s *Store[E, T]) load(ctx context.Context, db *gorm.DB, id string) (*document, T, error) {
	var row document
	err := db.WithContext(ctx).Where("kind = ? AND id = ?", s.kind, id).First(&row).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, &errors.ErrNotFound{Resource: s.kind, ID: id}
		}
		return nil, nil, err
	}
	entity, err := s.decode(row.Payload)
	if err != nil {
		return nil, nil, err
	}
	return &row, entity, nil
}

func (s *Store[E, T]) decode(payload string) (T, error) {
	var e E
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.kind, err)
	}
	return T(&e), nil
}

func encode(entity any) (string, error) {
	b, err := json.Marshal(entity)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *Store[E, T]) Get(ctx context.Context, id string) (T, error) {
	_, entity, err := s.load(ctx, s.db, id)
	return entity, err
}

// List returns every entity of the kind ordered by id
func (s *Store[E, T]) List(ctx context.Context) ([]T, error) {
	var rows []document
	if err := s.db.WithContext(ctx).Where("kind = ?", s.kind).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		entity, err := s.decode(row.Payload)
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

func (s *Store[E, T]) Create(ctx context.Context, entity T) error {
	payload, err := encode(entity)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&document{}).Where("kind = ? AND id = ?", s.kind, entity.Key()).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &errors.ErrConflict{Resource: s.kind, ID: entity.Key()}
		}
		return tx.Create(&document{
			Kind:      s.kind,
			ID:        entity.Key(),
			Version:   1,
			Payload:   payload,
			UpdatedAt: time.Now().UTC(),
		}).Error
	})
}

// Save inserts or overwrites, bumping the version
func (s *Store[E, T]) Save(ctx context.Context, entity T) error {
	payload, err := encode(entity)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row document
		err := tx.Where("kind = ? AND id = ?", s.kind, entity.Key()).First(&row).Error
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&document{
				Kind:      s.kind,
				ID:        entity.Key(),
				Version:   1,
				Payload:   payload,
				UpdatedAt: time.Now().UTC(),
			}).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&document{}).
			Where("kind = ? AND id = ?", s.kind, entity.Key()).
			Updates(map[string]any{
				"version":    row.Version + 1,
				"payload":    payload,
				"updated_at": time.Now().UTC(),
			}).Error
	})
}

// Update applies fn with optimistic compare-and-swap on the version column.
// fn may run more than once when writers collide.
func (s *Store[E, T]) Update(ctx context.Context, id string, fn repository.MutateFunc[T]) (T, error) {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		row, entity, err := s.load(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		if err := fn(entity); err != nil {
			return nil, err
		}
		payload, err := encode(entity)
		if err != nil {
			return nil, err
		}
		res := s.db.WithContext(ctx).Model(&document{}).
			Where("kind = ? AND id = ? AND version = ?", s.kind, id, row.Version).
			Updates(map[string]any{
				"version":    row.Version + 1,
				"payload":    payload,
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			return entity, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return nil, &errors.ErrConflict{Resource: s.kind, ID: id}
}

func (s *Store[E, T]) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("kind = ? AND id = ?", s.kind, id).Delete(&document{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &errors.ErrNotFound{Resource: s.kind, ID: id}
	}
	return nil
}

// NewRepositories builds every store on one database handle
func NewRepositories(db *gorm.DB) *repository.Repositories {
	return &repository.Repositories{
		Suppliers:        New[domain.Supplier](db, "supplier"),
		SupplierProducts: New[domain.SupplierProduct](db, "supplier product"),
		SupplierOrders:   New[domain.SupplierOrder](db, "supplier order"),
		StoreProducts:    New[domain.StoreProduct](db, "product"),
		Orders:           New[domain.Order](db, "order"),
		Discounts:        New[domain.DiscountCode](db, "discount code"),
		Carts:            New[domain.AbandonedCart](db, "abandoned cart"),
		Campaigns:        New[domain.Campaign](db, "campaign"),
		Settings:         New[domain.StoreSettings](db, "store settings"),
		IdempotencyKeys:  New[domain.IdempotencyKey](db, "idempotency key"),
	}
}
