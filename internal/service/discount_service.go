package service

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/domain"
	"github.com/jafarshop/dropsim/internal/repository"
	"github.com/jafarshop/dropsim/pkg/errors"
)

// Rejection messages shown to the customer
const (
	reasonInvalidCode     = "Invalid discount code."
	reasonInactive        = "This discount code is no longer active."
	reasonExpired         = "This discount code has expired."
	reasonUsageLimit      = "This discount code has reached its usage limit."
	reasonCustomerLimit   = "You have already used this discount code the maximum number of times."
	reasonNoTargetProduct = "This discount code is not valid for any products in your cart."
	reasonAllExcluded     = "This discount code cannot be used with the products in your cart."
)

// DiscountRequest is a code checked against a cart
type DiscountRequest struct {
	Code       string          `json:"code" binding:"required"`
	OrderTotal decimal.Decimal `json:"order_total"`
	ProductIDs []string        `json:"product_ids"`
	CustomerID string          `json:"customer_id,omitempty"`
}

// ValidationResult is the outcome of a discount check. Reason is set when Valid is false.
type ValidationResult struct {
	Valid  bool                `json:"valid"`
	Code   string              `json:"code"`
	Type   domain.DiscountType `json:"type,omitempty"`
	Value  decimal.Decimal     `json:"value"`
	Reason string              `json:"reason,omitempty"`
}

// ApplyResult is the discount granted to a cart
type ApplyResult struct {
	Code            string       `json:"code"`
	DiscountAmount  domain.Money `json:"discount_amount"`
	DiscountedTotal domain.Money `json:"discounted_total"`
}

// CreateDiscountRequest defines a new discount code
type CreateDiscountRequest struct {
	Code               string               `json:"code" binding:"required"`
	Type               domain.DiscountType  `json:"type" binding:"required"`
	Value              decimal.Decimal      `json:"value"`
	MinimumOrderAmount decimal.Decimal      `json:"minimum_order_amount"`
	AppliesTo          domain.DiscountScope `json:"applies_to"`
	TargetIDs          []string             `json:"target_ids,omitempty"`
	ExcludedProductIDs []string             `json:"excluded_product_ids,omitempty"`
	UsageLimit         int                  `json:"usage_limit"`
	CustomerLimit      int                  `json:"customer_limit"`
	StartDate          *time.Time           `json:"start_date,omitempty"`
	EndDate            *time.Time           `json:"end_date,omitempty"`
}

// DiscountService validates and redeems discount codes
type DiscountService struct {
	repos    *repository.Repositories
	logger   *zap.Logger
	opts     options
	createMu sync.Mutex
}

// NewDiscountService creates a new discount service
func NewDiscountService(repos *repository.Repositories, logger *zap.Logger, opts ...Option) *DiscountService {
	return &DiscountService{
		repos:  repos,
		logger: logger,
		opts:   buildOptions(opts),
	}
}

// findByCode matches codes case-insensitively
func (s *DiscountService) findByCode(ctx context.Context, code string) (*domain.DiscountCode, error) {
	codes, err := s.repos.Discounts.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, dc := range codes {
		if strings.EqualFold(dc.Code, code) {
			return dc, nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "discount code", ID: code}
}

// check runs the eligibility rules in order and returns the first failing reason
func (s *DiscountService) check(ctx context.Context, dc *domain.DiscountCode, req DiscountRequest, now time.Time) (string, error) {
	if !dc.IsActive {
		return reasonInactive, nil
	}
	if now.Before(dc.StartDate) {
		return fmt.Sprintf("This discount code is not valid until %s.", dc.StartDate.Format("2006-01-02")), nil
	}
	if dc.EndDate != nil && now.After(*dc.EndDate) {
		return reasonExpired, nil
	}
	if dc.MinimumOrderAmount.IsPositive() && req.OrderTotal.LessThan(dc.MinimumOrderAmount) {
		return fmt.Sprintf("This discount requires a minimum order of $%s.", dc.MinimumOrderAmount.StringFixed(2)), nil
	}
	if dc.UsageLimit > 0 && dc.UsageCount >= dc.UsageLimit {
		return reasonUsageLimit, nil
	}
	if req.CustomerID != "" && dc.CustomerLimit > 0 && dc.CustomerUsage[req.CustomerID] >= dc.CustomerLimit {
		return reasonCustomerLimit, nil
	}

	switch dc.AppliesTo {
	case domain.ScopeProducts:
		if len(dc.TargetIDs) > 0 && !slices.ContainsFunc(req.ProductIDs, func(id string) bool {
			return slices.Contains(dc.TargetIDs, id)
		}) {
			return reasonNoTargetProduct, nil
		}
	case domain.ScopeCollections:
		if len(dc.TargetIDs) > 0 {
			matched, err := s.inCollections(ctx, req.ProductIDs, dc.TargetIDs)
			if err != nil {
				return "", err
			}
			if !matched {
				return reasonNoTargetProduct, nil
			}
		}
	}

	// an empty cart counts as fully excluded
	if len(dc.ExcludedProductIDs) > 0 && !slices.ContainsFunc(req.ProductIDs, func(id string) bool {
		return !slices.Contains(dc.ExcludedProductIDs, id)
	}) {
		return reasonAllExcluded, nil
	}
	return "", nil
}

// inCollections reports whether any cart product belongs to one of the target categories
func (s *DiscountService) inCollections(ctx context.Context, productIDs, collections []string) (bool, error) {
	for _, id := range productIDs {
		p, err := s.repos.StoreProducts.Get(ctx, id)
		if errors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return false, err
		}
		for _, c := range p.Categories {
			if slices.Contains(collections, c) {
				return true, nil
			}
		}
	}
	return false, nil
}

// Validate checks a code without redeeming it
func (s *DiscountService) Validate(ctx context.Context, req DiscountRequest) (*ValidationResult, error) {
	dc, err := s.findByCode(ctx, req.Code)
	if errors.IsNotFound(err) {
		return &ValidationResult{Valid: false, Code: req.Code, Reason: reasonInvalidCode}, nil
	}
	if err != nil {
		return nil, err
	}

	reason, err := s.check(ctx, dc, req, s.opts.now())
	if err != nil {
		return nil, err
	}
	if reason != "" {
		return &ValidationResult{Valid: false, Code: dc.Code, Reason: reason}, nil
	}
	return &ValidationResult{Valid: true, Code: dc.Code, Type: dc.Type, Value: dc.Value}, nil
}

// DiscountAmount computes the reduction for a total. It never exceeds the total.
func DiscountAmount(dc *domain.DiscountCode, total decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch dc.Type {
	case domain.DiscountPercentage:
		amount = domain.Percent(total, dc.Value)
	case domain.DiscountFixed, domain.DiscountFreeShipping:
		amount = dc.Value
	}
	return decimal.Min(amount, total)
}

// Apply re-validates the code and records one redemption atomically. Concurrent
// redemptions can never push usage past the limit.
func (s *DiscountService) Apply(ctx context.Context, req DiscountRequest) (*ApplyResult, error) {
	if req.OrderTotal.IsNegative() {
		verr := &errors.ErrValidation{}
		verr.Add("order_total", "must not be negative")
		return nil, verr
	}

	dc, err := s.findByCode(ctx, req.Code)
	if errors.IsNotFound(err) {
		return nil, &errors.ErrDiscountRejected{Code: req.Code, Reason: reasonInvalidCode}
	}
	if err != nil {
		return nil, err
	}

	var amount decimal.Decimal
	_, err = s.repos.Discounts.Update(ctx, dc.ID, func(current *domain.DiscountCode) error {
		reason, err := s.check(ctx, current, req, s.opts.now())
		if err != nil {
			return err
		}
		if reason != "" {
			return &errors.ErrDiscountRejected{Code: current.Code, Reason: reason}
		}
		amount = DiscountAmount(current, req.OrderTotal)
		current.UsageCount++
		if req.CustomerID != "" {
			if current.CustomerUsage == nil {
				current.CustomerUsage = make(map[string]int)
			}
			current.CustomerUsage[req.CustomerID]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Discount applied",
		zap.String("code", dc.Code),
		zap.String("customer_id", req.CustomerID),
		zap.String("amount", amount.StringFixed(2)),
	)
	return &ApplyResult{
		Code:            dc.Code,
		DiscountAmount:  domain.NewMoney(amount),
		DiscountedTotal: domain.NewMoney(req.OrderTotal.Sub(amount)),
	}, nil
}

// Release hands back one redemption recorded by Apply
func (s *DiscountService) Release(ctx context.Context, code, customerID string) error {
	dc, err := s.findByCode(ctx, code)
	if err != nil {
		return err
	}
	_, err = s.repos.Discounts.Update(ctx, dc.ID, func(current *domain.DiscountCode) error {
		if current.UsageCount > 0 {
			current.UsageCount--
		}
		if n := current.CustomerUsage[customerID]; customerID != "" && n > 0 {
			if n == 1 {
				delete(current.CustomerUsage, customerID)
			} else {
				current.CustomerUsage[customerID] = n - 1
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("Discount redemption released",
		zap.String("code", dc.Code),
		zap.String("customer_id", customerID),
	)
	return nil
}

// Create registers a new discount code. Codes are unique ignoring case.
func (s *DiscountService) Create(ctx context.Context, req CreateDiscountRequest) (*domain.DiscountCode, error) {
	verr := &errors.ErrValidation{}
	if strings.TrimSpace(req.Code) == "" {
		verr.Add("code", "is required")
	}
	if !req.Type.IsValid() {
		verr.Add("type", "must be percentage, fixed or free_shipping")
	}
	if req.Value.IsNegative() {
		verr.Add("value", "must not be negative")
	}
	if req.Type == domain.DiscountPercentage && req.Value.GreaterThan(decimal.NewFromInt(100)) {
		verr.Add("value", "percentage must not exceed 100")
	}
	if req.AppliesTo == "" {
		req.AppliesTo = domain.ScopeEntireOrder
	}
	if !req.AppliesTo.IsValid() {
		verr.Add("applies_to", "must be entire_order, products or collections")
	}
	if req.UsageLimit < 0 {
		verr.Add("usage_limit", "must not be negative")
	}
	if req.CustomerLimit < 0 {
		verr.Add("customer_limit", "must not be negative")
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		verr.Add("end_date", "must not be before start_date")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	if _, err := s.findByCode(ctx, req.Code); err == nil {
		return nil, &errors.ErrConflict{Resource: "discount code", ID: req.Code}
	} else if !errors.IsNotFound(err) {
		return nil, err
	}

	now := s.opts.now()
	dc := &domain.DiscountCode{
		ID:                 uuid.New().String(),
		Code:               strings.TrimSpace(req.Code),
		Type:               req.Type,
		Value:              req.Value,
		MinimumOrderAmount: req.MinimumOrderAmount,
		AppliesTo:          req.AppliesTo,
		TargetIDs:          req.TargetIDs,
		ExcludedProductIDs: req.ExcludedProductIDs,
		UsageLimit:         req.UsageLimit,
		CustomerLimit:      req.CustomerLimit,
		CustomerUsage:      map[string]int{},
		StartDate:          now,
		EndDate:            req.EndDate,
		IsActive:           true,
		CreatedAt:          now,
	}
	if req.StartDate != nil {
		dc.StartDate = *req.StartDate
	}
	if err := s.repos.Discounts.Create(ctx, dc); err != nil {
		return nil, err
	}

	s.logger.Info("Discount code created",
		zap.String("id", dc.ID),
		zap.String("code", dc.Code),
		zap.String("type", string(dc.Type)),
	)
	return dc, nil
}

// List returns every discount code ordered by code
func (s *DiscountService) List(ctx context.Context) ([]*domain.DiscountCode, error) {
	codes, err := s.repos.Discounts.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i].Code < codes[j].Code })
	return codes, nil
}

// Deactivate switches a code off. Deactivating twice is harmless.
func (s *DiscountService) Deactivate(ctx context.Context, id string) (*domain.DiscountCode, error) {
	return s.repos.Discounts.Update(ctx, id, func(dc *domain.DiscountCode) error {
		dc.IsActive = false
		return nil
	})
}
