package service

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jafarshop/dropsim/internal/domain"
	"github.com/jafarshop/dropsim/internal/repository"
	"github.com/jafarshop/dropsim/pkg/errors"
)

// Engagement rates applied to a sent campaign, in percent of recipients
const (
	campaignOpenRate       = 60
	campaignClickRate      = 20
	campaignConversionRate = 5
)

// defaultAverageOrderValue prices conversions before the store has any orders
var defaultAverageOrderValue = decimal.NewFromInt(50)

// CreateCampaignRequest defines a new campaign. Status defaults to draft.
type CreateCampaignRequest struct {
	Name           string                  `json:"name" binding:"required"`
	Type           domain.CampaignType     `json:"type" binding:"required"`
	Status         domain.CampaignStatus   `json:"status,omitempty"`
	Audience       domain.CampaignAudience `json:"audience,omitempty"`
	CustomerIDs    []string                `json:"customer_ids,omitempty"`
	Content        domain.CampaignContent  `json:"content"`
	DiscountCodeID string                  `json:"discount_code_id,omitempty"`
	ScheduledDate  *time.Time              `json:"scheduled_date,omitempty"`
}

// UpdateCampaignRequest edits a campaign. Nil fields are left unchanged.
type UpdateCampaignRequest struct {
	Name           *string                  `json:"name,omitempty"`
	Type           *domain.CampaignType     `json:"type,omitempty"`
	Status         *domain.CampaignStatus   `json:"status,omitempty"`
	Audience       *domain.CampaignAudience `json:"audience,omitempty"`
	CustomerIDs    []string                 `json:"customer_ids,omitempty"`
	Content        *domain.CampaignContent  `json:"content,omitempty"`
	DiscountCodeID *string                  `json:"discount_code_id,omitempty"`
	ScheduledDate  *time.Time               `json:"scheduled_date,omitempty"`
}

// CampaignService manages marketing campaigns and their simulated delivery
type CampaignService struct {
	repos  *repository.Repositories
	logger *zap.Logger
	opts   options
}

// NewCampaignService creates a new campaign service
func NewCampaignService(repos *repository.Repositories, logger *zap.Logger, opts ...Option) *CampaignService {
	return &CampaignService{
		repos:  repos,
		logger: logger,
		opts:   buildOptions(opts),
	}
}

// validateCampaign checks the fields shared by create and update
func (s *CampaignService) validateCampaign(ctx context.Context, c *domain.Campaign, verr *errors.ErrValidation) error {
	if strings.TrimSpace(c.Name) == "" {
		verr.Add("name", "is required")
	}
	if !c.Type.IsValid() {
		verr.Add("type", "must be email, sms, social, abandoned_cart or retargeting")
	}
	if !c.Audience.IsValid() {
		verr.Add("audience", "must be all or specific_customers")
	}
	if c.Audience == domain.AudienceCustomers && len(c.CustomerIDs) == 0 {
		verr.Add("customer_ids", "are required for a specific_customers audience")
	}
	if strings.TrimSpace(c.Content.Body) == "" {
		verr.Add("content.body", "is required")
	}
	if c.Status == domain.CampaignScheduled && c.ScheduledDate == nil {
		verr.Add("scheduled_date", "is required for a scheduled campaign")
	}
	if c.DiscountCodeID != "" {
		_, err := s.repos.Discounts.Get(ctx, c.DiscountCodeID)
		if errors.IsNotFound(err) {
			verr.Add("discount_code_id", "does not exist")
		} else if err != nil {
			return err
		}
	}
	return nil
}

// CreateCampaign stores a new draft or scheduled campaign with zeroed stats
func (s *CampaignService) CreateCampaign(ctx context.Context, req CreateCampaignRequest) (*domain.Campaign, error) {
	now := s.opts.now()
	campaign := &domain.Campaign{
		ID:             uuid.New().String(),
		Name:           strings.TrimSpace(req.Name),
		Type:           req.Type,
		Status:         req.Status,
		Audience:       req.Audience,
		CustomerIDs:    slices.Compact(slices.Sorted(slices.Values(req.CustomerIDs))),
		Content:        req.Content,
		DiscountCodeID: req.DiscountCodeID,
		ScheduledDate:  req.ScheduledDate,
		Stats:          domain.CampaignStats{Revenue: decimal.Zero},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if campaign.Status == "" {
		campaign.Status = domain.CampaignDraft
	}
	if campaign.Audience == "" {
		campaign.Audience = domain.AudienceAll
	}

	verr := &errors.ErrValidation{}
	if campaign.Status != domain.CampaignDraft && campaign.Status != domain.CampaignScheduled {
		verr.Add("status", "must be draft or scheduled")
	}
	if err := s.validateCampaign(ctx, campaign, verr); err != nil {
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if err := s.repos.Campaigns.Create(ctx, campaign); err != nil {
		return nil, err
	}
	s.logger.Info("Campaign created",
		zap.String("campaign_id", campaign.ID),
		zap.String("name", campaign.Name),
		zap.String("status", string(campaign.Status)),
	)
	return campaign, nil
}

// GetCampaign returns one campaign
func (s *CampaignService) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	return s.repos.Campaigns.Get(ctx, id)
}

// ListCampaigns returns campaigns newest first, optionally filtered by status
func (s *CampaignService) ListCampaigns(ctx context.Context, status domain.CampaignStatus) ([]*domain.Campaign, error) {
	if status != "" && !status.IsValid() {
		verr := &errors.ErrValidation{}
		verr.Add("status", "is not a valid campaign status")
		return nil, verr
	}
	campaigns, err := s.repos.Campaigns.List(ctx)
	if err != nil {
		return nil, err
	}
	if status != "" {
		campaigns = repository.Filter(campaigns, func(c *domain.Campaign) bool {
			return c.Status == status
		})
	}
	sort.SliceStable(campaigns, func(i, j int) bool {
		return campaigns[i].CreatedAt.After(campaigns[j].CreatedAt)
	})
	return campaigns, nil
}

// UpdateCampaign edits a campaign that has not finished. Completion only
// happens through ExecuteCampaign or from an active campaign.
func (s *CampaignService) UpdateCampaign(ctx context.Context, id string, req UpdateCampaignRequest) (*domain.Campaign, error) {
	var verr *errors.ErrValidation
	updated, err := s.repos.Campaigns.Update(ctx, id, func(c *domain.Campaign) error {
		verr = &errors.ErrValidation{}
		if c.Status == domain.CampaignCompleted || c.Status == domain.CampaignCancelled {
			return &errors.ErrInvalidStateTransition{
				Resource: "campaign",
				From:     string(c.Status),
				To:       "updated",
			}
		}
		if req.Status != nil && *req.Status != c.Status {
			if !c.Status.CanTransitionTo(*req.Status) {
				return &errors.ErrInvalidStateTransition{
					Resource: "campaign",
					From:     string(c.Status),
					To:       string(*req.Status),
				}
			}
			c.Status = *req.Status
		}
		if req.Name != nil {
			c.Name = strings.TrimSpace(*req.Name)
		}
		if req.Type != nil {
			c.Type = *req.Type
		}
		if req.Audience != nil {
			c.Audience = *req.Audience
		}
		if req.CustomerIDs != nil {
			c.CustomerIDs = slices.Compact(slices.Sorted(slices.Values(req.CustomerIDs)))
		}
		if req.Content != nil {
			c.Content = *req.Content
		}
		if req.DiscountCodeID != nil {
			c.DiscountCodeID = *req.DiscountCodeID
		}
		if req.ScheduledDate != nil {
			scheduled := *req.ScheduledDate
			c.ScheduledDate = &scheduled
		}
		if err := s.validateCampaign(ctx, c, verr); err != nil {
			return err
		}
		if err := verr.OrNil(); err != nil {
			return err
		}
		c.UpdatedAt = s.opts.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Campaign updated",
		zap.String("campaign_id", id),
		zap.String("status", string(updated.Status)),
	)
	return updated, nil
}

// DeleteCampaign removes a campaign
func (s *CampaignService) DeleteCampaign(ctx context.Context, id string) error {
	if err := s.repos.Campaigns.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Campaign deleted", zap.String("campaign_id", id))
	return nil
}

// ExecuteCampaign sends a draft or scheduled campaign to its audience and
// records the resulting engagement. A campaign is sent at most once.
func (s *CampaignService) ExecuteCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	campaign, err := s.repos.Campaigns.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !campaign.Status.CanExecute() {
		return nil, executeRejected(campaign.Status)
	}

	recipients := len(campaign.CustomerIDs)
	if campaign.Audience == domain.AudienceAll {
		if recipients, err = s.countCustomers(ctx); err != nil {
			return nil, err
		}
	}
	aov, err := s.averageOrderValue(ctx)
	if err != nil {
		return nil, err
	}
	stats := CampaignEngagement(recipients, aov)

	executed, err := s.repos.Campaigns.Update(ctx, id, func(c *domain.Campaign) error {
		if !c.Status.CanExecute() {
			return executeRejected(c.Status)
		}
		now := s.opts.now()
		c.Status = domain.CampaignCompleted
		c.SentDate = &now
		c.Stats = stats
		c.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Campaign executed",
		zap.String("campaign_id", id),
		zap.String("name", executed.Name),
		zap.String("type", string(executed.Type)),
		zap.Int("sent", stats.Sent),
		zap.String("revenue", stats.Revenue.StringFixed(2)),
	)
	return executed, nil
}

func executeRejected(status domain.CampaignStatus) error {
	return &errors.ErrInvalidStateTransition{
		Resource: "campaign",
		From:     string(status),
		To:       string(domain.CampaignCompleted),
	}
}

// CampaignEngagement derives the stats of a campaign sent to n recipients.
// Revenue is whole currency units: conversions priced at the average order value.
func CampaignEngagement(n int, averageOrderValue decimal.Decimal) domain.CampaignStats {
	sent := decimal.NewFromInt(int64(n))
	return domain.CampaignStats{
		Sent:      n,
		Opened:    n * campaignOpenRate / 100,
		Clicked:   n * campaignClickRate / 100,
		Converted: n * campaignConversionRate / 100,
		Revenue:   domain.Percent(sent, decimal.NewFromInt(campaignConversionRate)).Mul(averageOrderValue).Floor(),
	}
}

// countCustomers counts distinct customers seen on orders or carts. Guests are
// identified by email.
func (s *CampaignService) countCustomers(ctx context.Context) (int, error) {
	seen := make(map[string]struct{})
	add := func(id, email string) {
		switch {
		case id != "":
			seen["id:"+id] = struct{}{}
		case email != "":
			seen["email:"+strings.ToLower(email)] = struct{}{}
		}
	}

	orders, err := s.repos.Orders.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, o := range orders {
		add(o.CustomerID, o.CustomerEmail)
	}
	carts, err := s.repos.Carts.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, c := range carts {
		add(c.CustomerID, c.CustomerEmail)
	}
	return len(seen), nil
}

func (s *CampaignService) averageOrderValue(ctx context.Context) (decimal.Decimal, error) {
	orders, err := s.repos.Orders.List(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	total, n := decimal.Zero, 0
	for _, o := range orders {
		if o.Status == domain.OrderStatusCancelled {
			continue
		}
		total = total.Add(o.Total)
		n++
	}
	if n == 0 {
		return defaultAverageOrderValue, nil
	}
	return total.Div(decimal.NewFromInt(int64(n))), nil
}
