// Package analytics aggregates deal statistics per organization. Results are
// cached for a short time; membership is always checked before the cache.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-crm/internal/database/models"
	"github.com/hugh/go-crm/internal/domain"
	"github.com/hugh/go-crm/internal/membership"
	"github.com/hugh/go-crm/pkg/cache"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	DefaultDays = 30
	MinDays     = 1
	MaxDays     = 365

	DefaultTTL = 60 * time.Second
)

type StatusTotals struct {
	Count       int64   `json:"count"`
	TotalAmount float64 `json:"total_amount"`
}

type Summary struct {
	ByStatus          map[domain.DealStatus]StatusTotals `json:"by_status"`
	AvgWonAmount      float64                            `json:"avg_won_amount"`
	NewDealsLastNDays int64                              `json:"new_deals_last_n_days"`
	Days              int                                `json:"days"`
}

type StageStats struct {
	Total    int64                       `json:"total"`
	ByStatus map[domain.DealStatus]int64 `json:"by_status"`
	// Percentage of the previous stage's total, rounded to two decimals.
	// Absent for the first stage.
	ConversionFromPrev *float64 `json:"conversion_from_prev,omitempty"`
}

type Funnel struct {
	Pipeline []domain.DealStage               `json:"pipeline"`
	Stages   map[domain.DealStage]*StageStats `json:"stages"`
}

type Service struct {
	db      *gorm.DB
	members membership.Resolver
	cache   cache.Cache
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(db *gorm.DB, members membership.Resolver, c cache.Cache, ttl time.Duration, logger *slog.Logger) *Service {
	if c == nil {
		c = cache.NewMemory()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, members: members, cache: c, ttl: ttl, logger: logger, now: time.Now}
}

// WithClock replaces the time source used for the new-deals window.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func SummaryKey(orgID uuid.UUID, days int) string {
	return fmt.Sprintf("analytics:summary:%s:%d", orgID, days)
}

func FunnelKey(orgID uuid.UUID) string {
	return fmt.Sprintf("analytics:funnel:%s", orgID)
}

func (s *Service) Summary(ctx context.Context, orgID, actorID uuid.UUID, days int) (*Summary, error) {
	if _, err := s.members.Resolve(ctx, orgID, actorID); err != nil {
		return nil, err
	}
	if days < MinDays || days > MaxDays {
		return nil, domain.Validation(fmt.Sprintf("days must be between %d and %d", MinDays, MaxDays))
	}

	key := SummaryKey(orgID, days)
	var cached Summary
	if s.load(ctx, key, &cached) {
		return &cached, nil
	}

	summary, err := s.computeSummary(ctx, orgID, days)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, summary)
	return summary, nil
}

func (s *Service) Funnel(ctx context.Context, orgID, actorID uuid.UUID) (*Funnel, error) {
	if _, err := s.members.Resolve(ctx, orgID, actorID); err != nil {
		return nil, err
	}

	key := FunnelKey(orgID)
	var cached Funnel
	if s.load(ctx, key, &cached) {
		return &cached, nil
	}

	funnel, err := s.computeFunnel(ctx, orgID)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, funnel)
	return funnel, nil
}

type statusRow struct {
	Status domain.DealStatus
	Count  int64
	Total  decimal.Decimal
}

func (s *Service) computeSummary(ctx context.Context, orgID uuid.UUID, days int) (*Summary, error) {
	var rows []statusRow
	if err := s.db.WithContext(ctx).Model(&models.Deal{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Where("organization_id = ?", orgID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("aggregating deals by status: %w", err)
	}

	summary := &Summary{
		ByStatus: make(map[domain.DealStatus]StatusTotals, len(rows)),
		Days:     days,
	}
	for _, row := range rows {
		summary.ByStatus[row.Status] = StatusTotals{
			Count:       row.Count,
			TotalAmount: row.Total.Round(2).InexactFloat64(),
		}
		if row.Status == domain.DealStatusWon && row.Count > 0 {
			summary.AvgWonAmount = row.Total.DivRound(decimal.NewFromInt(row.Count), 2).InexactFloat64()
		}
	}

	since := s.now().UTC().AddDate(0, 0, -days)
	if err := s.db.WithContext(ctx).Model(&models.Deal{}).
		Where("organization_id = ? AND created_at >= ?", orgID, since).
		Count(&summary.NewDealsLastNDays).Error; err != nil {
		return nil, fmt.Errorf("counting new deals: %w", err)
	}

	return summary, nil
}

type stageRow struct {
	Stage  domain.DealStage
	Status domain.DealStatus
	Count  int64
}

func (s *Service) computeFunnel(ctx context.Context, orgID uuid.UUID) (*Funnel, error) {
	var rows []stageRow
	if err := s.db.WithContext(ctx).Model(&models.Deal{}).
		Select("stage, status, COUNT(*) AS count").
		Where("organization_id = ?", orgID).
		Group("stage, status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("aggregating deals by stage: %w", err)
	}

	funnel := &Funnel{
		Pipeline: domain.DealStages,
		Stages:   make(map[domain.DealStage]*StageStats, len(domain.DealStages)),
	}
	for _, stage := range domain.DealStages {
		funnel.Stages[stage] = &StageStats{ByStatus: map[domain.DealStatus]int64{}}
	}
	for _, row := range rows {
		stats, ok := funnel.Stages[row.Stage]
		if !ok {
			continue
		}
		stats.Total += row.Count
		stats.ByStatus[row.Status] += row.Count
	}

	for i := 1; i < len(domain.DealStages); i++ {
		prev := funnel.Stages[domain.DealStages[i-1]].Total
		curr := funnel.Stages[domain.DealStages[i]]
		conversion := ConversionRate(curr.Total, prev)
		curr.ConversionFromPrev = &conversion
	}

	return funnel, nil
}

// ConversionRate returns curr as a percentage of prev rounded to two
// decimals, or 0 when prev is 0.
func ConversionRate(curr, prev int64) float64 {
	if prev == 0 {
		return 0
	}
	return decimal.NewFromInt(curr * 100).DivRound(decimal.NewFromInt(prev), 2).InexactFloat64()
}

func (s *Service) load(ctx context.Context, key string, dst interface{}) bool {
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("analytics cache read failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.logger.Warn("analytics cache entry unreadable", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Service) store(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("analytics cache encode failed", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		s.logger.Warn("analytics cache write failed", "key", key, "error", err)
	}
}
