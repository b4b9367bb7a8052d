// Package stats computes the public trust numbers shown on the client dashboard.
package stats

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/zeyuan/appeal-service/internal/models"
	"github.com/zeyuan/appeal-service/internal/sysconfig"
)

// baselineWeight is the number of synthetic closed cases backing the baseline rate.
const baselineWeight = 50

// realDataThreshold is the closed-case count above which only real outcomes are used.
const realDataThreshold = 20

// DisplayStats is the read-only projection shown to clients.
type DisplayStats struct {
	TotalCases      int    `json:"totalCases"`
	SuccessRate     string `json:"successRate"`
	ProcessingCount int    `json:"processingCount"`
}

// Counts is the per-status appeal tally the blender works on.
type Counts map[models.AppealStatus]int64

// CountAppeals tallies appeals by status.
func CountAppeals(appeals []models.Appeal) Counts {
	counts := make(Counts, 5)
	for _, a := range appeals {
		counts[a.Status]++
	}
	return counts
}

// ComputeDisplayStats blends the operator baseline with the given appeals.
func ComputeDisplayStats(appeals []models.Appeal, cfg *sysconfig.SystemConfig) DisplayStats {
	return ComputeFromCounts(CountAppeals(appeals), cfg)
}

// ComputeFromCounts blends the operator baseline with per-status counts. A nil cfg uses defaults.
func ComputeFromCounts(counts Counts, cfg *sysconfig.SystemConfig) DisplayStats {
	base := sysconfig.SystemConfig{}
	if cfg != nil {
		base = *cfg
	}
	base = base.WithDefaults()

	var total int64
	for _, n := range counts {
		total += n
	}
	processing := counts[models.AppealPending] + counts[models.AppealProcessing]
	passed := counts[models.AppealPassed]
	closed := passed + counts[models.AppealRejected]

	return DisplayStats{
		TotalCases:      base.MarketingBaseCases + int(total),
		SuccessRate:     successRate(strings.TrimSpace(base.MarketingSuccessRate), passed, closed) + "%",
		ProcessingCount: base.MarketingBaseProcessing + int(processing),
	}
}

func successRate(baseline string, passed, closed int64) string {
	if closed == 0 {
		return baseline
	}
	realRate := float64(passed) / float64(closed) * 100
	if closed > realDataThreshold {
		return formatRate(realRate)
	}
	baseRate, errParse := strconv.ParseFloat(baseline, 64)
	if errParse != nil {
		baseRate, _ = strconv.ParseFloat(sysconfig.DefaultSuccessRate, 64)
	}
	blended := (baseRate*baselineWeight + realRate*float64(closed)) / float64(baselineWeight+closed)
	return formatRate(blended)
}

// formatRate renders one decimal, rounding half away from zero.
func formatRate(rate float64) string {
	return strconv.FormatFloat(math.Round(rate*10)/10, 'f', 1, 64)
}

// AppealCounter is the store query the Service needs.
type AppealCounter interface {
	CountAppealsByStatus(ctx context.Context) (map[models.AppealStatus]int64, error)
}

// ConfigLoader supplies the current SystemConfig.
type ConfigLoader interface {
	Load(ctx context.Context) (sysconfig.SystemConfig, error)
}

// Service computes DisplayStats from live data.
type Service struct {
	appeals AppealCounter
	config  ConfigLoader
}

// NewService constructs a Service.
func NewService(appeals AppealCounter, config ConfigLoader) *Service {
	return &Service{appeals: appeals, config: config}
}

// Display loads status counts and the config, then blends them. A config read failure
// falls back to the defaults.
func (s *Service) Display(ctx context.Context) (DisplayStats, error) {
	counts, errCount := s.appeals.CountAppealsByStatus(ctx)
	if errCount != nil {
		return DisplayStats{}, errCount
	}
	var cfg *sysconfig.SystemConfig
	if loaded, errLoad := s.config.Load(ctx); errLoad == nil {
		cfg = &loaded
	}
	return ComputeFromCounts(counts, cfg), nil
}
