package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
)

const (
	// DefaultCooldown applies to interests that have never produced a discovery.
	DefaultCooldown = 2 * time.Hour
	// CooldownMultiplier scales an interest's own discovery cadence into its cool-down.
	CooldownMultiplier = 3
)

// ScheduleResult is the output of the interest scheduling stage.
type ScheduleResult struct {
	Due     []domain.Interest
	Cooling []domain.Interest
}

// CooldownThreshold returns how long an interest must rest after a search attempt.
func CooldownThreshold(interest domain.Interest) time.Duration {
	if interest.AvgDiscoveryIntervalSeconds > 0 {
		return time.Duration(interest.AvgDiscoveryIntervalSeconds * CooldownMultiplier * float64(time.Second))
	}
	return DefaultCooldown
}

// IsDue reports whether the interest may be searched at now.
func IsDue(interest domain.Interest, now time.Time) bool {
	if !interest.Searched() {
		return true
	}
	elapsed := now.Sub(interest.LastSearchAttemptAt)
	return elapsed >= CooldownThreshold(interest)
}

// Partition splits interests into due and cooling sets without side effects.
func Partition(interests []domain.Interest, now time.Time) ScheduleResult {
	var result ScheduleResult
	for _, interest := range interests {
		if IsDue(interest, now) {
			result.Due = append(result.Due, interest)
		} else {
			result.Cooling = append(result.Cooling, interest)
		}
	}
	return result
}

// InterestScheduler decides which interests get a fresh search.
type InterestScheduler struct {
	interests ports.InterestRepository
	logger    *slog.Logger
}

// NewInterestScheduler wires the scheduler to the interest repository.
func NewInterestScheduler(interests ports.InterestRepository, logger *slog.Logger) *InterestScheduler {
	return &InterestScheduler{interests: interests, logger: orDiscard(logger)}
}

// Schedule partitions all interests and stamps the due ones before any search is issued,
// so a crash mid-search still counts as an attempt.
func (s *InterestScheduler) Schedule(ctx context.Context, now time.Time) (ScheduleResult, error) {
	interests, err := s.interests.ListInterests(ctx)
	if err != nil {
		return ScheduleResult{}, fmt.Errorf("list interests: %w", err)
	}

	result := Partition(interests, now)
	if len(result.Due) == 0 {
		s.logger.Debug("no interests due", "cooling", len(result.Cooling))
		return result, nil
	}

	names := make([]string, len(result.Due))
	for i, interest := range result.Due {
		names[i] = interest.Name
	}
	if err := s.interests.StampSearchAttempt(ctx, names, now); err != nil {
		return ScheduleResult{}, fmt.Errorf("stamp search attempts: %w", err)
	}
	for i := range result.Due {
		result.Due[i].LastSearchAttemptAt = now
	}

	for _, interest := range result.Cooling {
		s.logger.Debug("interest cooling down",
			"interest", interest.Name,
			"remaining", CooldownThreshold(interest)-now.Sub(interest.LastSearchAttemptAt))
	}
	s.logger.Info("interests scheduled", "due", len(result.Due), "cooling", len(result.Cooling))
	return result, nil
}
