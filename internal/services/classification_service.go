package services

import (
	"time"

	"crm-sync-service/internal/config"
	"crm-sync-service/internal/models"
)

// ClassificationService derives a policy's lifecycle label from its end date
// and payment history. The label is recomputed fresh on every run; nothing
// is stored.
type ClassificationService struct {
	lookback      time.Time
	lookaheadDays int
}

func NewClassificationService(cfg config.SyncConfig) *ClassificationService {
	return &ClassificationService{
		lookback:      cfg.LookbackDate,
		lookaheadDays: cfg.LookaheadDays,
	}
}

// Classify returns the lifecycle label and whether the policy is in scope
// for this pass. Policies ending before the lookback epoch or beyond the
// lookahead window are excluded entirely.
//
// Already-ended policies default to lost and are promoted to won only when
// the last installment matches the declared total and is fully paid.
// Soon-to-end policies default to open, promote to won under the same
// condition, and drop to lost when the last installment was cancelled.
func (s *ClassificationService) Classify(today time.Time, policy models.Policy) (models.DealStatus, bool) {
	day := truncateToDay(today)
	end := truncateToDay(policy.EndDate)
	lookahead := day.AddDate(0, 0, s.lookaheadDays)

	ended := !end.Before(s.lookback) && end.Before(day)
	endingSoon := !end.Before(day) && end.Before(lookahead)

	if !ended && !endingSoon {
		return "", false
	}

	if ended {
		if policy.IsFullyPaid() {
			return models.DealStatusWon, true
		}
		return models.DealStatusLost, true
	}

	if policy.IsFullyPaid() {
		return models.DealStatusWon, true
	}
	if last, ok := policy.LastInstallment(); ok && last.Status == models.InstallmentStatusCancelled {
		return models.DealStatusLost, true
	}
	return models.DealStatusOpen, true
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
