package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/sstent/garminexport/internal/activity"
	"github.com/sstent/garminexport/internal/garmin"
	"github.com/sstent/garminexport/internal/retry"
)

const summaryDTO = "summaryDTO"

// ErrMissingDetail means Garmin never answered with a usable activity detail.
var ErrMissingDetail = errors.New("did not get summaryDTO")

// fetchDetail asks for an activity's detail until it carries a summaryDTO.
// A non-2xx answer counts as incomplete; transport and decode errors abort.
func (s *Service) fetchDetail(ctx context.Context, activityID string) (garmin.Detail, error) {
	policy := retry.Policy[garmin.Detail]{
		MaxAttempts: s.maxTries,
		Success: func(d garmin.Detail) bool {
			return activity.Present(summaryDTO, d.Record)
		},
		OnRetry: func(attempt int) {
			recordDetailRetry()
			s.logger.Warn("Retrying activity details download", "activityId", activityID, "attempt", attempt)
		},
	}

	detail, err := policy.Do(ctx, func(ctx context.Context) (garmin.Detail, error) {
		d, err := s.api.ActivityDetail(ctx, activityID)
		var se *garmin.StatusError
		if errors.As(err, &se) {
			s.logger.Debug("activity detail request failed", "activityId", activityID, "status", se.StatusCode)
			return garmin.Detail{}, nil
		}
		return d, err
	})
	if errors.Is(err, retry.ErrExhausted) {
		return garmin.Detail{}, fmt.Errorf("%w after %d tries for activity %s", ErrMissingDetail, s.maxTries, activityID)
	}
	if err != nil {
		return garmin.Detail{}, fmt.Errorf("failed to get details of activity %s: %w", activityID, err)
	}
	return detail, nil
}
