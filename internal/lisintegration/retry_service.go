package lisintegration

import (
	"context"

	"github.com/hedgehog/ivdmiddleware/internal/domain/result"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

// RetryService implements the upload-retry loop: results stuck in
// upload_status=failed are returned to pending so the next UploadService
// pass re-projects and re-sends them. upload_failure_count is left alone —
// it is monotonic within a failed streak and only resets to zero on a
// successful send.
type RetryService struct {
	Results repository.ResultRepository
}

func NewRetryService(results repository.ResultRepository) *RetryService {
	return &RetryService{Results: results}
}

// Reschedule flips every failed result for a tenant back to pending,
// returning the count rescheduled.
func (s *RetryService) Reschedule(ctx context.Context, tenantID string) (int, error) {
	failedStatus := result.UploadFailed
	filter := repository.ResultFilter{UploadStatus: &failedStatus}

	page := repository.Page{Limit: 500, Offset: 0}
	var rescheduled int
	for {
		batch, total, err := s.Results.List(ctx, tenantID, filter, page)
		if err != nil {
			return rescheduled, err
		}
		for _, r := range batch {
			r.UploadStatus = result.UploadPending
			if err := s.Results.Update(ctx, r); err != nil {
				return rescheduled, err
			}
			rescheduled++
		}
		// Flipped results drop out of the failed filter, so every pass
		// reads from offset 0 again.
		if len(batch) == 0 || len(batch) >= total {
			break
		}
	}
	return rescheduled, nil
}
