package job

import (
	"Warbler/internal/pkg/logger"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

// MediaCleaner 清理未被推文引用的上传文件
type MediaCleaner interface {
	CleanupExpired(ctx context.Context, ttl time.Duration) (int, error)
}

type MediaCleanupJob struct {
	cleaner MediaCleaner
	ttl     time.Duration
	timeout time.Duration
}

func NewMediaCleanupJob(cleaner MediaCleaner, ttl time.Duration) *MediaCleanupJob {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MediaCleanupJob{
		cleaner: cleaner,
		ttl:     ttl,
		timeout: 10 * time.Minute,
	}
}

func (s *MediaCleanupJob) Run() {
	ctx, cancel := context.WithTimeout(logger.WithTraceID(context.Background(), "job-"+uuid.NewString()), s.timeout)
	defer cancel()

	log.InfoContext(ctx, "start media cleanup job", "ttl", s.ttl.String())
	count, err := s.cleaner.CleanupExpired(ctx, s.ttl)
	if err != nil {
		log.ErrorContext(ctx, "media cleanup job failed", "err", err)
		return
	}
	if count > 0 {
		log.InfoContext(ctx, "media cleanup job finished", "cleaned_count", count)
	}
}
