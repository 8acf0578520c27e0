package job

import (
	"context"
	"time"

	"solfolio/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type SnapshotTaker interface {
	ListUsersWithWallets(ctx context.Context) ([]uuid.UUID, error)
	CaptureSnapshot(ctx context.Context, userID uuid.UUID) (domain.PortfolioSnapshot, error)
}

// SnapshotJob records a portfolio_history row for every user with wallets.
type SnapshotJob struct {
	tracer       trace.Tracer
	logger       *zap.Logger
	taker        SnapshotTaker
	pollInterval time.Duration
}

func NewSnapshotJob(tracer trace.Tracer, logger *zap.Logger, taker SnapshotTaker, pollInterval time.Duration) *SnapshotJob {
	if pollInterval <= 0 {
		pollInterval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotJob{tracer: tracer, logger: logger.Named("snapshot-job"), taker: taker, pollInterval: pollInterval}
}

func (j *SnapshotJob) Start(ctx context.Context) {
	if j.taker == nil {
		j.logger.Info("snapshot job disabled: no portfolio service")
		<-ctx.Done()
		return
	}

	j.runOnce(ctx)
	ticker := time.NewTicker(j.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

// runOnce returns the number of snapshots written.
func (j *SnapshotJob) runOnce(ctx context.Context) int {
	ctx, span := j.tracer.Start(ctx, "snapshot-job.run-once")
	defer span.End()

	users, err := j.taker.ListUsersWithWallets(ctx)
	if err != nil {
		j.logger.Warn("list users failed", zap.Error(err))
		return 0
	}

	written := 0
	for _, user := range users {
		if ctx.Err() != nil {
			break
		}
		if _, err := j.taker.CaptureSnapshot(ctx, user); err != nil {
			j.logger.Warn("snapshot failed", zap.String("user_id", user.String()), zap.Error(err))
			continue
		}
		written++
	}
	span.SetAttributes(attribute.Int("users", len(users)), attribute.Int("written", written))
	if written > 0 {
		j.logger.Info("portfolio snapshots captured", zap.Int("written", written), zap.Int("users", len(users)))
	}
	return written
}
