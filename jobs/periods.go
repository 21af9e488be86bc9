package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

type periodCloser interface {
	CloseExpired(ctx context.Context) (int64, error)
}

// NewPeriodSweepHandler returns the handler closing active periods whose end
// date has passed. GetActive performs the same cleanup lazily; the sweep just
// keeps the table tidy between reads.
func NewPeriodSweepHandler(svc periodCloser, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		n, err := svc.CloseExpired(ctx)
		if err != nil {
			logger.Error("period sweep", slog.Any("error", err))
			return err
		}
		if n > 0 {
			logger.Info("period sweep closed periods", slog.Int64("count", n))
		}
		return nil
	}
}
