package sink

import (
	"context"
	"log/slog"

	"github.com/gyaneshwarpardhi/powergrid/internal/event"
)

// LogSink writes each change to a slog.Logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLog returns a LogSink; a nil logger means slog.Default().
func NewLog(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Type() string { return "log" }

func (s *LogSink) Notify(ctx context.Context, ch *event.Change) error {
	s.logger.InfoContext(ctx, "node power changed",
		"node", ch.NodeName,
		"powered", ch.Powered,
		"seq", ch.Seq,
		"cause", ch.Cause,
		"change_id", ch.ID,
	)
	return nil
}
