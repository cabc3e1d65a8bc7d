package catalog

import (
	"context"

	"github.com/username/festival-planner/internal/fetch"
	"go.uber.org/zap"
)

// Load fetches and decodes the catalog. Any fetch failure yields an empty
// catalog; malformed records are logged and skipped.
func Load(ctx context.Context, src fetch.Source, logger *zap.Logger) []Event {
	data, err := src.Fetch(ctx)
	if err != nil {
		logger.Warn("Catalog unavailable, continuing with empty catalog",
			zap.String("source", src.String()),
			zap.Error(err))
		return []Event{}
	}

	events, errs := Decode(data)
	for _, decodeErr := range errs {
		logger.Warn("Skipping malformed catalog record",
			zap.String("source", src.String()),
			zap.Error(decodeErr))
	}
	if events == nil {
		events = []Event{}
	}

	logger.Info("Catalog loaded",
		zap.String("source", src.String()),
		zap.Int("events", len(events)),
		zap.Int("skipped", len(errs)))

	return events
}
