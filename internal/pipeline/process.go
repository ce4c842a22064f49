package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/buoy-ingest-service/internal/domain"
)

// URIIngester ingests a single file URI.
type URIIngester interface {
	Ingest(ctx context.Context, uri string) (domain.IngestedEvent, error)
}

// FileProcessor implements Processor by reading the file URI from the
// message and handing it to the ingester.
type FileProcessor struct {
	ingester URIIngester
	logger   *slog.Logger
}

// NewProcessor creates a FileProcessor.
func NewProcessor(ingester URIIngester, logger *slog.Logger) *FileProcessor {
	return &FileProcessor{
		ingester: ingester,
		logger:   logger,
	}
}

func (p *FileProcessor) Process(ctx context.Context, raw domain.RawEvent) (domain.IngestedEvent, error) {
	uri, err := domain.ParseIngestRequest(raw)
	if err != nil {
		return domain.IngestedEvent{}, err
	}

	p.logger.Debug("ingesting file", "uri", uri, "offset", raw.Offset)
	event, err := p.ingester.Ingest(ctx, uri)
	if err != nil {
		return domain.IngestedEvent{}, fmt.Errorf("ingest %s: %w", uri, err)
	}
	return event, nil
}
