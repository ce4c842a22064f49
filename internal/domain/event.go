package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RawEvent represents an unprocessed message from the source topic. Its value
// names the file to ingest.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// ingestRequest is the JSON form of a source message. A bare URI string is
// accepted as well.
type ingestRequest struct {
	URI string `json:"uri"`
}

// ParseIngestRequest extracts the file URI from a source message. The value is
// either JSON, {"uri": "..."}, or the URI itself.
func ParseIngestRequest(raw RawEvent) (string, error) {
	value := strings.TrimSpace(string(raw.Value))
	if value == "" {
		return "", fmt.Errorf("parse ingest request: empty message")
	}
	if strings.HasPrefix(value, "{") {
		var req ingestRequest
		if err := json.Unmarshal([]byte(value), &req); err != nil {
			return "", fmt.Errorf("parse ingest request: %w", err)
		}
		if strings.TrimSpace(req.URI) == "" {
			return "", fmt.Errorf("parse ingest request: uri is required")
		}
		return req.URI, nil
	}
	return value, nil
}

// IngestedEvent announces the outcome of ingesting one file.
type IngestedEvent struct {
	URI               string    `json:"uri"`
	DatasetID         uint      `json:"dataset_id"`
	EntryID           string    `json:"entry_id"`
	EntryTitle        string    `json:"entry_title"`
	Created           bool      `json:"created"`
	TimeCoverageStart time.Time `json:"time_coverage_start"`
	TimeCoverageEnd   time.Time `json:"time_coverage_end"`
	Parameters        []string  `json:"parameters,omitempty"`
	PlaceName         string    `json:"place_name,omitempty"`
	IngestedAt        time.Time `json:"ingested_at"`
}

// Stamp sets IngestedAt from the package clock.
func (e IngestedEvent) Stamp() IngestedEvent {
	e.IngestedAt = clock.Now().UTC()
	return e
}
