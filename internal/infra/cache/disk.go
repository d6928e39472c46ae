package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/fetcher/internal/core/domain"
)

// diskRecord is the on-disk JSON layout, one file per cache key.
type diskRecord struct {
	Data            any      `json:"data"`
	Timestamp       string   `json:"timestamp"`
	Source          string   `json:"source"`
	TTLSeconds      float64  `json:"ttl_seconds"`
	ConfidenceScore *float64 `json:"confidence_score,omitempty"`
}

var errCorruptRecord = errors.New("corrupt cache record")

func encodeRecord(e *domain.CacheEntry) ([]byte, error) {
	conf := e.Confidence
	return json.Marshal(diskRecord{
		Data:            e.Data,
		Timestamp:       e.Timestamp.UTC().Format(time.RFC3339Nano),
		Source:          e.Source,
		TTLSeconds:      e.TTL.Seconds(),
		ConfidenceScore: &conf,
	})
}

// decodeRecord parses a disk record. Strict mode treats a missing
// confidence_score as a missing field; the stale path decodes leniently
// and defaults it to 0.5.
func decodeRecord(raw []byte, strict bool) (*domain.CacheEntry, error) {
	var rec diskRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorruptRecord, err)
	}
	if rec.Source == "" || rec.Timestamp == "" || rec.TTLSeconds <= 0 {
		return nil, fmt.Errorf("%w: missing field", errCorruptRecord)
	}
	ts, err := time.Parse(time.RFC3339Nano, rec.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: bad timestamp: %v", errCorruptRecord, err)
	}

	confidence := 0.5
	if rec.ConfidenceScore != nil {
		confidence = *rec.ConfidenceScore
	} else if strict {
		return nil, fmt.Errorf("%w: missing confidence_score", errCorruptRecord)
	}

	return &domain.CacheEntry{
		Data:       rec.Data,
		Timestamp:  ts,
		Source:     rec.Source,
		TTL:        time.Duration(rec.TTLSeconds * float64(time.Second)),
		Confidence: confidence,
	}, nil
}
