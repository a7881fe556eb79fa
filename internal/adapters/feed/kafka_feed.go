package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"dispatch-worklist-service/internal/domain"
)

const (
	// How long Fetch waits for the next message before deciding the feed is
	// drained for this cycle.
	idleCutoff = 2 * time.Second
	// Upper bound on a single ingest batch.
	maxBatch = 500
)

// Wire shape of an order on the feed topic. Timestamps arrive as RFC3339.
type orderMessage struct {
	OrderID           string   `json:"order_id"`
	RawAddress        string   `json:"raw_address"`
	Note              string   `json:"note"`
	RegisteredAddress string   `json:"registered_address"`
	DeclaredKM        *float64 `json:"declared_km"`
	ScheduledAt       *string  `json:"scheduled_at"`
	Status            string   `json:"status"`
	CreatedAt         *string  `json:"created_at"`
}

type Config struct {
	Brokers string
	Topic   string
	GroupID string
}

// KafkaFeed reads order batches from the ingest topic. Malformed messages are
// logged, committed and skipped so a single bad payload cannot wedge the
// partition. Well-formed messages stay uncommitted until Commit runs, after
// the caller has persisted the batch.
type KafkaFeed struct {
	reader *kafka.Reader
	log    *zap.SugaredLogger

	mu      sync.Mutex
	pending []kafka.Message
}

func NewKafkaFeed(cfg Config, log *zap.SugaredLogger) *KafkaFeed {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         strings.Split(cfg.Brokers, ","),
		GroupID:         cfg.GroupID,
		Topic:           cfg.Topic,
		MinBytes:        1,
		MaxBytes:        10e6,
		CommitInterval:  0,
		StartOffset:     kafka.FirstOffset,
		ReadLagInterval: -1,
	})
	return &KafkaFeed{reader: r, log: log}
}

// Fetch drains the messages currently available on the topic and returns them
// as a batch. Offsets for well-formed messages are held back until Commit;
// a crash before persistence redelivers the batch, and the idempotent
// order upsert absorbs the duplicates.
func (f *KafkaFeed) Fetch(ctx context.Context) ([]*domain.Order, error) {
	var batch []*domain.Order

	for len(batch) < maxBatch {
		pollCtx, cancel := context.WithTimeout(ctx, idleCutoff)
		m, err := f.reader.FetchMessage(pollCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				break
			}
			if ctx.Err() != nil {
				return batch, ctx.Err()
			}
			return batch, err
		}

		var msg orderMessage
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			f.log.Warnw("feed: invalid json, skipping", "partition", m.Partition, "offset", m.Offset, "error", err)
			_ = f.reader.CommitMessages(ctx, m)
			continue
		}
		if strings.TrimSpace(msg.OrderID) == "" {
			f.log.Warnw("feed: message without order id, skipping", "partition", m.Partition, "offset", m.Offset)
			_ = f.reader.CommitMessages(ctx, m)
			continue
		}

		batch = append(batch, msg.toDomain())

		f.mu.Lock()
		f.pending = append(f.pending, m)
		f.mu.Unlock()
	}

	return batch, nil
}

// Commit acknowledges every message fetched since the last Commit. Called by
// the ingestor once the batch is persisted.
func (f *KafkaFeed) Commit(ctx context.Context) error {
	f.mu.Lock()
	pending := f.pending
	f.pending = nil
	f.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}
	if err := f.reader.CommitMessages(ctx, pending...); err != nil {
		return fmt.Errorf("feed: commit %d messages: %w", len(pending), err)
	}
	return nil
}

func (f *KafkaFeed) Close() error {
	return f.reader.Close()
}

func (m orderMessage) toDomain() *domain.Order {
	o := &domain.Order{
		ID:                m.OrderID,
		RawAddress:        m.RawAddress,
		Note:              m.Note,
		RegisteredAddress: m.RegisteredAddress,
		DeclaredKM:        m.DeclaredKM,
		Status:            domain.OrderStatus(m.Status),
		CreatedAt:         time.Now(),
	}
	if !o.Status.Valid() {
		o.Status = domain.StatusAwaiting
	}
	if t, ok := parseTime(m.ScheduledAt); ok {
		o.ScheduledAt = &t
	}
	if t, ok := parseTime(m.CreatedAt); ok {
		o.CreatedAt = t
	}
	return o
}

func parseTime(s *string) (time.Time, bool) {
	if s == nil || *s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
