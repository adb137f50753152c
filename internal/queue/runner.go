package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/irad15/wildfire-detection/internal/database"
	"github.com/irad15/wildfire-detection/internal/detection"
	"github.com/irad15/wildfire-detection/internal/metrics"
	"github.com/irad15/wildfire-detection/internal/protocol"
)

// SummaryHandler receives the summary of every successfully scored batch.
// The incident tracker implements it.
type SummaryHandler interface {
	ProcessSummary(ctx context.Context, msg *protocol.BatchMessage, summary *protocol.Summary) error
}

// Runner consumes reading batches from Kafka, scores each one through the
// detection pipeline, persists the run, and forwards the summary to the
// incident handler.
type Runner struct {
	consumer *Consumer
	db       *database.DB
	service  *detection.Service
	handler  SummaryHandler
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewRunner creates a new detection runner
func NewRunner(consumer *Consumer, db *database.DB, service *detection.Service, handler SummaryHandler) *Runner {
	return &Runner{
		consumer: consumer,
		db:       db,
		service:  service,
		handler:  handler,
		stopCh:   make(chan struct{}),
	}
}

// Start begins consuming and scoring batches
func (r *Runner) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.run(ctx)
}

// Stop stops the runner gracefully
func (r *Runner) Stop() {
	close(r.stopCh)
	r.wg.Wait()
}

func (r *Runner) run(ctx context.Context) {
	defer r.wg.Done()

	msgCh := make(chan consumed, 10)
	go func() {
		for {
			msg, err := r.consumer.Consume(ctx)
			if err != nil {
				fmt.Printf("Consumer error: %v\n", err)
				continue
			}
			msgCh <- consumed{value: msg.Value, commit: func() error {
				return r.consumer.Commit(ctx, msg)
			}}
		}
	}()

	for {
		select {
		case <-r.stopCh:
			return

		case msg := <-msgCh:
			if err := r.processMessage(ctx, msg.value); err != nil {
				fmt.Printf("Failed to process batch: %v\n", err)
			}
			// Commit either way: validation failures are permanent, so
			// redelivery would only fail again
			if err := msg.commit(); err != nil {
				fmt.Printf("Failed to commit offset: %v\n", err)
			}
		}
	}
}

type consumed struct {
	value  []byte
	commit func() error
}

func (r *Runner) processMessage(ctx context.Context, value []byte) error {
	batchMsg, err := protocol.DecodeBatchMessage(value)
	if err != nil {
		metrics.BatchesRejected.WithLabelValues(database.RunSourceKafka).Inc()
		return fmt.Errorf("failed to decode batch message: %w", err)
	}

	start := time.Now()
	summary, err := r.service.Detect(batchMsg.Readings)
	if err != nil {
		var verr *protocol.ValidationError
		if errors.As(err, &verr) {
			metrics.BatchesRejected.WithLabelValues(database.RunSourceKafka).Inc()
			return fmt.Errorf("batch %s rejected: %w", batchMsg.BatchID, err)
		}
		return fmt.Errorf("failed to score batch %s: %w", batchMsg.BatchID, err)
	}
	metrics.PipelineLatency.Observe(time.Since(start).Seconds())
	metrics.BatchesScored.WithLabelValues(database.RunSourceKafka).Inc()
	metrics.EventsDetected.Add(float64(summary.EventCount))

	if err := r.persistRun(batchMsg, summary); err != nil {
		return err
	}

	if r.handler != nil {
		if err := r.handler.ProcessSummary(ctx, batchMsg, summary); err != nil {
			return fmt.Errorf("failed to process summary for site %s: %w", batchMsg.SiteID, err)
		}
	}

	return nil
}

func (r *Runner) persistRun(msg *protocol.BatchMessage, summary *protocol.Summary) error {
	run := &database.DetectionRun{
		RunID:        uuid.New().String(),
		SiteID:       msg.SiteID,
		BatchID:      msg.BatchID,
		Source:       database.RunSourceKafka,
		ReadingCount: len(msg.Readings),
		EventCount:   summary.EventCount,
		MaxScore:     summary.MaxScore,
	}

	events := make([]database.DetectionEvent, 0, len(summary.Events))
	for _, e := range summary.Events {
		ts, err := time.Parse(time.RFC3339, e.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to parse event timestamp: %w", err)
		}
		events = append(events, database.DetectionEvent{
			SiteID:    msg.SiteID,
			Timestamp: ts,
			Score:     e.Score,
		})
	}

	if err := r.db.InsertDetectionRun(run, events); err != nil {
		return fmt.Errorf("failed to persist run: %w", err)
	}

	return nil
}
