package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/jailcrawler/pkg/dto"
)

const (
	InmatesStreamName  = "INMATES"
	InmatesSubjectBase = "inmates"
	RunsStreamName     = "RUNS"
	RunsSubjectBase    = "runs"
)

type Producer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewProducer(natsURL string) (*Producer, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("jailcrawler"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	return &Producer{nc: nc, js: js}, nil
}

// EnsureStreams creates JetStream streams if they don't exist.
// Retries up to 30 times (1s apart) to handle NATS startup delay.
func (p *Producer) EnsureStreams(ctx context.Context) error {
	streams := []jetstream.StreamConfig{
		{
			Name:        InmatesStreamName,
			Subjects:    []string{InmatesSubjectBase + ".>"},
			Retention:   jetstream.LimitsPolicy,
			MaxAge:      30 * 24 * time.Hour,
			MaxMsgs:     1000000,
			Storage:     jetstream.FileStorage,
			Discard:     jetstream.DiscardOld,
			Duplicates:  time.Hour,
			Description: "Newly ingested roster records",
		},
		{
			Name:        RunsStreamName,
			Subjects:    []string{RunsSubjectBase + ".>"},
			Retention:   jetstream.LimitsPolicy,
			MaxAge:      7 * 24 * time.Hour,
			MaxMsgs:     10000,
			Storage:     jetstream.FileStorage,
			Description: "Crawl run summaries",
		},
	}

	const maxAttempts = 30
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		allOK := true
		for _, cfg := range streams {
			opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			_, err := p.js.CreateOrUpdateStream(opCtx, cfg)
			cancel()
			if err != nil {
				allOK = false
				if attempt == maxAttempts {
					return fmt.Errorf("create stream %s: %w (after %d attempts)", cfg.Name, err, maxAttempts)
				}
				slog.Warn("ensure NATS stream (retrying...)", "name", cfg.Name, "attempt", attempt, "error", err)
				break
			}
			slog.Info("ensured NATS stream", "name", cfg.Name)
		}
		if allOK {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}
	return nil
}

// PublishIngested announces a committed inmate row on inmates.ingested.<id>.
// The message id makes redelivery of the same row idempotent.
func (p *Producer) PublishIngested(ctx context.Context, ev dto.InmateIngested) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal ingested event: %w", err)
	}

	subject := fmt.Sprintf("%s.ingested.%d", InmatesSubjectBase, ev.InmateID)
	_, err = p.js.Publish(ctx, subject, payload, jetstream.WithMsgID(fmt.Sprintf("inmate-%d", ev.InmateID)))
	if err != nil {
		return fmt.Errorf("publish ingested event: %w", err)
	}
	return nil
}

// PublishRunSummary publishes the end-of-run report on runs.completed.
func (p *Producer) PublishRunSummary(ctx context.Context, summary dto.RunSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}

	_, err = p.js.Publish(ctx, RunsSubjectBase+".completed", payload, jetstream.WithMsgID(summary.RunID.String()))
	if err != nil {
		return fmt.Errorf("publish run summary: %w", err)
	}
	return nil
}

func (p *Producer) Ping() error {
	if !p.nc.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

func (p *Producer) Close() {
	p.nc.Close()
}
