package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/scholar-rag/internal/infrastructure/resilience"
)

const DefaultSubject = "papers.indexed"

// PaperIndexedEvent is the wire payload published after a paper lands in the store.
type PaperIndexedEvent struct {
	SourceID  string    `json:"source_id"`
	IndexedAt time.Time `json:"indexed_at"`
}

type Queue struct {
	conn     *nats.Conn
	subject  string
	group    string
	executor *resilience.Executor
	onLag    func(time.Duration)
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	QueueGroup           string
	ResilienceExecutor   *resilience.Executor
	// OnLag receives the delay between publish and delivery; may be nil.
	OnLag func(time.Duration)
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	if strings.TrimSpace(subject) == "" {
		subject = DefaultSubject
	}
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	group := options.QueueGroup
	if group == "" {
		group = "pdf-workers"
	}

	conn, err := nats.Connect(
		url,
		nats.Name("scholar-rag"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		group:    group,
		executor: options.ResilienceExecutor,
		onLag:    options.OnLag,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishPaperIndexed(ctx context.Context, sourceID string) error {
	payload, err := EncodeEvent(PaperIndexedEvent{SourceID: sourceID, IndexedAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	err = q.executor.Execute(ctx, "nats.publish", func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}, classifyNATSError)
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribePaperIndexed consumes events until ctx is done, then drains the
// subscription. Messages delivered during the drain are still handled; handlers
// see ctx values but not its cancellation.
func (q *Queue) SubscribePaperIndexed(ctx context.Context, handler func(context.Context, string) error) error {
	workCtx := context.WithoutCancel(ctx)
	sub, err := q.conn.QueueSubscribe(q.subject, q.group, func(msg *nats.Msg) {
		q.deliver(workCtx, msg.Data, handler)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if !waitDrained(sub, drainTimeout) {
		slog.Warn("nats_drain_timeout", "subject", q.subject, "timeout", drainTimeout.String())
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func (q *Queue) deliver(ctx context.Context, data []byte, handler func(context.Context, string) error) {
	event, err := DecodeEvent(data)
	if err != nil {
		slog.WarnContext(ctx, "paper_event_decode_failed", "error", err)
		return
	}
	if q.onLag != nil && !event.IndexedAt.IsZero() {
		q.onLag(time.Since(event.IndexedAt))
	}
	if err := handler(ctx, event.SourceID); err != nil {
		slog.ErrorContext(ctx, "paper_event_handler_failed", "source_id", event.SourceID, "error", err)
	}
}

const drainTimeout = 30 * time.Second

// waitDrained blocks until the drained subscription is closed or timeout passes.
func waitDrained(sub *nats.Subscription, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for sub.IsValid() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(50 * time.Millisecond)
	}
	return true
}

func EncodeEvent(event PaperIndexedEvent) ([]byte, error) {
	if strings.TrimSpace(event.SourceID) == "" {
		return nil, fmt.Errorf("paper event: source id is required")
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal paper event: %w", err)
	}
	return raw, nil
}

// DecodeEvent also accepts a bare source id for producers that skip the JSON envelope.
func DecodeEvent(raw []byte) (PaperIndexedEvent, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return PaperIndexedEvent{}, fmt.Errorf("paper event: empty payload")
	}
	if !strings.HasPrefix(trimmed, "{") {
		return PaperIndexedEvent{SourceID: trimmed}, nil
	}
	var event PaperIndexedEvent
	if err := json.Unmarshal([]byte(trimmed), &event); err != nil {
		return PaperIndexedEvent{}, fmt.Errorf("unmarshal paper event: %w", err)
	}
	if strings.TrimSpace(event.SourceID) == "" {
		return PaperIndexedEvent{}, fmt.Errorf("paper event: source id is required")
	}
	return event, nil
}
