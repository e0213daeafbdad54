package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/textproto"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/foodlens/backend/internal/domain"
)

// DefaultSubject is the subject analysis events are published on
const DefaultSubject = "foodlens.product.analyzed"

var propagator = propagation.TraceContext{}

// headerCarrier adapts nats.Header for trace propagation. NATS header keys are
// case-sensitive, so keys are written exactly as the propagator names them
// ("traceparent"). Get also accepts the canonical form written by
// propagation.HeaderCarrier.
type headerCarrier nats.Header

func (c headerCarrier) Get(key string) string {
	if v := c[key]; len(v) > 0 {
		return v[0]
	}
	if v := c[textproto.CanonicalMIMEHeaderKey(key)]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	c[key] = []string{value}
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// msgPublisher is the part of *nats.Conn the publisher needs
type msgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSConfig holds configuration for the NATS publisher
type NATSConfig struct {
	URL     string
	Subject string
	Timeout time.Duration
	Logger  *slog.Logger
}

// NATSPublisher publishes analysis events to NATS with the trace context in
// the message headers
type NATSPublisher struct {
	conn    *nats.Conn
	pub     msgPublisher
	subject string
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Connect dials NATS and returns a publisher
func Connect(config NATSConfig) (*NATSPublisher, error) {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	nc, err := nats.Connect(config.URL,
		nats.Name("foodlens"),
		nats.Timeout(timeout),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", config.URL, err)
	}

	p := newPublisher(nc, config.Subject, config.Logger)
	p.conn = nc
	return p, nil
}

func newPublisher(pub msgPublisher, subject string, logger *slog.Logger) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSPublisher{
		pub:     pub,
		subject: subject,
		logger:  logger.With("component", "events"),
		tracer:  otel.Tracer("foodlens-events"),
	}
}

// PublishAnalyzed publishes one analysis event
func (p *NATSPublisher) PublishAnalyzed(ctx context.Context, event domain.AnalysisEvent) error {
	ctx, span := p.tracer.Start(ctx, "events.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.destination", p.subject),
			attribute.String("product.barcode", event.Barcode),
		))
	defer span.End()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	hdr := nats.Header{}
	propagator.Inject(ctx, headerCarrier(hdr))

	msg := &nats.Msg{Subject: p.subject, Data: data, Header: hdr}
	if err := p.pub.PublishMsg(msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}

	p.logger.Debug("published analysis event", "subject", p.subject, "barcode", event.Barcode)
	return nil
}

// Subscribe delivers decoded analysis events to handler. Each message is
// handled in a consumer span continuing the publisher's trace.
func (p *NATSPublisher) Subscribe(handler func(context.Context, domain.AnalysisEvent)) (*nats.Subscription, error) {
	if p.conn == nil {
		return nil, fmt.Errorf("subscribe %s: not connected", p.subject)
	}
	return p.conn.Subscribe(p.subject, func(m *nats.Msg) {
		p.handleMsg(m, handler)
	})
}

func (p *NATSPublisher) handleMsg(m *nats.Msg, handler func(context.Context, domain.AnalysisEvent)) {
	ctx := propagator.Extract(context.Background(), headerCarrier(m.Header))
	ctx, span := p.tracer.Start(ctx, "events.consume", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var event domain.AnalysisEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		span.RecordError(err)
		p.logger.Warn("dropping undecodable event", "subject", m.Subject, "error", err)
		return
	}
	handler(ctx, event)
}

// Close drains the connection
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

// Noop discards events; used when no NATS URL is configured
type Noop struct{}

// PublishAnalyzed does nothing
func (Noop) PublishAnalyzed(ctx context.Context, event domain.AnalysisEvent) error {
	return nil
}
