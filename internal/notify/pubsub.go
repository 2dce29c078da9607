package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"github.com/andresuchdata/restock-engine/internal/domain"
)

// Event types carried in the event_type attribute.
const (
	EventDecision = "restock.decision"
	EventAlert    = "stock.alert"
	EventOrder    = "purchase.order"
)

// Topics names the destination of each event type.
type Topics struct {
	Decisions string
	Alerts    string
	Orders    string
}

// PublishResult resolves to the server message id once the broker
// acknowledges the message. *pubsub.PublishResult implements it.
type PublishResult interface {
	Get(ctx context.Context) (string, error)
}

// Publisher queues one message for a topic. It must not wait for the broker.
type Publisher interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) PublishResult
}

// DefaultAckTimeout bounds how long a queued message is tracked.
const DefaultAckTimeout = 30 * time.Second

// Envelope is the JSON body of every message.
type Envelope struct {
	EventType   string          `json:"event_type"`
	CycleID     string          `json:"cycle_id"`
	SKU         string          `json:"sku"`
	PublishedAt time.Time       `json:"published_at"`
	Payload     json.RawMessage `json:"payload"`
}

// PubSubSink publishes decisions and alerts. Auto-approved RESTOCK decisions
// are also sent to the orders topic so purchasing can act on them right away.
//
// Publishing returns once the message is queued. Acknowledgements are awaited
// in the background and failures are logged; Close waits for them.
type PubSubSink struct {
	pub        Publisher
	topics     Topics
	now        func() time.Time
	ackTimeout time.Duration

	pending sync.WaitGroup
	failed  atomic.Int64
}

func NewPubSubSink(pub Publisher, topics Topics) *PubSubSink {
	return &PubSubSink{pub: pub, topics: topics, now: time.Now, ackTimeout: DefaultAckTimeout}
}

func (s *PubSubSink) PublishDecision(ctx context.Context, d domain.Decision) error {
	attrs := map[string]string{
		"priority":          string(d.Priority),
		"action_type":       string(d.ActionType),
		"requires_approval": strconv.FormatBool(d.RequiresApproval),
	}
	if err := s.send(ctx, s.topics.Decisions, EventDecision, d.CycleID, d.SKU, d, attrs); err != nil {
		return err
	}

	if d.ActionType == domain.ActionRestock && d.AutoApproved() && s.topics.Orders != "" {
		return s.send(ctx, s.topics.Orders, EventOrder, d.CycleID, d.SKU, d, attrs)
	}
	return nil
}

func (s *PubSubSink) PublishAlert(ctx context.Context, a domain.Alert) error {
	attrs := map[string]string{
		"alert_tier":     string(a.Tier),
		"threshold_type": string(a.ThresholdType),
	}
	return s.send(ctx, s.topics.Alerts, EventAlert, a.CycleID, a.SKU, a, attrs)
}

func (s *PubSubSink) send(ctx context.Context, topic, eventType, cycleID, sku string, payload interface{}, attrs map[string]string) error {
	if topic == "" {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", eventType, err)
	}
	data, err := json.Marshal(Envelope{
		EventType:   eventType,
		CycleID:     cycleID,
		SKU:         sku,
		PublishedAt: s.now().UTC(),
		Payload:     body,
	})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	msgAttrs := make(map[string]string, len(attrs)+3)
	for k, v := range attrs {
		msgAttrs[k] = v
	}
	msgAttrs["event_type"] = eventType
	msgAttrs["cycle_id"] = cycleID
	msgAttrs["sku"] = sku
	result := s.pub.Publish(ctx, topic, data, msgAttrs)
	s.pending.Add(1)
	go s.await(result, topic, eventType, sku)
	return nil
}

func (s *PubSubSink) await(result PublishResult, topic, eventType, sku string) {
	defer s.pending.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.ackTimeout)
	defer cancel()

	id, err := result.Get(ctx)
	if err != nil {
		s.failed.Add(1)
		log.Warn().Err(err).Str("topic", topic).Str("event_type", eventType).Str("sku", sku).Msg("pubsub publish failed")
		return
	}
	log.Debug().Str("topic", topic).Str("message_id", id).Str("sku", sku).Msg("pubsub message acknowledged")
}

// Failed returns how many messages the broker did not acknowledge.
func (s *PubSubSink) Failed() int64 {
	return s.failed.Load()
}

// Close waits for outstanding acknowledgements or until ctx is done.
func (s *PubSubSink) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pubsub: waiting for acknowledgements: %w", ctx.Err())
	}
}

// GooglePublisher publishes to Google Cloud Pub/Sub.
type GooglePublisher struct {
	client *pubsub.Client

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

// NewGooglePublisher uses Application Default Credentials unless a
// credentials file is given. endpoint is optional.
func NewGooglePublisher(ctx context.Context, projectID, credentialsFile, endpoint string) (*GooglePublisher, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	return &GooglePublisher{client: client, topics: make(map[string]*pubsub.Topic)}, nil
}

func (p *GooglePublisher) Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) PublishResult {
	return p.topic(topic).Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})
}

func (p *GooglePublisher) topic(name string) *pubsub.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.topics[name]
	if !ok {
		t = p.client.Topic(name)
		p.topics[name] = t
	}
	return t
}

// Close flushes pending messages and closes the client.
func (p *GooglePublisher) Close() error {
	p.mu.Lock()
	for _, t := range p.topics {
		t.Stop()
	}
	p.mu.Unlock()
	return p.client.Close()
}
