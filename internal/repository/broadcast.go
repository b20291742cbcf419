package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	domrepo "SignalDesk/internal/domain/repository"
	applogger "SignalDesk/pkg/logger"
)

// MultiBroadcaster sends every event to all targets and joins their errors.
type MultiBroadcaster struct {
	targets []domrepo.Broadcaster
}

// NewMultiBroadcaster skips nil targets.
func NewMultiBroadcaster(targets ...domrepo.Broadcaster) *MultiBroadcaster {
	m := &MultiBroadcaster{}
	for _, t := range targets {
		if t != nil {
			m.targets = append(m.targets, t)
		}
	}
	return m
}

func (m *MultiBroadcaster) Broadcast(ctx context.Context, event string, payload any) error {
	var errs []error
	for _, t := range m.targets {
		if err := t.Broadcast(ctx, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Publisher is the subset of kafka.Producer used for broadcasting.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value any) error
}

// BroadcastEnvelope is the message written to the broadcast topic.
type BroadcastEnvelope struct {
	Event   string    `json:"event"`
	Payload any       `json:"payload"`
	SentAt  time.Time `json:"sentAt"`
}

// ErrBroadcastQueueFull is returned when the Kafka queue cannot take another
// envelope.
var ErrBroadcastQueueFull = errors.New("kafka broadcast queue full")

const defaultBroadcastBuffer = 256

// KafkaBroadcaster mirrors broadcasts onto a Kafka topic keyed by event name.
// Broadcast only enqueues; a single goroutine publishes in order, so callers
// holding locks never wait on the broker.
type KafkaBroadcaster struct {
	pub     Publisher
	topic   string
	timeout time.Duration
	logger  *applogger.Logger
	now     func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan BroadcastEnvelope
	done   chan struct{}
}

// NewKafkaBroadcaster starts the publish loop. timeout bounds each publish.
func NewKafkaBroadcaster(pub Publisher, topic string, buffer int, timeout time.Duration, logger *applogger.Logger) *KafkaBroadcaster {
	if buffer <= 0 {
		buffer = defaultBroadcastBuffer
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = applogger.NewNop()
	}
	k := &KafkaBroadcaster{
		pub:     pub,
		topic:   topic,
		timeout: timeout,
		logger:  logger.Component("kafka_broadcast"),
		now:     time.Now,
		queue:   make(chan BroadcastEnvelope, buffer),
		done:    make(chan struct{}),
	}
	go k.run()
	return k
}

func (k *KafkaBroadcaster) Broadcast(_ context.Context, event string, payload any) error {
	env := BroadcastEnvelope{Event: event, Payload: payload, SentAt: k.now().UTC()}

	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed {
		return errors.New("kafka broadcaster closed")
	}
	select {
	case k.queue <- env:
		return nil
	default:
		return ErrBroadcastQueueFull
	}
}

func (k *KafkaBroadcaster) run() {
	defer close(k.done)
	for env := range k.queue {
		ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
		err := k.pub.Publish(ctx, k.topic, []byte(env.Event), env)
		cancel()
		if err != nil {
			k.logger.Warn("publish broadcast failed", applogger.String("event", env.Event), applogger.Error(err))
		}
	}
}

// Close stops accepting envelopes and waits until the queue is drained.
func (k *KafkaBroadcaster) Close() error {
	k.mu.Lock()
	if !k.closed {
		k.closed = true
		close(k.queue)
	}
	k.mu.Unlock()
	<-k.done
	return nil
}
