package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"court-reservation-engine/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// ErrBufferFull is returned when the producer cannot accept another event
// without blocking the caller.
var ErrBufferFull = errors.New("kafka producer buffer full")

// DefaultBuffer is the inbox size when none is configured.
const DefaultBuffer = 1024

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer streams domain events to a topic. Publishing only enqueues; Run
// owns the writer. Messages are keyed by resource id so one court's events
// stay ordered within a partition.
type Producer struct {
	w        messageWriter
	inbox    chan kafka.Message
	producer string
	log      zerolog.Logger
}

// NewProducer creates a producer for topic on brokers.
func NewProducer(brokers []string, topic, producer string, buf int, log zerolog.Logger) *Producer {
	return newProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}, producer, buf, log)
}

func newProducer(w messageWriter, producer string, buf int, log zerolog.Logger) *Producer {
	if buf <= 0 {
		buf = DefaultBuffer
	}
	return &Producer{
		w:        w,
		inbox:    make(chan kafka.Message, buf),
		producer: producer,
		log:      log,
	}
}

// Handle enqueues the event. It is meant to be subscribed to the event bus.
func (p *Producer) Handle(_ context.Context, event domain.Event) error {
	env, err := NewEnvelope(p.producer, event)
	if err != nil {
		return err
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.ResourceID.String()),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	select {
	case p.inbox <- msg:
		return nil
	default:
		return ErrBufferFull
	}
}

// Run writes queued messages until ctx is done, then flushes what is left
// and closes the writer.
func (p *Producer) Run(ctx context.Context) error {
	p.log.Info().Msg("kafka producer started")
	for {
		select {
		case <-ctx.Done():
			return p.drain()
		case msg := <-p.inbox:
			p.write(ctx, msg)
		}
	}
}

func (p *Producer) drain() error {
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for {
		select {
		case msg := <-p.inbox:
			p.write(flushCtx, msg)
		default:
			p.log.Info().Msg("kafka producer stopped")
			if err := p.w.Close(); err != nil {
				return fmt.Errorf("close kafka writer: %w", err)
			}
			return nil
		}
	}
}

func (p *Producer) write(ctx context.Context, msg kafka.Message) {
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		p.log.Error().Err(err).Str("key", string(msg.Key)).Msg("kafka write failed")
	}
}
