package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"court-reservation-engine/internal/core/domain"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	DefaultExchange = "notifications"
	exchangeKind    = "topic"
	publishTimeout  = 3 * time.Second
)

// Message is the JSON body published for each notification.
type Message struct {
	ID       uuid.UUID       `json:"id"`
	MemberID uuid.UUID       `json:"member_id"`
	Title    string          `json:"title"`
	Message  string          `json:"message"`
	Severity domain.Severity `json:"severity"`
	SentAt   time.Time       `json:"sent_at"`
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Notifier implements ports.Notifier by publishing to a topic exchange with
// routing key notification.<severity>. Delivery is best effort.
type Notifier struct {
	conn     *amqp.Connection
	ch       publisher
	exchange string
	now      func() time.Time
	log      zerolog.Logger
}

// NewNotifier dials url and declares the exchange.
func NewNotifier(url, exchange string, log zerolog.Logger) (*Notifier, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, exchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	n := newNotifier(ch, exchange, log)
	n.conn = conn
	return n, nil
}

func newNotifier(ch publisher, exchange string, log zerolog.Logger) *Notifier {
	return &Notifier{
		ch:       ch,
		exchange: exchange,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
	}
}

// Notify publishes the message. Failures are logged, never returned.
func (n *Notifier) Notify(ctx context.Context, memberID uuid.UUID, title, message string, severity domain.Severity) {
	msg := Message{
		ID:       uuid.New(),
		MemberID: memberID,
		Title:    title,
		Message:  message,
		Severity: severity,
		SentAt:   n.now(),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		n.log.Warn().Err(err).Msg("encode notification")
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	key := RoutingKey(severity)
	err = n.ch.PublishWithContext(pubCtx, n.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID.String(),
		Timestamp:    msg.SentAt,
		Body:         body,
	})
	if err != nil {
		n.log.Warn().Err(err).
			Str("member_id", memberID.String()).
			Str("routing_key", key).
			Msg("notification publish failed")
		return
	}
	n.log.Debug().Str("member_id", memberID.String()).Str("routing_key", key).Msg("notification published")
}

// RoutingKey returns the topic routing key for a severity.
func RoutingKey(severity domain.Severity) string {
	return "notification." + strings.ToLower(string(severity))
}

// Close releases the channel and connection.
func (n *Notifier) Close() {
	if n.ch != nil {
		n.ch.Close()
	}
	if n.conn != nil {
		n.conn.Close()
	}
}
