package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// DefaultExchange is the direct exchange notifications are published to.
const DefaultExchange = "notifications.direct"

// AMQPChannel is the subset of *amqp.Channel the platform uses.
type AMQPChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Envelope is the JSON body of a published notification.
type Envelope struct {
	MessageID  string    `json:"message_id"`
	ID         int       `json:"notification_id"`
	Channel    string    `json:"channel"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Priority   string    `json:"priority"`
	AutoCancel bool      `json:"auto_cancel"`
	PostedAt   time.Time `json:"posted_at"`
}

// AMQPPlatform fans notifications out through RabbitMQ. Each notification
// channel maps to a routing key on one durable direct exchange.
type AMQPPlatform struct {
	exchange   string
	capability Capability
	logger     *zap.SugaredLogger

	// amqp channels are not safe for concurrent publishing
	mu       sync.Mutex
	ch       AMQPChannel
	declared bool
	channels map[string]Channel
}

func NewAMQPPlatform(ch AMQPChannel, exchange string, capability Capability, logger *zap.SugaredLogger) *AMQPPlatform {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &AMQPPlatform{
		exchange:   exchange,
		capability: capability,
		logger:     logger,
		ch:         ch,
		channels:   make(map[string]Channel),
	}
}

// DialAMQP opens a connection and a channel on it.
func DialAMQP(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open amqp channel: %w", err)
	}
	return conn, ch, nil
}

func (p *AMQPPlatform) CreateChannel(ctx context.Context, c Channel) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.declared {
		if err := p.ch.ExchangeDeclare(p.exchange, "direct", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange: %w", err)
		}
		p.declared = true
		p.logger.Infow("amqp: exchange declared", "exchange", p.exchange)
	}
	if _, ok := p.channels[c.ID]; !ok {
		p.channels[c.ID] = c
	}
	return nil
}

func (p *AMQPPlatform) Notify(ctx context.Context, n Notification) error {
	if err := checkCapability(ctx, p.capability); err != nil {
		return err
	}

	msgID := uuid.NewString()
	body, err := json.Marshal(Envelope{
		MessageID:  msgID,
		ID:         n.ID,
		Channel:    n.ChannelID,
		Title:      n.Title,
		Body:       n.Body,
		Priority:   n.Priority.String(),
		AutoCancel: n.AutoCancel,
		PostedAt:   n.PostedAt,
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.channels[n.ChannelID]; !ok {
		return fmt.Errorf("channel %q does not exist", n.ChannelID)
	}

	return p.ch.Publish(
		p.exchange,  // exchange
		n.ChannelID, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msgID,
			Timestamp:    n.PostedAt,
			Body:         body,
		})
}
