package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"procurement-backend/pkg/models"
)

func connectToRabbitMQ(url string) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	for i := 0; i < MaxConnectRetry; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			slog.Info("connected to rabbitmq")
			return conn, nil
		}
		slog.Warn("failed to connect to rabbitmq", "attempt", i+1, "max_attempts", MaxConnectRetry, "error", err)
		time.Sleep(RetryDelay)
	}
	slog.Error("failed to connect to rabbitmq", "attempts", MaxConnectRetry, "error", err)
	return nil, fmt.Errorf("failed to connect to rabbitmq after %d attempts: %w", MaxConnectRetry, err)
}

type RabbitMQPublisher struct {
	connLock sync.RWMutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	url      string
}

func NewRabbitMQPublisher(rabbitMQURL string) (*RabbitMQPublisher, error) {
	p := &RabbitMQPublisher{url: rabbitMQURL}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *RabbitMQPublisher) connect() error {
	var err error
	p.conn, err = connectToRabbitMQ(p.url)
	if err != nil {
		return err
	}

	p.channel, err = p.conn.Channel()
	if err != nil {
		p.conn.Close()
		slog.Error("failed to open rabbitmq channel", "error", err)
		return fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	if _, err := p.channel.QueueDeclare(AnalysisQueue, true, false, false, false, nil); err != nil {
		p.conn.Close()
		return fmt.Errorf("failed to declare rabbitmq queue %s: %w", AnalysisQueue, err)
	}

	slog.Info("rabbitmq channel opened and queue declared", "queue", AnalysisQueue)

	go p.handleReconnect()

	return nil
}

func (p *RabbitMQPublisher) handleReconnect() {
	notifyClose := make(chan *amqp.Error)
	p.channel.NotifyClose(notifyClose)

	err, ok := <-notifyClose
	if !ok { // channel is just closed on graceful close
		slog.Info("rabbitmq connection closed")
		return
	}

	slog.Warn("rabbitmq connection closed, attempting to reconnect", "error", err)

	p.connLock.Lock()
	defer p.connLock.Unlock()

	p.channel = nil
	p.conn = nil
	for {
		if p.connect() == nil {
			slog.Info("successfully reconnected to rabbitmq")
			return
		}
		time.Sleep(RetryDelay * 10)
	}
}

func (p *RabbitMQPublisher) PublishAnalysisTask(ctx context.Context, payload models.AnalysisTaskPayload) error {
	p.connLock.RLock()
	defer p.connLock.RUnlock()

	if p.channel == nil {
		return fmt.Errorf("rabbitmq channel is not available")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis task payload: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		"",            // exchange (default)
		AnalysisQueue, // routing key (queue name)
		false,         // mandatory
		false,         // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
	if err != nil {
		slog.Error("failed to publish analysis task", "correlation_id", payload.CorrelationId, "error", err)
		return fmt.Errorf("failed to publish analysis task: %w", err)
	}

	slog.Info("published analysis task", "correlation_id", payload.CorrelationId, "sku", payload.Sku)
	return nil
}

func (p *RabbitMQPublisher) Close() {
	p.connLock.Lock()
	defer p.connLock.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

type amqpTask struct {
	delivery amqp.Delivery
}

func (t *amqpTask) Type() string {
	return t.delivery.RoutingKey
}

func (t *amqpTask) Payload() []byte {
	return t.delivery.Body
}

func (t *amqpTask) Ack() error {
	return t.delivery.Ack(false)
}

func (t *amqpTask) Nack() error {
	return t.delivery.Nack(false, true)
}

func (t *amqpTask) Reject() error {
	return t.delivery.Reject(false)
}

// RabbitMQReceiver consumes the analysis queue and surfaces deliveries as
// Tasks. It reconnects with backoff when the connection drops.
type RabbitMQReceiver struct {
	url    string
	tasks  chan Task
	done   chan struct{}
	closer sync.Once
}

func NewRabbitMQReceiver(rabbitMQURL string) *RabbitMQReceiver {
	r := &RabbitMQReceiver{
		url:   rabbitMQURL,
		tasks: make(chan Task),
		done:  make(chan struct{}),
	}
	go r.consumeLoop()
	return r
}

func (r *RabbitMQReceiver) consumeLoop() {
	defer close(r.tasks)

	for {
		select {
		case <-r.done:
			return
		default:
		}

		if err := r.consumeOnce(); err != nil {
			slog.Warn("rabbitmq consumer disconnected, retrying", "error", err)
			time.Sleep(RetryDelay)
		}
	}
}

func (r *RabbitMQReceiver) consumeOnce() error {
	conn, err := connectToRabbitMQ(r.url)
	if err != nil {
		return err
	}
	defer conn.Close()

	channel, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}
	defer channel.Close()

	// One unacked message per consumer at a time.
	if err := channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set rabbitmq qos: %w", err)
	}

	if _, err := channel.QueueDeclare(AnalysisQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare rabbitmq queue %s: %w", AnalysisQueue, err)
	}

	deliveries, err := channel.Consume(AnalysisQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming from %s: %w", AnalysisQueue, err)
	}

	for {
		select {
		case <-r.done:
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("rabbitmq delivery channel closed")
			}
			select {
			case r.tasks <- &amqpTask{delivery: delivery}:
			case <-r.done:
				return nil
			}
		}
	}
}

func (r *RabbitMQReceiver) Tasks() <-chan Task {
	return r.tasks
}

func (r *RabbitMQReceiver) Close() {
	r.closer.Do(func() { close(r.done) })
}
