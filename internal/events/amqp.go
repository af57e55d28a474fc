package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"kpi-diagnostics/internal/config"
	"kpi-diagnostics/internal/metrics"
)

const (
	dialTimeout    = 5 * time.Second
	maxReconnects  = 10
	maxBackoff     = 30 * time.Second
	messageExpires = "43200000" // 12 hours in milliseconds
)

// ErrNotConnected is returned when publishing without a live AMQP channel
var ErrNotConnected = errors.New("not connected to AMQP server")

// AMQPPublisher publishes events to a topic exchange
type AMQPPublisher struct {
	logger    logrus.FieldLogger
	config    config.EventsConfig
	conn      *amqp.Connection
	channel   *amqp.Channel
	connected bool
	connMutex sync.RWMutex
	stopChan  chan struct{}
}

// NewAMQPPublisher creates an unconnected publisher
func NewAMQPPublisher(logger logrus.FieldLogger, cfg config.EventsConfig) *AMQPPublisher {
	if cfg.RoutingKey == "" {
		cfg.RoutingKey = TypeAnalysisCompleted
	}
	return &AMQPPublisher{
		logger:   logger.WithField("component", "events"),
		config:   cfg,
		stopChan: make(chan struct{}),
	}
}

// Connect dials the broker, opens a channel and declares the exchange
func (p *AMQPPublisher) Connect() error {
	p.connMutex.Lock()
	defer p.connMutex.Unlock()

	if p.connected {
		return nil
	}
	if p.config.URL == "" || p.config.Exchange == "" {
		return fmt.Errorf("AMQP URL or exchange not configured")
	}

	conn, err := amqp.DialConfig(p.config.URL, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
	if err != nil {
		metrics.SetAMQPConnectionStatus(false)
		return fmt.Errorf("failed to connect to AMQP server: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		p.config.Exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("failed to declare AMQP exchange: %w", err)
	}

	p.conn = conn
	p.channel = channel
	p.connected = true
	p.stopChan = make(chan struct{})
	metrics.SetAMQPConnectionStatus(true)

	p.logger.WithFields(logrus.Fields{
		"exchange":    p.config.Exchange,
		"routing_key": p.config.RoutingKey,
	}).Info("Connected to AMQP server")

	go p.monitorConnection(conn.NotifyClose(make(chan *amqp.Error, 1)), p.stopChan)
	return nil
}

// IsConnected returns the connection status
func (p *AMQPPublisher) IsConnected() bool {
	p.connMutex.RLock()
	defer p.connMutex.RUnlock()
	return p.connected
}

// Publish sends the event as a persistent JSON message
func (p *AMQPPublisher) Publish(ctx context.Context, event AnalysisEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.connMutex.RLock()
	defer p.connMutex.RUnlock()

	if !p.connected || p.channel == nil {
		metrics.RecordEventPublish(p.config.RoutingKey, "not_connected")
		return ErrNotConnected
	}

	err = p.channel.Publish(
		p.config.Exchange,
		p.config.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    event.EventID,
			Type:         event.Type,
			Timestamp:    event.Timestamp,
			Expiration:   messageExpires,
		},
	)
	if err != nil {
		metrics.RecordEventPublish(p.config.RoutingKey, "error")
		return fmt.Errorf("failed to publish event: %w", err)
	}

	metrics.RecordEventPublish(p.config.RoutingKey, "success")
	p.logger.WithFields(logrus.Fields{
		"event_id": event.EventID,
		"type":     event.Type,
	}).Debug("Published event")
	return nil
}

// Close stops reconnection attempts and closes the connection
func (p *AMQPPublisher) Close() error {
	p.connMutex.Lock()
	defer p.connMutex.Unlock()

	if p.stopChan != nil {
		close(p.stopChan)
		p.stopChan = nil
	}
	if !p.connected {
		return nil
	}

	if p.channel != nil {
		p.channel.Close()
	}
	var err error
	if p.conn != nil {
		err = p.conn.Close()
	}

	p.connected = false
	metrics.SetAMQPConnectionStatus(false)
	p.logger.Info("Disconnected from AMQP server")
	return err
}

// monitorConnection reconnects with exponential backoff when the broker drops the connection
func (p *AMQPPublisher) monitorConnection(closed <-chan *amqp.Error, stop <-chan struct{}) {
	select {
	case <-stop:
		return
	case closeErr, ok := <-closed:
		if !ok {
			// closed without error by Close
			return
		}

		p.connMutex.Lock()
		p.connected = false
		p.connMutex.Unlock()
		metrics.SetAMQPConnectionStatus(false)
		p.logger.WithError(closeErr).Warn("AMQP connection closed, attempting to reconnect")

		for attempt := 1; attempt <= maxReconnects; attempt++ {
			err := p.Connect()
			if err == nil {
				p.logger.Info("Reconnected to AMQP server")
				return
			}
			p.logger.WithError(err).WithField("attempt", attempt).Error("Failed to reconnect to AMQP server")

			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			select {
			case <-stop:
				return
			case <-time.After(backoff):
			}
		}
		p.logger.Error("Giving up on AMQP reconnection")
	}
}
