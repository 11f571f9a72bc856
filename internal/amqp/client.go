package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rabbitmq/amqp091-go"

	"keuangan/internal/log"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
)

var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
	ErrUnavailable = errors.New("AMQP channel unavailable")
)

// Config holds broker connection settings.
type Config struct {
	URL            string
	Exchange       string
	Queue          string
	ConnectTimeout time.Duration
}

// Client publishes and consumes change events over a topic exchange.
// Events are routed by name; the queue is bound to every entry and type
// event.
type Client struct {
	url            string
	exchangeName   string
	queueName      string
	connectTimeout time.Duration
	logger         *log.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	dialMu       sync.Mutex
	reconnecting int32
	bg           context.Context
	stop         context.CancelFunc

	failureCount int64
	state        int32
	failMu       sync.Mutex
	lastFailure  time.Time
}

// Dial connects to the broker, retrying with exponential backoff until
// cfg.ConnectTimeout elapses or ctx is done.
func Dial(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	c := newClient(cfg, logger)
	if err := c.reconnect(ctx); err != nil {
		c.stop()
		return nil, err
	}
	c.logger.InfoContext(ctx, "AMQP connected", "exchange", c.exchangeName, "queue", c.queueName)
	return c, nil
}

func newClient(cfg Config, logger *log.Logger) *Client {
	bg, stop := context.WithCancel(context.Background())
	return &Client{
		url:            cfg.URL,
		exchangeName:   cfg.Exchange,
		queueName:      cfg.Queue,
		connectTimeout: cfg.ConnectTimeout,
		logger:         logger.WithComponent(log.ComponentAMQP),
		bg:             bg,
		stop:           stop,
	}
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = c.connectTimeout
	if b.MaxElapsedTime <= 0 {
		b.MaxElapsedTime = time.Minute
	}
	return backoff.WithContext(b, ctx)
}

// reconnect redials unless another caller already restored a usable
// channel while this one waited.
func (c *Client) reconnect(ctx context.Context) error {
	c.dialMu.Lock()
	defer c.dialMu.Unlock()
	if ch := c.currentChannel(); ch != nil && !ch.IsClosed() {
		return nil
	}

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if err := c.connect(); err != nil {
			c.logger.WarnContext(ctx, "AMQP connect failed", "attempt", attempt, log.FieldError, err.Error())
			return err
		}
		return nil
	}, c.newBackOff(ctx))
	if err != nil {
		return fmt.Errorf("connect AMQP after %d attempts: %w", attempt, err)
	}
	return nil
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := c.setup(channel); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.mu.Lock()
	old := c.conn
	c.conn, c.channel = conn, channel
	c.mu.Unlock()
	if old != nil && !old.IsClosed() {
		old.Close()
	}

	go c.watch(conn.NotifyClose(make(chan *amqp091.Error, 1)))
	return nil
}

// watch schedules a reconnect when the broker drops conn. A close
// initiated by this client delivers no error and is ignored.
func (c *Client) watch(closed <-chan *amqp091.Error) {
	amqpErr, ok := <-closed
	if !ok || amqpErr == nil {
		return
	}
	c.logger.Warn("AMQP connection lost", log.FieldError, amqpErr.Error())
	c.scheduleReconnect()
}

// scheduleReconnect starts at most one background reconnect at a time.
func (c *Client) scheduleReconnect() {
	if !atomic.CompareAndSwapInt32(&c.reconnecting, 0, 1) {
		return
	}
	ctx := c.bg
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		defer atomic.StoreInt32(&c.reconnecting, 0)
		if err := c.reconnect(ctx); err != nil {
			c.logger.Error("AMQP background reconnect failed", log.FieldError, err.Error())
			return
		}
		c.logger.Info("AMQP reconnected")
	}()
}

func (c *Client) setup(ch *amqp091.Channel) error {
	err := ch.ExchangeDeclare(
		c.exchangeName, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if c.queueName == "" {
		return nil
	}

	_, err = ch.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	for _, key := range []string{"entry.*", "type.*"} {
		if err := ch.QueueBind(c.queueName, key, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", key, err)
		}
	}
	return nil
}

func (c *Client) currentChannel() *amqp091.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// Publish sends ev with its name as routing key. It fails fast while the
// circuit breaker is open or the channel is down; in the latter case a
// background reconnect is started and the caller is not held up by it.
func (c *Client) Publish(ctx context.Context, ev Event) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish %s: %w", ev.Event, ErrCircuitOpen)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ch := c.currentChannel()
	if ch == nil || ch.IsClosed() {
		c.recordFailure()
		c.scheduleReconnect()
		return fmt.Errorf("publish %s: %w", ev.Event, ErrUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		ev.Event,       // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    ev.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.mu.Lock()
			c.channel = nil
			c.mu.Unlock()
			c.scheduleReconnect()
		}
		return fmt.Errorf("publish %s: %w", ev.Event, err)
	}
	c.recordSuccess()

	c.logger.DebugContext(ctx, "Published event", log.FieldEvent, ev.Event, "id", ev.ID)
	return nil
}

// Consume delivers queued events to handler until ctx is done. A handler
// error requeues the delivery; an undecodable body is dropped. A closed
// delivery channel triggers a reconnect.
func (c *Client) Consume(ctx context.Context, handler func(context.Context, Event) error) error {
	for {
		err := c.consumeOnce(ctx, handler)
		if ctx.Err() != nil {
			c.logger.InfoContext(ctx, "Stopping event consumption", "reason", ctx.Err())
			return ctx.Err()
		}
		c.logger.WarnContext(ctx, "Delivery channel closed, reconnecting", log.FieldError, errString(err))
		if err := c.reconnect(ctx); err != nil {
			return err
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler func(context.Context, Event) error) error {
	ch := c.currentChannel()
	if ch == nil {
		return errors.New("no channel")
	}
	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Started consuming events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}

			ev, err := EventFromJSON(delivery.Body)
			if err != nil {
				c.logger.ErrorContext(ctx, "Failed to decode event", log.FieldError, err.Error())
				delivery.Nack(false, false)
				continue
			}

			if err := handler(ctx, ev); err != nil {
				c.logger.ErrorContext(ctx, "Failed to handle event",
					log.FieldEvent, ev.Event, "id", ev.ID, log.FieldError, err.Error())
				delivery.Nack(false, true)
				continue
			}

			delivery.Ack(false)
			c.logger.DebugContext(ctx, "Processed event", log.FieldEvent, ev.Event, "id", ev.ID)
		}
	}
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.failMu.Lock()
	last := c.lastFailure
	c.failMu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordFailure() {
	c.failMu.Lock()
	c.lastFailure = time.Now()
	c.failMu.Unlock()
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (c *Client) Close() error {
	if c.stop != nil {
		c.stop()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
