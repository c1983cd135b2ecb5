package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kiranshivaraju/framemill/internal/config"
	"github.com/kiranshivaraju/framemill/pkg/models"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Client is the JetStream-backed work queue. The durable pull consumer gives
// the at-least-once contract the pipeline is built around: explicit acks,
// AckWait as the visibility window, MaxDeliver bounding redelivery.
type Client struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer
	cfg      config.QueueConfig
}

// Connect dials NATS and idempotently attaches the stream and durable
// consumer, creating them if absent.
func Connect(ctx context.Context, cfg config.QueueConfig) (*Client, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("open jetstream: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.Stream,
		Subjects:  []string{cfg.Subject},
		Retention: jetstream.WorkQueuePolicy,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream %s: %w", cfg.Stream, err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:    cfg.Durable,
		AckPolicy:  jetstream.AckExplicitPolicy,
		AckWait:    cfg.AckWait,
		MaxDeliver: cfg.MaxDeliver,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer %s: %w", cfg.Durable, err)
	}

	return &Client{nc: nc, js: js, consumer: consumer, cfg: cfg}, nil
}

// URL returns the server URL this client connected to.
func (c *Client) URL() string {
	return c.cfg.URL
}

func (c *Client) Close() {
	if c.nc != nil {
		_ = c.nc.Drain()
	}
}

// Fetch long-polls for up to max deliveries, waiting at most the configured
// queue wait. Returns an empty slice when the wait elapses with no work.
func (c *Client) Fetch(ctx context.Context, max int) ([]Delivery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch, err := c.consumer.Fetch(max, jetstream.FetchMaxWait(c.cfg.Wait))
	if err != nil {
		return nil, fmt.Errorf("fetch from queue: %w", err)
	}

	var deliveries []Delivery
	for msg := range batch.Messages() {
		deliveries = append(deliveries, &jsDelivery{msg: msg})
	}
	if err := batch.Error(); err != nil && !errors.Is(err, nats.ErrTimeout) {
		return deliveries, fmt.Errorf("fetch batch: %w", err)
	}
	return deliveries, nil
}

// Publish enqueues one job descriptor.
func (c *Client) Publish(ctx context.Context, msg models.JobMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal job message: %w", err)
	}
	if _, err := c.js.Publish(ctx, c.cfg.Subject, data); err != nil {
		return fmt.Errorf("publish job %s: %w", msg.JobID, err)
	}
	return nil
}

type jsDelivery struct {
	msg jetstream.Msg
}

func (d *jsDelivery) Data() []byte {
	return d.msg.Data()
}

func (d *jsDelivery) Ack() error {
	return d.msg.Ack()
}

func (d *jsDelivery) Attempt() uint64 {
	meta, err := d.msg.Metadata()
	if err != nil {
		return 0
	}
	return meta.NumDelivered
}

// Compile-time checks that Client implements both queue roles.
var _ Consumer = (*Client)(nil)
var _ Publisher = (*Client)(nil)
