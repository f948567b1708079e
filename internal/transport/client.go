package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"flow-platform/internal/broker"
	"flow-platform/internal/domain"
	"flow-platform/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	headerCorrelationID = "correlation_id"
	headerReplyTopic    = "reply_topic"
)

// envelope is the wire format of a reply. Application errors travel as
// taxonomy codes so the caller can rebuild the matching sentinel.
type envelope struct {
	OK         bool            `json:"ok"`
	Data       json.RawMessage `json:"data,omitempty"`
	ErrCode    string          `json:"error_code,omitempty"`
	ErrMessage string          `json:"error,omitempty"`
}

// Publisher is the slice of the broker producer the transport needs.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload interface{}, headers ...kafka.Header) error
}

// Client is the request/reply-over-broker abstraction every service uses to
// call another service. Requests publish to the pattern topic and park on a
// channel until the reply loop delivers a correlated envelope or the timeout
// fires. The transport performs no retries; callers decide.
type Client struct {
	producer   Publisher
	replyTopic string
	timeout    time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	pending map[string]chan envelope
}

// NewClient creates a transport client replying on replyTopic. One client is
// shared per process; the reply consumer must feed HandleReply.
func NewClient(producer Publisher, replyTopic string, timeout time.Duration) *Client {
	return &Client{
		producer:   producer,
		replyTopic: replyTopic,
		timeout:    timeout,
		logger:     util.GetLogger(),
		pending:    make(map[string]chan envelope),
	}
}

// Request publishes payload to the pattern topic and waits for the
// correlated reply, decoding it into out (which may be nil). A missing reply
// resolves to RemoteTimeout; the remote side may still have acted.
func (c *Client) Request(ctx context.Context, pattern string, payload, out interface{}) error {
	correlationID := uuid.New().String()

	ch := make(chan envelope, 1)
	c.mu.Lock()
	c.pending[correlationID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, correlationID)
		c.mu.Unlock()
	}()

	start := time.Now()
	err := c.producer.Publish(ctx, pattern, correlationID, payload,
		kafka.Header{Key: headerCorrelationID, Value: []byte(correlationID)},
		kafka.Header{Key: headerReplyTopic, Value: []byte(c.replyTopic)},
	)
	if err != nil {
		util.TransportRequestsTotal.WithLabelValues(pattern, "unavailable").Inc()
		return fmt.Errorf("%w: %s", domain.ErrRemoteUnavailable, pattern)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case env := <-ch:
		util.TransportRequestLatency.WithLabelValues(pattern).Observe(time.Since(start).Seconds())
		if !env.OK {
			util.TransportRequestsTotal.WithLabelValues(pattern, "remote_error").Inc()
			return domain.FromCode(env.ErrCode, env.ErrMessage)
		}
		util.TransportRequestsTotal.WithLabelValues(pattern, "ok").Inc()
		if out != nil && len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, out); err != nil {
				return fmt.Errorf("failed to decode reply for %s: %w", pattern, err)
			}
		}
		return nil

	case <-ctx.Done():
		util.TransportRequestsTotal.WithLabelValues(pattern, "timeout").Inc()
		return fmt.Errorf("%w: %s", domain.ErrRemoteTimeout, pattern)

	case <-timer.C:
		util.TransportRequestsTotal.WithLabelValues(pattern, "timeout").Inc()
		c.logger.Warn("Request timed out",
			zap.String("pattern", pattern),
			zap.String("correlation_id", correlationID))
		return fmt.Errorf("%w: %s", domain.ErrRemoteTimeout, pattern)
	}
}

// Publish enqueues payload on the pattern topic and returns once the broker
// acknowledges. Delivery is at-least-once; no reply is awaited.
func (c *Client) Publish(ctx context.Context, pattern string, payload interface{}) error {
	if err := c.producer.Publish(ctx, pattern, "", payload); err != nil {
		util.TransportPublishesTotal.WithLabelValues(pattern, "error").Inc()
		return fmt.Errorf("failed to publish %s: %w", pattern, err)
	}
	util.TransportPublishesTotal.WithLabelValues(pattern, "ok").Inc()
	return nil
}

// HandleReply is the message handler for the process reply topic. Replies
// with no waiting caller (late arrivals after a timeout) are dropped.
func (c *Client) HandleReply(ctx context.Context, msg kafka.Message) error {
	correlationID := broker.HeaderValue(msg, headerCorrelationID)
	if correlationID == "" {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return fmt.Errorf("failed to unmarshal reply envelope: %w", err)
	}

	c.mu.Lock()
	ch, ok := c.pending[correlationID]
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("Dropping uncorrelated reply",
			zap.String("correlation_id", correlationID))
		return nil
	}

	select {
	case ch <- env:
	default:
	}
	return nil
}
