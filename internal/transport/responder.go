package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"flow-platform/internal/broker"
	"flow-platform/internal/domain"
	"flow-platform/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// HandlerFunc handles one inbound request or event payload. The returned
// value is marshalled into the reply envelope; a taxonomy error travels back
// as its code.
type HandlerFunc func(ctx context.Context, payload []byte) (interface{}, error)

// Responder dispatches inbound messages to pattern handlers and publishes
// correlated replies. Fire-and-forget messages carry no reply topic and get
// none.
type Responder struct {
	producer Publisher
	logger   *zap.Logger
	handlers map[string]HandlerFunc
}

// NewResponder creates an empty responder.
func NewResponder(producer Publisher) *Responder {
	return &Responder{
		producer: producer,
		logger:   util.GetLogger(),
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle registers a handler for a pattern. Patterns map one-to-one onto
// topics, so a pattern can have exactly one handler per process.
func (r *Responder) Handle(pattern string, h HandlerFunc) {
	if _, dup := r.handlers[pattern]; dup {
		panic(fmt.Sprintf("transport: duplicate handler for pattern %q", pattern))
	}
	r.handlers[pattern] = h
}

// Patterns lists every registered pattern; the hosting worker consumes one
// topic per pattern.
func (r *Responder) Patterns() []string {
	out := make([]string, 0, len(r.handlers))
	for p := range r.handlers {
		out = append(out, p)
	}
	return out
}

// HandleMessage routes one message to its pattern handler and, when the
// message carries reply coordinates, publishes the result envelope.
func (r *Responder) HandleMessage(ctx context.Context, msg kafka.Message) error {
	pattern := msg.Topic
	handler, ok := r.handlers[pattern]
	if !ok {
		r.logger.Warn("No handler for pattern", zap.String("pattern", pattern))
		return nil
	}

	result, err := handler(ctx, msg.Value)

	replyTopic := broker.HeaderValue(msg, headerReplyTopic)
	correlationID := broker.HeaderValue(msg, headerCorrelationID)
	if replyTopic == "" || correlationID == "" {
		// fire-and-forget
		return err
	}

	env := envelope{OK: err == nil}
	if err != nil {
		env.ErrCode = domain.CodeOf(err)
		env.ErrMessage = domain.MessageOf(err)
		r.logger.Warn("Handler failed",
			zap.String("pattern", pattern),
			zap.String("code", env.ErrCode),
			zap.Error(err))
	} else if result != nil {
		data, mErr := json.Marshal(result)
		if mErr != nil {
			return fmt.Errorf("failed to marshal reply for %s: %w", pattern, mErr)
		}
		env.Data = data
	}

	if pubErr := r.producer.Publish(ctx, replyTopic, correlationID, env,
		kafka.Header{Key: headerCorrelationID, Value: []byte(correlationID)},
	); pubErr != nil {
		return fmt.Errorf("failed to publish reply for %s: %w", pattern, pubErr)
	}
	return nil
}

// DecodeJSON unmarshals a request payload, mapping malformed input onto the
// validation taxonomy.
func DecodeJSON(payload []byte, out interface{}) error {
	if err := json.Unmarshal(payload, out); err != nil {
		return domain.Validation("invalid payload: " + err.Error())
	}
	return nil
}
