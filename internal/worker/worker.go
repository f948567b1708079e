package worker

import (
	"context"
	"log"
	"sync"

	"flow-platform/internal/broker"
	"flow-platform/internal/transport"

	"github.com/segmentio/kafka-go"
)

// maxInFlight bounds concurrently running handlers per worker. Handlers can
// park in bus.Request for the full request timeout, so they must not hold
// up the consume loop.
const maxInFlight = 16

// ResponderWorker hosts one service's responder: one consumer goroutine per
// registered pattern topic, each message handled on its own goroutine.
type ResponderWorker struct {
	name      string
	brokers   []string
	group     string
	responder *transport.Responder
	dispatch  *dispatcher

	mu        sync.Mutex
	consumers []*broker.Consumer
}

// NewResponderWorker creates a worker for the named service.
func NewResponderWorker(name string, brokers []string, group string, responder *transport.Responder) *ResponderWorker {
	return &ResponderWorker{
		name:      name,
		brokers:   brokers,
		group:     group + "-" + name,
		responder: responder,
		dispatch:  newDispatcher(name, maxInFlight),
	}
}

// Start consumes every pattern topic until the context is cancelled.
func (w *ResponderWorker) Start(ctx context.Context) error {
	patterns := w.responder.Patterns()
	log.Printf("Starting %s worker for %d patterns...", w.name, len(patterns))

	var wg sync.WaitGroup
	for _, pattern := range patterns {
		consumer := broker.NewConsumer(w.brokers, pattern, w.group)
		w.mu.Lock()
		w.consumers = append(w.consumers, consumer)
		w.mu.Unlock()

		wg.Add(1)
		go func(c *broker.Consumer) {
			defer wg.Done()
			handler := w.dispatch.wrap(w.responder.HandleMessage)
			if err := c.StartConsuming(ctx, handler); err != nil && ctx.Err() == nil {
				log.Printf("%s worker consumer error on %s: %v", w.name, c.Topic(), err)
			}
		}(consumer)
	}

	wg.Wait()
	return ctx.Err()
}

// Stop closes every consumer and waits for in-flight handlers.
func (w *ResponderWorker) Stop() error {
	log.Printf("Stopping %s worker...", w.name)
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	for _, c := range w.consumers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	w.dispatch.drain()
	return firstErr
}

// dispatcher hands each message to its own goroutine, capped at limit
// in-flight. Messages are committed once dispatched; the responder already
// reports handler failures to the caller and delivery is at-least-once, so
// commit-on-dispatch loses nothing the serial loop guaranteed.
type dispatcher struct {
	name  string
	slots chan struct{}
	wg    sync.WaitGroup
}

func newDispatcher(name string, limit int) *dispatcher {
	return &dispatcher{
		name:  name,
		slots: make(chan struct{}, limit),
	}
}

// wrap turns handler into a non-blocking dispatch: it waits only for a free
// slot, then runs the handler in the background.
func (d *dispatcher) wrap(handler broker.MessageHandler) broker.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		select {
		case d.slots <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}

		d.wg.Add(1)
		go func() {
			defer func() {
				<-d.slots
				d.wg.Done()
			}()
			if err := handler(ctx, msg); err != nil {
				log.Printf("%s worker handler error on %s: %v", d.name, msg.Topic, err)
			}
		}()
		return nil
	}
}

// drain blocks until every dispatched handler has returned.
func (d *dispatcher) drain() {
	d.wg.Wait()
}

// ReplyWorker feeds the transport client's correlation loop from the process
// reply topic.
type ReplyWorker struct {
	consumer *broker.Consumer
	client   *transport.Client
}

// NewReplyWorker creates the reply loop worker.
func NewReplyWorker(consumer *broker.Consumer, client *transport.Client) *ReplyWorker {
	return &ReplyWorker{consumer: consumer, client: client}
}

// Start consumes replies until the context is cancelled.
func (w *ReplyWorker) Start(ctx context.Context) error {
	log.Println("Starting reply worker...")
	return w.consumer.StartConsuming(ctx, w.client.HandleReply)
}

// Stop closes the reply consumer.
func (w *ReplyWorker) Stop() error {
	log.Println("Stopping reply worker...")
	return w.consumer.Close()
}
