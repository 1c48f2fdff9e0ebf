package nats

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/a11yomatic/a11y-engine/internal/infrastructure/resilience"
)

// Queue dispatches analysis and bulk jobs between the api and worker
// processes. Payloads are bare ids; the worker reloads state from the
// database, so a redelivered message is harmless.
type Queue struct {
	conn           *nats.Conn
	analyzeSubject string
	bulkSubject    string
	executor       *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url, analyzeSubject, bulkSubject string) (*Queue, error) {
	return NewWithOptions(url, analyzeSubject, bulkSubject, Options{})
}

func NewWithOptions(url, analyzeSubject, bulkSubject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("a11y-engine"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("nats reconnected: %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:           conn,
		analyzeSubject: analyzeSubject,
		bulkSubject:    bulkSubject,
		executor:       options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishAnalyze(ctx context.Context, documentID string) error {
	return q.publish(ctx, q.analyzeSubject, documentID)
}

func (q *Queue) PublishBulk(ctx context.Context, jobID string) error {
	return q.publish(ctx, q.bulkSubject, jobID)
}

func (q *Queue) publish(ctx context.Context, subject, id string) error {
	call := func(_ context.Context) error {
		if err := q.conn.Publish(subject, []byte(id)); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish."+subject, call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeAnalyze blocks until ctx is cancelled, then drains.
func (q *Queue) SubscribeAnalyze(ctx context.Context, handler func(context.Context, string) error) error {
	return q.subscribe(ctx, q.analyzeSubject, handler)
}

// SubscribeBulk blocks until ctx is cancelled, then drains.
func (q *Queue) SubscribeBulk(ctx context.Context, handler func(context.Context, string) error) error {
	return q.subscribe(ctx, q.bulkSubject, handler)
}

func (q *Queue) subscribe(ctx context.Context, subject string, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(subject, "workers", func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, string(msg.Data)); err != nil {
			log.Printf("worker handler error for id=%s: %v", string(msg.Data), err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
