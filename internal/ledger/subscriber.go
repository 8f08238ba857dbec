package ledger

import (
	"context"
	"time"
	"verity/internal/providers"
	"verity/internal/structures"

	"github.com/cenkalti/backoff/v4"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
)

// Subscriber maintains the long-lived event stream from the ledger node.
// The connection is supervised: on any read or dial failure it reconnects
// with exponential backoff until Stop is called.
type Subscriber struct {
	url      string
	maxDelay time.Duration
	logger   providers.Logger
	events   chan Event
	cancel   context.CancelFunc
	done     chan struct{}
	running  atomic.Bool
}

func NewSubscriber(conf *structures.Config, logger providers.Logger) *Subscriber {
	maxDelay := conf.Ledger.SubscribeMaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	return &Subscriber{
		url:      conf.Ledger.WSURL,
		maxDelay: maxDelay,
		logger:   logger,
		events:   make(chan Event, 256),
	}
}

// Events returns the delivery channel. It is closed after Stop.
func (s *Subscriber) Events() <-chan Event {
	return s.events
}

// Start connects and begins delivering events. Safe to call once.
func (s *Subscriber) Start() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx)
}

// Stop tears down the connection and closes the event channel.
func (s *Subscriber) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.cancel()
	<-s.done
	close(s.events)
}

func (s *Subscriber) run(ctx context.Context) {
	defer close(s.done)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = s.maxDelay
	policy.MaxElapsedTime = 0

	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			wait := policy.NextBackOff()
			s.logger.Warnf(providers.TypeLedger, "Event stream dial failed: %s (retrying in %s)", err, wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}

		s.logger.Infof(providers.TypeLedger, "Event stream connected to %s", s.url)
		policy.Reset()

		if err := s.consume(ctx, conn); err != nil && ctx.Err() == nil {
			s.logger.Warnf(providers.TypeLedger, "Event stream dropped: %s (reconnecting)", err)
		}
		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}
	}
}

func (s *Subscriber) consume(ctx context.Context, conn *websocket.Conn) error {
	// Unblock ReadMessage when the context is cancelled.
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var evt Event
		if err := json.Unmarshal(raw, &evt); err != nil {
			s.logger.Warnf(providers.TypeLedger, "Discarding malformed event payload: %s", err)
			continue
		}
		if evt.Type == "" {
			continue
		}

		select {
		case s.events <- evt:
		case <-ctx.Done():
			return nil
		default:
			// Dropping is safe: handlers re-read authoritative state, and a
			// later event or resync converges the cache.
			s.logger.Warnf(providers.TypeLedger, "Event buffer full, dropping %s for article %s", evt.Type, evt.ArticleID)
		}
	}
}
