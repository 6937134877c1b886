package nats

import (
	"context"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Config holds NATS connection settings.
type Config struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
	BufSize       int
}

// NATSMessage is the message type returned by NATSPubSub.Subscribe.
type NATSMessage struct {
	Channel string
	Payload string
}

// NATSPubSub publishes on NATS subjects. Channels map one to one to
// subjects, so wildcards are accepted in Subscribe.
type NATSPubSub struct {
	conn    *nats.Conn
	bufSize int
}

// NewPubSub connects to NATS.
func NewPubSub(cfg Config) (*NATSPubSub, error) {
	if cfg.BufSize <= 0 {
		cfg.BufSize = 256
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(5 * time.Second),
	}
	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, err
	}
	return &NATSPubSub{conn: conn, bufSize: cfg.BufSize}, nil
}

func (n *NATSPubSub) Publish(_ context.Context, channel, message string) error {
	return n.conn.Publish(channel, []byte(message))
}

// Subscribe bridges the given subjects into one channel. The channel is
// closed by the returned cancel func or when ctx is done.
func (n *NATSPubSub) Subscribe(ctx context.Context, channels ...string) (<-chan *NATSMessage, func(), error) {
	in := make(chan *nats.Msg, n.bufSize)
	subs := make([]*nats.Subscription, 0, len(channels))
	for _, c := range channels {
		sub, err := n.conn.ChanSubscribe(c, in)
		if err != nil {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
			return nil, nil, err
		}
		subs = append(subs, sub)
	}

	out := make(chan *NATSMessage, n.bufSize)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case msg := <-in:
				select {
				case out <- &NATSMessage{Channel: msg.Subject, Payload: string(msg.Data)}:
				case <-done:
					return
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
			close(done)
		})
	}
	return out, cancel, nil
}

// Close drains pending messages and closes the connection.
func (n *NATSPubSub) Close() error { return n.conn.Drain() }
