package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"autotrader/internal/event"
)

// Envelope is the wire form of one stream message. Timestamps arrive as unix
// milliseconds; a zero timestamp means "now".
type Envelope struct {
	Type        string          `json:"type"`
	TimestampMS int64           `json:"timestamp_ms"`
	Data        json.RawMessage `json:"data"`
}

type WSClient struct {
	url  string
	conn *websocket.Conn
}

func NewWSClient(url string) *WSClient {
	return &WSClient{url: url}
}

func (c *WSClient) Connect(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("ws client is nil")
	}
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return err
	}
	conn.SetReadLimit(1 << 20) // 1MB
	c.conn = conn
	return nil
}

func (c *WSClient) Close(status websocket.StatusCode, reason string) error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close(status, reason)
}

func (c *WSClient) Read(ctx context.Context) (Envelope, []byte, error) {
	if c == nil || c.conn == nil {
		return Envelope{}, nil, fmt.Errorf("ws not connected")
	}
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		return Envelope{}, nil, err
	}
	var env Envelope
	_ = json.Unmarshal(data, &env)
	return env, data, nil
}

type StreamOptions struct {
	URL               string
	HeartbeatInterval time.Duration
	PingTimeout       time.Duration
	BackoffMin        time.Duration
	BackoffMax        time.Duration
	Logger            *zap.Logger
}

// Stream maintains a reconnecting websocket connection to the event feed and
// decodes each message into an event.Event.
type Stream struct {
	opts      StreamOptions
	seenFirst bool
}

func NewStream(opts StreamOptions) *Stream {
	if opts.HeartbeatInterval == 0 {
		opts.HeartbeatInterval = 20 * time.Second
	}
	if opts.PingTimeout == 0 {
		opts.PingTimeout = 5 * time.Second
	}
	if opts.BackoffMin == 0 {
		opts.BackoffMin = 1 * time.Second
	}
	if opts.BackoffMax == 0 {
		opts.BackoffMax = 30 * time.Second
	}
	return &Stream{opts: opts}
}

func (s *Stream) Run(ctx context.Context, onEvent func(event.Event)) error {
	if s == nil {
		return fmt.Errorf("stream is nil")
	}
	if strings.TrimSpace(s.opts.URL) == "" {
		return fmt.Errorf("stream url is empty")
	}
	backoff := s.opts.BackoffMin
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		client := NewWSClient(s.opts.URL)
		if err := client.Connect(ctx); err != nil {
			if s.opts.Logger != nil {
				s.opts.Logger.Warn("feed ws connect failed", zap.Error(err))
			}
			if err := sleepWithJitter(ctx, backoff); err != nil {
				return err
			}
			backoff = nextBackoff(backoff, s.opts.BackoffMax)
			continue
		}
		if s.opts.Logger != nil {
			s.opts.Logger.Info("feed ws connected")
		}
		backoff = s.opts.BackoffMin

		err := s.consume(ctx, client, onEvent)
		_ = client.Close(websocket.StatusNormalClosure, "reconnect")
		if err == nil || errors.Is(err, context.Canceled) {
			return err
		}
		if err := sleepWithJitter(ctx, backoff); err != nil {
			return err
		}
		backoff = nextBackoff(backoff, s.opts.BackoffMax)
	}
}

func (s *Stream) consume(ctx context.Context, client *WSClient, onEvent func(event.Event)) error {
	if client == nil {
		return fmt.Errorf("ws client is nil")
	}
	heartbeatErr := make(chan error, 1)
	heartbeatCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		ticker := time.NewTicker(s.opts.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-heartbeatCtx.Done():
				heartbeatErr <- heartbeatCtx.Err()
				return
			case <-ticker.C:
				pingCtx, cancelPing := context.WithTimeout(heartbeatCtx, s.opts.PingTimeout)
				err := client.conn.Ping(pingCtx)
				cancelPing()
				if err != nil {
					heartbeatErr <- err
					return
				}
			}
		}
	}()

	for {
		select {
		case err := <-heartbeatErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		default:
		}
		env, raw, err := client.Read(ctx)
		if err != nil {
			if s.opts.Logger != nil && !errors.Is(err, context.Canceled) {
				s.opts.Logger.Warn("feed ws read failed", zap.Error(err))
			}
			return err
		}
		if isPingPayload(env, raw) {
			continue
		}
		if s.opts.Logger != nil && !s.seenFirst {
			s.seenFirst = true
			s.opts.Logger.Info("feed ws first message", zap.String("type", env.Type))
		}
		ev, err := Decode(env)
		if err != nil {
			if s.opts.Logger != nil {
				s.opts.Logger.Warn("feed message dropped", zap.String("type", env.Type), zap.Error(err))
			}
			continue
		}
		if onEvent != nil {
			onEvent(ev)
		}
	}
}

// Decode turns one wire envelope into a domain event. Unknown types and
// malformed payloads are errors; the caller drops the message.
func Decode(env Envelope) (event.Event, error) {
	typ, ok := event.ParseType(env.Type)
	if !ok {
		return event.Event{}, fmt.Errorf("unknown event type %q", env.Type)
	}
	ev := event.Event{Type: typ}
	if env.TimestampMS > 0 {
		ev.Timestamp = time.UnixMilli(env.TimestampMS).UTC()
	} else {
		ev.Timestamp = time.Now().UTC()
	}
	switch typ {
	case event.TypeDeploy, event.TypeMigration:
		var p event.DeployPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return event.Event{}, err
		}
		if p.Mint == "" {
			return event.Event{}, fmt.Errorf("deploy payload missing mint")
		}
		ev.Deploy = &p
	case event.TypeTrade:
		var p event.TradePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return event.Event{}, err
		}
		if p.Mint == "" {
			return event.Event{}, fmt.Errorf("trade payload missing mint")
		}
		if p.Direction != event.DirectionBuy && p.Direction != event.DirectionSell {
			return event.Event{}, fmt.Errorf("invalid trade direction %q", p.Direction)
		}
		ev.Trade = &p
	case event.TypeTick:
		var p event.TickPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return event.Event{}, err
		}
		if p.Mint == "" {
			return event.Event{}, fmt.Errorf("tick payload missing mint")
		}
		ev.Tick = &p
	}
	return ev, nil
}

func isPingPayload(env Envelope, raw []byte) bool {
	if strings.EqualFold(env.Type, "ping") {
		return true
	}
	return strings.TrimSpace(string(raw)) == "ping"
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func sleepWithJitter(ctx context.Context, base time.Duration) error {
	if base <= 0 {
		return nil
	}
	jitter := time.Duration(rand.Int63n(int64(base / 2)))
	timer := time.NewTimer(base + jitter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
