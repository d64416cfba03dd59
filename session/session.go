// Package session owns one TCP chat-stream connection per room: token
// fetch, host selection, authentication handshake, heartbeat keep-alive,
// and the receive-and-decode loop feeding a bounded output channel.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/barrage-archive/barrage/decode"
	"github.com/barrage-archive/barrage/iox"
	"github.com/barrage-archive/barrage/log"
	"github.com/barrage-archive/barrage/types"
	"github.com/barrage-archive/barrage/wire"
)

const (
	// heartbeatInterval is how often the keep-alive frame is written.
	heartbeatInterval = 30 * time.Second
	// outputCapacity bounds the decoded-message channel. A full channel
	// suspends the receive loop, which in turn throttles the server via
	// TCP flow control.
	outputCapacity = 1024
)

// Session start failures.
var (
	// ErrAuthFailed means the server closed or stayed silent instead of
	// acknowledging the auth frame.
	ErrAuthFailed = errors.New("session: authentication failed")
	// ErrNoReachableHost means every candidate chat host refused the
	// TCP connection.
	ErrNoReachableHost = errors.New("session: no reachable chat host")
)

// certificate is the JSON body of the auth frame. Field order and names
// are part of the wire contract.
type certificate struct {
	UID      uint64 `json:"uid"`
	RoomID   int64  `json:"roomid"`
	ProtoVer int    `json:"protover"`
	Buvid    string `json:"buvid"`
	Platform string `json:"platform"`
	Type     int    `json:"type"`
	Key      string `json:"key"`
}

// Config configures a Session.
type Config struct {
	// RoomID is the room to monitor (required).
	RoomID int64
	// Cookie is the raw platform session cookie string (required).
	Cookie string
	// InfoURL overrides the token endpoint. Empty means DefaultInfoURL.
	InfoURL string
	// HTTPClient overrides the client used for the token fetch.
	HTTPClient *http.Client
	// Dialer overrides TCP dialing, for tests.
	Dialer func(ctx context.Context, addr string) (net.Conn, error)
	// Logger is the base logger; room and session context is attached.
	Logger *log.Logger
}

// Session is one room's connection lifecycle. Create with New, start with
// Start, and stop by cancelling the context passed to Start.
type Session struct {
	roomID     int64
	id         string
	creds      Credentials
	infoURL    string
	httpClient *http.Client
	dial       func(ctx context.Context, addr string) (net.Conn, error)
	logger     *log.Logger
	decoder    *decode.Decoder
}

// New creates a Session, parsing identity out of the cookie string.
func New(cfg Config) (*Session, error) {
	creds, err := ParseCredentials(cfg.Cookie)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewLogger()
	}
	logger = logger.WithRoom(cfg.RoomID, id)

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	infoURL := cfg.InfoURL
	if infoURL == "" {
		infoURL = DefaultInfoURL
	}
	dial := cfg.Dialer
	if dial == nil {
		dial = func(ctx context.Context, addr string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "tcp", addr)
		}
	}

	return &Session{
		roomID:     cfg.RoomID,
		id:         id,
		creds:      creds,
		infoURL:    infoURL,
		httpClient: httpClient,
		dial:       dial,
		logger:     logger,
		decoder:    decode.NewDecoder(logger),
	}, nil
}

// ID returns the session's unique identifier, for log correlation.
func (s *Session) ID() string {
	return s.id
}

// Stream is the session's decoded output. Messages is closed when the
// receive loop ends; Err reports why (nil for a clean, requested stop).
type Stream struct {
	messages chan types.Message
	err      error
}

// Messages returns the bounded decoded-message channel.
func (s *Stream) Messages() <-chan types.Message {
	return s.messages
}

// Err reports the receive loop's terminal error. Only valid after
// Messages is closed.
func (s *Stream) Err() error {
	return s.err
}

// Start resolves the chat host, authenticates, and spawns the heartbeat
// and receive tasks. The returned Stream delivers decoded messages until
// ctx is cancelled or the connection fails fatally.
func (s *Session) Start(ctx context.Context) (*Stream, error) {
	info, err := s.fetchDanmuInfo(ctx)
	if err != nil {
		return nil, err
	}

	conn, err := s.connect(ctx, info.Data.HostList)
	if err != nil {
		return nil, err
	}

	if err := s.authenticate(conn, info.Data.Token); err != nil {
		iox.DiscardClose(conn)
		return nil, err
	}

	stream := &Stream{messages: make(chan types.Message, outputCapacity)}

	// Unblock the receive loop's blocking read when ctx is cancelled.
	go func() {
		<-ctx.Done()
		iox.DiscardClose(conn)
	}()
	go s.heartbeatLoop(ctx, conn)
	go s.receiveLoop(ctx, conn, stream)

	return stream, nil
}

// connect tries each candidate host in list order; first success wins.
func (s *Session) connect(ctx context.Context, hosts []chatHost) (net.Conn, error) {
	for _, h := range hosts {
		addr := net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
		conn, err := s.dial(ctx, addr)
		if err != nil {
			s.logger.Warn("chat host unreachable", map[string]any{
				"addr":  addr,
				"error": err.Error(),
			})
			continue
		}
		s.logger.Info("connected to chat host", map[string]any{"addr": addr})
		return conn, nil
	}
	return nil, ErrNoReachableHost
}

// authenticate writes the auth frame and waits for the server's
// acknowledgement. A silent or closed connection is an auth failure.
func (s *Session) authenticate(conn net.Conn, token string) error {
	cert := certificate{
		UID:      s.creds.UID,
		RoomID:   s.roomID,
		ProtoVer: 3,
		Buvid:    s.creds.Buvid,
		Platform: "web",
		Type:     2,
		Key:      token,
	}
	body, err := json.Marshal(cert)
	if err != nil {
		return fmt.Errorf("session: encode certificate: %w", err)
	}

	if _, err := conn.Write(wire.EncodeAuth(body)); err != nil {
		return fmt.Errorf("%w: write auth frame: %v", ErrAuthFailed, err)
	}

	reply, err := wire.ReadFrame(conn)
	if err != nil {
		return fmt.Errorf("%w: no acknowledgement: %v", ErrAuthFailed, err)
	}

	s.logger.Info("authenticated", map[string]any{
		"reply_op":   reply.Op,
		"reply_body": string(reply.Body),
	})
	return nil
}

// heartbeatLoop writes the keep-alive frame every heartbeatInterval until
// ctx is cancelled. Write errors are logged, never fatal: a dead
// connection surfaces through the receive loop instead.
func (s *Session) heartbeatLoop(ctx context.Context, conn net.Conn) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		if _, err := conn.Write(wire.EncodeHeartbeat()); err != nil {
			s.logger.Warn("heartbeat write failed", map[string]any{
				"error": err.Error(),
			})
		} else {
			s.logger.Debug("heartbeat sent", nil)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// receiveLoop reads frames, decodes them, and pushes messages onto the
// stream. Decode-level problems are transient (log and continue); read
// failures are fatal and end the stream with a session-level error.
func (s *Session) receiveLoop(ctx context.Context, conn net.Conn, stream *Stream) {
	defer close(stream.messages)
	defer iox.DiscardClose(conn)

	for {
		frame, err := wire.ReadFrame(conn)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				// Requested shutdown: not a failure.
				return
			}
			// EOF, reset, or mid-frame truncation: the stream cannot
			// recover, surface a session failure.
			stream.err = fmt.Errorf("session: receive loop: %w", err)
			s.logger.Error("connection lost", map[string]any{
				"error": err.Error(),
			})
			return
		}

		for _, msg := range s.frameToMessages(frame) {
			select {
			case stream.messages <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

// frameToMessages decodes one frame into zero or more messages.
//
// Heartbeat replies are discarded whole; the live viewer count they may
// carry is intentionally not consumed here. Decompression and decode
// failures drop the frame, never the stream.
func (s *Session) frameToMessages(frame *wire.Frame) []types.Message {
	if frame.Op == wire.OpHeartbeatReply {
		return nil
	}

	switch frame.Protocol {
	case wire.ProtocolPlain, wire.ProtocolAuth:
		return s.decodeBody(frame.Body)
	case wire.ProtocolBundle:
		sub, err := wire.ExpandBundle(frame.Body)
		if err != nil {
			s.logger.Warn("bundle expansion failed", map[string]any{
				"error": err.Error(),
			})
			return nil
		}
		var out []types.Message
		for _, f := range sub {
			if f.Op == wire.OpHeartbeatReply {
				continue
			}
			out = append(out, s.decodeBody(f.Body)...)
		}
		return out
	default:
		s.logger.Debug("unsupported protocol", map[string]any{
			"protocol": frame.Protocol,
		})
		return nil
	}
}

func (s *Session) decodeBody(body []byte) []types.Message {
	msg := s.decoder.Decode(body)
	if msg.Kind == types.KindIgnored {
		return nil
	}
	return []types.Message{msg}
}
