package ballroom

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxFrameSize   = 64 << 10
	outboundFrames = 64
)

// RelayDialer connects to a relay server over a websocket.
type RelayDialer struct {
	URL   string
	Codec Codec

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

func (rd RelayDialer) Dial(ctx context.Context, room string, deliver func(Envelope), lost func(error)) (Channel, error) {
	codec := rd.Codec
	if codec == nil {
		codec = JSONCodec{}
	}
	u, err := url.Parse(rd.URL)
	if err != nil {
		return nil, fmt.Errorf("relay url: %w", err)
	}
	q := u.Query()
	q.Set("room", SanitizeRoom(room))
	q.Set("codec", codec.Name())
	u.RawQuery = q.Encode()

	d := rd.Dialer
	if d == nil {
		d = websocket.DefaultDialer
	}
	conn, _, err := d.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay %s: %w", rd.URL, err)
	}

	ch := &relayChannel{
		conn:    conn,
		codec:   codec,
		out:     make(chan []byte, outboundFrames),
		done:    make(chan struct{}),
		deliver: deliver,
		lost:    lost,
		log:     log.WithFields(logrus.Fields{"relay": u.Host, "room": q.Get("room")}),
	}
	go ch.readLoop()
	go ch.writeLoop()
	return ch, nil
}

type relayChannel struct {
	conn    *websocket.Conn
	codec   Codec
	out     chan []byte
	done    chan struct{}
	once    sync.Once
	closed  atomic.Bool
	deliver func(Envelope)
	lost    func(error)
	log     *logrus.Entry
}

func (rc *relayChannel) Mode() DeliveryMode { return ModeRelay }

// Publish encodes m and queues it. A full queue drops the frame; the next
// snapshot supersedes it anyway.
func (rc *relayChannel) Publish(to string, m Message) {
	if rc.closed.Load() {
		return
	}
	b, err := EncodeEnvelope(rc.codec, Envelope{To: to, Msg: m})
	if err != nil {
		rc.log.WithError(err).Warn("Unable to encode outbound message")
		return
	}
	select {
	case rc.out <- b:
	default:
		rc.log.Debugf("Outbound queue full, dropping %s", m.Kind())
	}
}

func (rc *relayChannel) frameType() int {
	if rc.codec.Binary() {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

func (rc *relayChannel) readLoop() {
	rc.conn.SetReadLimit(maxFrameSize)
	rc.conn.SetReadDeadline(time.Now().Add(pongWait))
	rc.conn.SetPongHandler(func(string) error {
		return rc.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := rc.conn.ReadMessage()
		if err != nil {
			rc.fail(err)
			return
		}
		rc.conn.SetReadDeadline(time.Now().Add(pongWait))
		env, err := DecodeEnvelope(rc.codec, data)
		if err != nil {
			rc.log.WithError(err).Debug("Dropping inbound frame")
			continue
		}
		rc.deliver(env)
	}
}

func (rc *relayChannel) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case b := <-rc.out:
			rc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := rc.conn.WriteMessage(rc.frameType(), b); err != nil {
				rc.fail(err)
				return
			}
		case <-ping.C:
			if err := rc.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				rc.fail(err)
				return
			}
		case <-rc.done:
			return
		}
	}
}

// fail reports an unexpected loss once. Errors after Close are ours.
func (rc *relayChannel) fail(err error) {
	if rc.closed.Load() {
		return
	}
	rc.once.Do(func() {
		rc.closed.Store(true)
		close(rc.done)
		rc.conn.Close()
		if rc.lost != nil {
			rc.lost(err)
		}
	})
}

func (rc *relayChannel) Close() error {
	var err error
	rc.once.Do(func() {
		rc.closed.Store(true)
		close(rc.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		rc.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		err = rc.conn.Close()
	})
	return err
}
