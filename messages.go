package ballroom

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type MsgKind string

const (
	MsgState   MsgKind = "state"
	MsgHello   MsgKind = "hello"
	MsgPaint   MsgKind = "paint"
	MsgWelcome MsgKind = "welcome"
	MsgJoin    MsgKind = "join"
	MsgLeave   MsgKind = "leave"
)

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownKind    = errors.New("unknown message kind")
)

// Message is one of Snapshot, Paint, PeerJoin, PeerLeave or Welcome.
type Message interface {
	Kind() MsgKind
}

// Envelope carries a message with its transport addressing. From is stamped
// by the transport, To is empty for broadcast.
type Envelope struct {
	From string
	To   string
	Msg  Message
}

// SnapshotField marks which fields a received snapshot actually carried.
type SnapshotField uint16

const (
	FieldPX SnapshotField = 1 << iota
	FieldPY
	FieldPZ
	FieldVX
	FieldVY
	FieldVZ
	FieldQX
	FieldQY
	FieldQZ
	FieldQW
	FieldTS
	FieldName

	FieldsAll = FieldPX | FieldPY | FieldPZ | FieldVX | FieldVY | FieldVZ |
		FieldQX | FieldQY | FieldQZ | FieldQW | FieldTS | FieldName
)

// Snapshot is the point-in-time state of one ball. Hello snapshots have the
// same shape and are sent on join and as a slow heartbeat.
type Snapshot struct {
	Hello       bool
	SessionID   string
	Name        string
	Position    mgl32.Vec3
	Velocity    mgl32.Vec3
	Orientation mgl32.Quat
	Timestamp   int64 // sender wall clock, unix ms
	Present     SnapshotField
}

func (s Snapshot) Kind() MsgKind {
	if s.Hello {
		return MsgHello
	}
	return MsgState
}

func (s Snapshot) Has(f SnapshotField) bool {
	return s.Present&f == f
}

type PaintMode string

const (
	PaintDraw  PaintMode = "draw"
	PaintErase PaintMode = "erase"
)

// Paint is a fire-and-forget brush dab at a floor point. Applying the same
// dab twice is harmless.
type Paint struct {
	SessionID string
	X, Z      float32
	Mode      PaintMode
}

func (Paint) Kind() MsgKind { return MsgPaint }

// PeerJoin, PeerLeave and Welcome are emitted by the transport, never by peers.
type PeerJoin struct{ Peer string }
type PeerLeave struct{ Peer string }
type Welcome struct{ Peer string }

func (PeerJoin) Kind() MsgKind  { return MsgJoin }
func (PeerLeave) Kind() MsgKind { return MsgLeave }
func (Welcome) Kind() MsgKind   { return MsgWelcome }

// SnapshotPayload is the wire form of a Snapshot.
type SnapshotPayload struct {
	T    MsgKind `json:"t" msgpack:"t" jsonschema:"enum=state,enum=hello"`
	ID   string  `json:"id" msgpack:"id" jsonschema:"description=Sender session id"`
	N    string  `json:"n" msgpack:"n" jsonschema:"maxLength=18,description=Sanitized display name"`
	PX   float64 `json:"px" msgpack:"px"`
	PY   float64 `json:"py" msgpack:"py"`
	PZ   float64 `json:"pz" msgpack:"pz"`
	VX   float64 `json:"vx" msgpack:"vx"`
	VY   float64 `json:"vy" msgpack:"vy"`
	VZ   float64 `json:"vz" msgpack:"vz"`
	QX   float64 `json:"qx" msgpack:"qx"`
	QY   float64 `json:"qy" msgpack:"qy"`
	QZ   float64 `json:"qz" msgpack:"qz"`
	QW   float64 `json:"qw" msgpack:"qw"`
	TS   int64   `json:"ts" msgpack:"ts" jsonschema:"description=Sender wall clock in unix milliseconds"`
	From string  `json:"from,omitempty" msgpack:"from,omitempty"`
	To   string  `json:"to,omitempty" msgpack:"to,omitempty"`
}

// PaintPayload is the wire form of a Paint.
type PaintPayload struct {
	T    MsgKind   `json:"t" msgpack:"t" jsonschema:"enum=paint"`
	SID  string    `json:"sid" msgpack:"sid"`
	X    float64   `json:"x" msgpack:"x"`
	Z    float64   `json:"z" msgpack:"z"`
	M    PaintMode `json:"m" msgpack:"m" jsonschema:"enum=draw,enum=erase"`
	From string    `json:"from,omitempty" msgpack:"from,omitempty"`
	To   string    `json:"to,omitempty" msgpack:"to,omitempty"`
}

// ControlPayload is the wire form of relay join/leave/welcome notices.
type ControlPayload struct {
	T    MsgKind `json:"t" msgpack:"t" jsonschema:"enum=welcome,enum=join,enum=leave"`
	Peer string  `json:"peer" msgpack:"peer"`
	From string  `json:"from,omitempty" msgpack:"from,omitempty"`
	To   string  `json:"to,omitempty" msgpack:"to,omitempty"`
}

func payloadOf(env Envelope) (any, error) {
	switch m := env.Msg.(type) {
	case Snapshot:
		return SnapshotPayload{
			T:  m.Kind(),
			ID: m.SessionID,
			N:  m.Name,
			PX: float64(m.Position[0]), PY: float64(m.Position[1]), PZ: float64(m.Position[2]),
			VX: float64(m.Velocity[0]), VY: float64(m.Velocity[1]), VZ: float64(m.Velocity[2]),
			QX: float64(m.Orientation.V[0]), QY: float64(m.Orientation.V[1]), QZ: float64(m.Orientation.V[2]),
			QW:   float64(m.Orientation.W),
			TS:   m.Timestamp,
			From: env.From,
			To:   env.To,
		}, nil
	case Paint:
		return PaintPayload{T: MsgPaint, SID: m.SessionID, X: float64(m.X), Z: float64(m.Z), M: m.Mode, From: env.From, To: env.To}, nil
	case PeerJoin:
		return ControlPayload{T: MsgJoin, Peer: m.Peer, From: env.From, To: env.To}, nil
	case PeerLeave:
		return ControlPayload{T: MsgLeave, Peer: m.Peer, From: env.From, To: env.To}, nil
	case Welcome:
		return ControlPayload{T: MsgWelcome, Peer: m.Peer, From: env.From, To: env.To}, nil
	case nil:
		return nil, fmt.Errorf("%w: empty message", ErrMalformedFrame)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnknownKind, env.Msg)
}

// ParseFrame turns a decoded wire object into an Envelope. Missing or
// non-numeric snapshot fields are left out of Snapshot.Present rather than
// failing the frame; the receiver fills them in.
func ParseFrame(fields map[string]any) (Envelope, error) {
	kind, _ := stringField(fields, "t")
	from, _ := stringField(fields, "from")
	to, _ := stringField(fields, "to")
	env := Envelope{From: from, To: to}

	switch MsgKind(kind) {
	case MsgState, MsgHello:
		snap, err := parseSnapshot(fields, from)
		if err != nil {
			return env, err
		}
		snap.Hello = MsgKind(kind) == MsgHello
		env.Msg = snap
	case MsgPaint:
		env.Msg = parsePaint(fields, from)
	case MsgJoin, MsgLeave, MsgWelcome:
		peer, ok := stringField(fields, "peer")
		if !ok || peer == "" {
			return env, fmt.Errorf("%w: %s without peer", ErrMalformedFrame, kind)
		}
		switch MsgKind(kind) {
		case MsgJoin:
			env.Msg = PeerJoin{Peer: peer}
		case MsgLeave:
			env.Msg = PeerLeave{Peer: peer}
		default:
			env.Msg = Welcome{Peer: peer}
		}
	default:
		return env, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return env, nil
}

func senderID(fields map[string]any, from string) string {
	if id, ok := stringField(fields, "id"); ok && id != "" {
		return id
	}
	if id, ok := stringField(fields, "sid"); ok && id != "" {
		return id
	}
	return from
}

func parseSnapshot(fields map[string]any, from string) (Snapshot, error) {
	s := Snapshot{SessionID: senderID(fields, from), Orientation: mgl32.QuatIdent()}
	if s.SessionID == "" {
		return s, fmt.Errorf("%w: snapshot without sender", ErrMalformedFrame)
	}
	if n, ok := stringField(fields, "n"); ok {
		s.Name = n
		s.Present |= FieldName
	}

	vec := []struct {
		key  string
		flag SnapshotField
		dst  *float32
	}{
		{"px", FieldPX, &s.Position[0]},
		{"py", FieldPY, &s.Position[1]},
		{"pz", FieldPZ, &s.Position[2]},
		{"vx", FieldVX, &s.Velocity[0]},
		{"vy", FieldVY, &s.Velocity[1]},
		{"vz", FieldVZ, &s.Velocity[2]},
		{"qx", FieldQX, &s.Orientation.V[0]},
		{"qy", FieldQY, &s.Orientation.V[1]},
		{"qz", FieldQZ, &s.Orientation.V[2]},
		{"qw", FieldQW, &s.Orientation.W},
	}
	for _, f := range vec {
		if v, ok := numberField(fields, f.key); ok {
			*f.dst = float32(v)
			s.Present |= f.flag
		}
	}
	if ts, ok := numberField(fields, "ts"); ok {
		s.Timestamp = int64(ts)
		s.Present |= FieldTS
	}
	s.Orientation = normalizeQuat(s.Orientation)
	return s, nil
}

func parsePaint(fields map[string]any, from string) Paint {
	p := Paint{SessionID: senderID(fields, from), Mode: PaintDraw}
	if x, ok := numberField(fields, "x"); ok {
		p.X = float32(x)
	}
	if z, ok := numberField(fields, "z"); ok {
		p.Z = float32(z)
	}
	if m, _ := stringField(fields, "m"); PaintMode(m) == PaintErase {
		p.Mode = PaintErase
	}
	return p
}

func normalizeQuat(q mgl32.Quat) mgl32.Quat {
	l := q.Len()
	if l < 1e-6 || math.IsNaN(float64(l)) || math.IsInf(float64(l), 0) {
		return mgl32.QuatIdent()
	}
	return mgl32.Quat{W: q.W / l, V: q.V.Mul(1 / l)}
}

func stringField(fields map[string]any, key string) (string, bool) {
	s, ok := fields[key].(string)
	return s, ok
}

// numberField accepts every numeric type the JSON and MessagePack decoders
// produce. Non-finite values count as absent.
func numberField(fields map[string]any, key string) (float64, bool) {
	var f float64
	switch v := fields[key].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
