package ballroom

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	snap := Snapshot{
		SessionID:   "AAAAAA",
		Name:        "Ada",
		Position:    mgl32.Vec3{1.5, 0.45, -2},
		Velocity:    mgl32.Vec3{0.25, 0, 3},
		Orientation: mgl32.QuatRotate(0.5, mgl32.Vec3{1, 0, 0}),
		Timestamp:   1700000000123,
		Present:     FieldsAll,
	}
	hello := snap
	hello.Hello = true

	msgs := []Message{
		snap,
		hello,
		Paint{SessionID: "AAAAAA", X: 1, Z: -6.5, Mode: PaintErase},
		PeerJoin{Peer: "p2"},
		PeerLeave{Peer: "p2"},
		Welcome{Peer: "p1"},
	}
	for _, codec := range []Codec{JSONCodec{}, MsgpackCodec{}} {
		for _, m := range msgs {
			t.Run(fmt.Sprintf("%s %s", codec.Name(), m.Kind()), func(t *testing.T) {
				b, err := EncodeEnvelope(codec, Envelope{From: "p9", To: "p3", Msg: m})
				if err != nil {
					t.Fatalf("encode: %v", err)
				}
				env, err := DecodeEnvelope(codec, b)
				if err != nil {
					t.Fatalf("decode: %v", err)
				}
				if env.From != "p9" || env.To != "p3" {
					t.Errorf("addressing lost: %+v", env)
				}
				if got, ok := env.Msg.(Snapshot); ok {
					want := m.(Snapshot)
					if got.Hello != want.Hello || got.Name != want.Name || got.Timestamp != want.Timestamp {
						t.Errorf("got %+v, want %+v", got, want)
					}
					if !got.Position.ApproxEqual(want.Position) || !got.Velocity.ApproxEqual(want.Velocity) {
						t.Errorf("vectors changed: %+v", got)
					}
					if !got.Orientation.ApproxEqual(want.Orientation) {
						t.Errorf("orientation changed: %v", got.Orientation)
					}
					if got.Present != FieldsAll {
						t.Errorf("present = %b", got.Present)
					}
					return
				}
				if env.Msg != m {
					t.Errorf("got %#v, want %#v", env.Msg, m)
				}
			})
		}
	}
}

func TestParseFrameLenient(t *testing.T) {
	var tests = []struct {
		name    string
		fields  map[string]any
		present SnapshotField
	}{
		{"positions only", map[string]any{"t": "state", "id": "A", "px": 1.0, "py": 2.0, "pz": 3.0}, FieldPX | FieldPY | FieldPZ},
		{"strings are not numbers", map[string]any{"t": "state", "id": "A", "px": "1", "vx": true}, 0},
		{"integers", map[string]any{"t": "hello", "id": "A", "px": int8(1), "ts": uint64(99)}, FieldPX | FieldTS},
		{"name", map[string]any{"t": "state", "id": "A", "n": "Bo"}, FieldName},
		{"sender from transport", map[string]any{"t": "state", "from": "p1"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := ParseFrame(tt.fields)
			if err != nil {
				t.Fatalf("ParseFrame: %v", err)
			}
			s := env.Msg.(Snapshot)
			if s.Present != tt.present {
				t.Errorf("present = %b, want %b", s.Present, tt.present)
			}
			if s.Orientation != mgl32.QuatIdent() {
				t.Errorf("missing rotation should be identity, got %v", s.Orientation)
			}
		})
	}
}

func TestParseFrameErrors(t *testing.T) {
	var tests = []struct {
		name   string
		fields map[string]any
		want   error
	}{
		{"no kind", map[string]any{"id": "A"}, ErrUnknownKind},
		{"unknown kind", map[string]any{"t": "chat", "id": "A"}, ErrUnknownKind},
		{"anonymous snapshot", map[string]any{"t": "state", "px": 1.0}, ErrMalformedFrame},
		{"join without peer", map[string]any{"t": "join"}, ErrMalformedFrame},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseFrame(tt.fields); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeGarbage(t *testing.T) {
	for _, codec := range []Codec{JSONCodec{}, MsgpackCodec{}} {
		for _, b := range [][]byte{nil, []byte("{"), {0xc1}} {
			if _, err := DecodeEnvelope(codec, b); !errors.Is(err, ErrMalformedFrame) {
				t.Errorf("%s %q: err = %v", codec.Name(), b, err)
			}
		}
	}
}

func TestParsePaintDefaults(t *testing.T) {
	env, err := ParseFrame(map[string]any{"t": "paint", "from": "p1", "m": "smudge"})
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	p := env.Msg.(Paint)
	if p.Mode != PaintDraw || p.X != 0 || p.Z != 0 || p.SessionID != "p1" {
		t.Errorf("got %+v", p)
	}
}

func TestCodecByName(t *testing.T) {
	for _, name := range []string{"", "json", "msgpack"} {
		if _, err := CodecByName(name); err != nil {
			t.Errorf("%q: %v", name, err)
		}
	}
	if _, err := CodecByName("xml"); !errors.Is(err, ErrUnknownCodec) {
		t.Errorf("xml: err = %v", err)
	}
}
