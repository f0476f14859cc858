package ballroom

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RelayServer fans frames out between the peers of a room. It stamps the
// sender's transport id, honours an optional recipient, and re-encodes for
// each recipient's codec. Peers cannot forge join, leave or welcome.
type RelayServer struct {
	Upgrader websocket.Upgrader

	// RateLimit and Burst bound inbound frames per connection.
	RateLimit rate.Limit
	Burst     int

	mu    sync.Mutex
	rooms map[string]map[string]*relayPeer
	log   *logrus.Entry
}

type relayPeer struct {
	id      string
	room    string
	codec   Codec
	conn    *websocket.Conn
	out     chan []byte
	done    chan struct{}
	limiter *rate.Limiter
}

// RoomInfo summarizes one room for the status endpoint.
type RoomInfo struct {
	Room  string   `json:"room"`
	Peers []string `json:"peers"`
}

func NewRelayServer() *RelayServer {
	return &RelayServer{
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		RateLimit: 100,
		Burst:     200,
		rooms:     map[string]map[string]*relayPeer{},
		log:       log.WithField("worker", "relay"),
	}
}

// Handler serves the websocket endpoint on /ws and a room listing on /rooms.
func (rs *RelayServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", rs)
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rs.Rooms())
	})
	return mux
}

func (rs *RelayServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	codec, err := CodecByName(r.URL.Query().Get("codec"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	conn, err := rs.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		rs.log.WithError(err).Warn("Upgrade failed")
		return
	}

	p := &relayPeer{
		id:      uuid.NewV4().String(),
		room:    SanitizeRoom(r.URL.Query().Get("room")),
		codec:   codec,
		conn:    conn,
		out:     make(chan []byte, outboundFrames),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rs.RateLimit, rs.Burst),
	}
	rs.join(p)
	go rs.writeLoop(p)
	rs.readLoop(p)
	rs.leave(p)
}

func (rs *RelayServer) join(p *relayPeer) {
	rs.mu.Lock()
	members := rs.rooms[p.room]
	if members == nil {
		members = map[string]*relayPeer{}
		rs.rooms[p.room] = members
	}
	existing := sortedPeers(members)
	members[p.id] = p
	rs.mu.Unlock()

	rs.log.WithFields(logrus.Fields{"peer": p.id, "room": p.room, "codec": p.codec.Name()}).Info("Peer connected")
	rs.sendControl(p, Welcome{Peer: p.id})
	for _, other := range existing {
		rs.sendControl(p, PeerJoin{Peer: other.id})
		rs.sendControl(other, PeerJoin{Peer: p.id})
	}
}

func (rs *RelayServer) leave(p *relayPeer) {
	rs.mu.Lock()
	members := rs.rooms[p.room]
	delete(members, p.id)
	if len(members) == 0 {
		delete(rs.rooms, p.room)
	}
	rest := sortedPeers(members)
	rs.mu.Unlock()

	close(p.done)
	p.conn.Close()
	rs.log.WithFields(logrus.Fields{"peer": p.id, "room": p.room}).Info("Peer disconnected")
	for _, other := range rest {
		rs.sendControl(other, PeerLeave{Peer: p.id})
	}
}

func sortedPeers(m map[string]*relayPeer) []*relayPeer {
	out := make([]*relayPeer, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Rooms lists the occupied rooms and their peers.
func (rs *RelayServer) Rooms() []RoomInfo {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]RoomInfo, 0, len(rs.rooms))
	for name, members := range rs.rooms {
		info := RoomInfo{Room: name}
		for _, p := range sortedPeers(members) {
			info.Peers = append(info.Peers, p.id)
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Room < out[j].Room })
	return out
}

func (rs *RelayServer) sendControl(p *relayPeer, m Message) {
	b, err := EncodeEnvelope(p.codec, Envelope{Msg: m})
	if err != nil {
		rs.log.WithError(err).Warn("Unable to encode control message")
		return
	}
	p.enqueue(b)
}

func (p *relayPeer) enqueue(b []byte) {
	select {
	case p.out <- b:
	default:
		log.WithField("peer", p.id).Debug("Outbound queue full, dropping frame")
	}
}

func (rs *RelayServer) readLoop(p *relayPeer) {
	p.conn.SetReadLimit(maxFrameSize)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				rs.log.WithError(err).WithField("peer", p.id).Debug("Read failed")
			}
			return
		}
		p.conn.SetReadDeadline(time.Now().Add(pongWait))
		if !p.limiter.Allow() {
			continue
		}
		rs.route(p, data)
	}
}

func (rs *RelayServer) route(from *relayPeer, data []byte) {
	fields, err := from.codec.Unmarshal(data)
	if err != nil {
		rs.log.WithError(err).WithField("peer", from.id).Debug("Dropping undecodable frame")
		return
	}
	switch kind, _ := stringField(fields, "t"); MsgKind(kind) {
	case MsgJoin, MsgLeave, MsgWelcome, "":
		return
	}
	to, _ := stringField(fields, "to")
	delete(fields, "to")
	fields["from"] = from.id

	rs.mu.Lock()
	var targets []*relayPeer
	for id, p := range rs.rooms[from.room] {
		if id == from.id || (to != "" && id != to) {
			continue
		}
		targets = append(targets, p)
	}
	rs.mu.Unlock()

	encoded := map[string][]byte{}
	for _, p := range targets {
		b, ok := encoded[p.codec.Name()]
		if !ok {
			if b, err = p.codec.Marshal(fields); err != nil {
				rs.log.WithError(err).Warn("Unable to re-encode frame")
				return
			}
			encoded[p.codec.Name()] = b
		}
		p.enqueue(b)
	}
}

func (rs *RelayServer) writeLoop(p *relayPeer) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	frame := websocket.TextMessage
	if p.codec.Binary() {
		frame = websocket.BinaryMessage
	}
	for {
		select {
		case b := <-p.out:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(frame, b); err != nil {
				p.conn.Close()
				return
			}
		case <-ping.C:
			if err := p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				p.conn.Close()
				return
			}
		case <-p.done:
			return
		}
	}
}
