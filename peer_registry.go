package ballroom

import (
	"sort"
	"time"

	"github.com/EngoEngine/ecs"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"
)

type LeaveReason string

const (
	LeaveExplicit LeaveReason = "left"
	LeaveStale    LeaveReason = "stale"
	LeaveOffline  LeaveReason = "offline"
)

// PeerRegistry tracks remote entities keyed by transport peer id. It is owned
// by the simulation goroutine and is not safe for concurrent use.
type PeerRegistry struct {
	SelfID string
	Tuning Tuning

	OnJoin   func(e *RemoteEntity)
	OnRename func(e *RemoteEntity, old string)
	OnLeave  func(e *RemoteEntity, reason LeaveReason)

	peers map[string]*RemoteEntity
	log   *logrus.Entry
}

func NewPeerRegistry(selfID string, t Tuning) *PeerRegistry {
	return &PeerRegistry{
		SelfID: selfID,
		Tuning: t,
		peers:  map[string]*RemoteEntity{},
		log:    log.WithField("session", selfID),
	}
}

func (r *PeerRegistry) Len() int { return len(r.peers) }

func (r *PeerRegistry) Get(peerID string) (*RemoteEntity, bool) {
	e, ok := r.peers[peerID]
	return e, ok
}

// Peers returns the tracked entities ordered by peer id.
func (r *PeerRegistry) Peers() []*RemoteEntity {
	out := make([]*RemoteEntity, 0, len(r.peers))
	for _, id := range r.ids() {
		out = append(out, r.peers[id])
	}
	return out
}

func (r *PeerRegistry) ids() []string {
	ids := make([]string, 0, len(r.peers))
	for id := range r.peers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Apply records a snapshot from peerID, creating the entity on first sight.
// A snapshot stamped older than the newest stamped one only refreshes
// liveness. Unstamped snapshots always apply and are aged from receipt. The
// returned bool reports whether the entity was created.
func (r *PeerRegistry) Apply(peerID string, s Snapshot, now time.Time) (*RemoteEntity, bool) {
	if s.SessionID != "" && s.SessionID == r.SelfID {
		return nil, false
	}
	if peerID == "" {
		peerID = s.SessionID
	}
	if peerID == "" {
		return nil, false
	}

	ts := now.UnixMilli()
	if s.Has(FieldTS) {
		ts = s.Timestamp
	}

	e, ok := r.peers[peerID]
	if !ok {
		e = r.create(peerID, s, ts, now)
		if r.OnJoin != nil {
			r.OnJoin(e)
		}
		return e, true
	}

	e.LastSeen = now
	if s.Has(FieldTS) && ts < e.OrderTS {
		r.log.WithField("peer", peerID).Debugf("Dropping out-of-order snapshot %d < %d", ts, e.OrderTS)
		return e, false
	}
	r.fill(e, s, ts)

	if s.Has(FieldName) {
		name := SanitizeName(s.Name, DefaultName(e.SessionID))
		if name != e.Name {
			old := e.Name
			e.Name = name
			if r.OnRename != nil {
				r.OnRename(e, old)
			}
		}
	}
	return e, false
}

func (r *PeerRegistry) create(peerID string, s Snapshot, ts int64, now time.Time) *RemoteEntity {
	sessionID := s.SessionID
	if sessionID == "" {
		sessionID = peerID
	}
	e := &RemoteEntity{
		BasicEntity: ecs.NewBasic(),
		PeerID:      peerID,
		SessionID:   sessionID,
		Name:        SanitizeName(s.Name, DefaultName(sessionID)),
		Color:       ColorFromID(sessionID),
		SnapshotPos: mgl32.Vec3{0, r.Tuning.Radius, 0},
		SnapshotRot: mgl32.QuatIdent(),
		LastSeen:    now,
	}
	r.fill(e, s, ts)
	e.DisplayPos = e.SnapshotPos
	e.DisplayRot = e.SnapshotRot
	r.peers[peerID] = e
	r.log.WithFields(logrus.Fields{"peer": peerID, "name": e.Name}).Info("Peer joined")
	return e
}

// fill copies the snapshot into e. Absent position axes keep their previous
// value, absent velocity is zero, absent rotation components are identity.
func (r *PeerRegistry) fill(e *RemoteEntity, s Snapshot, ts int64) {
	for i, f := range [3]SnapshotField{FieldPX, FieldPY, FieldPZ} {
		if s.Has(f) {
			e.SnapshotPos[i] = s.Position[i]
		}
	}
	for i, f := range [3]SnapshotField{FieldVX, FieldVY, FieldVZ} {
		if s.Has(f) {
			e.SnapshotVel[i] = s.Velocity[i]
		} else {
			e.SnapshotVel[i] = 0
		}
	}
	e.SnapshotRot = normalizeQuat(s.Orientation)
	e.SnapshotTS = ts
	if s.Has(FieldTS) {
		e.OrderTS = ts
	}
}

// Evict removes a peer immediately. Unknown peers are ignored.
func (r *PeerRegistry) Evict(peerID string, reason LeaveReason) bool {
	e, ok := r.peers[peerID]
	if !ok {
		return false
	}
	delete(r.peers, peerID)
	r.log.WithFields(logrus.Fields{"peer": peerID, "reason": reason}).Info("Peer left")
	if r.OnLeave != nil {
		r.OnLeave(e, reason)
	}
	return true
}

// Sweep evicts every peer not seen for longer than the staleness timeout.
func (r *PeerRegistry) Sweep(now time.Time) []string {
	var evicted []string
	for _, id := range r.ids() {
		if now.Sub(r.peers[id].LastSeen) > r.Tuning.StaleTimeout {
			r.Evict(id, LeaveStale)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

// Clear evicts everyone, e.g. when the session goes offline.
func (r *PeerRegistry) Clear(reason LeaveReason) {
	for _, id := range r.ids() {
		r.Evict(id, reason)
	}
}
