package ballroom

import (
	"image/color"
	"math"
	"time"

	"github.com/EngoEngine/ecs"
	"github.com/go-gl/mathgl/mgl32"
)

// RemoteEntity is our view of another participant's ball: the last snapshot
// it sent and the smoothed transform we display for it.
type RemoteEntity struct {
	ecs.BasicEntity

	PeerID    string
	SessionID string
	Name      string
	Color     color.RGBA

	SnapshotPos mgl32.Vec3
	SnapshotVel mgl32.Vec3
	SnapshotRot mgl32.Quat
	SnapshotTS  int64
	LastSeen    time.Time

	// OrderTS is the newest sender timestamp applied. Snapshots without a
	// timestamp leave it alone.
	OrderTS int64

	DisplayPos mgl32.Vec3
	DisplayRot mgl32.Quat

	// LastAge is the extrapolation age used by the latest Predict call.
	LastAge float32
}

// Predict dead-reckons the snapshot position forward to nowMs along the
// reported velocity, trusting at most ageCap seconds of extrapolation.
func (e *RemoteEntity) Predict(nowMs int64, ageCap float32) mgl32.Vec3 {
	age := mgl32.Clamp(float32(nowMs-e.SnapshotTS)/1000, 0, ageCap)
	e.LastAge = age
	return e.SnapshotPos.Add(e.SnapshotVel.Mul(age))
}

// Reconcile moves the displayed transform toward the prediction. The blend
// factors are frame-rate independent.
func (e *RemoteEntity) Reconcile(nowMs int64, dt float32, t Tuning) {
	predicted := e.Predict(nowMs, t.AgeCap)
	e.DisplayPos = lerpVec3(e.DisplayPos, predicted, SmoothFactor(t.PositionGain, dt))
	e.DisplayRot = slerpShortest(e.DisplayRot, e.SnapshotRot, SmoothFactor(t.OrientationGain, dt))
}

// SmoothFactor is 1-exp(-gain*dt).
func SmoothFactor(gain, dt float32) float32 {
	if dt <= 0 {
		return 0
	}
	return 1 - float32(math.Exp(float64(-gain*dt)))
}

func lerpVec3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

func slerpShortest(a, b mgl32.Quat, t float32) mgl32.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return normalizeQuat(mgl32.QuatSlerp(a, b, t))
}
