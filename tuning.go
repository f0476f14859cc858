package ballroom

import "time"

const (
	BallRadius          = 0.45
	ArenaHalfExtent     = 7.0
	MaxFrameDt          = 1.0 / 30.0
	Accel               = 18.0
	MaxSpeed            = 7.5
	Damping             = 4.8
	Gravity             = -24.0
	JumpSpeed           = 9.0
	WallBounce          = 0.6
	FloorBounce         = 0.0 // 0.45 gives the old bouncy floor
	FloorBounceMinSpeed = 0.2
	PlatformEpsilon     = 0.05
	MinRollSpeedSq      = 1e-6

	StatePeriod      = 1.0 / 20.0
	PaintPeriod      = 1.0 / 20.0
	HelloPeriod      = 2.0
	AgeCap           = 0.35
	PositionGain     = 18.0
	OrientationGain  = 14.0
	StaleTimeout     = 30 * time.Second
	InboxSize        = 256
	MaxNameLength    = 18
	MaxRoomLength    = 24
	SessionIDLength  = 6
	CanvasResolution = 1024
	BrushRadiusPx    = 14.0
)

// Tuning holds the policy values of the physics step and the reconciliation
// protocol. None of them are physical law; they are all overridable.
type Tuning struct {
	Radius              float32
	MaxDt               float32
	Accel               float32
	MaxSpeed            float32
	Damping             float32
	Gravity             float32
	JumpSpeed           float32
	WallBounce          float32
	FloorBounce         float32
	FloorBounceMinSpeed float32
	PlatformEpsilon     float32

	StatePeriod     float32
	PaintPeriod     float32
	HelloPeriod     float32
	AgeCap          float32
	PositionGain    float32
	OrientationGain float32
	StaleTimeout    time.Duration
}

func DefaultTuning() Tuning {
	return Tuning{
		Radius:              BallRadius,
		MaxDt:               MaxFrameDt,
		Accel:               Accel,
		MaxSpeed:            MaxSpeed,
		Damping:             Damping,
		Gravity:             Gravity,
		JumpSpeed:           JumpSpeed,
		WallBounce:          WallBounce,
		FloorBounce:         FloorBounce,
		FloorBounceMinSpeed: FloorBounceMinSpeed,
		PlatformEpsilon:     PlatformEpsilon,
		StatePeriod:         StatePeriod,
		PaintPeriod:         PaintPeriod,
		HelloPeriod:         HelloPeriod,
		AgeCap:              AgeCap,
		PositionGain:        PositionGain,
		OrientationGain:     OrientationGain,
		StaleTimeout:        StaleTimeout,
	}
}
