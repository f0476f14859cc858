package ballroom

import (
	"github.com/go-gl/mathgl/mgl32"
)

// LocalBody is the ball owned by this participant. It lives for the whole
// session and is only ever mutated by Integrate.
type LocalBody struct {
	Position    mgl32.Vec3
	Velocity    mgl32.Vec3
	Orientation mgl32.Quat
	Grounded    bool
}

func NewLocalBody(t Tuning) LocalBody {
	return LocalBody{
		Position:    mgl32.Vec3{0, t.Radius, 0},
		Orientation: mgl32.QuatIdent(),
		Grounded:    true,
	}
}

// StepInput is the per-tick control input. Dir is the normalized planar
// direction (x, z); Jump is an edge, true only on the tick the key went down.
type StepInput struct {
	Dir  mgl32.Vec2
	Jump bool
}

// PlanarSpeed is |velocity.xz|.
func (b *LocalBody) PlanarSpeed() float32 {
	return mgl32.Vec2{b.Velocity[0], b.Velocity[2]}.Len()
}

// Integrate advances the body by one semi-implicit Euler step.
func Integrate(b *LocalBody, in StepInput, dt float32, w *World, t Tuning) {
	if dt <= 0 {
		return
	}
	if dt > t.MaxDt {
		dt = t.MaxDt
	}

	b.Velocity[0] += in.Dir[0] * t.Accel * dt
	b.Velocity[2] += in.Dir[1] * t.Accel * dt

	if speed := b.PlanarSpeed(); speed > t.MaxSpeed {
		scale := t.MaxSpeed / speed
		b.Velocity[0] *= scale
		b.Velocity[2] *= scale
	}

	damp := 1 - t.Damping*dt
	if damp < 0 {
		damp = 0
	}
	b.Velocity[0] *= damp
	b.Velocity[2] *= damp

	b.Velocity[1] += t.Gravity * dt

	if in.Jump && b.Grounded {
		b.Velocity[1] = t.JumpSpeed
		b.Grounded = false
	}

	prevY := b.Position.Y()
	b.Position = b.Position.Add(b.Velocity.Mul(dt))

	b.Grounded = false
	landOnFloor(b, t)
	landOnPlatforms(b, prevY, w, t)
	if b.Position[1] < t.Radius {
		b.Position[1] = t.Radius
	}

	b.Position, b.Velocity = clampToWalls(b.Position, b.Velocity, w.WallLimit(t.Radius), t.WallBounce)

	roll(b, dt, t)
}

func landOnFloor(b *LocalBody, t Tuning) {
	if b.Position[1] >= t.Radius {
		return
	}
	b.Position[1] = t.Radius
	if t.FloorBounce > 0 && mgl32.Abs(b.Velocity[1]) > t.FloorBounceMinSpeed {
		b.Velocity[1] = -b.Velocity[1] * t.FloorBounce
	} else {
		b.Velocity[1] = 0
	}
	b.Grounded = true
}

// landOnPlatforms only resolves landings from above. Side and underside hits
// pass straight through.
func landOnPlatforms(b *LocalBody, prevY float32, w *World, t Tuning) {
	if b.Velocity[1] > 0 {
		return
	}
	for _, p := range w.Platforms {
		top := p.Top()
		if prevY-t.Radius < top-t.PlatformEpsilon || b.Position[1]-t.Radius > top {
			continue
		}
		if !p.Overlaps(b.Position[0], b.Position[2], t.Radius) {
			continue
		}
		b.Position[1] = top + t.Radius
		b.Velocity[1] = 0
		b.Grounded = true
		return
	}
}

func clampToWalls(pos mgl32.Vec3, vel mgl32.Vec3, limit, bounce float32) (mgl32.Vec3, mgl32.Vec3) {
	for _, i := range [2]int{0, 2} {
		if pos[i] > limit {
			pos[i] = limit
			vel[i] = -mgl32.Abs(vel[i]) * bounce
		} else if pos[i] < -limit {
			pos[i] = -limit
			vel[i] = mgl32.Abs(vel[i]) * bounce
		}
	}
	return pos, vel
}

// roll turns the ball about the axis perpendicular to its planar motion as if
// it were rolling without slipping.
func roll(b *LocalBody, dt float32, t Tuning) {
	axis := mgl32.Vec3{b.Velocity[2], 0, -b.Velocity[0]}
	if axis.Dot(axis) <= MinRollSpeedSq {
		return
	}
	angle := b.PlanarSpeed() / t.Radius * dt
	b.Orientation = mgl32.QuatRotate(angle, axis.Normalize()).Mul(b.Orientation).Normalize()
}
