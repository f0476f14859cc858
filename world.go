package ballroom

import "github.com/go-gl/mathgl/mgl32"

// Platform is an axis-aligned box the ball can land on.
type Platform struct {
	Center      mgl32.Vec3
	HalfExtents mgl32.Vec3
}

func (p Platform) Top() float32 {
	return p.Center.Y() + p.HalfExtents.Y()
}

// Overlaps reports whether a circle of the given radius centred at (x, z)
// overlaps the platform's horizontal extents.
func (p Platform) Overlaps(x, z, radius float32) bool {
	return mgl32.Abs(x-p.Center.X()) <= p.HalfExtents.X()+radius &&
		mgl32.Abs(z-p.Center.Z()) <= p.HalfExtents.Z()+radius
}

// World is the static geometry: a floor at y=0 bounded by walls at
// ±HalfExtent, plus a few platforms. It never changes during a session.
type World struct {
	HalfExtent float32
	Platforms  []Platform
}

func DefaultWorld() *World {
	return &World{
		HalfExtent: ArenaHalfExtent,
		Platforms: []Platform{
			{Center: mgl32.Vec3{-3.5, 0.3, -3}, HalfExtents: mgl32.Vec3{1.2, 0.3, 1.2}},
			{Center: mgl32.Vec3{3.2, 0.6, 2.5}, HalfExtents: mgl32.Vec3{1.0, 0.6, 1.5}},
			{Center: mgl32.Vec3{0, 0.2, 4.6}, HalfExtents: mgl32.Vec3{2.0, 0.2, 0.8}},
		},
	}
}

// InBounds reports whether the point lies on the floor plane.
func (w *World) InBounds(x, z float32) bool {
	return x >= -w.HalfExtent && x <= w.HalfExtent && z >= -w.HalfExtent && z <= w.HalfExtent
}

// WallLimit is the largest |x| or |z| a ball of the given radius may reach.
func (w *World) WallLimit(radius float32) float32 {
	return w.HalfExtent - radius
}
