package game

import "math"

// Vec3 is a point or direction in world space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) Len() float64 {
	return math.Sqrt(v.Dot(v))
}

func (v Vec3) LenSq() float64 {
	return v.Dot(v)
}

// Normalized returns a unit vector, or the zero vector for near-zero input.
func (v Vec3) Normalized() Vec3 {
	l := v.Len()
	if l < 1e-12 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Basis is an orthonormal orientation frame. Right, Up and Forward are the
// craft's local +X, +Y and +Z axes expressed in world coordinates.
type Basis struct {
	Right   Vec3 `json:"right"`
	Up      Vec3 `json:"up"`
	Forward Vec3 `json:"forward"`
}

// IdentityBasis faces +Z with +Y up.
func IdentityBasis() Basis {
	return Basis{
		Right:   Vec3{1, 0, 0},
		Up:      Vec3{0, 1, 0},
		Forward: Vec3{0, 0, 1},
	}
}

// ToLocal transforms a world-space direction into the frame's local axes.
func (b Basis) ToLocal(v Vec3) Vec3 {
	return Vec3{b.Right.Dot(v), b.Up.Dot(v), b.Forward.Dot(v)}
}

// FromLocal transforms a local-space direction back to world space.
func (b Basis) FromLocal(v Vec3) Vec3 {
	return b.Right.Scale(v.X).Add(b.Up.Scale(v.Y)).Add(b.Forward.Scale(v.Z))
}

// Rotate applies yaw (about Up, positive turns toward Right), pitch (about
// Right, positive raises the nose toward Up) and roll (about Forward) in that
// order, then re-orthonormalizes to keep integration error from accumulating.
func (b Basis) Rotate(yaw, pitch, roll float64) Basis {
	if yaw != 0 {
		sin, cos := math.Sincos(yaw)
		f := b.Forward.Scale(cos).Add(b.Right.Scale(sin))
		r := b.Right.Scale(cos).Sub(b.Forward.Scale(sin))
		b.Forward, b.Right = f, r
	}
	if pitch != 0 {
		sin, cos := math.Sincos(pitch)
		f := b.Forward.Scale(cos).Add(b.Up.Scale(sin))
		u := b.Up.Scale(cos).Sub(b.Forward.Scale(sin))
		b.Forward, b.Up = f, u
	}
	if roll != 0 {
		sin, cos := math.Sincos(roll)
		r := b.Right.Scale(cos).Add(b.Up.Scale(sin))
		u := b.Up.Scale(cos).Sub(b.Right.Scale(sin))
		b.Right, b.Up = r, u
	}
	return b.Orthonormalized()
}

// Orthonormalized rebuilds the frame from Forward using Gram-Schmidt.
func (b Basis) Orthonormalized() Basis {
	f := b.Forward.Normalized()
	if f.LenSq() == 0 {
		return IdentityBasis()
	}
	u := b.Up.Sub(f.Scale(b.Up.Dot(f))).Normalized()
	if u.LenSq() == 0 {
		// Up collapsed onto Forward; pick any perpendicular.
		u = f.Cross(Vec3{1, 0, 0}).Normalized()
		if u.LenSq() == 0 {
			u = f.Cross(Vec3{0, 1, 0}).Normalized()
		}
	}
	r := u.Cross(f)
	return Basis{Right: r, Up: u, Forward: f}
}

// Bearing returns the yaw and pitch angles (radians) from the frame's forward
// axis to the given world-space direction. Positive yaw means the direction
// lies toward Right, positive pitch toward Up.
func (b Basis) Bearing(dir Vec3) (yaw, pitch float64) {
	local := b.ToLocal(dir)
	yaw = math.Atan2(local.X, local.Z)
	pitch = math.Atan2(local.Y, math.Hypot(local.X, local.Z))
	return yaw, pitch
}

// RotateAbout rotates v around the given axis by angle using Rodrigues'
// formula. The axis must be unit length.
func RotateAbout(v, axis Vec3, angle float64) Vec3 {
	sin, cos := math.Sincos(angle)
	return v.Scale(cos).
		Add(axis.Cross(v).Scale(sin)).
		Add(axis.Scale(axis.Dot(v) * (1 - cos)))
}
