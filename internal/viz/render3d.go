package viz

import "math"

const (
	minDistance = 1.8
	maxDistance = 12.0
)

// Camera orbits the unit volume [-1, 1]^3. The eye sits at Distance on the
// view-space +Z axis looking at the origin.
type Camera struct {
	RotX, RotY float64
	Distance   float64
	FOV        float64
}

func NewCamera() *Camera {
	return &Camera{RotX: 0.35, RotY: -0.6, Distance: 4, FOV: math.Pi / 4}
}

func (c *Camera) focal() float64 { return 1 / math.Tan(c.FOV/2) }

// Rotate turns the view by the given angles in radians.
func (c *Camera) Rotate(dx, dy float64) {
	c.RotY += dx
	c.RotX = math.Max(-math.Pi/2, math.Min(math.Pi/2, c.RotX+dy))
}

// Dolly scales the eye distance by e^amount.
func (c *Camera) Dolly(amount float64) {
	c.Distance = math.Max(minDistance, math.Min(maxDistance, c.Distance*math.Exp(amount)))
}

// Project converts world coordinates to pixel coordinates on a w x h image.
// It returns x, y, view depth and whether the point is in front of the eye.
func (c *Camera) Project(p Vec3, w, h int) (int, int, float64, bool) {
	v := rotateXY(p, c.RotX, c.RotY)
	d := c.Distance - v.Z
	if d <= 1e-6 {
		return 0, 0, 0, false
	}
	s := float64(min(w, h)) / 2
	k := c.focal() / d * s
	return int(float64(w)/2 + v.X*k), int(float64(h)/2 - v.Y*k), d, true
}

// Ray returns the world-space eye position and unit direction through the
// centre of pixel (px, py).
func (c *Camera) Ray(px, py, w, h int) (Vec3, Vec3) {
	s := float64(min(w, h)) / 2
	dir := Vec3{
		X: (float64(px) + 0.5 - float64(w)/2) / s,
		Y: -(float64(py) + 0.5 - float64(h)/2) / s,
		Z: -c.focal(),
	}
	eye := unrotateXY(Vec3{0, 0, c.Distance}, c.RotX, c.RotY)
	return eye, unrotateXY(dir, c.RotX, c.RotY).Normalize()
}

// boxHit intersects a ray with [-1, 1]^3 and returns the entry and exit
// parameters.
func boxHit(o, d Vec3) (float64, float64, bool) {
	tmin, tmax := math.Inf(-1), math.Inf(1)
	for _, ax := range [3][2]float64{{o.X, d.X}, {o.Y, d.Y}, {o.Z, d.Z}} {
		if ax[1] == 0 {
			if ax[0] < -1 || ax[0] > 1 {
				return 0, 0, false
			}
			continue
		}
		t1, t2 := (-1-ax[0])/ax[1], (1-ax[0])/ax[1]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin, tmax = math.Max(tmin, t1), math.Min(tmax, t2)
	}
	if tmax < math.Max(tmin, 0) {
		return 0, 0, false
	}
	return math.Max(tmin, 0), tmax, true
}

type Edge struct {
	Start, End Vec3
}

type Wireframe struct{ Edges []Edge }

func (w *Wireframe) AddEdge(s, e Vec3) { w.Edges = append(w.Edges, Edge{s, e}) }

func CreateCubeWireframe() *Wireframe {
	w := &Wireframe{}
	v := []Vec3{{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1}, {-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1}}
	ei := [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}, {4, 5}, {5, 6}, {6, 7}, {7, 4}, {0, 4}, {1, 5}, {2, 6}, {3, 7}}
	for _, e := range ei {
		w.AddEdge(v[e[0]], v[e[1]])
	}
	return w
}

// CreateSliceWireframe outlines the z = z0 plane of the volume.
func CreateSliceWireframe(z0 float64) *Wireframe {
	w := &Wireframe{}
	v := []Vec3{{-1, -1, z0}, {1, -1, z0}, {1, 1, z0}, {-1, 1, z0}}
	for i := range v {
		w.AddEdge(v[i], v[(i+1)%len(v)])
	}
	return w
}
