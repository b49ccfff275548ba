package globe

import "math"

const (
	ProjectionOrthographic    = "orthographic"
	ProjectionEquirectangular = "equirectangular"
	ProjectionMercator        = "mercator"
)

const degToRad = math.Pi / 180

// mercator breaks down near the poles; points beyond this latitude are
// reported as not visible.
const mercatorLatLimit = 85.05113

func wrapLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}

// NewProjector builds the projector for a viewport. Unknown projection names
// fall back to orthographic.
func NewProjector(v Viewport) Projector {
	v = v.Normalize()
	switch v.Projection {
	case ProjectionEquirectangular:
		return &Equirectangular{viewport: v}
	case ProjectionMercator:
		return &Mercator{viewport: v}
	default:
		return newOrthographic(v)
	}
}

// Orthographic projects onto a globe seen from infinity, clipping the back
// hemisphere.
type Orthographic struct {
	radius  float64
	cx, cy  float64
	sinLat0 float64
	cosLat0 float64
	lon0    float64
}

func newOrthographic(v Viewport) *Orthographic {
	lat0 := v.CenterLat * degToRad
	return &Orthographic{
		radius:  math.Min(v.Width, v.Height)/2 - 10,
		cx:      v.Width / 2,
		cy:      v.Height / 2,
		sinLat0: math.Sin(lat0),
		cosLat0: math.Cos(lat0),
		lon0:    v.CenterLon,
	}
}

// Radius returns the sphere radius in pixels, for drawing the outline.
func (p *Orthographic) Radius() float64 { return p.radius }

func (p *Orthographic) Project(lon, lat float64) (float64, float64, bool) {
	dl := wrapLon(lon-p.lon0) * degToRad
	phi := lat * degToRad
	sinPhi, cosPhi := math.Sin(phi), math.Cos(phi)
	// Angular distance from the view center; negative cosine means the point
	// is on the far hemisphere.
	cosC := p.sinLat0*sinPhi + p.cosLat0*cosPhi*math.Cos(dl)
	if cosC < 0 {
		return 0, 0, false
	}
	x := p.cx + p.radius*cosPhi*math.Sin(dl)
	y := p.cy - p.radius*(p.cosLat0*sinPhi-p.sinLat0*cosPhi*math.Cos(dl))
	return x, y, true
}

// Equirectangular is the trivial plate carree projection; every point is
// always visible.
type Equirectangular struct {
	viewport Viewport
}

func (p *Equirectangular) Project(lon, lat float64) (float64, float64, bool) {
	v := p.viewport
	x := v.Width/2 + wrapLon(lon-v.CenterLon)/360*v.Width
	y := v.Height/2 - lat/180*v.Height
	return x, y, true
}

// Mercator is the standard web-mercator projection scaled to the viewport.
type Mercator struct {
	viewport Viewport
}

func (p *Mercator) Project(lon, lat float64) (float64, float64, bool) {
	if lat > mercatorLatLimit || lat < -mercatorLatLimit {
		return 0, 0, false
	}
	v := p.viewport
	sin := math.Sin(lat * degToRad)
	nx := (wrapLon(lon-p.viewport.CenterLon) + 180) / 360
	ny := 0.5 - 0.25*math.Log((1+sin)/(1-sin))/math.Pi
	return nx * v.Width, ny * v.Height, true
}
