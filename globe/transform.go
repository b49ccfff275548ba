package globe

// Projector maps a lon/lat pair (degrees) to screen coordinates under the
// active map projection. ok=false means the point is not visible this frame
// (rotated past the horizon or outside the projection's domain); it is the
// documented skip signal, never an error. Implementations must be pure so
// they can be called many times per frame.
type Projector interface {
	Project(lon, lat float64) (x, y float64, ok bool)
}

// Viewport is the externally driven view state: zoom scale (>= 1), the
// drawing surface size in pixels, the rotation center and the active
// projection name.
type Viewport struct {
	Scale      float64 `json:"scale"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	CenterLon  float64 `json:"centerLon"`
	CenterLat  float64 `json:"centerLat"`
	Projection string  `json:"projection"`
}

// Normalize clamps the viewport into its valid domain. The application never
// zooms out below native scale.
func (v Viewport) Normalize() Viewport {
	if v.Scale < 1 {
		v.Scale = 1
	}
	if v.Width <= 0 {
		v.Width = 960
	}
	if v.Height <= 0 {
		v.Height = 600
	}
	if v.Projection == "" {
		v.Projection = ProjectionOrthographic
	}
	v.CenterLon = wrapLon(v.CenterLon)
	if v.CenterLat > 90 {
		v.CenterLat = 90
	}
	if v.CenterLat < -90 {
		v.CenterLat = -90
	}
	return v
}

// ScreenPosition composes the projection with the entity's unfold offset.
// The offset is defined in fixed screen pixels, so it is divided by the zoom
// scale to cancel the magnification the surrounding transform applies: the
// cloud spread stays visually constant as the user zooms. ok=false mirrors
// the projector's skip signal.
func ScreenPosition(e *GeoEntity, p Projector, zoomScale float64) (x, y float64, ok bool) {
	px, py, ok := p.Project(e.Lon, e.Lat)
	if !ok {
		return 0, 0, false
	}
	return px + e.OffsetX/zoomScale, py + e.OffsetY/zoomScale, true
}

// MarkerSize returns the marker radius and stroke width after inverse-scale
// compensation, so apparent size stays constant in physical screen pixels.
// sizeBoost is the per-entity additive override for a highlighted entity.
func MarkerSize(opts LayoutOptions, sizeBoost, zoomScale float64) (radius, stroke float64) {
	return (opts.BaseMarkerRadiusPx + sizeBoost) / zoomScale, opts.StrokeWidthPx / zoomScale
}

// RenderCommand is what the rendering collaborator consumes for one entity
// in one frame. Invisible commands carry no meaningful position and must be
// skipped by the renderer.
type RenderCommand struct {
	ID             string  `json:"id"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Radius         float64 `json:"radius"`
	StrokeWidth    float64 `json:"strokeWidth"`
	Classification string  `json:"classification"`
	Visible        bool    `json:"visible"`
	Highlighted    bool    `json:"highlighted"`
}
