package globe

import (
	"fmt"
	"time"
)

// FolderGroup is one bookmark folder and the domains it references, for the
// side-panel listing.
type FolderGroup struct {
	Path    string   `json:"path"`
	Domains []string `json:"domains"`
	Count   int      `json:"count"`
}

// Dataset is one full load of the source tables. A new load replaces the
// previous dataset wholesale; offsets are never patched incrementally.
type Dataset struct {
	Name     string
	Entities []*GeoEntity
	Folders  []FolderGroup
}

// PopupAnchor is the screen anchor of the open detail popup, recomputed every
// frame from its entity's current position.
type PopupAnchor struct {
	ID  string  `json:"id"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	URL string  `json:"url"`
}

// FrameResult is the full output of one orchestrator pass.
type FrameResult struct {
	Viewport Viewport        `json:"viewport"`
	Commands []RenderCommand `json:"commands"`
	Popup    *PopupAnchor    `json:"popup,omitempty"`
	Spinning bool            `json:"spinning"`
}

// Engine owns the entity set and the view/interaction state and sequences
// recomputation. All methods are synchronous and run to completion; the
// caller serializes access (there is no parallelism inside a pass, layout
// and transform read the state the engine owns exclusively).
type Engine struct {
	opts     LayoutOptions
	viewport Viewport

	dataset *Dataset
	byID    map[string]*GeoEntity

	spinning   bool
	resumeSpin bool
	dragging   bool
	hoverID    string
	popupID    string
}

// NewEngine creates an engine with normalized options and an empty dataset.
func NewEngine(opts LayoutOptions) *Engine {
	return &Engine{
		opts:     opts.Normalize(),
		viewport: Viewport{Scale: 1}.Normalize(),
		dataset:  &Dataset{},
		byID:     map[string]*GeoEntity{},
	}
}

// Options returns the normalized layout options.
func (en *Engine) Options() LayoutOptions { return en.opts }

// Dataset returns the active dataset.
func (en *Engine) Dataset() *Dataset { return en.dataset }

// Viewport returns the current view state.
func (en *Engine) Viewport() Viewport { return en.viewport }

// SetDataset replaces the entity set. All previously computed offsets become
// invalid; the next frame recomputes layout from scratch. An open popup or
// hover pointing at a vanished entity is dropped.
func (en *Engine) SetDataset(d *Dataset) {
	if d == nil {
		d = &Dataset{}
	}
	en.dataset = d
	en.byID = make(map[string]*GeoEntity, len(d.Entities))
	for _, e := range d.Entities {
		en.byID[e.ID] = e
	}
	if _, ok := en.byID[en.popupID]; !ok {
		en.popupID = ""
	}
	if _, ok := en.byID[en.hoverID]; !ok {
		en.hoverID = ""
	}
}

// SetViewport replaces the view state (clamped into its valid domain).
func (en *Engine) SetViewport(v Viewport) {
	en.viewport = v.Normalize()
}

// SetZoom changes the zoom scale only.
func (en *Engine) SetZoom(scale float64) {
	en.viewport.Scale = scale
	en.viewport = en.viewport.Normalize()
}

// SetProjection switches the active projection.
func (en *Engine) SetProjection(name string) {
	en.viewport.Projection = name
	en.viewport = en.viewport.Normalize()
}

// StartSpin enables the auto-rotation loop.
func (en *Engine) StartSpin() {
	en.spinning = true
	en.resumeSpin = false
}

// StopSpin disables auto-rotation and forgets any pending resume.
func (en *Engine) StopSpin() {
	en.spinning = false
	en.resumeSpin = false
}

// Spinning reports whether auto-rotation is active.
func (en *Engine) Spinning() bool { return en.spinning }

// StartDrag begins a manual rotation gesture. Dragging and auto-rotation are
// mutually exclusive: an in-flight spin is cancelled and remembered for
// resume.
func (en *Engine) StartDrag() {
	en.dragging = true
	if en.spinning {
		en.spinning = false
		en.resumeSpin = true
	}
}

// Drag rotates the view center while a drag is in progress.
func (en *Engine) Drag(dLon, dLat float64) {
	if !en.dragging {
		return
	}
	en.viewport.CenterLon = wrapLon(en.viewport.CenterLon + dLon)
	en.viewport.CenterLat += dLat
	en.viewport = en.viewport.Normalize()
}

// EndDrag finishes the gesture. Auto-rotation resumes only if it was active
// before the drag began and no popup or hover is blocking it; a blocked
// resume stays pending until the blocker clears.
func (en *Engine) EndDrag() {
	en.dragging = false
	en.maybeResumeSpin()
}

// SetHover marks an entity as hovered (empty id clears it). An active hover
// blocks spin resume.
func (en *Engine) SetHover(id string) {
	if id != "" {
		if _, ok := en.byID[id]; !ok {
			return
		}
	}
	en.hoverID = id
	if id == "" {
		en.maybeResumeSpin()
	}
}

// OpenPopup anchors the detail popup to an entity. An open popup pauses
// auto-rotation the same way a drag does.
func (en *Engine) OpenPopup(id string) error {
	if _, ok := en.byID[id]; !ok {
		return fmt.Errorf("unknown entity %q", id)
	}
	en.popupID = id
	if en.spinning {
		en.spinning = false
		en.resumeSpin = true
	}
	return nil
}

// ClosePopup dismisses the popup and lets a pending spin resume.
func (en *Engine) ClosePopup() {
	en.popupID = ""
	en.maybeResumeSpin()
}

// PopupID returns the id of the popup's entity, or "".
func (en *Engine) PopupID() string { return en.popupID }

func (en *Engine) maybeResumeSpin() {
	if en.resumeSpin && !en.dragging && en.popupID == "" && en.hoverID == "" {
		en.spinning = true
		en.resumeSpin = false
	}
}

// Tick advances the auto-rotation by the elapsed wall time.
func (en *Engine) Tick(dt time.Duration) {
	if !en.spinning || en.dragging {
		return
	}
	en.viewport.CenterLon = wrapLon(en.viewport.CenterLon + en.opts.SpinDegPerSec*dt.Seconds())
}

// Frame runs one full orchestrator pass: regroup and re-layout the entity
// set for the current zoom, then transform every entity and refresh the
// popup anchor. Layout always completes before any transform is applied, so
// the renderer never observes torn state. Frame is idempotent: with
// unchanged inputs it returns identical output.
func (en *Engine) Frame() *FrameResult {
	v := en.viewport
	proj := NewProjector(v)

	grouping := GroupByCoordinate(en.dataset.Entities)
	Unfold(grouping, v.Scale, en.opts)

	commands := make([]RenderCommand, 0, len(en.dataset.Entities))
	for _, e := range en.dataset.Entities {
		x, y, ok := ScreenPosition(e, proj, v.Scale)
		highlighted := e.ID == en.hoverID || e.ID == en.popupID
		boost := 0.0
		if highlighted {
			boost = en.opts.HighlightBoostPx
		}
		radius, stroke := MarkerSize(en.opts, boost, v.Scale)
		commands = append(commands, RenderCommand{
			ID:             e.ID,
			X:              x,
			Y:              y,
			Radius:         radius,
			StrokeWidth:    stroke,
			Classification: e.Classification.String(),
			Visible:        ok,
			Highlighted:    highlighted,
		})
	}

	var popup *PopupAnchor
	if en.popupID != "" {
		e := en.byID[en.popupID]
		if x, y, ok := ScreenPosition(e, proj, v.Scale); ok {
			popup = &PopupAnchor{ID: e.ID, X: x, Y: y, URL: "https://" + e.ID}
		} else {
			// The anchor rotated out of view; never draw a popup at a stale
			// position.
			en.popupID = ""
			en.maybeResumeSpin()
		}
	}

	return &FrameResult{
		Viewport: v,
		Commands: commands,
		Popup:    popup,
		Spinning: en.spinning,
	}
}
