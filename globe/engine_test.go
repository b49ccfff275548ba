package globe

import (
	"testing"
	"time"
)

func testDataset() *Dataset {
	return &Dataset{
		Name: "test",
		Entities: []*GeoEntity{
			entityAt("a.example", 51.05, 3.72),
			entityAt("b.example", 51.05, 3.72),
			entityAt("c.example", 51.05, 3.72),
			entityAt("solo.example", -33.86, 151.2),
		},
		Folders: []FolderGroup{
			{Path: "tools", Domains: []string{"a.example"}, Count: 3},
		},
	}
}

func TestFrameIdempotent(t *testing.T) {
	en := NewEngine(LayoutOptions{})
	en.SetDataset(testDataset())
	en.SetViewport(Viewport{Scale: 5, Width: 800, Height: 600, Projection: ProjectionEquirectangular})

	first := en.Frame()
	second := en.Frame()

	if len(first.Commands) != len(second.Commands) {
		t.Fatalf("Expected same command count, got %d and %d", len(first.Commands), len(second.Commands))
	}
	for i := range first.Commands {
		if first.Commands[i] != second.Commands[i] {
			t.Errorf("Command %d differs between identical frames", i)
		}
	}
}

func TestFrameAppliesLayoutBeforeTransform(t *testing.T) {
	en := NewEngine(LayoutOptions{})
	en.SetDataset(testDataset())
	en.SetViewport(Viewport{Scale: 5, Width: 800, Height: 600, Projection: ProjectionEquirectangular})

	frame := en.Frame()
	positions := make(map[[2]float64]bool)
	for _, c := range frame.Commands[:3] {
		if !c.Visible {
			t.Fatalf("Expected coincident entities visible under equirectangular")
		}
		positions[[2]float64{c.X, c.Y}] = true
	}
	if len(positions) != 3 {
		t.Errorf("Expected 3 distinct unfolded positions, got %d", len(positions))
	}
}

func TestFrameCollapsesBelowThreshold(t *testing.T) {
	en := NewEngine(LayoutOptions{})
	en.SetDataset(testDataset())
	en.SetViewport(Viewport{Scale: 2, Width: 800, Height: 600, Projection: ProjectionEquirectangular})

	frame := en.Frame()
	positions := make(map[[2]float64]bool)
	for _, c := range frame.Commands[:3] {
		positions[[2]float64{c.X, c.Y}] = true
	}
	if len(positions) != 1 {
		t.Errorf("Expected coincident entities collapsed to one point, got %d", len(positions))
	}
}

func TestDatasetReplaceInvalidatesOffsets(t *testing.T) {
	en := NewEngine(LayoutOptions{})
	en.SetDataset(testDataset())
	en.SetViewport(Viewport{Scale: 5, Width: 800, Height: 600, Projection: ProjectionEquirectangular})
	en.Frame()

	replacement := &Dataset{Entities: []*GeoEntity{entityAt("a.example", 51.05, 3.72)}}
	en.SetDataset(replacement)
	frame := en.Frame()

	if len(frame.Commands) != 1 {
		t.Fatalf("Expected 1 command after replace, got %d", len(frame.Commands))
	}
	e := replacement.Entities[0]
	if e.OffsetX != 0 || e.OffsetY != 0 {
		t.Errorf("Expected singleton offset reset after replace, got (%f,%f)", e.OffsetX, e.OffsetY)
	}
}

func TestPopupFollowsEntity(t *testing.T) {
	en := NewEngine(LayoutOptions{})
	en.SetDataset(testDataset())
	en.SetViewport(Viewport{Scale: 1, Width: 800, Height: 600, CenterLon: 151.2, CenterLat: -33.86})

	if err := en.OpenPopup("solo.example"); err != nil {
		t.Fatalf("OpenPopup: %v", err)
	}
	frame := en.Frame()
	if frame.Popup == nil {
		t.Fatalf("Expected popup anchor while entity is visible")
	}
	if frame.Popup.URL != "https://solo.example" {
		t.Errorf("Expected preview URL, got %s", frame.Popup.URL)
	}
}

func TestPopupClosesWhenRotatedOutOfView(t *testing.T) {
	en := NewEngine(LayoutOptions{})
	en.SetDataset(testDataset())
	en.SetViewport(Viewport{Scale: 1, Width: 800, Height: 600, CenterLon: 151.2, CenterLat: -33.86})
	if err := en.OpenPopup("solo.example"); err != nil {
		t.Fatalf("OpenPopup: %v", err)
	}

	// Rotate the globe so the anchor lands on the far hemisphere.
	en.SetViewport(Viewport{Scale: 1, Width: 800, Height: 600, CenterLon: -28.8, CenterLat: 33.86})
	frame := en.Frame()
	if frame.Popup != nil {
		t.Errorf("Expected popup closed once its entity is out of view")
	}
	if en.PopupID() != "" {
		t.Errorf("Expected popup state cleared")
	}
}

func TestOpenPopupUnknownEntity(t *testing.T) {
	en := NewEngine(LayoutOptions{})
	en.SetDataset(testDataset())
	if err := en.OpenPopup("nope.example"); err == nil {
		t.Errorf("Expected error for unknown entity")
	}
}

func TestDragCancelsSpinAndResumes(t *testing.T) {
	en := NewEngine(LayoutOptions{})
	en.SetDataset(testDataset())
	en.StartSpin()

	en.StartDrag()
	if en.Spinning() {
		t.Errorf("Expected drag to cancel auto-rotation")
	}
	en.Drag(10, 0)
	en.EndDrag()
	if !en.Spinning() {
		t.Errorf("Expected spin to resume after drag")
	}
}

func TestSpinDoesNotResumeWhenNotActiveBefore(t *testing.T) {
	en := NewEngine(LayoutOptions{})
	en.SetDataset(testDataset())

	en.StartDrag()
	en.EndDrag()
	if en.Spinning() {
		t.Errorf("Expected no spin after drag when it was not active before")
	}
}

func TestHoverBlocksSpinResume(t *testing.T) {
	en := NewEngine(LayoutOptions{})
	en.SetDataset(testDataset())
	en.StartSpin()
	en.SetHover("a.example")

	en.StartDrag()
	en.EndDrag()
	if en.Spinning() {
		t.Errorf("Expected hover to block spin resume")
	}

	en.SetHover("")
	if !en.Spinning() {
		t.Errorf("Expected spin to resume once hover cleared")
	}
}

func TestPopupBlocksSpinResume(t *testing.T) {
	en := NewEngine(LayoutOptions{})
	en.SetDataset(testDataset())
	en.SetViewport(Viewport{Scale: 1, Width: 800, Height: 600, CenterLon: 151.2, CenterLat: -33.86})
	en.StartSpin()

	if err := en.OpenPopup("solo.example"); err != nil {
		t.Fatalf("OpenPopup: %v", err)
	}
	if en.Spinning() {
		t.Errorf("Expected popup to pause auto-rotation")
	}
	en.ClosePopup()
	if !en.Spinning() {
		t.Errorf("Expected spin to resume after popup close")
	}
}

func TestTickAdvancesRotation(t *testing.T) {
	en := NewEngine(LayoutOptions{SpinDegPerSec: 10})
	en.SetDataset(testDataset())
	en.StartSpin()

	before := en.Viewport().CenterLon
	en.Tick(2 * time.Second)
	if got := en.Viewport().CenterLon; got != before+20 {
		t.Errorf("Expected rotation of 20 degrees, got %f", got-before)
	}

	en.StopSpin()
	before = en.Viewport().CenterLon
	en.Tick(time.Second)
	if en.Viewport().CenterLon != before {
		t.Errorf("Expected no rotation when spin is off")
	}
}

func TestFrameHighlightBoost(t *testing.T) {
	en := NewEngine(LayoutOptions{})
	en.SetDataset(testDataset())
	en.SetViewport(Viewport{Scale: 2, Width: 800, Height: 600, Projection: ProjectionEquirectangular})
	en.SetHover("solo.example")

	frame := en.Frame()
	opts := en.Options()
	for _, c := range frame.Commands {
		want := opts.BaseMarkerRadiusPx / 2
		if c.ID == "solo.example" {
			if !c.Highlighted {
				t.Errorf("Expected hovered entity highlighted")
			}
			want = (opts.BaseMarkerRadiusPx + opts.HighlightBoostPx) / 2
		}
		if c.Radius != want {
			t.Errorf("Expected radius %f for %s, got %f", want, c.ID, c.Radius)
		}
	}
}
