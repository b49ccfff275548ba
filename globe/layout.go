package globe

import (
	"fmt"
	"math"
)

// GoldenAngle in radians. Successive multiples of it are maximally irrational
// relative to 2*pi, so no two cloud points at different indices ever align
// radially.
const GoldenAngle = 2.399963229728653

const (
	fnvOffset32 = 2166136261
	fnvPrime32  = 16777619
)

// Classification of a domain's serving infrastructure. Only used for marker
// color, never for layout.
type Classification uint8

const (
	ClassUnknown Classification = iota
	ClassHost
	ClassEdge
)

func (c Classification) String() string {
	switch c {
	case ClassHost:
		return "host"
	case ClassEdge:
		return "edge"
	default:
		return "unknown"
	}
}

// ParseClassification maps a string back to a Classification. Unrecognized
// values fall back to unknown.
func ParseClassification(s string) Classification {
	switch s {
	case "host":
		return ClassHost
	case "edge":
		return ClassEdge
	default:
		return ClassUnknown
	}
}

// GeoEntity is one domain marker on the globe. Lat/Lon are degrees and
// immutable after creation; OffsetX/OffsetY are the unfold displacement in
// projection-space pixels, rewritten on every layout pass.
type GeoEntity struct {
	ID             string
	Lat            float64
	Lon            float64
	Classification Classification
	BookmarkCount  int
	Country        string
	City           string
	Org            string

	OffsetX float64
	OffsetY float64
}

// CoincidenceGroup holds the entities sharing one rounded coordinate, in
// input order. Member order seeds the spiral layout, so it must be stable
// across runs for identical input.
type CoincidenceGroup struct {
	Key     string
	Members []*GeoEntity
}

// Grouping is the result of one coincidence-grouping pass. Groups appear in
// first-seen key order so iteration is reproducible.
type Grouping struct {
	Groups []*CoincidenceGroup
	index  map[string]int
}

// Group returns the group for a rounded-coordinate key, or nil.
func (g *Grouping) Group(key string) *CoincidenceGroup {
	if i, ok := g.index[key]; ok {
		return g.Groups[i]
	}
	return nil
}

// LayoutOptions carries the configurable constants of the unfold layout and
// marker sizing. Zero values are replaced with defaults by Normalize.
type LayoutOptions struct {
	UnfoldZoomThreshold float64 // zoom scale at which clouds unfold
	BaseCloudRadiusPx   float64
	MaxCloudRadiusPx    float64
	BaseMarkerRadiusPx  float64
	StrokeWidthPx       float64
	HighlightBoostPx    float64
	SpinDegPerSec       float64
}

// Normalize fills unset options with their defaults.
func (o LayoutOptions) Normalize() LayoutOptions {
	if o.UnfoldZoomThreshold <= 0 {
		o.UnfoldZoomThreshold = 4
	}
	if o.BaseCloudRadiusPx <= 0 {
		o.BaseCloudRadiusPx = 10
	}
	if o.MaxCloudRadiusPx <= 0 {
		o.MaxCloudRadiusPx = 36
	}
	if o.BaseMarkerRadiusPx <= 0 {
		o.BaseMarkerRadiusPx = 4
	}
	if o.StrokeWidthPx <= 0 {
		o.StrokeWidthPx = 1.5
	}
	if o.HighlightBoostPx <= 0 {
		o.HighlightBoostPx = 2.5
	}
	if o.SpinDegPerSec <= 0 {
		o.SpinDegPerSec = 6
	}
	return o
}

// Hash01 maps a key to a stable pseudo-random value in [0,1) using 32-bit
// FNV-1a over the key's bytes. When two independent draws are needed for one
// id, call it twice with a suffixed key (id and id+"#").
func Hash01(key string) float64 {
	h := uint32(fnvOffset32)
	for i := 0; i < len(key); i++ {
		h ^= uint32(key[i])
		h *= fnvPrime32
	}
	return float64(h) / (1 << 32)
}

// CoordinateKey rounds a coordinate pair to 6 decimal places (~0.1m) and
// joins it into a grouping key. Coordinates differing only past the 6th
// decimal land in the same group; anything coarser stays apart.
func CoordinateKey(lat, lon float64) string {
	return fmt.Sprintf("%.6f,%.6f", lat, lon)
}

// GroupByCoordinate partitions entities into coincidence groups by rounded
// coordinate. Every entity lands in exactly one group and bucket order
// preserves input order.
func GroupByCoordinate(entities []*GeoEntity) *Grouping {
	g := &Grouping{index: make(map[string]int, len(entities))}
	for _, e := range entities {
		key := CoordinateKey(e.Lat, e.Lon)
		i, ok := g.index[key]
		if !ok {
			i = len(g.Groups)
			g.index[key] = i
			g.Groups = append(g.Groups, &CoincidenceGroup{Key: key})
		}
		g.Groups[i].Members = append(g.Groups[i].Members, e)
	}
	return g
}

// CloudRadius returns the unfolded cloud radius in pixels for a group of n
// members.
func CloudRadius(n int, opts LayoutOptions) float64 {
	r := opts.BaseCloudRadiusPx + math.Sqrt(float64(n))*10
	if r > opts.MaxCloudRadiusPx {
		r = opts.MaxCloudRadiusPx
	}
	return r
}

// Unfold assigns every entity its cloud offset. Groups of one, and all groups
// below the unfold zoom threshold, collapse to (0,0). Larger groups spread
// into a golden-angle spiral with per-id jitter: the square-root radial
// spacing gives near-uniform areal density, the +0.35 keeps the innermost
// point off dead-center, and the two decorrelated hash draws perturb angle
// and add a small perpendicular displacement so the spiral does not look
// synthetic. Output is a pure function of (id, membership, order, zoom
// enable) and therefore bit-for-bit reproducible.
func Unfold(grouping *Grouping, zoomScale float64, opts LayoutOptions) {
	enabled := zoomScale >= opts.UnfoldZoomThreshold
	for _, grp := range grouping.Groups {
		n := len(grp.Members)
		if !enabled || n <= 1 {
			for _, e := range grp.Members {
				e.OffsetX, e.OffsetY = 0, 0
			}
			continue
		}
		cloudRadius := CloudRadius(n, opts)
		for i, e := range grp.Members {
			r1 := Hash01(e.ID)
			r2 := Hash01(e.ID + "#")
			radius := cloudRadius * math.Sqrt((float64(i)+0.35)/float64(n))
			angle := float64(i)*GoldenAngle + (r1-0.5)*0.8
			j := (r2 - 0.5) * cloudRadius * 0.18
			e.OffsetX = math.Cos(angle)*radius + j
			e.OffsetY = math.Sin(angle)*radius - j
		}
	}
}
