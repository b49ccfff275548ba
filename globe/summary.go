package globe

import (
	"fmt"
	"math/rand"
	"sort"
)

// DatasetSummary aggregates what the UI shows next to the globe: entity and
// group counts plus classification and country distributions.
type DatasetSummary struct {
	Name             string         `json:"name"`
	TotalEntities    int            `json:"totalEntities"`
	TotalBookmarks   int            `json:"totalBookmarks"`
	NumGroups        int            `json:"numGroups"`
	NumCoincident    int            `json:"numCoincident"`
	LargestGroup     int            `json:"largestGroup"`
	NumFolders       int            `json:"numFolders"`
	ByClassification map[string]int `json:"byClassification"`
	TopCountries     []CountryCount `json:"topCountries"`
}

type CountryCount struct {
	Country string `json:"country"`
	Count   int    `json:"count"`
}

// Summarize computes the dataset summary. Grouping runs over the same
// 6-decimal coordinate keys the layout uses.
func Summarize(d *Dataset) DatasetSummary {
	s := DatasetSummary{
		Name:             d.Name,
		TotalEntities:    len(d.Entities),
		NumFolders:       len(d.Folders),
		ByClassification: make(map[string]int),
	}

	countries := make(map[string]int)
	for _, e := range d.Entities {
		s.TotalBookmarks += e.BookmarkCount
		s.ByClassification[e.Classification.String()]++
		if e.Country != "" {
			countries[e.Country]++
		}
	}

	grouping := GroupByCoordinate(d.Entities)
	s.NumGroups = len(grouping.Groups)
	for _, g := range grouping.Groups {
		if len(g.Members) > 1 {
			s.NumCoincident++
		}
		if len(g.Members) > s.LargestGroup {
			s.LargestGroup = len(g.Members)
		}
	}

	for c, n := range countries {
		s.TopCountries = append(s.TopCountries, CountryCount{Country: c, Count: n})
	}
	sort.Slice(s.TopCountries, func(i, j int) bool {
		if s.TopCountries[i].Count != s.TopCountries[j].Count {
			return s.TopCountries[i].Count > s.TopCountries[j].Count
		}
		return s.TopCountries[i].Country < s.TopCountries[j].Country
	})
	if len(s.TopCountries) > 10 {
		s.TopCountries = s.TopCountries[:10]
	}

	return s
}

// GenerateTestEntities creates a reproducible synthetic dataset. Roughly a
// third of the entities pile onto a handful of shared hub coordinates so the
// unfold path gets exercised; the rest scatter across the globe.
func GenerateTestEntities(n int, seed int64) []*GeoEntity {
	r := rand.New(rand.NewSource(seed))

	hubs := [][2]float64{
		{37.751, -97.822},  // US
		{51.2993, 9.491},   // DE
		{52.3824, 4.8995},  // NL
		{37.5665, 126.978}, // KR
	}

	entities := make([]*GeoEntity, n)
	for i := 0; i < n; i++ {
		e := &GeoEntity{
			ID:            fmt.Sprintf("domain-%04d.example", i),
			BookmarkCount: 1 + r.Intn(20),
			Classification: []Classification{
				ClassHost, ClassHost, ClassEdge, ClassUnknown,
			}[r.Intn(4)],
		}
		if i%3 == 0 {
			hub := hubs[r.Intn(len(hubs))]
			e.Lat, e.Lon = hub[0], hub[1]
		} else {
			e.Lat = -60 + r.Float64()*130
			e.Lon = -180 + r.Float64()*360
		}
		entities[i] = e
	}
	return entities
}
