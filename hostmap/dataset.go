package hostmap

import (
	"sort"

	"github.com/weronikagajda/Citography-hostmap.github.io/globe"
)

// BuildDataset turns the two tables into the engine's dataset. Records
// without usable coordinates are filtered here, upstream of the core, which
// assumes finite lat/lon. Entity order follows the references file so layout
// tie-breaking stays reproducible across runs.
func BuildDataset(name string, records []Record, folders []FolderRow) *globe.Dataset {
	d := &globe.Dataset{Name: name}

	for _, r := range records {
		if !r.HasGeo {
			continue
		}
		d.Entities = append(d.Entities, &globe.GeoEntity{
			ID:             r.Domain,
			Lat:            r.Lat,
			Lon:            r.Lon,
			Classification: Classify(r),
			BookmarkCount:  r.BookmarkCount,
			Country:        r.Country,
			City:           r.City,
			Org:            r.Org,
		})
	}

	d.Folders = groupFolders(folders)
	return d
}

// groupFolders aggregates folder rows into the side-panel listing, largest
// folders first.
func groupFolders(rows []FolderRow) []globe.FolderGroup {
	index := make(map[string]int)
	var groups []globe.FolderGroup
	seen := make(map[string]map[string]bool)

	for _, row := range rows {
		i, ok := index[row.FolderPath]
		if !ok {
			i = len(groups)
			index[row.FolderPath] = i
			groups = append(groups, globe.FolderGroup{Path: row.FolderPath})
			seen[row.FolderPath] = make(map[string]bool)
		}
		groups[i].Count += row.BookmarkCount
		if !seen[row.FolderPath][row.Domain] {
			seen[row.FolderPath][row.Domain] = true
			groups[i].Domains = append(groups[i].Domains, row.Domain)
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Path < groups[j].Path
	})
	return groups
}
