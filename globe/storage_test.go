package globe

import (
	"path/filepath"
	"testing"
)

func snapshotDataset() *Dataset {
	return &Dataset{
		Name: "bookmarks-2024",
		Entities: []*GeoEntity{
			{ID: "a.example", Lat: 51.05, Lon: 3.72, Classification: ClassHost,
				BookmarkCount: 12, Country: "Belgium", City: "Ghent", Org: "Example Hosting BV"},
			{ID: "b.example", Lat: 51.05, Lon: 3.72, Classification: ClassEdge,
				BookmarkCount: 3, Country: "Belgium", City: "Ghent", Org: "Cloudflare, Inc."},
			{ID: "c.example", Lat: -33.86, Lon: 151.2, Classification: ClassUnknown, BookmarkCount: 1},
		},
		Folders: []FolderGroup{
			{Path: "reading / tech", Domains: []string{"a.example", "b.example"}, Count: 15},
			{Path: "travel", Domains: []string{"c.example"}, Count: 1},
		},
	}
}

func assertDatasetsEqual(t *testing.T, want, got *Dataset) {
	t.Helper()
	if got.Name != want.Name {
		t.Errorf("Expected name %q, got %q", want.Name, got.Name)
	}
	if len(got.Entities) != len(want.Entities) {
		t.Fatalf("Expected %d entities, got %d", len(want.Entities), len(got.Entities))
	}
	for i, w := range want.Entities {
		g := got.Entities[i]
		if g.ID != w.ID || g.Lat != w.Lat || g.Lon != w.Lon ||
			g.Classification != w.Classification || g.BookmarkCount != w.BookmarkCount ||
			g.Country != w.Country || g.City != w.City || g.Org != w.Org {
			t.Errorf("Entity %d mismatch: got %+v, want %+v", i, g, w)
		}
	}
	if len(got.Folders) != len(want.Folders) {
		t.Fatalf("Expected %d folders, got %d", len(want.Folders), len(got.Folders))
	}
	for i, w := range want.Folders {
		g := got.Folders[i]
		if g.Path != w.Path || g.Count != w.Count || len(g.Domains) != len(w.Domains) {
			t.Errorf("Folder %d mismatch: got %+v, want %+v", i, g, w)
			continue
		}
		for j := range w.Domains {
			if g.Domains[j] != w.Domains[j] {
				t.Errorf("Folder %d domain %d mismatch: got %s, want %s", i, j, g.Domains[j], w.Domains[j])
			}
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	d := snapshotDataset()
	path := filepath.Join(t.TempDir(), "snapshot.zst")

	if err := d.SaveCompressed(path); err != nil {
		t.Fatalf("SaveCompressed: %v", err)
	}
	loaded, err := LoadCompressedDataset(path)
	if err != nil {
		t.Fatalf("LoadCompressedDataset: %v", err)
	}
	assertDatasetsEqual(t, d, loaded)
}

func TestMMapSnapshotRoundTrip(t *testing.T) {
	d := snapshotDataset()
	path := filepath.Join(t.TempDir(), "snapshot.mmap")

	if err := d.SaveMMap(path); err != nil {
		t.Fatalf("SaveMMap: %v", err)
	}
	loaded, err := LoadMMapDataset(path)
	if err != nil {
		t.Fatalf("LoadMMapDataset: %v", err)
	}
	assertDatasetsEqual(t, d, loaded)
}

func TestCompressedMMapRoundTrip(t *testing.T) {
	d := snapshotDataset()
	path := filepath.Join(t.TempDir(), "snapshot.mmap.zst")

	if err := d.SaveCompressedMMap(path); err != nil {
		t.Fatalf("SaveCompressedMMap: %v", err)
	}
	loaded, err := LoadCompressedMMap(path)
	if err != nil {
		t.Fatalf("LoadCompressedMMap: %v", err)
	}
	assertDatasetsEqual(t, d, loaded)
}

func TestLoadMissingSnapshot(t *testing.T) {
	if _, err := LoadCompressedDataset(filepath.Join(t.TempDir(), "missing.zst")); err == nil {
		t.Errorf("Expected error for missing snapshot file")
	}
}
