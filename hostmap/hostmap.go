// Package hostmap reads and writes the tabular datasets behind the globe:
// the per-domain host/geo reference table and the domain-by-folder table.
package hostmap

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Record is one row of hostmap_references.csv.
type Record struct {
	Domain        string
	BookmarkCount int
	IPv4          string
	ASN           string
	Org           string
	Country       string
	City          string
	Lat           float64
	Lon           float64
	HasGeo        bool
}

// FolderRow is one row of domains_by_folder.csv.
type FolderRow struct {
	Domain        string
	FolderPath    string
	BookmarkCount int
}

var referencesHeader = []string{
	"domain", "bookmark_count", "ipv4", "asn", "org",
	"geo_country", "geo_city", "lat", "lon",
}

func parseCoordinate(s string, limit float64) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < -limit || v > limit {
		return 0, false
	}
	return v, true
}

// ReadReferences parses a hostmap references CSV. Rows with missing or
// non-finite coordinates are kept (they still appear in counts) but flagged
// HasGeo=false so they never reach the layout core.
func ReadReferences(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open references: %v", err)
	}
	defer f.Close()
	return parseReferences(f)
}

func parseReferences(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %v", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"domain", "lat", "lon"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("references file missing %q column", required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %v", err)
		}
		domain := strings.ToLower(field(row, "domain"))
		if domain == "" {
			continue
		}
		rec := Record{
			Domain:  domain,
			IPv4:    field(row, "ipv4"),
			ASN:     field(row, "asn"),
			Org:     field(row, "org"),
			Country: field(row, "geo_country"),
			City:    field(row, "geo_city"),
		}
		if n, err := strconv.Atoi(field(row, "bookmark_count")); err == nil {
			rec.BookmarkCount = n
		}
		lat, latOK := parseCoordinate(field(row, "lat"), 90)
		lon, lonOK := parseCoordinate(field(row, "lon"), 180)
		if latOK && lonOK {
			rec.Lat, rec.Lon, rec.HasGeo = lat, lon, true
		}
		records = append(records, rec)
	}
	return records, nil
}

// WriteReferences writes records in the same column order the pipeline has
// always produced.
func WriteReferences(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create references: %v", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(referencesHeader); err != nil {
		return err
	}
	for _, r := range records {
		lat, lon := "", ""
		if r.HasGeo {
			lat = strconv.FormatFloat(r.Lat, 'f', -1, 64)
			lon = strconv.FormatFloat(r.Lon, 'f', -1, 64)
		}
		row := []string{
			r.Domain, strconv.Itoa(r.BookmarkCount), r.IPv4, r.ASN, r.Org,
			r.Country, r.City, lat, lon,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadFolders parses a domains_by_folder CSV.
func ReadFolders(path string) ([]FolderRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open folders: %v", err)
	}
	defer f.Close()
	return parseFolders(f)
}

func parseFolders(r io.Reader) ([]FolderRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	if _, err := cr.Read(); err != nil {
		return nil, fmt.Errorf("failed to read header: %v", err)
	}

	var rows []FolderRow
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %v", err)
		}
		if len(row) < 2 {
			continue
		}
		fr := FolderRow{
			Domain:     strings.ToLower(strings.TrimSpace(row[0])),
			FolderPath: strings.TrimSpace(row[1]),
		}
		if fr.Domain == "" {
			continue
		}
		if len(row) > 2 {
			if n, err := strconv.Atoi(strings.TrimSpace(row[2])); err == nil {
				fr.BookmarkCount = n
			}
		}
		rows = append(rows, fr)
	}
	return rows, nil
}
