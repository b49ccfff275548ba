package enrich

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func stubResolver(ip string) func(context.Context, string) (string, error) {
	return func(ctx context.Context, domain string) (string, error) {
		return ip, nil
	}
}

func newTestEnricher(geoURL, ripeURL string) *Enricher {
	e := New()
	e.Resolve = stubResolver("93.184.216.34")
	e.GeoURL = geoURL
	e.RIPEURL = ripeURL
	e.Delay = 0
	return e
}

func TestLookupFullChain(t *testing.T) {
	ripe := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("resource"); got != "93.184.216.34" {
			t.Errorf("Unexpected RIPE resource %q", got)
		}
		fmt.Fprint(w, `{"data":{"asns":[{"asn":15133,"holder":"EDGECAST"}]}}`)
	}))
	defer ripe.Close()

	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/93.184.216.34" {
			t.Errorf("Unexpected geo path %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"status":"success","country":"United States","city":"Los Angeles","lat":34.0522,"lon":-118.2437}`)
	}))
	defer geo.Close()

	e := newTestEnricher(geo.URL, ripe.URL+"/data.json")
	res, err := e.Lookup(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if res.IPv4 != "93.184.216.34" {
		t.Errorf("Expected resolved IP, got %q", res.IPv4)
	}
	if res.ASN != "AS15133" || res.Org != "EDGECAST" {
		t.Errorf("Unexpected ASN fields: %q %q", res.ASN, res.Org)
	}
	if !res.HasGeo || res.City != "Los Angeles" || res.Lat != 34.0522 || res.Lon != -118.2437 {
		t.Errorf("Unexpected geo fields: %+v", res)
	}
}

func TestLookupResolveFailure(t *testing.T) {
	e := New()
	e.Delay = 0
	e.Resolve = func(ctx context.Context, domain string) (string, error) {
		return "", fmt.Errorf("NXDOMAIN")
	}
	if _, err := e.Lookup(context.Background(), "does-not-exist.invalid"); err == nil {
		t.Fatal("Expected error for failed resolution")
	}
}

func TestLookupDegradesWithoutASN(t *testing.T) {
	ripe := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"asns":[]}}`)
	}))
	defer ripe.Close()

	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"success","country":"Belgium","city":"Ghent","lat":51.05,"lon":3.72}`)
	}))
	defer geo.Close()

	e := newTestEnricher(geo.URL, ripe.URL+"/data.json")
	res, err := e.Lookup(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if res.ASN != "" || res.Org != "" {
		t.Errorf("Expected empty ASN fields, got %q %q", res.ASN, res.Org)
	}
	if !res.HasGeo || res.Country != "Belgium" {
		t.Errorf("Expected geo despite missing ASN, got %+v", res)
	}
}

func TestLookupGeoFailStatus(t *testing.T) {
	ripe := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"asns":[{"asn":64500,"holder":"EXAMPLE"}]}}`)
	}))
	defer ripe.Close()

	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"fail"}`)
	}))
	defer geo.Close()

	e := newTestEnricher(geo.URL, ripe.URL+"/data.json")
	res, err := e.Lookup(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if res.HasGeo {
		t.Error("Expected HasGeo false for failed geo status")
	}
	if res.ASN != "AS64500" {
		t.Errorf("ASN should survive geo failure, got %q", res.ASN)
	}
}

func TestLookupCancelledContext(t *testing.T) {
	e := New()
	e.Resolve = stubResolver("198.51.100.7")
	e.Delay = time.Hour // force the pause path to consult the context

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := e.Lookup(ctx, "example.com")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	// Remote stages are skipped once the context is done; the resolved IP
	// still comes back.
	if res.IPv4 != "198.51.100.7" {
		t.Errorf("Expected IP, got %q", res.IPv4)
	}
	if res.HasGeo || res.ASN != "" {
		t.Errorf("Expected degraded result, got %+v", res)
	}
}
