// Package enrich resolves a domain to an IPv4 address and annotates it with
// network ownership and an approximate location. Lookups chain three sources:
// DNS, the RIPEstat prefix overview for the ASN, and either a local MaxMind
// database or a remote geo API for coordinates.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/oschwald/geoip2-golang"

	"github.com/weronikagajda/Citography-hostmap.github.io/internal/logger"
)

const (
	defaultGeoURL  = "http://ip-api.com/json"
	defaultRIPEURL = "https://stat.ripe.net/data/prefix-overview/data.json"
)

// Result is one enriched domain, ready to become a references CSV row.
type Result struct {
	IPv4    string
	ASN     string
	Org     string
	Country string
	City    string
	Lat     float64
	Lon     float64
	HasGeo  bool
}

// Enricher performs the lookups. The zero value is not usable; construct
// with New and override fields before the first Lookup call.
type Enricher struct {
	Client  *http.Client
	Resolve func(ctx context.Context, domain string) (string, error)
	GeoURL  string
	RIPEURL string
	// Delay is the pause before each remote geo/ASN call, keeping request
	// rates polite toward the free endpoints.
	Delay time.Duration
	Cache *GeoCache
	// City switches coordinate lookups to a local database, removing the
	// remote geo call entirely.
	City *geoip2.Reader
}

func New() *Enricher {
	return &Enricher{
		Client:  &http.Client{Timeout: 10 * time.Second},
		Resolve: resolveA,
		GeoURL:  defaultGeoURL,
		RIPEURL: defaultRIPEURL,
		Delay:   time.Second,
	}
}

func resolveA(ctx context.Context, domain string) (string, error) {
	addrs, err := net.DefaultResolver.LookupIP(ctx, "ip4", domain)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("no A records for %s", domain)
	}
	return addrs[0].String(), nil
}

// Lookup enriches one domain. A failed DNS resolution is an error; failures
// in the ASN or geo stages degrade to empty fields so a partially reachable
// domain still produces a row.
func (e *Enricher) Lookup(ctx context.Context, domain string) (Result, error) {
	ip, err := e.Resolve(ctx, domain)
	if err != nil {
		return Result{}, fmt.Errorf("resolving %s: %w", domain, err)
	}
	res := Result{IPv4: ip}

	if e.Cache != nil {
		if cached, ok := e.Cache.Get(ctx, ip); ok {
			logger.L().Debug("geo_cache_hit", "ip", ip)
			return cached, nil
		}
	}

	if asn, org, err := e.lookupASN(ctx, ip); err != nil {
		logger.L().Warn("asn_lookup_failed", "ip", ip, "error", err)
	} else {
		res.ASN = asn
		res.Org = org
	}

	if err := e.lookupGeo(ctx, ip, &res); err != nil {
		logger.L().Warn("geo_lookup_failed", "ip", ip, "error", err)
	}

	if e.Cache != nil {
		e.Cache.Put(ctx, ip, res)
	}
	return res, nil
}

func (e *Enricher) pause(ctx context.Context) error {
	if e.Delay <= 0 {
		return nil
	}
	select {
	case <-time.After(e.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type ripeResponse struct {
	Data struct {
		ASNs []struct {
			ASN    json.Number `json:"asn"`
			Holder string      `json:"holder"`
		} `json:"asns"`
	} `json:"data"`
}

func (e *Enricher) lookupASN(ctx context.Context, ip string) (asn, org string, err error) {
	if err := e.pause(ctx); err != nil {
		return "", "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.RIPEURL+"?resource="+ip, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := e.Client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("ripestat status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", "", err
	}
	var parsed ripeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", "", err
	}
	if len(parsed.Data.ASNs) == 0 {
		return "", "", fmt.Errorf("no ASN announced for %s", ip)
	}
	first := parsed.Data.ASNs[0]
	return "AS" + first.ASN.String(), first.Holder, nil
}

type geoResponse struct {
	Status  string  `json:"status"`
	Country string  `json:"country"`
	City    string  `json:"city"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (e *Enricher) lookupGeo(ctx context.Context, ip string, res *Result) error {
	if e.City != nil {
		return e.lookupGeoMMDB(ip, res)
	}
	if err := e.pause(ctx); err != nil {
		return err
	}
	url := e.GeoURL + "/" + ip + "?fields=status,country,city,lat,lon"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := e.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geo api status %d", resp.StatusCode)
	}
	var parsed geoResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return err
	}
	if parsed.Status != "success" {
		return fmt.Errorf("geo api status %q for %s", parsed.Status, ip)
	}
	res.Country = parsed.Country
	res.City = parsed.City
	res.Lat = parsed.Lat
	res.Lon = parsed.Lon
	res.HasGeo = true
	return nil
}

func (e *Enricher) lookupGeoMMDB(ip string, res *Result) error {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return fmt.Errorf("invalid IP %q", ip)
	}
	record, err := e.City.City(parsed)
	if err != nil {
		return err
	}
	res.Country = record.Country.Names["en"]
	res.City = record.City.Names["en"]
	res.Lat = record.Location.Latitude
	res.Lon = record.Location.Longitude
	res.HasGeo = res.Lat != 0 || res.Lon != 0
	return nil
}
