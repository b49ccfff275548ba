// hostmap-build runs the offline pipeline: parse a browser bookmark export,
// count domains, enrich the most-referenced ones with network and location
// data, and write the CSVs the server builds datasets from.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/oschwald/geoip2-golang"

	"github.com/weronikagajda/Citography-hostmap.github.io/bookmarks"
	"github.com/weronikagajda/Citography-hostmap.github.io/enrich"
	"github.com/weronikagajda/Citography-hostmap.github.io/hostmap"
	"github.com/weronikagajda/Citography-hostmap.github.io/internal/logger"
	"github.com/weronikagajda/Citography-hostmap.github.io/internal/utils"
)

func main() {
	bookmarksPath := flag.String("bookmarks", "Bookmarks.html", "Path to a Netscape bookmark export")
	outDir := flag.String("out", "data/pipeline", "Output directory for the CSVs")
	top := flag.Int("top", 1000, "Number of most-referenced domains to enrich")
	delay := flag.Duration("delay", time.Second, "Pause between remote lookups")
	geoURL := flag.String("geo-url", "", "Override the geo API base URL")
	mmdbPath := flag.String("mmdb", "", "Path to a GeoLite2-City database; skips the remote geo API")
	useCache := flag.Bool("cache", true, "Use the redis geo cache when REDIS_HOST is set")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logger.L().Debug("no .env file loaded", "error", err)
	}
	log := logger.Setup()

	items, err := bookmarks.ParseFile(*bookmarksPath)
	if err != nil {
		log.Error("failed to parse bookmarks", "path", *bookmarksPath, "error", err)
		os.Exit(1)
	}
	log.Info("parsed bookmarks", "path", *bookmarksPath, "count", len(items))

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Error("failed to create output directory", "dir", *outDir, "error", err)
		os.Exit(1)
	}

	counts := bookmarks.CountDomains(items)
	folderCounts := bookmarks.CountDomainFolders(items)

	if err := bookmarks.WriteFlatCSV(filepath.Join(*outDir, "bookmarks_flat.csv"), items); err != nil {
		log.Error("failed to write flat CSV", "error", err)
		os.Exit(1)
	}
	if err := bookmarks.WriteDomainCountsCSV(filepath.Join(*outDir, "domain_counts.csv"), counts); err != nil {
		log.Error("failed to write domain counts CSV", "error", err)
		os.Exit(1)
	}
	if err := bookmarks.WriteDomainFoldersCSV(filepath.Join(*outDir, "domain_folders.csv"), folderCounts); err != nil {
		log.Error("failed to write domain folders CSV", "error", err)
		os.Exit(1)
	}

	if *top < len(counts) {
		counts = counts[:*top]
	}

	e := enrich.New()
	e.Delay = *delay
	if *geoURL != "" {
		e.GeoURL = *geoURL
	}
	if *mmdbPath != "" {
		db, err := geoip2.Open(*mmdbPath)
		if err != nil {
			log.Error("failed to open mmdb", "path", *mmdbPath, "error", err)
			os.Exit(1)
		}
		defer db.Close()
		e.City = db
		e.Delay = 0 // local lookups need no politeness pause
	}
	if *useCache {
		if client := utils.OpenRedisFromEnv(); client != nil {
			e.Cache = enrich.NewGeoCache(client, 0)
			log.Info("geo cache enabled")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records := make([]hostmap.Record, 0, len(counts))
	for i, dc := range counts {
		if ctx.Err() != nil {
			log.Warn("interrupted, writing partial results", "enriched", len(records))
			break
		}
		res, err := e.Lookup(ctx, dc.Domain)
		if err != nil {
			log.Warn("lookup failed", "domain", dc.Domain, "error", err)
			continue
		}
		records = append(records, hostmap.Record{
			Domain:        dc.Domain,
			BookmarkCount: dc.Count,
			IPv4:          res.IPv4,
			ASN:           res.ASN,
			Org:           res.Org,
			Country:       res.Country,
			City:          res.City,
			Lat:           res.Lat,
			Lon:           res.Lon,
			HasGeo:        res.HasGeo,
		})
		if (i+1)%25 == 0 {
			fmt.Printf("Enriched %d/%d domains...\n", i+1, len(counts))
		}
	}

	refPath := filepath.Join(*outDir, "domain_references.csv")
	if err := hostmap.WriteReferences(refPath, records); err != nil {
		log.Error("failed to write references CSV", "error", err)
		os.Exit(1)
	}
	log.Info("pipeline complete", "references", refPath, "enriched", len(records), "domains", len(counts))
}
