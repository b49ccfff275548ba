package hostmap

import (
	"strings"

	"github.com/weronikagajda/Citography-hostmap.github.io/globe"
)

// cdnKeywords match the org/holder names of the big CDN and edge networks.
// A hit means the resolved address is an edge node, not the domain's own
// origin host.
var cdnKeywords = []string{
	"cloudflare",
	"akamai",
	"fastly",
	"cloudfront",
	"amazon cloudfront",
	"edgecast",
	"edg.io",
	"cdn77",
	"bunny",
	"bunnycdn",
	"stackpath",
	"highwinds",
	"incapsula",
	"imperva",
	"limelight",
	"lumen",
	"cachefly",
	"keycdn",
	"quantil",
	"cdnetworks",
	"sucuri",
	"netlify",
	"vercel",
	"github pages",
}

// Classify derives the marker classification from a record's org/ASN data.
// Edge beats host: a CDN match wins even when geo data is present, because
// the coordinate then belongs to the edge node rather than the origin.
func Classify(r Record) globe.Classification {
	haystack := strings.ToLower(r.Org + " " + r.ASN)
	for _, kw := range cdnKeywords {
		if strings.Contains(haystack, kw) {
			return globe.ClassEdge
		}
	}
	if r.Org != "" {
		return globe.ClassHost
	}
	return globe.ClassUnknown
}
