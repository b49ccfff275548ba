// Package bookmarks parses the classic Netscape bookmark export format and
// derives the flat, per-domain and per-folder tables from it.
package bookmarks

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Bookmark is one <A> entry with the folder path active at parse time.
type Bookmark struct {
	FolderPath   string
	Title        string
	URL          string
	Domain       string
	AddDate      string
	LastModified string
}

// DomainCount is one row of domains_references.csv.
type DomainCount struct {
	Domain string
	Count  int
}

// DomainFolderCount is one row of domains_by_folder.csv.
type DomainFolderCount struct {
	Domain     string
	FolderPath string
	Count      int
}

// DomainOf extracts the lowercased host from a URL, without the port.
// Returns "" when the URL has no usable host.
func DomainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// Parse tokenizes a Netscape bookmarks export. The format is intentionally
// malformed HTML (unclosed DT/DD tags), so this walks tokens rather than a
// parsed tree: an H3 names a folder, the DL that follows opens it, and each
// closing DL pops one folder off the stack.
func Parse(r io.Reader) ([]Bookmark, error) {
	z := html.NewTokenizer(r)

	var (
		items         []Bookmark
		folderStack   []string
		pendingFolder string
		expectingDL   bool

		inH3    bool
		h3Text  strings.Builder
		inA     bool
		aText   strings.Builder
		current Bookmark
	)

	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return items, nil
			}
			return items, fmt.Errorf("failed to tokenize bookmarks: %v", z.Err())

		case html.StartTagToken:
			token := z.Token()
			switch token.DataAtom.String() {
			case "h3":
				inH3 = true
				h3Text.Reset()
			case "dl":
				if expectingDL && pendingFolder != "" {
					folderStack = append(folderStack, pendingFolder)
					pendingFolder = ""
					expectingDL = false
				}
			case "a":
				inA = true
				aText.Reset()
				current = Bookmark{}
				for _, attr := range token.Attr {
					switch strings.ToLower(attr.Key) {
					case "href":
						current.URL = strings.TrimSpace(attr.Val)
					case "add_date":
						current.AddDate = attr.Val
					case "last_modified":
						current.LastModified = attr.Val
					}
				}
			}

		case html.EndTagToken:
			token := z.Token()
			switch token.DataAtom.String() {
			case "h3":
				inH3 = false
				if name := strings.TrimSpace(h3Text.String()); name != "" {
					pendingFolder = name
					expectingDL = true
				}
			case "a":
				inA = false
				if current.URL != "" {
					current.Title = strings.TrimSpace(aText.String())
					current.FolderPath = strings.Join(folderStack, " / ")
					current.Domain = DomainOf(current.URL)
					items = append(items, current)
				}
			case "dl":
				if len(folderStack) > 0 {
					folderStack = folderStack[:len(folderStack)-1]
				}
			}

		case html.TextToken:
			text := string(z.Text())
			if inH3 {
				h3Text.WriteString(text)
			} else if inA {
				aText.WriteString(text)
			}
		}
	}
}

// ParseFile parses a bookmarks export from disk.
func ParseFile(path string) ([]Bookmark, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bookmarks: %v", err)
	}
	defer f.Close()
	return Parse(f)
}

// CountDomains tallies bookmarks per domain, most referenced first.
func CountDomains(items []Bookmark) []DomainCount {
	counts := make(map[string]int)
	for _, b := range items {
		if b.Domain != "" {
			counts[b.Domain]++
		}
	}
	out := make([]DomainCount, 0, len(counts))
	for d, c := range counts {
		out = append(out, DomainCount{Domain: d, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Domain < out[j].Domain
	})
	return out
}

// CountDomainFolders tallies bookmarks per (domain, folder) pair, sorted by
// count descending.
func CountDomainFolders(items []Bookmark) []DomainFolderCount {
	type key struct{ domain, folder string }
	counts := make(map[key]int)
	for _, b := range items {
		if b.Domain == "" {
			continue
		}
		counts[key{b.Domain, b.FolderPath}]++
	}
	out := make([]DomainFolderCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, DomainFolderCount{Domain: k.domain, FolderPath: k.folder, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Domain != out[j].Domain {
			return out[i].Domain < out[j].Domain
		}
		return out[i].FolderPath < out[j].FolderPath
	})
	return out
}

// WriteFlatCSV writes the flat bookmark export with folder paths.
func WriteFlatCSV(path string, items []Bookmark) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %v", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"folder_path", "title", "url", "domain", "add_date", "last_modified"}); err != nil {
		return err
	}
	for _, b := range items {
		if err := w.Write([]string{b.FolderPath, b.Title, b.URL, b.Domain, b.AddDate, b.LastModified}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteDomainCountsCSV writes the per-domain reference counts.
func WriteDomainCountsCSV(path string, counts []DomainCount) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %v", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"domain", "bookmark_count"}); err != nil {
		return err
	}
	for _, c := range counts {
		if err := w.Write([]string{c.Domain, strconv.Itoa(c.Count)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteDomainFoldersCSV writes the domain-by-folder counts.
func WriteDomainFoldersCSV(path string, counts []DomainFolderCount) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %v", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"domain", "folder_path", "bookmark_count"}); err != nil {
		return err
	}
	for _, c := range counts {
		if err := w.Write([]string{c.Domain, c.FolderPath, strconv.Itoa(c.Count)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
