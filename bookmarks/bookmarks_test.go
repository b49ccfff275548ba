package bookmarks

import (
	"strings"
	"testing"
)

const sampleExport = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
    <DT><H3 ADD_DATE="1700000000">Reading</H3>
    <DL><p>
        <DT><A HREF="https://example.com/article" ADD_DATE="1700000001">An article</A>
        <DT><H3>Tech</H3>
        <DL><p>
            <DT><A HREF="https://blog.example.com:8443/post" LAST_MODIFIED="1700000002">A post</A>
            <DT><A HREF="https://example.com/other">Another</A>
        </DL><p>
        <DT><A HREF="https://news.example.org/">News</A>
    </DL><p>
    <DT><A HREF="https://toplevel.example/">Top level</A>
    <DT><A HREF="">Empty href</A>
</DL><p>
`

func TestParseFolderNesting(t *testing.T) {
	items, err := Parse(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("Expected 5 bookmarks, got %d", len(items))
	}

	cases := []struct{ url, folder, domain string }{
		{"https://example.com/article", "Reading", "example.com"},
		{"https://blog.example.com:8443/post", "Reading / Tech", "blog.example.com"},
		{"https://example.com/other", "Reading / Tech", "example.com"},
		{"https://news.example.org/", "Reading", "news.example.org"},
		{"https://toplevel.example/", "", "toplevel.example"},
	}
	for i, want := range cases {
		got := items[i]
		if got.URL != want.url || got.FolderPath != want.folder || got.Domain != want.domain {
			t.Errorf("Bookmark %d: got (%q, %q, %q), want (%q, %q, %q)",
				i, got.URL, got.FolderPath, got.Domain, want.url, want.folder, want.domain)
		}
	}

	if items[0].AddDate != "1700000001" {
		t.Errorf("Expected add_date preserved, got %q", items[0].AddDate)
	}
	if items[1].LastModified != "1700000002" {
		t.Errorf("Expected last_modified preserved, got %q", items[1].LastModified)
	}
	if items[0].Title != "An article" {
		t.Errorf("Expected title, got %q", items[0].Title)
	}
}

func TestDomainOf(t *testing.T) {
	cases := []struct{ in, want string }{
		{"https://Example.COM/path", "example.com"},
		{"https://example.com:8443/x", "example.com"},
		{"not a url", ""},
		{"mailto:someone@example.com", ""},
	}
	for _, tc := range cases {
		if got := DomainOf(tc.in); got != tc.want {
			t.Errorf("DomainOf(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCountDomains(t *testing.T) {
	items, err := Parse(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	counts := CountDomains(items)
	if len(counts) != 4 {
		t.Fatalf("Expected 4 domains, got %d", len(counts))
	}
	if counts[0].Domain != "example.com" || counts[0].Count != 2 {
		t.Errorf("Expected example.com first with count 2, got %+v", counts[0])
	}
	// Remaining singles are sorted alphabetically.
	if counts[1].Domain != "blog.example.com" {
		t.Errorf("Expected alphabetical tie-break, got %s", counts[1].Domain)
	}
}

func TestCountDomainFolders(t *testing.T) {
	items, err := Parse(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	counts := CountDomainFolders(items)

	for _, c := range counts {
		if c.Domain == "example.com" && c.FolderPath == "Reading / Tech" && c.Count != 1 {
			t.Errorf("Unexpected count for example.com in Tech: %d", c.Count)
		}
	}
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	if total != 5 {
		t.Errorf("Expected 5 counted bookmarks, got %d", total)
	}
}
