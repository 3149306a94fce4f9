// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// yearPattern finds the first four-digit year in a date such as "2015/5/28".
var yearPattern = regexp.MustCompile(`\b\d{4}\b`)

// venueFields lists detail-page labels that name the venue, in preference order.
var venueFields = []string{"journal", "conference", "book", "source"}

// parseRow extracts a stub from one tr.gsc_a_tr row. Rows without a title
// (placeholder rows such as "There are no articles") are rejected.
func (c *Client) parseRow(row *goquery.Selection) (PublicationStub, bool) {
	link := row.Find("a.gsc_a_at").First()
	title := collapse(link.Text())
	if title == "" {
		return PublicationStub{}, false
	}

	// Newer pages keep the real target in data-href and a placeholder in href.
	href, ok := link.Attr("data-href")
	if !ok || strings.TrimSpace(href) == "" {
		href, _ = link.Attr("href")
	}
	detailURL := c.resolve(href)

	stub := PublicationStub{
		ID:        citationID(detailURL),
		Title:     title,
		Year:      strings.TrimSpace(row.Find(".gsc_a_y span").First().Text()),
		DetailURL: detailURL,
	}

	// First gray line is the author list, second is the citation line whose
	// trailing ", 2015" lives in a gs_oph span.
	if grays := row.Find("div.gs_gray"); grays.Length() > 1 {
		citation := grays.Eq(1).Clone()
		citation.Find(".gs_oph").Remove()
		stub.Citation = collapse(citation.Text())
	}

	cited := row.Find("a.gsc_a_ac").First()
	if collapse(cited.Text()) != "" {
		citedHref, _ := cited.Attr("href")
		stub.CitedByURL = c.resolve(citedHref)
	}
	return stub, true
}

// parseDetail reads the citation detail page. Listing values fill gaps.
func (c *Client) parseDetail(doc *goquery.Document, stub PublicationStub) BibRecord {
	bib := BibRecord{
		Title:      collapse(doc.Find("#gsc_oci_title").First().Text()),
		CitedByURL: stub.CitedByURL,
	}
	if bib.Title == "" {
		bib.Title = stub.Title
	}

	if href, ok := doc.Find("a.gsc_oci_title_link").First().Attr("href"); ok {
		bib.PubURL = c.resolve(href)
	}
	if href, ok := doc.Find("#gsc_oci_title_gg a, .gsc_oci_title_ggi a").First().Attr("href"); ok {
		bib.EprintURL = c.resolve(href)
	}

	fields := make(map[string]*goquery.Selection)
	doc.Find("#gsc_oci_table .gs_scl").Each(func(_ int, s *goquery.Selection) {
		key := strings.ToLower(collapse(s.Find(".gsc_oci_field").First().Text()))
		if key == "" {
			return
		}
		if _, seen := fields[key]; !seen {
			fields[key] = s.Find(".gsc_oci_value").First()
		}
	})

	for _, key := range []string{"authors", "inventors"} {
		if v, ok := fields[key]; ok {
			bib.Author = joinAuthors(v.Text())
			break
		}
	}

	if v, ok := fields["publication date"]; ok {
		bib.PubYear = yearPattern.FindString(v.Text())
	}
	if bib.PubYear == "" {
		bib.PubYear = stub.Year
	}

	for _, key := range venueFields {
		if v, ok := fields[key]; ok {
			if venue := collapse(v.Text()); venue != "" {
				bib.Venue = venue
				break
			}
		}
	}
	if bib.Venue == "" {
		bib.Venue = stub.Citation
	}

	if v, ok := fields["publisher"]; ok {
		bib.Publisher = collapse(v.Text())
	}
	if v, ok := fields["description"]; ok {
		bib.Abstract = collapse(v.Text())
	}
	if v, ok := fields["total citations"]; ok {
		if href, ok := v.Find(`a[href*="cites"]`).First().Attr("href"); ok {
			bib.CitedByURL = c.resolve(href)
		}
	}
	return bib
}

// joinAuthors turns the detail page's comma-separated author list into a
// BibTeX-style " and "-joined string.
func joinAuthors(list string) string {
	var names []string
	for _, name := range strings.Split(list, ",") {
		name = collapse(name)
		if name == "" || name == "..." {
			continue
		}
		names = append(names, name)
	}
	return strings.Join(names, " and ")
}

// citationID returns the citation_for_view query value of a detail URL.
func citationID(detailURL string) string {
	u, err := url.Parse(detailURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("citation_for_view")
}

// collapse trims s and folds internal whitespace runs to single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
