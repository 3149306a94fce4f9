// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import "errors"

var (
	// ErrProfileNotFound means the profile page does not exist or carries no author.
	ErrProfileNotFound = errors.New("scholar profile not found")

	// ErrBlocked means the source answered with a rate-limit or captcha page.
	ErrBlocked = errors.New("blocked by scholar (rate limit or captcha)")
)

// Profile is a resolved author profile.
type Profile struct {
	ID          string
	Name        string
	Affiliation string
}

// PublicationStub is one row of the profile's publication table, before the
// per-publication detail page has been fetched.
type PublicationStub struct {
	// ID is the citation_for_view key, e.g. "oPSq5PQAAAAJ:u5HHmVD_uO8C".
	ID string

	Title string

	// Year is the year column text, possibly empty.
	Year string

	// Citation is the gray venue line, e.g. "Nature 521 (7553), 436-444".
	Citation string

	// CitedByURL is the absolute "Cited by" link, empty when uncited.
	CitedByURL string

	// DetailURL is the absolute link to the citation detail page.
	DetailURL string
}

// BibRecord is the bibliographic detail of a publication. Empty fields are
// absent in the source.
type BibRecord struct {
	Title string

	// Author holds all names joined with " and ", in listed order.
	Author string

	PubYear   string
	Venue     string
	Publisher string
	Abstract  string

	EprintURL  string
	PubURL     string
	CitedByURL string
}
