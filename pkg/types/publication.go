// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the configuration and output records shared by the
// pubfetch packages.
package types

// Publication is one entry of publications.json. Every field except Authors
// may be null; Authors is always an array, possibly empty, in listed order.
type Publication struct {
	// Title is the publication title as reported by the source.
	Title *string `json:"title" yaml:"title"`

	// Authors lists author names in source order with empties removed.
	Authors []string `json:"authors" yaml:"authors"`

	// Year is the publication year, nil when missing or unparseable.
	Year *int `json:"year" yaml:"year"`

	// Venue is the journal, conference, or other container.
	Venue *string `json:"venue" yaml:"venue"`

	// URL is the best available link: eprint, then publication page, then cited-by.
	URL *string `json:"url" yaml:"url"`
}

// SortYear returns the year used for ordering; unknown years sort as 0.
func (p Publication) SortYear() int {
	if p.Year == nil {
		return 0
	}
	return *p.Year
}
