// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/pubfetch/internal/scholar"
	"github.com/pdiddy/pubfetch/pkg/types"
)

// authorDelimiter separates names in a BibTeX-style author string.
const authorDelimiter = " and "

// Normalize flattens a detail record into a Publication.
func Normalize(bib scholar.BibRecord) types.Publication {
	return types.Publication{
		Title:   optional(bib.Title),
		Authors: SplitAuthors(bib.Author),
		Year:    ParseYear(bib.PubYear),
		Venue:   optional(bib.Venue),
		URL:     ChooseURL(bib.EprintURL, bib.PubURL, bib.CitedByURL),
	}
}

// SplitAuthors splits on the literal " and ", trims each name, and drops
// empty names. The result is never nil.
func SplitAuthors(s string) []string {
	authors := []string{}
	for _, name := range strings.Split(s, authorDelimiter) {
		if name = strings.TrimSpace(name); name != "" {
			authors = append(authors, name)
		}
	}
	return authors
}

// ParseYear returns the integer year, or nil when s is empty or not a number.
func ParseYear(s string) *int {
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &y
}

// ChooseURL returns the first non-empty link, or nil.
func ChooseURL(links ...string) *string {
	for _, l := range links {
		if l != "" {
			return &l
		}
	}
	return nil
}

// SortByYear orders pubs newest first. Unknown years sort as 0 and ties keep
// their enumeration order.
func SortByYear(pubs []types.Publication) {
	sort.SliceStable(pubs, func(i, j int) bool {
		return pubs[i].SortYear() > pubs[j].SortYear()
	})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
