package model

import (
	"regexp"
	"strings"
)

// PlatformIDs holds external identifiers agents use for lookups.
type PlatformIDs struct {
	GooglePlaceID   string `json:"google_place_id,omitempty"`
	YelpBusinessID  string `json:"yelp_business_id,omitempty"`
	FacebookPageID  string `json:"facebook_page_id,omitempty"`
	InstagramHandle string `json:"instagram_handle,omitempty"`
	ResySlug        string `json:"resy_slug,omitempty"`
	OpenTableSlug   string `json:"opentable_slug,omitempty"`
}

// Venue is the canonical subject of an analysis: the restaurant the claims
// are about. The Category field selects the recency half-life during
// consensus (sports_bar, tourist, seasonal, chain, or default).
type Venue struct {
	Name        string      `json:"name"`
	Address     string      `json:"address,omitempty"`
	City        string      `json:"city,omitempty"`
	State       string      `json:"state,omitempty"`
	Phone       string      `json:"phone,omitempty"`
	Website     string      `json:"website,omitempty"`
	Timezone    string      `json:"timezone,omitempty"`
	Category    string      `json:"category,omitempty"`
	PlatformIDs PlatformIDs `json:"platform_ids,omitempty"`
}

// venueFieldAliases maps common CSV/API column names onto Venue fields.
var venueFieldAliases = map[string]string{
	"restaurant_name": "name",
	"business_name":   "name",
	"venue_name":      "name",
	"phone_number":    "phone",
	"telephone":       "phone",
	"tel":             "phone",
	"website_url":     "website",
	"web":             "website",
	"url":             "website",
	"venue_type":      "category",
	"venue_category":  "category",
}

// VenueFromMap builds a Venue from a loosely-keyed row (CSV upload, API
// payload), tolerating the usual alias column names.
func VenueFromMap(row map[string]string) Venue {
	var v Venue
	for key, val := range row {
		k := strings.ToLower(strings.TrimSpace(key))
		if alias, ok := venueFieldAliases[k]; ok {
			k = alias
		}
		val = strings.TrimSpace(val)
		switch k {
		case "name":
			v.Name = val
		case "address":
			v.Address = val
		case "city":
			v.City = val
		case "state":
			v.State = val
		case "phone":
			v.Phone = val
		case "website":
			v.Website = val
		case "timezone":
			v.Timezone = val
		case "category":
			v.Category = val
		}
	}
	return v
}

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// NormalizedName standardizes the venue name for matching: uppercase, common
// punctuation stripped, whitespace collapsed.
func (v Venue) NormalizedName() string {
	name := strings.ToUpper(strings.TrimSpace(v.Name))
	name = strings.NewReplacer(
		",", "",
		".", "",
		"'", "",
		"\"", "",
		"&", "AND",
		"-", " ",
	).Replace(name)
	name = multiSpaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// Warnings returns data-quality advisories for a venue about to be analyzed.
// These are never errors: sparse venues still get analyzed, they just gather
// less evidence.
func (v Venue) Warnings() []string {
	var warns []string
	if len(strings.TrimSpace(v.Name)) < 2 {
		warns = append(warns, "venue name is too short or missing")
	}
	if v.Address == "" {
		warns = append(warns, "address missing; agents may struggle to locate venue")
	}
	if v.Phone == "" {
		warns = append(warns, "phone missing; voice verification unavailable")
	}
	if v.Website == "" {
		warns = append(warns, "website missing; site extraction unavailable")
	}
	if (v.PlatformIDs == PlatformIDs{}) {
		warns = append(warns, "no platform IDs; agents fall back to name/address matching")
	}
	return warns
}
