// Package domain holds the types shared by every stage of a listing optimization run.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Placeholder values stored when a page yields no usable content for a field.
const (
	NoBulletsSentinel     = "Product features not available"
	NoDescriptionSentinel = "Product description not available"
)

// Region is a marketplace the listing is fetched from.
type Region string

const (
	RegionUS Region = "US"
	RegionIN Region = "IN"
	RegionUK Region = "UK"
	RegionCA Region = "CA"
)

// DefaultRegion is used when a request does not name one.
const DefaultRegion = RegionIN

var regionBaseURLs = map[Region]string{
	RegionUS: "https://www.amazon.com/dp/",
	RegionIN: "https://www.amazon.in/dp/",
	RegionUK: "https://www.amazon.co.uk/dp/",
	RegionCA: "https://www.amazon.ca/dp/",
}

// Regions returns the supported regions in a stable order.
func Regions() []Region {
	return []Region{RegionUS, RegionIN, RegionUK, RegionCA}
}

// ParseRegion resolves a region code case-insensitively. An empty code
// resolves to DefaultRegion.
func ParseRegion(code string) (Region, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultRegion, nil
	}
	r := Region(code)
	if _, ok := regionBaseURLs[r]; !ok {
		return "", &Error{
			Kind:   KindInvalidRegion,
			Region: r,
			Err:    fmt.Errorf("unsupported region %q (supported: US, IN, UK, CA)", code),
		}
	}
	return r, nil
}

// BaseURL returns the product page prefix for the region.
func (r Region) BaseURL() string {
	return regionBaseURLs[r]
}

// ProductURL returns the product page for asin in this region.
func (r Region) ProductURL(asin string) string {
	return r.BaseURL() + asin
}

func (r Region) String() string { return string(r) }

// Listing is the text extracted from a product page.
type Listing struct {
	ASIN        string   `json:"asin" yaml:"asin"`
	Region      Region   `json:"region" yaml:"region"`
	Title       string   `json:"title" yaml:"title"`
	Bullets     []string `json:"bullets" yaml:"bullets"`
	Description string   `json:"description" yaml:"description"`
}

// Rewrite is the optimized copy returned by the completion service.
type Rewrite struct {
	Title       string   `json:"title" yaml:"title"`
	Bullets     []string `json:"bullets" yaml:"bullets"`
	Description string   `json:"description" yaml:"description"`
	Keywords    []string `json:"keywords" yaml:"keywords"`
}

// Record is a persisted optimization run.
type Record struct {
	ID        int64     `json:"id" yaml:"id"`
	Original  Listing   `json:"original" yaml:"original"`
	Optimized Rewrite   `json:"optimized" yaml:"optimized"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updated_at"`
}

// ASIN is shorthand for r.Original.ASIN.
func (r Record) ASIN() string { return r.Original.ASIN }

// HistoryEntry is the change-history projection of a Record.
type HistoryEntry struct {
	ID          int64     `json:"id" yaml:"id"`
	ASIN        string    `json:"asin" yaml:"asin"`
	Title       string    `json:"optimizedTitle" yaml:"optimized_title"`
	Bullets     []string  `json:"optimizedBullets" yaml:"optimized_bullets"`
	Description string    `json:"optimizedDescription" yaml:"optimized_description"`
	Keywords    []string  `json:"keywords" yaml:"keywords"`
	CreatedAt   time.Time `json:"createdAt" yaml:"created_at"`
}
