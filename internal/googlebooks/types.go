package googlebooks

import (
	"strings"
	"time"
)

// Volumes is the search response envelope.
type Volumes struct {
	Kind       string   `json:"kind"`
	TotalItems int      `json:"totalItems"`
	Items      []Volume `json:"items"`
}

type Volume struct {
	Kind       string     `json:"kind"`
	ID         string     `json:"id"`
	ETag       string     `json:"etag"`
	SelfLink   string     `json:"selfLink"`
	VolumeInfo VolumeInfo `json:"volumeInfo"`
}

type VolumeInfo struct {
	Title               string               `json:"title"`
	Authors             []string             `json:"authors"`
	Publisher           string               `json:"publisher"`
	PublishedDate       string               `json:"publishedDate"`
	Description         string               `json:"description"`
	IndustryIdentifiers []IndustryIdentifier `json:"industryIdentifiers"`
	PageCount           *int                 `json:"pageCount"`
	Categories          []string             `json:"categories"`
	ImageLinks          ImageLinks           `json:"imageLinks"`
	Language            string               `json:"language"`
}

type IndustryIdentifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

type ImageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail"`
}

const (
	IdentifierISBN13 = "ISBN_13"
	IdentifierISBN10 = "ISBN_10"
)

// ISBN returns the first ISBN-13 identifier, falling back to the first
// ISBN-10. It returns "" when the volume has neither.
func (v VolumeInfo) ISBN() string {
	for _, want := range []string{IdentifierISBN13, IdentifierISBN10} {
		for _, id := range v.IndustryIdentifiers {
			if id.Type == want && id.Identifier != "" {
				return id.Identifier
			}
		}
	}
	return ""
}

var publishedLayouts = []string{"2006-01-02", "2006-01", "2006", time.RFC3339}

// Published parses the provider's publishedDate, which may be a full date,
// a year-month or a bare year. Unparseable values yield nil.
func (v VolumeInfo) Published() *time.Time {
	raw := strings.TrimSpace(v.PublishedDate)
	if raw == "" {
		return nil
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func (vs *Volumes) normalize() {
	if vs.Items == nil {
		vs.Items = []Volume{}
	}
	for i := range vs.Items {
		vs.Items[i].normalize()
	}
}

func (v *Volume) normalize() {
	info := &v.VolumeInfo
	if info.Authors == nil {
		info.Authors = []string{}
	}
	if info.Categories == nil {
		info.Categories = []string{}
	}
	if info.IndustryIdentifiers == nil {
		info.IndustryIdentifiers = []IndustryIdentifier{}
	}
}
