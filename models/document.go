package models

import (
	"regexp"
	"strings"
)

// ResolvedImage is the image chosen for one place during one build.
// Bytes is always JPEG; placeholders carry the fixed local asset.
type ResolvedImage struct {
	PlaceName     string `json:"place_name"`
	SourceURL     string `json:"source_url,omitempty"`
	Attribution   string `json:"attribution,omitempty"`
	Bytes         []byte `json:"-"`
	IsPlaceholder bool   `json:"is_placeholder"`
}

// RenderedDocument is the finished PDF plus a structural trace of how it was laid out.
type RenderedDocument struct {
	Filename    string `json:"filename"`
	Destination string `json:"destination"`
	Bytes       []byte `json:"-"`
	Layout      Layout `json:"layout"`
}

type Layout struct {
	Sections []string     `json:"sections"`
	Stops    []StopLayout `json:"stops"`
	Pages    int          `json:"pages"`
}

type StopLayout struct {
	Day         int       `json:"day"`
	Position    int       `json:"position"`
	Name        string    `json:"name"`
	TimeOfDay   TimeOfDay `json:"time_of_day"`
	HasMapLink  bool      `json:"has_map_link"`
	Placeholder bool      `json:"placeholder"`
}

const DocumentSuffix = "_Luxury_Itinerary.pdf"

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9 _.\-]`)

// DocumentFilename derives "<Destination>_Luxury_Itinerary.pdf" with the destination made filesystem safe.
func DocumentFilename(destination string) string {
	name := strings.TrimSpace(destination)
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, ". ")
	if name == "" {
		name = "Itinerary"
	}
	return name + DocumentSuffix
}
