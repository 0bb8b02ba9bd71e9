// Package render lays an itinerary out as a PDF. Output is deterministic:
// the same itinerary, images and request always produce the same bytes.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"luxe/apperr"
	"luxe/logging"
	"luxe/models"
)

const (
	MapsSearchURL = "https://www.google.com/maps/search/?api=1&query="
	Brand         = "Luxe AI Travel Agent"
)

// documentDate is stamped on every PDF so output does not depend on the clock.
var documentDate = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// MapLink returns the map search URL for query, or "" when there is nothing to search.
func MapLink(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}
	return MapsSearchURL + url.QueryEscape(query)
}

type Renderer struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Renderer {
	return &Renderer{logger: logging.OrNop(logger)}
}

// Render lays out it. images is keyed by models.PlaceKey; a missing entry is
// drawn as an empty image box.
func (r *Renderer) Render(it *models.Itinerary, images map[string]models.ResolvedImage, req models.TripRequest) (*models.RenderedDocument, error) {
	if it == nil {
		return nil, &apperr.RenderError{Err: errors.New("nil itinerary")}
	}
	enc := newCP1252()
	if err := enc.check(it, req); err != nil {
		return nil, err
	}

	d := newDocument(enc, req.Email)
	d.setMetadata(it)
	d.cover(it, req)
	d.overviewTable(it)
	for _, day := range it.Days {
		d.day(day, images)
	}
	if len(it.TravelTips) > 0 {
		d.travelTips(it.TravelTips)
	}
	d.layout.Pages = d.pdf.PageNo()

	if err := d.pdf.Error(); err != nil {
		return nil, &apperr.RenderError{Err: err}
	}
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, &apperr.RenderError{Err: fmt.Errorf("writing pdf: %w", err)}
	}

	doc := &models.RenderedDocument{
		Filename:    models.DocumentFilename(it.Summary.Destination),
		Destination: it.Summary.Destination,
		Bytes:       buf.Bytes(),
		Layout:      d.layout,
	}
	r.logger.Info("itinerary rendered",
		zap.String("file", doc.Filename),
		zap.Int("pages", doc.Layout.Pages),
		zap.Int("bytes", len(doc.Bytes)))
	return doc, nil
}
