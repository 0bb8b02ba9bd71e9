package render

import (
	"bytes"
	"image/color"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luxe/apperr"
	"luxe/models"
)

func sampleItinerary(days int) *models.Itinerary {
	it := &models.Itinerary{
		Summary: models.Summary{
			Destination:     "Paris",
			TotalDays:       days,
			EstimatedBudget: "$6,000",
			Theme:           "Art & Romance",
			Overview:        "Galleries by day, bistros by night. Café crème included.",
			GettingThere:    "Eurostar from London St Pancras - 2h16.",
		},
		TravelTips: []string{"Book the Louvre ahead.", "Carry a light jacket."},
	}
	for d := 1; d <= days; d++ {
		it.Days = append(it.Days, models.DayPlan{
			DayIndex: d,
			Title:    "Classic Paris",
			Summary:  "Museums and the river.",
			Stops: []models.Stop{
				{
					Name:            "Louvre Museum",
					TimeOfDay:       models.Morning,
					Activity:        strings.Repeat("See the Mona Lisa and the Winged Victory. ", 4),
					TransportAdvice: "Metro line 1 to Palais Royal.",
					BestTimeToVisit: "09:00 AM",
					Food: models.FoodRecommendations{
						Veg:    []string{"Le Potager du Marais - ratatouille"},
						NonVeg: []string{"Le Meurice - duck"},
					},
					MapQuery:  "Louvre Museum Paris",
					PlaceName: "Louvre Museum",
				},
				{
					Name:      "Seine Cruise",
					TimeOfDay: models.Evening,
					Activity:  "Sunset on the river.",
					Food:      models.FoodRecommendations{Veg: []string{}, NonVeg: []string{}},
					MapQuery:  "",
					PlaceName: "Seine Cruise",
				},
			},
		})
	}
	return it
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := imaging.New(400, 300, color.NRGBA{R: 90, G: 60, B: 30, A: 255})
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	return buf.Bytes()
}

func sampleImages(t *testing.T) map[string]models.ResolvedImage {
	return map[string]models.ResolvedImage{
		"louvre museum": {PlaceName: "Louvre Museum", Bytes: jpegBytes(t), Attribution: "Photo by Ana on Unsplash"},
		"seine cruise":  {PlaceName: "Seine Cruise", Bytes: jpegBytes(t), IsPlaceholder: true},
	}
}

var sampleRequest = models.TripRequest{
	Origin: "London", Destination: "Paris", Days: 3,
	Budget: models.Budget{Tier: "luxury"}, Email: "a@b.com", Travelers: 2,
}

func TestRenderProducesPDF(t *testing.T) {
	doc, err := New(nil).Render(sampleItinerary(3), sampleImages(t), sampleRequest)
	require.NoError(t, err)

	assert.Equal(t, "Paris_Luxury_Itinerary.pdf", doc.Filename)
	assert.True(t, bytes.HasPrefix(doc.Bytes, []byte("%PDF-")))
	assert.Equal(t, []string{"cover", "overview-table", "day-1", "day-2", "day-3", "travel-tips"}, doc.Layout.Sections)
	assert.GreaterOrEqual(t, doc.Layout.Pages, 5)
	require.Len(t, doc.Layout.Stops, 6)
}

func TestRenderIsDeterministic(t *testing.T) {
	images := sampleImages(t)
	a, err := New(nil).Render(sampleItinerary(3), images, sampleRequest)
	require.NoError(t, err)
	b, err := New(nil).Render(sampleItinerary(3), images, sampleRequest)
	require.NoError(t, err)

	assert.Equal(t, a.Layout, b.Layout)
	assert.True(t, bytes.Equal(a.Bytes, b.Bytes), "identical input must give identical bytes")
}

func TestRenderMapLinks(t *testing.T) {
	doc, err := New(nil).Render(sampleItinerary(1), sampleImages(t), sampleRequest)
	require.NoError(t, err)

	louvre, cruise := doc.Layout.Stops[0], doc.Layout.Stops[1]
	assert.True(t, louvre.HasMapLink)
	assert.False(t, cruise.HasMapLink, "empty map query means no link")
	assert.True(t, bytes.Contains(doc.Bytes, []byte("query=Louvre+Museum+Paris")))
}

func TestRenderPlaceholders(t *testing.T) {
	images := sampleImages(t)
	delete(images, "louvre museum")
	doc, err := New(nil).Render(sampleItinerary(1), images, sampleRequest)
	require.NoError(t, err)

	assert.True(t, doc.Layout.Stops[0].Placeholder, "missing image is drawn as an empty box")
	assert.True(t, doc.Layout.Stops[1].Placeholder)
	assert.Equal(t, models.Evening, doc.Layout.Stops[1].TimeOfDay)
}

func TestRenderNoImagesAtAll(t *testing.T) {
	doc, err := New(nil).Render(sampleItinerary(2), nil, sampleRequest)
	require.NoError(t, err)
	for _, s := range doc.Layout.Stops {
		assert.True(t, s.Placeholder)
	}
}

func TestRenderUnencodableField(t *testing.T) {
	it := sampleItinerary(2)
	it.Days[1].Stops[0].Activity = "Try the 寿司 counter"

	_, err := New(nil).Render(it, nil, sampleRequest)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrRender)

	var rerr *apperr.RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "days[1].stops[0].activity", rerr.Field)
}

func TestRenderSkipsTipsSectionWhenEmpty(t *testing.T) {
	it := sampleItinerary(1)
	it.TravelTips = nil
	doc, err := New(nil).Render(it, nil, sampleRequest)
	require.NoError(t, err)
	assert.Equal(t, []string{"cover", "overview-table", "day-1"}, doc.Layout.Sections)
}

func TestRenderNilItinerary(t *testing.T) {
	_, err := New(nil).Render(nil, nil, sampleRequest)
	assert.ErrorIs(t, err, apperr.ErrRender)
}

func TestMapLink(t *testing.T) {
	assert.Equal(t, "", MapLink("  "))
	assert.Equal(t, "https://www.google.com/maps/search/?api=1&query=Caf%C3%A9+de+Flore+Paris", MapLink("Café de Flore Paris"))
}

func TestStopPanelTallerThanPage(t *testing.T) {
	st := models.Stop{
		Name:      "Louvre Museum",
		TimeOfDay: models.Morning,
		Activity:  strings.Repeat("Wander the Denon wing and linger by the Winged Victory. ", 120),
		MapQuery:  "Louvre Museum Paris",
	}
	d := newDocument(newCP1252(), "a@b.com")
	d.pdf.AddPage()
	d.stopPanel(1, 0, st, sampleImages(t)["louvre museum"], true)

	require.NoError(t, d.pdf.Error())
	assert.Greater(t, d.pdf.PageNo(), 1, "text continues on the next page")
	assert.Less(t, d.pdf.GetY(), pageH, "cursor stays on the continuation page")
	require.Len(t, d.layout.Stops, 1)
	assert.True(t, d.layout.Stops[0].HasMapLink)
	assert.False(t, d.layout.Stops[0].Placeholder)
}

func TestRenderLongActivity(t *testing.T) {
	it := sampleItinerary(1)
	it.Days[0].Stops[0].Activity = strings.Repeat("Stroll the Tuileries and stop for tea. ", 150)
	doc, err := New(nil).Render(it, sampleImages(t), sampleRequest)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc.Bytes, []byte("%PDF-")))
	require.Len(t, doc.Layout.Stops, 2)
}
