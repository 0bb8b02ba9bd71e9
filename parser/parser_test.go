package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luxe/apperr"
	"luxe/models"
)

func parisRequest(days int) models.TripRequest {
	return models.TripRequest{
		Origin:      "London",
		Destination: "Paris",
		Days:        days,
		Budget:      models.Budget{Tier: "luxury"},
		Email:       "a@b.com",
		Vibe:        "Romantic",
		Travelers:   2,
	}
}

// reply builds a well-formed model answer with the given day count and two stops per day.
func reply(days int) string {
	var b strings.Builder
	b.WriteString("TITLE: Journey to Paris\nDESTINATION: Paris\nTHEME: Art and Romance\nBUDGET: $6,000\n")
	b.WriteString("OVERVIEW: Three days of galleries\nand long dinners.\n")
	b.WriteString("GETTING_THERE: Eurostar from St Pancras.\n\n")
	b.WriteString("TIMELINE_START\n")
	for d := 1; d <= days; d++ {
		fmt.Fprintf(&b, "Day %d: Summary %d\n", d, d)
	}
	b.WriteString("TIMELINE_END\n\nITINERARY_START\n")
	for d := 1; d <= days; d++ {
		fmt.Fprintf(&b, "DAY %d: Title %d\n", d, d)
		fmt.Fprintf(&b, "STOP: Louvre Museum %d\nTIME: Morning\nPLACE: Louvre Museum %d\n", d, d)
		b.WriteString("DETAILS: See the Mona Lisa.\nLOGISTICS: Metro line 1.\nBEST TIME: 09:00 AM\n")
		b.WriteString("VEG: Le Potager du Marais - ratatouille; Wild & The Moon - bowl\n")
		b.WriteString("NON-VEG: Le Meurice - duck\n")
		fmt.Fprintf(&b, "MAP: Louvre Museum %d Paris\n", d)
		fmt.Fprintf(&b, "STOP: Seine Cruise %d\nTIME: Evening\nDETAILS: Sunset on the river.\n", d)
	}
	b.WriteString("ITINERARY_END\n\nTRAVEL_TIPS:\n- Book the Louvre ahead.\n- Carry a light jacket.\n")
	return b.String()
}

func TestParseWellFormedReply(t *testing.T) {
	it, err := New(nil).Parse(reply(3), parisRequest(3))
	require.NoError(t, err)

	assert.Equal(t, "Paris", it.Summary.Destination)
	assert.Equal(t, 3, it.Summary.TotalDays)
	assert.Equal(t, "$6,000", it.Summary.EstimatedBudget)
	assert.Equal(t, "Art and Romance", it.Summary.Theme)
	assert.Equal(t, "Journey to Paris", it.Summary.Title)
	assert.Equal(t, "Three days of galleries and long dinners.", it.Summary.Overview)
	assert.Equal(t, "Eurostar from St Pancras.", it.Summary.GettingThere)
	assert.Equal(t, []string{"Book the Louvre ahead.", "Carry a light jacket."}, it.TravelTips)

	require.Len(t, it.Days, 3)
	for i, d := range it.Days {
		assert.Equal(t, i+1, d.DayIndex)
		assert.Equal(t, fmt.Sprintf("Title %d", i+1), d.Title)
		assert.Equal(t, fmt.Sprintf("Summary %d", i+1), d.Summary)
		require.Len(t, d.Stops, 2)
	}

	first := it.Days[0].Stops[0]
	assert.Equal(t, "Louvre Museum 1", first.Name)
	assert.Equal(t, models.Morning, first.TimeOfDay)
	assert.Equal(t, "See the Mona Lisa.", first.Activity)
	assert.Equal(t, "Metro line 1.", first.TransportAdvice)
	assert.Equal(t, "09:00 AM", first.BestTimeToVisit)
	assert.Equal(t, []string{"Le Potager du Marais - ratatouille", "Wild & The Moon - bowl"}, first.Food.Veg)
	assert.Equal(t, []string{"Le Meurice - duck"}, first.Food.NonVeg)
	assert.Equal(t, "Louvre Museum 1 Paris", first.MapQuery)

	second := it.Days[0].Stops[1]
	assert.Equal(t, models.Evening, second.TimeOfDay)
	assert.Equal(t, "Seine Cruise 1", second.PlaceName, "missing PLACE falls back to the stop name")
	assert.Equal(t, "Seine Cruise 1 Paris", second.MapQuery)
	assert.Empty(t, second.TransportAdvice)
	assert.NotNil(t, second.Food.Veg)
	assert.Empty(t, second.Food.Veg)
}

func TestParseTruncatesExtraDays(t *testing.T) {
	it, err := New(nil).Parse(reply(5), parisRequest(3))
	require.NoError(t, err)
	require.Len(t, it.Days, 3)
	assert.Equal(t, 3, it.Days[2].DayIndex)
}

func TestParseTooFewDaysFails(t *testing.T) {
	_, err := New(nil).Parse(reply(2), parisRequest(3))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrParse)
	assert.Contains(t, err.Error(), "2 day(s)")
}

func TestParseStructuralFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"prose only", "I'm sorry, I can't help with that."},
		{"no days", "DESTINATION: Paris\nITINERARY_START\nITINERARY_END\n"},
		{"no destination", strings.Replace(reply(3), "DESTINATION: Paris\n", "", 1)},
		{"day without stops", "DESTINATION: Paris\nITINERARY_START\nDAY 1: Arrival\nDAY 2: More\nSTOP: Louvre\nDAY 3: Last\nSTOP: Orsay\nITINERARY_END\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(nil).Parse(tc.raw, parisRequest(3))
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrParse)
		})
	}
}

func TestParseRenumbersDays(t *testing.T) {
	raw := strings.NewReplacer("DAY 1:", "DAY 4:", "DAY 2:", "DAY 4:", "DAY 3:", "DAY 9:").Replace(reply(3))
	it, err := New(nil).Parse(raw, parisRequest(3))
	require.NoError(t, err)
	for i, d := range it.Days {
		assert.Equal(t, i+1, d.DayIndex)
	}
	assert.Equal(t, "Title 2", it.Days[1].Title)
}

func TestParseLooseMarkdownReply(t *testing.T) {
	raw := "```\n" + `**DESTINATION:** Kyoto
THEME: Zen

## DAY 1 - Temples
STOP: Fushimi Inari - Morning
DETAILS: Walk the torii gates.
It gets busy after nine.
FOOD:
- 🥗 Veg: Vegans Cafe
- 🍗 Non-Veg: Torikizoku
STOP: Gion Stroll
TIME: late evening (8 PM)
MAP:

DAY 2: Arashiyama
STOP: Bamboo Grove
`
	req := models.TripRequest{Destination: "Kyoto", Days: 2, Budget: models.Budget{Amount: 4000}, Vibe: "Cultural"}
	it, err := New(nil).Parse(raw, req)
	require.NoError(t, err)

	assert.Equal(t, "Kyoto", it.Summary.Destination)
	assert.Equal(t, "$4,000", it.Summary.EstimatedBudget, "budget falls back to the request")
	assert.Equal(t, "Temples", it.Days[0].Title)

	inari := it.Days[0].Stops[0]
	assert.Equal(t, "Fushimi Inari", inari.Name)
	assert.Equal(t, models.Morning, inari.TimeOfDay)
	assert.Equal(t, "Walk the torii gates. It gets busy after nine.", inari.Activity)
	assert.Equal(t, []string{"Vegans Cafe"}, inari.Food.Veg)
	assert.Equal(t, []string{"Torikizoku"}, inari.Food.NonVeg)

	gion := it.Days[0].Stops[1]
	assert.Equal(t, models.Evening, gion.TimeOfDay)
	assert.Empty(t, gion.MapQuery, "explicit empty MAP means no link")

	grove := it.Days[1].Stops[0]
	assert.Equal(t, models.Morning, grove.TimeOfDay, "first stop of a day defaults to morning")
	assert.Equal(t, "Bamboo Grove Kyoto", grove.MapQuery)
}

func TestParseMapQueryNotDoubled(t *testing.T) {
	raw := "DESTINATION: Rome\nDAY 1: Ancient\nSTOP: Colosseum\nPLACE: Colosseum Rome\n"
	req := models.TripRequest{Destination: "Rome", Days: 1, Budget: models.Budget{Tier: "mid"}}
	it, err := New(nil).Parse(raw, req)
	require.NoError(t, err)
	assert.Equal(t, "Colosseum Rome", it.Days[0].Stops[0].MapQuery)
}

func TestParseDestinationFollowsRequest(t *testing.T) {
	raw := strings.Replace(reply(3), "DESTINATION: Paris\n", "DESTINATION: Paris, France\n", 1)
	it, err := New(nil).Parse(raw, parisRequest(3))
	require.NoError(t, err)
	assert.Equal(t, "Paris", it.Summary.Destination)

	req := parisRequest(3)
	req.Destination = ""
	it, err = New(nil).Parse(raw, req)
	require.NoError(t, err)
	assert.Equal(t, "Paris, France", it.Summary.Destination, "model value fills an empty request")
}

func TestParseDayWordInProse(t *testing.T) {
	raw := `DESTINATION: Paris
ITINERARY_START
DAY 1: Museums
STOP: Louvre
DETAILS: Buy a museum pass.
Day 2 passes are cheaper.
DAY 2: Markets
STOP: Marche des Enfants Rouges
ITINERARY_END
`
	it, err := New(nil).Parse(raw, parisRequest(2))
	require.NoError(t, err)
	require.Len(t, it.Days, 2)
	assert.Equal(t, "Buy a museum pass. Day 2 passes are cheaper.", it.Days[0].Stops[0].Activity)
	assert.Equal(t, "Markets", it.Days[1].Title)
}

func TestParseUnmarkedOutlineBeforeDays(t *testing.T) {
	raw := `DESTINATION: Paris
Day 1: Art
Day 2: Food

DAY 1: Galleries
STOP: Musee d'Orsay
DAY 2: Tasting
STOP: Rue Cler
`
	it, err := New(nil).Parse(raw, parisRequest(2))
	require.NoError(t, err)
	require.Len(t, it.Days, 2)
	assert.Equal(t, "Galleries", it.Days[0].Title)
	assert.Equal(t, "Art", it.Days[0].Summary)
	assert.Equal(t, "Food", it.Days[1].Summary)
	assert.Equal(t, "Rue Cler", it.Days[1].Stops[0].Name)
}

func TestClean(t *testing.T) {
	tests := []struct {
		in     string
		out    string
		bullet bool
	}{
		{"  - Carry cash  ", "Carry cash", true},
		{"**STOP:** Louvre", "STOP: Louvre", false},
		{"### DAY 2: Rest", "DAY 2: Rest", false},
		{"• 🥗 Veg: Cafe", "Veg: Cafe", true},
		{"---", "", false},
	}
	for _, tc := range tests {
		got, bullet := clean(tc.in)
		assert.Equal(t, tc.out, got, tc.in)
		assert.Equal(t, tc.bullet, bullet, tc.in)
	}
}

func TestSplitLabel(t *testing.T) {
	k, v, ok := splitLabel("Best time to visit: 10:00 AM")
	require.True(t, ok)
	assert.Equal(t, "BEST_TIME", k)
	assert.Equal(t, "10:00 AM", v)

	_, _, ok = splitLabel("Note: bring cash")
	assert.False(t, ok)
}
