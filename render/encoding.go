package render

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"luxe/apperr"
	"luxe/models"
)

// The core PDF fonts only cover Windows-1252.
type cp1252 struct {
	strict  *encoding.Encoder
	lenient *encoding.Encoder
}

func newCP1252() *cp1252 {
	return &cp1252{
		strict:  charmap.Windows1252.NewEncoder(),
		lenient: encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder()),
	}
}

// text converts s for drawing. Callers run check first, so failures here
// only come from strings outside the itinerary and degrade to '?'.
func (c *cp1252) text(s string) string {
	if out, err := c.strict.String(s); err == nil {
		return out
	}
	out, _ := c.lenient.String(s)
	return out
}

type fieldText struct {
	field string
	value string
}

// check reports the first itinerary or request field that cannot be drawn.
func (c *cp1252) check(it *models.Itinerary, req models.TripRequest) error {
	for _, f := range fieldsOf(it, req) {
		if _, err := c.strict.String(f.value); err != nil {
			return &apperr.RenderError{Field: f.field, Err: fmt.Errorf("not representable in Windows-1252: %q", f.value)}
		}
	}
	return nil
}

func fieldsOf(it *models.Itinerary, req models.TripRequest) []fieldText {
	s := it.Summary
	out := []fieldText{
		{"request.email", req.Email},
		{"request.origin", req.Origin},
		{"summary.destination", s.Destination},
		{"summary.estimated_budget", s.EstimatedBudget},
		{"summary.theme", s.Theme},
		{"summary.title", s.Title},
		{"summary.overview", s.Overview},
		{"summary.getting_there", s.GettingThere},
	}
	for i, d := range it.Days {
		p := fmt.Sprintf("days[%d]", i)
		out = append(out,
			fieldText{p + ".title", d.Title},
			fieldText{p + ".summary", d.Summary})
		for j, st := range d.Stops {
			sp := fmt.Sprintf("%s.stops[%d]", p, j)
			out = append(out,
				fieldText{sp + ".name", st.Name},
				fieldText{sp + ".activity", st.Activity},
				fieldText{sp + ".transport_advice", st.TransportAdvice},
				fieldText{sp + ".best_time_to_visit", st.BestTimeToVisit})
			for k, v := range st.Food.Veg {
				out = append(out, fieldText{fmt.Sprintf("%s.food.veg[%d]", sp, k), v})
			}
			for k, v := range st.Food.NonVeg {
				out = append(out, fieldText{fmt.Sprintf("%s.food.non_veg[%d]", sp, k), v})
			}
		}
	}
	for i, tip := range it.TravelTips {
		out = append(out, fieldText{fmt.Sprintf("travel_tips[%d]", i), tip})
	}
	return out
}
