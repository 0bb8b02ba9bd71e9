package models

import (
	"fmt"
	"strings"

	"luxe/apperr"
)

type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
)

// ParseTimeOfDay accepts labels such as "Morning", "late afternoon" or "Evening (8 PM)".
func ParseTimeOfDay(s string) (TimeOfDay, bool) {
	l := strings.ToLower(s)
	switch {
	case strings.Contains(l, "morning"), strings.Contains(l, "breakfast"), strings.Contains(l, "sunrise"):
		return Morning, true
	case strings.Contains(l, "afternoon"), strings.Contains(l, "lunch"), strings.Contains(l, "midday"), strings.Contains(l, "noon"):
		return Afternoon, true
	case strings.Contains(l, "evening"), strings.Contains(l, "night"), strings.Contains(l, "dinner"), strings.Contains(l, "sunset"):
		return Evening, true
	}
	return "", false
}

func (t TimeOfDay) Valid() bool {
	return t == Morning || t == Afternoon || t == Evening
}

// Label is the title-cased form used in the document.
func (t TimeOfDay) Label() string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}

// Itinerary is the validated, canonical trip plan. Nothing else reaches the renderer.
type Itinerary struct {
	Summary    Summary   `json:"summary"`
	Days       []DayPlan `json:"days"`
	TravelTips []string  `json:"travel_tips,omitempty"`
}

type Summary struct {
	Destination     string `json:"destination"`
	TotalDays       int    `json:"total_days"`
	EstimatedBudget string `json:"estimated_budget"`
	Theme           string `json:"theme"`
	Title           string `json:"title,omitempty"`
	Overview        string `json:"overview,omitempty"`
	GettingThere    string `json:"getting_there,omitempty"`
}

type DayPlan struct {
	DayIndex int    `json:"day_index"`
	Title    string `json:"title"`
	// one-line timeline entry, may be empty
	Summary string `json:"summary,omitempty"`
	Stops   []Stop `json:"stops"`
}

type Stop struct {
	Name            string              `json:"name"`
	TimeOfDay       TimeOfDay           `json:"time_of_day"`
	Activity        string              `json:"activity"`
	TransportAdvice string              `json:"transport_advice"`
	BestTimeToVisit string              `json:"best_time_to_visit"`
	Food            FoodRecommendations `json:"food"`
	MapQuery        string              `json:"map_query"`
	PlaceName       string              `json:"place_name"`
}

type FoodRecommendations struct {
	Veg    []string `json:"veg"`
	NonVeg []string `json:"non_veg"`
}

// Validate enforces the schema invariants against the requested trip length.
func (it *Itinerary) Validate(requestDays int) error {
	if it == nil {
		return apperr.Parsef("empty itinerary")
	}
	if strings.TrimSpace(it.Summary.Destination) == "" {
		return apperr.Parsef("summary has no destination")
	}
	if len(it.Days) == 0 {
		return apperr.Parsef("itinerary has no days")
	}
	if it.Summary.TotalDays != requestDays {
		return apperr.Parsef("summary reports %d days, request asked for %d", it.Summary.TotalDays, requestDays)
	}
	if len(it.Days) != requestDays {
		return apperr.Parsef("itinerary has %d days, request asked for %d", len(it.Days), requestDays)
	}
	for i, d := range it.Days {
		if d.DayIndex != i+1 {
			return apperr.Parsef("day at position %d has index %d", i+1, d.DayIndex)
		}
		if len(d.Stops) == 0 {
			return apperr.Parsef("day %d has no stops", d.DayIndex)
		}
		for j, s := range d.Stops {
			if strings.TrimSpace(s.Name) == "" {
				return apperr.Parsef("day %d stop %d has no name", d.DayIndex, j+1)
			}
			if strings.TrimSpace(s.PlaceName) == "" {
				return apperr.Parsef("day %d stop %d has no place name", d.DayIndex, j+1)
			}
			if !s.TimeOfDay.Valid() {
				return apperr.Parsef("day %d stop %d has time of day %q", d.DayIndex, j+1, s.TimeOfDay)
			}
		}
	}
	return nil
}

// PlaceNames returns the distinct image-lookup keys in first-appearance order.
func (it *Itinerary) PlaceNames() []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range it.Days {
		for _, s := range d.Stops {
			k := PlaceKey(s.PlaceName)
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, s.PlaceName)
		}
	}
	return out
}

// StopCount is the total number of stops across all days.
func (it *Itinerary) StopCount() int {
	n := 0
	for _, d := range it.Days {
		n += len(d.Stops)
	}
	return n
}

// PlaceKey normalizes a place name for cache lookups.
func PlaceKey(place string) string {
	return strings.ToLower(strings.Join(strings.Fields(place), " "))
}

func (s Stop) String() string {
	return fmt.Sprintf("%s (%s)", s.Name, s.TimeOfDay)
}
