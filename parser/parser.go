// Package parser turns the generative model's labeled-line reply into a
// validated models.Itinerary. Either a complete itinerary comes out or a
// ParseError does; the renderer never sees partial structure.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"luxe/apperr"
	"luxe/logging"
	"luxe/models"
)

type Parser struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Parser {
	return &Parser{logger: logging.OrNop(logger)}
}

type section int

const (
	inHeader section = iota
	inTimeline
	inItinerary
	inTips
)

var (
	dayLine    = regexp.MustCompile(`(?i)^day\s*(\d{1,2})\s*(?:[:.)\-–—]\s*(.*))?$`)
	labelLine  = regexp.MustCompile(`^([A-Za-z][A-Za-z _\-]{0,24}?)\s*:\s*(.*)$`)
	timeSuffix = regexp.MustCompile(`(?i)\s*[-–—(]\s*(morning|afternoon|evening|night)\s*\)?\s*$`)
)

// labels maps accepted spellings to canonical keys. Unknown labels are free text.
var labels = map[string]string{
	"TITLE":              "TITLE",
	"DESTINATION":        "DESTINATION",
	"THEME":              "THEME",
	"VIBE":               "THEME",
	"BUDGET":             "BUDGET",
	"ESTIMATED_BUDGET":   "BUDGET",
	"OVERVIEW":           "OVERVIEW",
	"GETTING_THERE":      "GETTING_THERE",
	"TRAVEL_TIPS":        "TRAVEL_TIPS",
	"TIPS":               "TRAVEL_TIPS",
	"STOP":               "STOP",
	"TIME":               "TIME",
	"TIME_OF_DAY":        "TIME",
	"PLACE":              "PLACE",
	"PLACE_NAME":         "PLACE",
	"DETAILS":            "DETAILS",
	"DESCRIPTION":        "DETAILS",
	"ACTIVITY":           "DETAILS",
	"LOGISTICS":          "LOGISTICS",
	"TRANSPORT":          "LOGISTICS",
	"BEST_TIME":          "BEST_TIME",
	"BEST_TIME_TO_VISIT": "BEST_TIME",
	"FOOD":               "FOOD",
	"VEG":                "VEG",
	"VEGETARIAN":         "VEG",
	"NON_VEG":            "NON_VEG",
	"NONVEG":             "NON_VEG",
	"NON_VEGETARIAN":     "NON_VEG",
	"MAP":                "MAP",
	"MAP_QUERY":          "MAP",
}

var headerKeys = map[string]bool{
	"TITLE": true, "DESTINATION": true, "THEME": true, "BUDGET": true,
	"OVERVIEW": true, "GETTING_THERE": true,
}

type rawStop struct {
	name, timeLabel, place, details, logistics, bestTime, mapQuery string

	veg, nonVeg []string
	mapSet      bool
}

// field returns the single-valued text field behind key, or nil.
func (s *rawStop) field(key string) *string {
	switch key {
	case "TIME":
		return &s.timeLabel
	case "PLACE":
		return &s.place
	case "DETAILS":
		return &s.details
	case "LOGISTICS":
		return &s.logistics
	case "BEST_TIME":
		return &s.bestTime
	}
	return nil
}

type rawDay struct {
	number int
	title  string
	stops  []*rawStop
}

type document struct {
	header   map[string]string
	timeline map[int]string
	days     []*rawDay
	tips     []string
}

// Parse extracts an itinerary for req from raw. Missing optional stop fields
// become empty values. Missing structure (no destination, no days, a day
// without stops, fewer days than requested) is a ParseError.
func (p *Parser) Parse(raw string, req models.TripRequest) (*models.Itinerary, error) {
	doc := scan(raw)

	dest := doc.header["DESTINATION"]
	if dest == "" {
		return nil, apperr.Parsef("no destination summary found")
	}
	if len(doc.days) == 0 {
		return nil, apperr.Parsef("no day segments found")
	}
	doc.days = dropOutlineDays(doc.days, doc.timeline)
	for i, d := range doc.days {
		if len(d.stops) == 0 {
			return nil, apperr.Parsef("day segment %d (labeled %d) has no stops", i+1, d.number)
		}
	}

	days := p.normalizeDays(doc.days, req.Days)
	if len(days) < req.Days {
		return nil, apperr.Parsef("model produced %d day(s), request asked for %d", len(days), req.Days)
	}

	// The request names the city; the model's line may carry a country suffix.
	dest = firstNonEmpty(strings.TrimSpace(req.Destination), dest)
	it := &models.Itinerary{
		Summary: models.Summary{
			Destination:     dest,
			TotalDays:       req.Days,
			EstimatedBudget: firstNonEmpty(doc.header["BUDGET"], req.Budget.String()),
			Theme:           firstNonEmpty(doc.header["THEME"], req.Vibe),
			Title:           doc.header["TITLE"],
			Overview:        doc.header["OVERVIEW"],
			GettingThere:    doc.header["GETTING_THERE"],
		},
		TravelTips: doc.tips,
	}
	for i, d := range days {
		idx := i + 1
		plan := models.DayPlan{
			DayIndex: idx,
			Title:    firstNonEmpty(d.title, "Day "+strconv.Itoa(idx)),
			Summary:  doc.timeline[idx],
		}
		for pos, rs := range d.stops {
			plan.Stops = append(plan.Stops, buildStop(rs, pos, dest))
		}
		it.Days = append(it.Days, plan)
	}

	if err := it.Validate(req.Days); err != nil {
		return nil, err
	}
	p.logger.Debug("itinerary parsed",
		zap.String("destination", dest),
		zap.Int("days", len(it.Days)),
		zap.Int("stops", it.StopCount()))
	return it, nil
}

// dropOutlineDays removes stopless segments whose number reappears on a
// segment with stops. An unmarked reply often opens with a day-by-day
// outline before the itinerary proper; the outline title becomes the
// day's timeline summary.
func dropOutlineDays(days []*rawDay, timeline map[int]string) []*rawDay {
	stocked := make(map[int]bool, len(days))
	for _, d := range days {
		if len(d.stops) > 0 {
			stocked[d.number] = true
		}
	}
	kept := days[:0:0]
	for _, d := range days {
		if len(d.stops) == 0 && stocked[d.number] {
			if timeline[d.number] == "" && d.title != "" {
				timeline[d.number] = d.title
			}
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

// normalizeDays keeps days in order of appearance and drops any past want.
// Numbering is reassigned by the caller.
func (p *Parser) normalizeDays(days []*rawDay, want int) []*rawDay {
	for i, d := range days {
		if d.number != i+1 {
			nums := make([]int, len(days))
			for j, dd := range days {
				nums[j] = dd.number
			}
			p.logger.Warn("renumbering day segments", zap.Ints("labeled", nums))
			break
		}
	}
	if len(days) > want {
		p.logger.Warn("truncating extra day segments",
			zap.Int("produced", len(days)),
			zap.Int("requested", want))
		days = days[:want]
	}
	return days
}

func buildStop(rs *rawStop, pos int, dest string) models.Stop {
	name := strings.TrimSpace(rs.name)
	label := rs.timeLabel
	if m := timeSuffix.FindStringSubmatch(name); m != nil {
		name = strings.TrimSpace(name[:len(name)-len(m[0])])
		if label == "" {
			label = m[1]
		}
	}
	place := strings.TrimSpace(rs.place)
	if name == "" {
		name = place
	}
	if place == "" {
		place = name
	}

	tod, ok := models.ParseTimeOfDay(label)
	if !ok {
		tod = positionalTime(pos)
	}

	// an explicit empty MAP line means "no link"
	mapQuery := strings.TrimSpace(rs.mapQuery)
	if !rs.mapSet {
		mapQuery = place
		if !strings.Contains(strings.ToLower(place), strings.ToLower(dest)) {
			mapQuery = place + " " + dest
		}
	}

	return models.Stop{
		Name:            name,
		TimeOfDay:       tod,
		Activity:        strings.TrimSpace(rs.details),
		TransportAdvice: strings.TrimSpace(rs.logistics),
		BestTimeToVisit: strings.TrimSpace(rs.bestTime),
		Food: models.FoodRecommendations{
			Veg:    nonNil(rs.veg),
			NonVeg: nonNil(rs.nonVeg),
		},
		MapQuery:  mapQuery,
		PlaceName: place,
	}
}

func positionalTime(pos int) models.TimeOfDay {
	switch pos {
	case 0:
		return models.Morning
	case 1:
		return models.Afternoon
	default:
		return models.Evening
	}
}

// scan walks the reply line by line into a loosely structured document.
func scan(raw string) *document {
	doc := &document{header: map[string]string{}, timeline: map[int]string{}}
	// replies without ITINERARY_START are accepted when DAY lines follow the header
	markers := strings.Contains(strings.ToUpper(raw), "ITINERARY_START")

	var (
		state      = inHeader
		day        *rawDay
		stop       *rawStop
		lastField  *string
		lastHeader string
	)

	for _, rawLine := range strings.Split(raw, "\n") {
		line, bullet := clean(rawLine)
		if line == "" {
			continue
		}

		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "TIMELINE_START"):
			state, lastHeader = inTimeline, ""
			continue
		case strings.HasPrefix(upper, "TIMELINE_END"):
			state = inHeader
			continue
		case strings.HasPrefix(upper, "ITINERARY_START"):
			state, lastHeader = inItinerary, ""
			continue
		case strings.HasPrefix(upper, "ITINERARY_END"):
			state, stop, lastField = inHeader, nil, nil
			continue
		}

		key, value, labeled := splitLabel(line)
		if labeled && key == "TRAVEL_TIPS" {
			state, stop, lastField, lastHeader = inTips, nil, nil, ""
			if value != "" {
				doc.tips = append(doc.tips, value)
			}
			continue
		}
		dm := dayLine.FindStringSubmatch(line)

		if state == inHeader && dm != nil && !markers {
			state, lastHeader = inItinerary, ""
		}

		switch state {
		case inTimeline:
			if dm != nil {
				n, _ := strconv.Atoi(dm[1])
				if _, seen := doc.timeline[n]; !seen {
					doc.timeline[n] = strings.TrimSpace(dm[2])
				}
			}

		case inTips:
			doc.tips = append(doc.tips, line)

		case inHeader:
			if labeled && headerKeys[key] {
				doc.header[key] = value
				lastHeader = ""
				if key == "OVERVIEW" || key == "GETTING_THERE" {
					lastHeader = key
				}
				continue
			}
			if !labeled && lastHeader != "" {
				doc.header[lastHeader] = joinText(doc.header[lastHeader], line)
			}

		case inItinerary:
			if dm != nil {
				n, _ := strconv.Atoi(dm[1])
				day = &rawDay{number: n, title: strings.Trim(dm[2], " -–—:")}
				doc.days = append(doc.days, day)
				stop, lastField = nil, nil
				continue
			}
			if labeled {
				switch key {
				case "STOP":
					if day != nil {
						stop = &rawStop{name: value}
						day.stops = append(day.stops, stop)
					}
					lastField = nil
					continue
				case "FOOD":
					lastField = nil
					continue
				}
				if stop == nil {
					continue
				}
				if f := stop.field(key); f != nil {
					*f = value
					lastField = f
					continue
				}
				switch key {
				case "VEG":
					stop.veg = append(stop.veg, splitList(value)...)
				case "NON_VEG":
					stop.nonVeg = append(stop.nonVeg, splitList(value)...)
				case "MAP":
					stop.mapQuery, stop.mapSet = value, true
				}
				lastField = nil
				continue
			}
			if stop == nil {
				continue
			}
			if lastField != nil {
				*lastField = joinText(*lastField, line)
			} else if !bullet {
				stop.details = joinText(stop.details, line)
			}
		}
	}
	return doc
}

// clean strips markdown emphasis, headings, bullets and leading emoji. The
// second result reports whether the line was a list item.
func clean(line string) (string, bool) {
	line = strings.NewReplacer("**", "", "__", "").Replace(line)
	line = strings.TrimSpace(line)
	bullet := false
	i := strings.IndexFunc(line, func(r rune) bool {
		switch r {
		case '-', '*', '•', '·', '–':
			bullet = true
		}
		return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '$' || r == '(' || r == '"'
	})
	if i < 0 {
		return "", false
	}
	return strings.TrimSpace(line[i:]), bullet
}

func splitLabel(line string) (key, value string, ok bool) {
	m := labelLine.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	k := strings.ToUpper(strings.TrimSpace(m[1]))
	k = strings.NewReplacer(" ", "_", "-", "_").Replace(k)
	for strings.Contains(k, "__") {
		k = strings.ReplaceAll(k, "__", "_")
	}
	canonical, known := labels[k]
	if !known {
		return "", "", false
	}
	return canonical, strings.TrimSpace(m[2]), true
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ';' || r == '|' }) {
		part = strings.TrimSpace(part)
		switch strings.ToLower(part) {
		case "", "n/a", "na", "none", "-":
			continue
		}
		out = append(out, part)
	}
	return out
}

func joinText(a, b string) string {
	if a == "" {
		return b
	}
	return a + " " + b
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
