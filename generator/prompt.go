package generator

import (
	"fmt"
	"strings"

	"luxe/models"
)

const systemRole = "You are an elite luxury travel planner. You answer in plain text and follow the requested line format exactly."

// BuildPrompt turns a trip request into the single prompt sent to the model.
// The line format it asks for is the one parser.Parse understands.
func BuildPrompt(req models.TripRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", systemRole)
	fmt.Fprintf(&b, "Create a highly detailed %d-day itinerary for %s, departing from %s.\n", req.Days, req.Destination, req.Origin)
	fmt.Fprintf(&b, "Vibe: %s | Budget: %s | Travelers: %d\n\n", req.Vibe, req.Budget, req.Travelers)

	b.WriteString("Reply with plain text only: no markdown, no tables, no emoji. Use exactly these labels, one per line.\n\n")
	fmt.Fprintf(&b, "TITLE: Journey to %s\n", req.Destination)
	fmt.Fprintf(&b, "DESTINATION: %s\n", req.Destination)
	b.WriteString("THEME: <two or three word theme>\n")
	b.WriteString("BUDGET: <estimated total budget>\n")
	b.WriteString("OVERVIEW: <one paragraph summary of the experience>\n")
	fmt.Fprintf(&b, "GETTING_THERE: <best flights, trains or road route from %s>\n\n", req.Origin)

	b.WriteString("TIMELINE_START\n")
	for d := 1; d <= req.Days; d++ {
		fmt.Fprintf(&b, "Day %d: <one line summary>\n", d)
	}
	b.WriteString("TIMELINE_END\n\n")

	b.WriteString("ITINERARY_START\n")
	b.WriteString("DAY 1: <day title>\n")
	b.WriteString("STOP: <exact name of the place or activity>\n")
	b.WriteString("TIME: Morning\n")
	b.WriteString("PLACE: <landmark name suitable for a photo search>\n")
	b.WriteString("DETAILS: <what to do there, two or three sentences>\n")
	b.WriteString("LOGISTICS: <how to get there from the city centre or the previous stop>\n")
	b.WriteString("BEST TIME: <e.g. 09:00 AM>\n")
	b.WriteString("VEG: <restaurant - dish>; <restaurant - dish>\n")
	b.WriteString("NON-VEG: <restaurant - dish>; <restaurant - dish>\n")
	fmt.Fprintf(&b, "MAP: <place name> %s\n", req.Destination)
	b.WriteString("(repeat STOP blocks for Afternoon and Evening, then continue with DAY 2 ...)\n")
	b.WriteString("ITINERARY_END\n\n")

	b.WriteString("TRAVEL_TIPS:\n- <safety, weather and packing tips, one per line>\n\n")

	fmt.Fprintf(&b, "Rules:\n- Produce exactly %d DAY sections numbered 1 to %d.\n", req.Days, req.Days)
	b.WriteString("- Give every day two or three STOP blocks, each with a TIME of Morning, Afternoon or Evening.\n")
	fmt.Fprintf(&b, "- Restaurants must be real places in %s.\n", req.Destination)
	return b.String()
}
