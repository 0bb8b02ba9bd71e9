package render

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"

	"luxe/models"
)

// A4 portrait, millimetres.
const (
	pageW     = 210.0
	pageH     = 297.0
	margin    = 15.0
	footerH   = 22.0
	contentW  = pageW - 2*margin
	textColW  = 112.0
	gapW      = 5.0
	imageColW = contentW - textColW - gapW
	imageBoxH = imageColW * 0.75
	qrSize    = 22.0
	lineH     = 5.0
	pad       = 3.0
)

type rgb struct{ r, g, b int }

var (
	gold  = rgb{176, 141, 87}
	ink   = rgb{33, 33, 33}
	muted = rgb{110, 110, 110}
	linkC = rgb{20, 80, 160}
	cream = rgb{250, 247, 240}
)

type document struct {
	pdf    *gofpdf.Fpdf
	enc    *cp1252
	layout models.Layout
}

func newDocument(enc *cp1252, recipient string) *document {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, footerH)
	pdf.SetCreationDate(documentDate)
	pdf.SetModificationDate(documentDate)
	pdf.SetCatalogSort(true)
	pdf.SetCompression(true)
	pdf.AliasNbPages("")

	d := &document{pdf: pdf, enc: enc}
	prepared := enc.text("Prepared for " + recipient)
	pdf.SetFooterFunc(func() {
		pdf.SetDrawColor(gold.r, gold.g, gold.b)
		pdf.SetLineWidth(0.6)
		pdf.Rect(5, 5, pageW-10, pageH-10, "D")

		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(muted.r, muted.g, muted.b)
		third := contentW / 3
		pdf.CellFormat(third, 6, prepared, "", 0, "L", false, 0, "")
		pdf.CellFormat(third, 6, Brand, "", 0, "C", false, 0, "")
		pdf.CellFormat(third, 6, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	return d
}

func (d *document) setMetadata(it *models.Itinerary) {
	d.pdf.SetTitle(d.enc.text(coverTitle(it)), false)
	d.pdf.SetSubject(d.enc.text(it.Summary.Destination), false)
	d.pdf.SetAuthor(Brand, false)
	d.pdf.SetCreator("luxe", false)
}

func coverTitle(it *models.Itinerary) string {
	if it.Summary.Title != "" {
		return it.Summary.Title
	}
	return "Journey to " + it.Summary.Destination
}

func (d *document) section(name string) {
	d.layout.Sections = append(d.layout.Sections, name)
}

func (d *document) font(style string, size float64, c rgb) {
	d.pdf.SetFont("Helvetica", style, size)
	d.pdf.SetTextColor(c.r, c.g, c.b)
}

// height is the space MultiCell needs for s at width w in the current font.
func (d *document) height(s string, w float64) float64 {
	if s == "" {
		return 0
	}
	return float64(len(d.pdf.SplitLines([]byte(d.enc.text(s)), w))) * lineH
}

// keepTogether starts a new page when a block of height h would straddle the page end.
func (d *document) keepTogether(h float64) {
	// A block taller than a page starts on the current one if it is still empty.
	if y := d.pdf.GetY(); y+h > pageH-footerH && y > margin {
		d.pdf.AddPage()
	}
}

func (d *document) heading(s string, size float64) {
	d.pdf.SetFont("Times", "B", size)
	d.pdf.SetTextColor(gold.r, gold.g, gold.b)
	d.pdf.MultiCell(0, size*0.5, d.enc.text(s), "", "L", false)
	d.pdf.Ln(2)
}

func (d *document) paragraph(s string) {
	d.font("", 11, ink)
	d.pdf.MultiCell(0, lineH+0.5, d.enc.text(s), "", "L", false)
	d.pdf.Ln(4)
}

func (d *document) rule() {
	y := d.pdf.GetY()
	d.pdf.SetDrawColor(gold.r, gold.g, gold.b)
	d.pdf.SetLineWidth(0.4)
	d.pdf.Line(margin+40, y, pageW-margin-40, y)
	d.pdf.Ln(8)
}

func (d *document) cover(it *models.Itinerary, req models.TripRequest) {
	d.pdf.AddPage()
	d.section("cover")
	s := it.Summary

	d.pdf.SetY(55)
	d.pdf.SetFont("Times", "B", 28)
	d.pdf.SetTextColor(gold.r, gold.g, gold.b)
	d.pdf.MultiCell(0, 13, d.enc.text(coverTitle(it)), "", "C", false)
	d.pdf.Ln(4)

	d.font("", 14, ink)
	d.pdf.CellFormat(0, 8, d.enc.text(s.Destination), "", 1, "C", false, 0, "")
	facts := []string{fmt.Sprintf("%d Days", s.TotalDays)}
	if s.EstimatedBudget != "" {
		facts = append(facts, s.EstimatedBudget)
	}
	if s.Theme != "" {
		facts = append(facts, s.Theme)
	}
	d.font("", 11, muted)
	d.pdf.CellFormat(0, 7, d.enc.text(strings.Join(facts, "  |  ")), "", 1, "C", false, 0, "")
	if req.Origin != "" {
		line := fmt.Sprintf("From %s  |  %d travelers", req.Origin, req.Travelers)
		d.pdf.CellFormat(0, 7, d.enc.text(line), "", 1, "C", false, 0, "")
	}
	d.pdf.Ln(6)
	d.rule()

	if s.Overview != "" {
		d.heading("The Experience", 15)
		d.paragraph(s.Overview)
	}
	if s.GettingThere != "" {
		d.heading("Getting There", 15)
		d.paragraph(s.GettingThere)
	}
}

func (d *document) overviewTable(it *models.Itinerary) {
	d.pdf.AddPage()
	d.section("overview-table")
	d.heading("At a Glance", 20)

	cols := []float64{18, 62, contentW - 80}
	d.font("B", 10, rgb{255, 255, 255})
	d.pdf.SetFillColor(gold.r, gold.g, gold.b)
	for i, h := range []string{"Day", "Title", "Plan"} {
		d.pdf.CellFormat(cols[i], 8, h, "1", 0, "C", true, 0, "")
	}
	d.pdf.Ln(-1)

	d.font("", 9, ink)
	d.pdf.SetDrawColor(200, 200, 200)
	for _, day := range it.Days {
		var plan []string
		for _, st := range day.Stops {
			plan = append(plan, st.TimeOfDay.Label()+": "+st.Name)
		}
		cells := []string{fmt.Sprintf("%d", day.DayIndex), day.Title, strings.Join(plan, "\n")}

		rowH := lineH
		for i, c := range cells {
			if h := d.height(c, cols[i]-2); h > rowH {
				rowH = h
			}
		}
		rowH += 2
		d.keepTogether(rowH)

		x, y := margin, d.pdf.GetY()
		for i, c := range cells {
			d.pdf.Rect(x, y, cols[i], rowH, "D")
			d.pdf.SetXY(x+1, y+1)
			align := "L"
			if i == 0 {
				align = "C"
			}
			d.pdf.MultiCell(cols[i]-2, lineH, d.enc.text(c), "", align, false)
			x += cols[i]
		}
		d.pdf.SetXY(margin, y+rowH)
	}
}

func (d *document) day(day models.DayPlan, images map[string]models.ResolvedImage) {
	d.pdf.AddPage()
	d.section(fmt.Sprintf("day-%d", day.DayIndex))
	d.heading(fmt.Sprintf("Day %d: %s", day.DayIndex, day.Title), 18)
	if day.Summary != "" {
		d.font("I", 11, muted)
		d.pdf.MultiCell(0, lineH+0.5, d.enc.text(day.Summary), "", "L", false)
		d.pdf.Ln(4)
	}
	for i, st := range day.Stops {
		img, ok := images[models.PlaceKey(st.PlaceName)]
		d.stopPanel(day.DayIndex, i+1, st, img, ok)
	}
}

type textBlock struct {
	style string
	size  float64
	color rgb
	text  string
	link  string
	after float64
}

func stopBlocks(st models.Stop, link string) []textBlock {
	head := st.TimeOfDay.Label()
	if st.BestTimeToVisit != "" {
		head += "  |  Best time: " + st.BestTimeToVisit
	}
	blocks := []textBlock{
		{style: "B", size: 13, color: ink, text: st.Name, after: 0.5},
		{style: "I", size: 9, color: gold, text: head, after: 2},
	}
	if st.Activity != "" {
		blocks = append(blocks, textBlock{size: 10, color: ink, text: st.Activity, after: 2})
	}
	if st.TransportAdvice != "" {
		blocks = append(blocks, textBlock{size: 9, color: muted, text: "Getting there: " + st.TransportAdvice, after: 2})
	}
	if len(st.Food.Veg) > 0 {
		blocks = append(blocks, textBlock{size: 9, color: ink, text: "Vegetarian: " + strings.Join(st.Food.Veg, "; "), after: 1})
	}
	if len(st.Food.NonVeg) > 0 {
		blocks = append(blocks, textBlock{size: 9, color: ink, text: "Non-vegetarian: " + strings.Join(st.Food.NonVeg, "; "), after: 1})
	}
	if link != "" {
		blocks = append(blocks, textBlock{style: "U", size: 9, color: linkC, text: "Open in Google Maps", link: link, after: 0})
	}
	return blocks
}

func (d *document) stopPanel(dayIdx, pos int, st models.Stop, img models.ResolvedImage, found bool) {
	link := MapLink(st.MapQuery)
	blocks := stopBlocks(st, link)
	innerW := textColW - 2*pad

	textH := 0.0
	for _, b := range blocks {
		d.pdf.SetFont("Helvetica", b.style, b.size)
		textH += d.height(b.text, innerW) + b.after
	}
	imgH := imageBoxH + 5
	if link != "" {
		imgH += qrSize + 2
	}
	h := max(textH, imgH) + 2*pad
	d.keepTogether(h)

	top, page := d.pdf.GetY(), d.pdf.PageNo()
	d.pdf.SetFillColor(cream.r, cream.g, cream.b)
	d.pdf.Rect(margin, top, contentW, min(h, pageH-footerH-top), "F")

	// Image column first: the text below may run onto the next page.
	ix, iy := margin+textColW+gapW, top+pad
	placeholder := d.image(ix, iy, img, found)
	if link != "" {
		d.qr(fmt.Sprintf("qr-%d-%d", dayIdx, pos), link, ix, iy+imageBoxH+5)
	}

	y := top + pad
	for _, b := range blocks {
		d.font(b.style, b.size, b.color)
		d.pdf.SetXY(margin+pad, y)
		if b.link != "" {
			d.pdf.CellFormat(innerW, lineH, d.enc.text(b.text), "", 1, "L", false, 0, b.link)
		} else {
			d.pdf.MultiCell(innerW, lineH, d.enc.text(b.text), "", "L", false)
		}
		y = d.pdf.GetY() + b.after
	}

	d.layout.Stops = append(d.layout.Stops, models.StopLayout{
		Day:         dayIdx,
		Position:    pos,
		Name:        st.Name,
		TimeOfDay:   st.TimeOfDay,
		HasMapLink:  link != "",
		Placeholder: placeholder,
	})
	if d.pdf.PageNo() != page {
		d.pdf.SetXY(margin, d.pdf.GetY()+4)
		return
	}
	d.pdf.SetXY(margin, top+h+4)
}

// image draws img fitted into the image column and reports whether a placeholder was shown.
func (d *document) image(x, y float64, img models.ResolvedImage, found bool) bool {
	kind := imageType(img.Bytes)
	if !found || kind == "" {
		d.emptyBox(x, y)
		return true
	}

	name := "img-" + models.PlaceKey(img.PlaceName)
	if img.IsPlaceholder {
		name = "placeholder"
	}
	opts := gofpdf.ImageOptions{ImageType: kind}
	info := d.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Bytes))
	if info == nil || info.Width() == 0 || info.Height() == 0 {
		d.emptyBox(x, y)
		return true
	}

	w, h := imageColW, imageColW*info.Height()/info.Width()
	if h > imageBoxH {
		h = imageBoxH
		w = imageBoxH * info.Width() / info.Height()
	}
	d.pdf.ImageOptions(name, x+(imageColW-w)/2, y+(imageBoxH-h)/2, w, h, false, opts, 0, "")

	caption := img.Attribution
	if img.IsPlaceholder {
		caption = "Image unavailable"
	}
	if caption != "" {
		d.font("I", 7, muted)
		d.pdf.SetXY(x, y+imageBoxH+0.5)
		d.pdf.CellFormat(imageColW, 4, d.enc.text(caption), "", 0, "C", false, 0, "")
	}
	return img.IsPlaceholder
}

func (d *document) emptyBox(x, y float64) {
	d.pdf.SetFillColor(232, 228, 220)
	d.pdf.SetDrawColor(200, 200, 200)
	d.pdf.Rect(x, y, imageColW, imageBoxH, "FD")
	d.font("I", 9, muted)
	d.pdf.SetXY(x, y+imageBoxH/2-3)
	d.pdf.CellFormat(imageColW, 6, "Image unavailable", "", 0, "C", false, 0, "")
}

func (d *document) qr(name, link string, x, y float64) {
	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		return
	}
	opts := gofpdf.ImageOptions{ImageType: "png"}
	d.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	d.pdf.ImageOptions(name, x, y, qrSize, qrSize, false, opts, 0, link)

	d.font("", 8, muted)
	d.pdf.SetXY(x+qrSize+2, y+qrSize/2-2)
	d.pdf.CellFormat(imageColW-qrSize-2, 4, "Scan for map", "", 0, "L", false, 0, "")
}

func (d *document) travelTips(tips []string) {
	d.keepTogether(40)
	d.pdf.Ln(4)
	d.section("travel-tips")
	d.heading("Travel Tips", 18)
	d.font("", 10, ink)
	for _, tip := range tips {
		d.keepTogether(d.height(tip, contentW-6) + 2)
		d.pdf.SetX(margin)
		d.pdf.CellFormat(6, lineH, "\x95", "", 0, "C", false, 0, "")
		d.pdf.MultiCell(contentW-6, lineH, d.enc.text(tip), "", "L", false)
		d.pdf.Ln(1)
	}
}

func imageType(b []byte) string {
	switch http.DetectContentType(b) {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	}
	return ""
}
