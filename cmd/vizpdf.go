package cmd

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"
)

const (
	pageWidth  = 8.5 * vg.Inch
	pageHeight = 11 * vg.Inch
	pdfMargin  = 0.75 * vg.Inch

	// maxRankingBars caps the bar chart on the first page.
	maxRankingBars = 30
)

var chartBlue = color.RGBA{R: 31, G: 119, B: 180, A: 255}

// renderPDF writes the report: a ranking bar chart, the ranking table with
// review-duration sparklines, then one chart page per town that has review
// data.
func renderPDF(path, title string, rows []rankRow, sortedDates []string) error {
	// The Liberation font in vgpdf has no em or en dash glyph.
	title = strings.NewReplacer("\u2014", "-", "\u2013", "-").Replace(title)

	c := vgpdf.New(pageWidth, pageHeight)

	if err := drawRankingPage(c, title, rows); err != nil {
		return err
	}
	c.NextPage()
	drawSummaryPages(c, title, rows, sortedDates)

	for _, r := range rows {
		if len(r.points) == 0 {
			continue
		}
		c.NextPage()
		drawChartPage(c, "Median review days - "+r.name, r.points, sortedDates)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// drawRankingPage draws the leading rows with a value as horizontal bars,
// best at the top.
func drawRankingPage(c *vgpdf.Canvas, title string, rows []rankRow) error {
	var (
		values plotter.Values
		names  []string
	)
	for _, r := range rows {
		if math.IsNaN(r.value) || len(values) == maxRankingBars {
			continue
		}
		values = append(values, r.value)
		names = append(names, r.name)
	}
	if len(values) == 0 {
		return nil
	}
	// Bars are drawn bottom-up.
	for i, j := 0, len(values)-1; i < j; i, j = i+1, j-1 {
		values[i], values[j] = values[j], values[i]
		names[i], names[j] = names[j], names[i]
	}

	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(12)
	p.BackgroundColor = color.White

	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return fmt.Errorf("ranking chart: %w", err)
	}
	bars.Horizontal = true
	bars.Color = chartBlue
	bars.LineStyle.Width = 0
	p.Add(bars, plotter.NewGrid())
	p.NominalY(names...)
	p.X.Min = 0
	p.X.Tick.Marker = numTicks{}

	dc := draw.New(c)
	p.Draw(draw.Crop(dc, pdfMargin, -pdfMargin, pdfMargin, -pdfMargin))
	return nil
}

const (
	summaryRowHeight = 0.30 * vg.Inch
	nameColWidth     = 2.2 * vg.Inch
	valueColWidth    = 0.9 * vg.Inch
	gradeColWidth    = 0.6 * vg.Inch
)

func drawSummaryPages(c *vgpdf.Canvas, title string, rows []rankRow, sortedDates []string) {
	usableW := pageWidth - 2*pdfMargin
	usableH := pageHeight - 2*pdfMargin
	sparkColWidth := usableW - nameColWidth - valueColWidth - gradeColWidth

	headerHeight := 1.0 * vg.Inch
	maxRowsPerPage := int((usableH - headerHeight) / summaryRowHeight)

	dateRange := "no review data"
	if n := len(sortedDates); n > 0 {
		dateRange = fmt.Sprintf("%s to %s (%d months)", sortedDates[0], sortedDates[n-1], n)
	}

	pageNum := 0
	rowIdx := 0
	for rowIdx < len(rows) {
		if pageNum > 0 {
			c.NextPage()
		}
		pageNum++

		dc := draw.New(c)
		area := draw.Crop(dc, pdfMargin, -pdfMargin, pdfMargin, -pdfMargin)

		var yTop vg.Length
		if pageNum == 1 {
			yTop = area.Max.Y
			fillText(area, title, vg.Points(14), area.Min.X, yTop-vg.Points(14), color.Black)
			fillText(area, dateRange, vg.Points(10), area.Min.X, yTop-0.35*vg.Inch, color.Gray{Y: 100})

			headerY := yTop - 0.6*vg.Inch
			x := area.Min.X
			fillText(area, "Town", vg.Points(10), x, headerY, color.Gray{Y: 80})
			fillText(area, "Value", vg.Points(10), x+nameColWidth, headerY, color.Gray{Y: 80})
			fillText(area, "Grade", vg.Points(10), x+nameColWidth+valueColWidth, headerY, color.Gray{Y: 80})
			fillText(area, "Review days", vg.Points(10), x+nameColWidth+valueColWidth+gradeColWidth, headerY, color.Gray{Y: 80})

			sepY := headerY - vg.Points(6)
			strokeHLine(area, area.Min.X, area.Min.X+usableW, sepY, color.Gray{Y: 180})
			yTop = sepY - vg.Points(4)
		} else {
			yTop = area.Max.Y - vg.Points(8)
			fillText(area, title+" (continued)", vg.Points(10), area.Min.X, yTop, color.Gray{Y: 100})
			yTop -= 0.25 * vg.Inch
		}

		rowsThisPage := maxRowsPerPage
		if pageNum == 1 {
			rowsThisPage = int((yTop - area.Min.Y) / summaryRowHeight)
		}

		for drawn := 0; rowIdx < len(rows) && drawn < rowsThisPage; drawn++ {
			r := rows[rowIdx]
			rowIdx++

			y := yTop - vg.Length(drawn)*summaryRowHeight - summaryRowHeight*0.65
			fillText(area, r.name, vg.Points(9), area.Min.X, y, color.Black)
			fillText(area, formatNum(r.value), vg.Points(9), area.Min.X+nameColWidth, y, color.Black)
			fillText(area, r.grade, vg.Points(9), area.Min.X+nameColWidth+valueColWidth, y, color.Black)

			sparkX := area.Min.X + nameColWidth + valueColWidth + gradeColWidth
			sparkY := yTop - vg.Length(drawn+1)*summaryRowHeight + vg.Points(2)
			sparkArea := draw.Canvas{
				Canvas: area.Canvas,
				Rectangle: vg.Rectangle{
					Min: vg.Point{X: sparkX, Y: sparkY},
					Max: vg.Point{X: sparkX + sparkColWidth, Y: sparkY + summaryRowHeight - vg.Points(3)},
				},
			}
			drawSparkline(sparkArea, alignValues(r.points, sortedDates))
		}
	}
}

func drawSparkline(c draw.Canvas, vals []float64) {
	var pts plotter.XYs
	for i, v := range vals {
		if !math.IsNaN(v) {
			pts = append(pts, plotter.XY{X: float64(i), Y: v})
		}
	}
	if len(pts) < 2 {
		return
	}

	p := plot.New()
	p.HideAxes()
	p.BackgroundColor = color.Transparent

	line, err := plotter.NewLine(pts)
	if err != nil {
		return
	}
	line.Color = chartBlue
	line.Width = vg.Points(1.5)
	p.Add(line)

	p.X.Min = 0
	p.X.Max = float64(len(vals) - 1)
	minY, maxY := pts[0].Y, pts[0].Y
	for _, pt := range pts {
		minY = math.Min(minY, pt.Y)
		maxY = math.Max(maxY, pt.Y)
	}
	pad := (maxY - minY) * 0.1
	if pad == 0 {
		pad = 1
	}
	p.Y.Min = minY - pad
	p.Y.Max = maxY + pad

	p.Draw(c)
}

func drawChartPage(c *vgpdf.Canvas, title string, points []dataPoint, sortedDates []string) {
	dateIdx := make(map[string]int, len(sortedDates))
	for i, d := range sortedDates {
		dateIdx[d] = i
	}

	var pts plotter.XYs
	for i, dp := range points {
		if math.IsNaN(dp.value) {
			continue
		}
		x, ok := dateIdx[dp.date]
		if !ok {
			x = i
		}
		pts = append(pts, plotter.XY{X: float64(x), Y: dp.value})
	}
	if len(pts) == 0 {
		return
	}

	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(12)
	p.BackgroundColor = color.White
	p.Y.Label.Text = "days"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return
	}
	line.Color = chartBlue
	line.Width = vg.Points(2)

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return
	}
	scatter.Color = chartBlue
	scatter.Radius = vg.Points(3)
	scatter.Shape = draw.CircleGlyph{}

	p.Add(line, scatter, plotter.NewGrid())

	p.X.Tick.Marker = dateTicks(sortedDates)
	p.X.Min = -0.5
	p.X.Max = float64(len(sortedDates)) - 0.5
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	p.Y.Min = 0
	p.Y.Tick.Marker = numTicks{}

	dc := draw.New(c)
	p.Draw(draw.Crop(dc, pdfMargin, -pdfMargin, pdfMargin, -pdfMargin))
}

type dateTicks []string

func (dt dateTicks) Ticks(min, max float64) []plot.Tick {
	n := len(dt)
	step := 1
	if n > 12 {
		step = (n + 11) / 12
	}

	ticks := make([]plot.Tick, 0, n)
	for i := 0; i < n; i++ {
		t := plot.Tick{Value: float64(i)}
		if i%step == 0 {
			t.Label = dt[i]
		}
		ticks = append(ticks, t)
	}
	return ticks
}

type numTicks struct{}

func (numTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = formatCompact(ticks[i].Value)
		}
	}
	return ticks
}

func fillText(c draw.Canvas, txt string, size vg.Length, x, y vg.Length, clr color.Color) {
	sty := draw.TextStyle{
		Color:   clr,
		Font:    plot.DefaultFont,
		Handler: plot.DefaultTextHandler,
	}
	sty.Font.Size = size
	c.FillText(sty, vg.Point{X: x, Y: y}, txt)
}

func strokeHLine(c draw.Canvas, x0, x1, y vg.Length, clr color.Color) {
	c.StrokeLine2(draw.LineStyle{
		Color: clr,
		Width: vg.Points(0.5),
	}, x0, y, x1, y)
}
