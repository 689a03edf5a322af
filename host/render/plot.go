package render

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"

	"gopherscope/host/scope"
)

var (
	colorBG   = color.RGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xff}
	colorAxis = color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	colorGrid = color.RGBA{R: 0x30, G: 0x30, B: 0x30, A: 0xff}
	colorText = color.RGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff}

	// One per channel, cycled
	TraceColors = []color.RGBA{
		{R: 0xff, G: 0xdd, B: 0x66, A: 0xff},
		{R: 0x4a, G: 0xdf, B: 0x6a, A: 0xff},
		{R: 0x5a, G: 0xb4, B: 0xff, A: 0xff},
		{R: 0xff, G: 0x6a, B: 0xc1, A: 0xff},
		{R: 0xff, G: 0x8c, B: 0x3a, A: 0xff},
		{R: 0x9d, G: 0x7a, B: 0xff, A: 0xff},
		{R: 0x3a, G: 0xe8, B: 0xe0, A: 0xff},
		{R: 0xd8, G: 0xd8, B: 0xd8, A: 0xff},
	}
)

// ErrTooSmall is returned when the display cannot hold the plot frame
var ErrTooSmall = errors.New("render: display too small")

const (
	marginLeft   = 44
	marginRight  = 6
	marginTop    = 14
	marginBottom = 16

	gridColumns = 10
	gridRows    = 4
)

var font tinyfont.Fonter = &proggy.TinySZ8pt7b

// filler is implemented by displays with a fast rectangle fill
type filler interface {
	FillRectangle(x, y, width, height int16, c color.RGBA) error
}

// Options tune a plot. The zero value autoscales the voltage axis.
type Options struct {
	Title string
	VMin  float64
	VMax  float64
}

// area is the plot rectangle in display coordinates
type area struct {
	x0, y0, x1, y1 int16
}

func (a area) width() int16  { return a.x1 - a.x0 }
func (a area) height() int16 { return a.y1 - a.y0 }

// Plot draws every channel of s as a line over the time axis
func Plot(d drivers.Displayer, s *scope.Series, opts Options) error {
	w, h := d.Size()
	a := area{x0: marginLeft, y0: marginTop, x1: w - marginRight, y1: h - marginBottom}
	if a.width() < 16 || a.height() < 16 {
		return fmt.Errorf("%w: %dx%d", ErrTooSmall, w, h)
	}

	fill(d, 0, 0, w, h, colorBG)
	drawGrid(d, a)

	vmin, vmax := opts.VMin, opts.VMax
	if vmin >= vmax {
		vmin, vmax = voltRange(s.Volts)
	}
	tmax := timeSpan(s)

	writeText(d, 2, a.y0+6, colorText, fmt.Sprintf("%.3gV", vmax))
	writeText(d, 2, a.y1, colorText, fmt.Sprintf("%.3gV", vmin))
	writeText(d, a.x0, h-4, colorText, "0")
	end := formatSeconds(tmax)
	_, ew := tinyfont.LineWidth(font, end)
	writeText(d, a.x1-int16(ew), h-4, colorText, end)

	x := a.x0
	if opts.Title != "" {
		writeText(d, x, 10, colorAxis, opts.Title)
		_, tw := tinyfont.LineWidth(font, opts.Title)
		x += int16(tw) + 8
	}

	if len(s.Raw) == 0 {
		writeText(d, a.x0+4, a.y0+12, colorText, "no samples")
		return d.Display()
	}

	for _, ch := range s.Split() {
		c := TraceColors[ch.Index%len(TraceColors)]
		label := fmt.Sprintf("ch%d", ch.Index)
		if ch.Index < len(s.Pins) {
			label = fmt.Sprintf("P%d", ch.Pin)
		}
		writeText(d, x, 10, c, label)
		_, lw := tinyfont.LineWidth(font, label)
		x += int16(lw) + 6

		drawTrace(d, a, ch, tmax, vmin, vmax, c)
	}
	return d.Display()
}

func drawGrid(d drivers.Displayer, a area) {
	for i := 1; i < gridColumns; i++ {
		gx := a.x0 + int16(int(a.width())*i/gridColumns)
		for y := a.y0; y < a.y1; y += 2 {
			d.SetPixel(gx, y, colorGrid)
		}
	}
	for i := 1; i < gridRows; i++ {
		gy := a.y0 + int16(int(a.height())*i/gridRows)
		for x := a.x0; x < a.x1; x += 2 {
			d.SetPixel(x, gy, colorGrid)
		}
	}
	fill(d, a.x0, a.y0, a.width(), 1, colorAxis)
	fill(d, a.x0, a.y1, a.width()+1, 1, colorAxis)
	fill(d, a.x0, a.y0, 1, a.height(), colorAxis)
	fill(d, a.x1, a.y0, 1, a.height(), colorAxis)
}

func drawTrace(d drivers.Displayer, a area, ch scope.ChannelSeries, tmax, vmin, vmax float64, c color.RGBA) {
	var px, py int16
	for i := range ch.Volts {
		x := a.x0 + scale(ch.Time[i], 0, tmax, a.width())
		y := a.y1 - scale(ch.Volts[i], vmin, vmax, a.height())
		if i == 0 {
			d.SetPixel(x, y, c)
		} else {
			line(d, px, py, x, y, c)
		}
		px, py = x, y
	}
}

// scale maps v in [lo, hi] to [0, span], clamping outliers
func scale(v, lo, hi float64, span int16) int16 {
	if hi <= lo {
		return 0
	}
	f := (v - lo) / (hi - lo)
	f = math.Max(0, math.Min(1, f))
	return int16(math.Round(f * float64(span)))
}

// voltRange pads the data range by a tenth on both sides
func voltRange(v []float64) (lo, hi float64) {
	if len(v) == 0 {
		return 0, 1
	}
	lo, hi = v[0], v[0]
	for _, x := range v[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	if hi-lo < 1e-9 {
		return lo - 0.5, hi + 0.5
	}
	pad := (hi - lo) / 10
	return lo - pad, hi + pad
}

func timeSpan(s *scope.Series) float64 {
	if len(s.Time) == 0 {
		return 0
	}
	return s.Time[len(s.Time)-1]
}

func formatSeconds(t float64) string {
	switch {
	case t >= 1:
		return fmt.Sprintf("%.3gs", t)
	case t >= 1e-3:
		return fmt.Sprintf("%.3gms", t*1e3)
	default:
		return fmt.Sprintf("%.3gus", t*1e6)
	}
}

// line is Bresenham's algorithm
func line(d drivers.Displayer, x0, y0, x1, y1 int16, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := int16(1), int16(1)
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		d.SetPixel(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func fill(d drivers.Displayer, x, y, w, h int16, c color.RGBA) {
	if f, ok := d.(filler); ok {
		f.FillRectangle(x, y, w, h, c)
		return
	}
	for py := y; py < y+h; py++ {
		for px := x; px < x+w; px++ {
			d.SetPixel(px, py, c)
		}
	}
}

func writeText(d drivers.Displayer, x, y int16, c color.RGBA, s string) {
	tinyfont.WriteLine(d, font, x, y, s, c)
}

func abs(v int16) int16 {
	if v < 0 {
		return -v
	}
	return v
}
