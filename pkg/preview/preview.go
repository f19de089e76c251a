// Package preview renders a chart as a PNG lane diagram
package preview

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/james-see/midi2edda/pkg/chart"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// Options controls the preview layout. Zero fields take the defaults.
type Options struct {
	PixelsPerBeat float64
	LaneWidth     float64
	NoteHeight    float64
	Margin        float64
	Gutter        float64 // room left of the lanes for tempo labels
	FontSize      float64
	MaxBeats      float64 // beats past this are cut off
	MaxLanes      int     // lanes past this are not drawn
}

// DefaultOptions returns the layout used by the CLI and the API
func DefaultOptions() Options {
	return Options{
		PixelsPerBeat: 40,
		LaneWidth:     40,
		NoteHeight:    8,
		Margin:        20,
		Gutter:        80,
		FontSize:      10,
		MaxBeats:      1024,
		MaxLanes:      64,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PixelsPerBeat <= 0 {
		o.PixelsPerBeat = d.PixelsPerBeat
	}
	if o.LaneWidth <= 0 {
		o.LaneWidth = d.LaneWidth
	}
	if o.NoteHeight <= 0 {
		o.NoteHeight = d.NoteHeight
	}
	if o.Margin <= 0 {
		o.Margin = d.Margin
	}
	if o.Gutter <= 0 {
		o.Gutter = d.Gutter
	}
	if o.FontSize <= 0 {
		o.FontSize = d.FontSize
	}
	if o.MaxBeats <= 0 {
		o.MaxBeats = d.MaxBeats
	}
	if o.MaxLanes <= 0 {
		o.MaxLanes = d.MaxLanes
	}
	return o
}

type color struct {
	R, G, B float64
}

var laneColors = []color{
	{0.90, 0.30, 0.24},
	{0.20, 0.60, 0.86},
	{0.18, 0.80, 0.44},
	{0.95, 0.77, 0.06},
	{0.61, 0.35, 0.71},
	{0.90, 0.49, 0.13},
}

var background = color{0.12, 0.12, 0.12}

func laneColor(lane int) color {
	return laneColors[lane%len(laneColors)]
}

func setColor(dc *gg.Context, c color) {
	dc.SetRGB(c.R, c.G, c.B)
}

// Render draws the chart with one column per lane and beats running from top
// to bottom. If lanes is not positive the chart's own lane count is used.
// The lane count is capped at MaxLanes; notes on lanes outside the range are
// not drawn.
func Render(c chart.Chart, lanes int, opts Options) image.Image {
	opts = opts.withDefaults()
	if lanes <= 0 {
		lanes = max(c.Lanes(), 1)
	}
	lanes = min(lanes, opts.MaxLanes)

	beats := math.Min(math.Ceil(lastBeat(c))+1, opts.MaxBeats)
	width := opts.Gutter + float64(lanes)*opts.LaneWidth + 2*opts.Margin
	height := beats*opts.PixelsPerBeat + 2*opts.Margin

	dc := gg.NewContext(int(width), int(height))
	setColor(dc, background)
	dc.DrawRectangle(0, 0, width, height)
	dc.Fill()

	l := layout{opts: opts, lanes: lanes, beats: beats}
	l.drawLanes(dc)
	l.drawBars(dc, c.CustomData.BPMChanges)
	l.drawNotes(dc, c.Notes)
	l.drawTempoLabels(dc, c.CustomData.BPMChanges)
	return dc.Image()
}

// SavePNG writes img to path
func SavePNG(path string, img image.Image) error {
	return gg.SavePNG(path, img)
}

// WritePNG encodes img as PNG to w
func WritePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

func lastBeat(c chart.Chart) float64 {
	last := 0.0
	seen := func(t float64) {
		if !math.IsNaN(t) && !math.IsInf(t, 0) {
			last = math.Max(last, t)
		}
	}
	for _, n := range c.Notes {
		seen(n.Time)
	}
	for _, tc := range c.CustomData.BPMChanges {
		seen(tc.Time)
	}
	return last
}

type layout struct {
	opts  Options
	lanes int
	beats float64
}

func (l layout) left() float64 {
	return l.opts.Margin + l.opts.Gutter
}

func (l layout) right() float64 {
	return l.left() + float64(l.lanes)*l.opts.LaneWidth
}

func (l layout) y(beat float64) float64 {
	return l.opts.Margin + beat*l.opts.PixelsPerBeat
}

func (l layout) visible(beat float64) bool {
	return beat >= 0 && beat < l.beats
}

func (l layout) drawLanes(dc *gg.Context) {
	dc.SetRGBA(1, 1, 1, 0.15)
	dc.SetLineWidth(0.5)
	for i := 0; i <= l.lanes; i++ {
		x := l.left() + float64(i)*l.opts.LaneWidth
		dc.DrawLine(x, l.y(0), x, l.y(l.beats))
		dc.Stroke()
	}

	dc.SetRGBA(1, 1, 1, 0.06)
	for b := 0.0; b < l.beats; b++ {
		dc.DrawLine(l.left(), l.y(b), l.right(), l.y(b))
		dc.Stroke()
	}
}

// drawBars draws a bar line every BeatsPerBar beats, restarting the count
// at each tempo change. Before the first change bars are four beats long.
func (l layout) drawBars(dc *gg.Context, changes []chart.TempoChange) {
	dc.SetRGBA(1, 1, 1, 0.45)
	dc.SetLineWidth(1)

	start, perBar := 0.0, 4.0
	for i := 0; i <= len(changes); i++ {
		end := l.beats
		if i < len(changes) {
			end = math.Min(changes[i].Time, l.beats)
		}
		for b := start; b < end; b += perBar {
			dc.DrawLine(l.left(), l.y(b), l.right(), l.y(b))
			dc.Stroke()
		}
		if i < len(changes) {
			start = changes[i].Time
			perBar = 4
			if changes[i].BeatsPerBar > 0 {
				perBar = float64(changes[i].BeatsPerBar)
			}
		}
	}
}

func (l layout) drawNotes(dc *gg.Context, notes []chart.Note) {
	pad := l.opts.LaneWidth * 0.1
	for _, n := range notes {
		lane := int(n.LineIndex)
		if lane < 0 || lane >= l.lanes || !l.visible(n.Time) {
			continue
		}
		x := l.left() + float64(lane)*l.opts.LaneWidth + pad
		y := l.y(n.Time) - l.opts.NoteHeight/2
		dc.DrawRoundedRectangle(x, y, l.opts.LaneWidth-2*pad, l.opts.NoteHeight, 2)
		setColor(dc, laneColor(lane))
		dc.FillPreserve()
		dc.SetRGBA(0, 0, 0, 1)
		dc.SetLineWidth(1)
		dc.Stroke()
	}
}

func (l layout) drawTempoLabels(dc *gg.Context, changes []chart.TempoChange) {
	face, err := fontFace(l.opts.FontSize)
	if err != nil {
		return
	}
	dc.SetFontFace(face)
	dc.SetRGBA(1, 1, 1, 0.8)
	for _, tc := range changes {
		if !l.visible(tc.Time) {
			continue
		}
		dc.DrawStringAnchored(fmt.Sprintf("%.5g bpm", tc.BPM), l.left()-6, l.y(tc.Time), 1, 0.5)
	}
}

func fontFace(size float64) (font.Face, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{Size: size}), nil
}
