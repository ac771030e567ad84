// Package mapview renders a segment table as a picture: the 32-bit logical
// space on the left, the physical base of each descriptor on the right, and
// a line joining each logical range to where it lands.
package mapview

import (
	"fmt"
	"image"
	"io"

	"github.com/fogleman/gg"

	"github.com/sarchlab/segsim/segment"
)

// Options sets the picture size.
type Options struct {
	Width  int
	Height int
}

// DefaultOptions returns an 800x600 picture.
func DefaultOptions() Options {
	return Options{Width: 800, Height: 600}
}

// Band is the placement of one descriptor in the picture, in pixels.
type Band struct {
	Group int

	// LogicalTop and LogicalHeight place the logical range on the left axis.
	LogicalTop    float64
	LogicalHeight float64

	// PhysicalTop places the physical base on the right axis.
	PhysicalTop float64

	Enabled        bool
	WriteProtected bool
	Faulted        bool
}

const (
	margin      = 40.0
	axisWidth   = 140.0
	legendLines = segment.NumDescriptors + 1
	lineHeight  = 16.0
	minBand     = 3.0
)

var palette = [segment.NumDescriptors][3]float64{
	{0.26, 0.52, 0.96},
	{0.20, 0.66, 0.33},
	{0.98, 0.74, 0.02},
	{0.61, 0.35, 0.71},
}

// plotHeight is the vertical room left for the axes above the legend.
func plotHeight(opts Options) float64 {
	return float64(opts.Height) - 2*margin - legendLines*lineHeight
}

// Layout computes where each descriptor is drawn.
func Layout(t segment.Table, opts Options) []Band {
	h := plotHeight(opts)
	bands := make([]Band, 0, segment.NumDescriptors)

	for i, d := range t {
		base := d.LogicalBase & d.Mask
		size := uint64(^d.Mask) + 1

		height := float64(size) / (1 << 32) * h
		if height < minBand {
			height = minBand
		}

		bands = append(bands, Band{
			Group:          i,
			LogicalTop:     margin + float64(base)/(1<<32)*h,
			LogicalHeight:  height,
			PhysicalTop:    margin + float64(d.PhysicalBase&d.Mask)/(1<<32)*h,
			Enabled:        d.Status.Enabled,
			WriteProtected: d.Status.WriteProtected,
			Faulted:        d.Status.Fault,
		})
	}
	return bands
}

// Render draws the table.
func Render(t segment.Table, opts Options) image.Image {
	return draw(t, opts).Image()
}

// EncodePNG draws the table and writes it as PNG to w.
func EncodePNG(w io.Writer, t segment.Table, opts Options) error {
	return draw(t, opts).EncodePNG(w)
}

// SavePNG draws the table into a PNG file.
func SavePNG(path string, t segment.Table, opts Options) error {
	if err := draw(t, opts).SavePNG(path); err != nil {
		return fmt.Errorf("failed to save map: %w", err)
	}
	return nil
}

func draw(t segment.Table, opts Options) *gg.Context {
	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	h := plotHeight(opts)
	leftX := margin
	rightX := float64(opts.Width) - margin - axisWidth

	// Axes.
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawRectangle(leftX, margin, axisWidth, h)
	dc.DrawRectangle(rightX, margin, axisWidth, h)
	dc.Stroke()
	dc.DrawStringAnchored("logical", leftX+axisWidth/2, margin-12, 0.5, 0.5)
	dc.DrawStringAnchored("physical base", rightX+axisWidth/2, margin-12, 0.5, 0.5)

	// Later descriptors first, so the one that wins a lookup is on top.
	bands := Layout(t, opts)
	for i := len(bands) - 1; i >= 0; i-- {
		b := bands[i]
		c := palette[b.Group]
		if b.Enabled {
			dc.SetRGB(c[0], c[1], c[2])
		} else {
			dc.SetRGB(0.8, 0.8, 0.8)
		}

		dc.DrawRectangle(leftX+1, b.LogicalTop, axisWidth-2, b.LogicalHeight)
		dc.Fill()
		dc.DrawRectangle(rightX+1, b.PhysicalTop, axisWidth-2, minBand)
		dc.Fill()

		dc.SetLineWidth(1)
		dc.DrawLine(leftX+axisWidth, b.LogicalTop+b.LogicalHeight/2,
			rightX, b.PhysicalTop+minBand/2)
		dc.Stroke()

		if b.WriteProtected {
			dc.SetRGB(0.85, 0.1, 0.1)
			dc.SetLineWidth(2)
			dc.DrawRectangle(leftX+1, b.LogicalTop, axisWidth-2, b.LogicalHeight)
			dc.Stroke()
		}
		if b.Faulted {
			dc.SetRGB(0.85, 0.1, 0.1)
			dc.DrawCircle(leftX-10, b.LogicalTop+b.LogicalHeight/2, 4)
			dc.Fill()
		}
	}

	// Legend.
	y := margin + h + 2*lineHeight
	dc.SetRGB(0, 0, 0)
	dc.DrawString("grp  pbase      lbase      mask       status", margin, y)
	for i, d := range t {
		y += lineHeight
		c := palette[i]
		dc.SetRGB(c[0], c[1], c[2])
		dc.DrawRectangle(margin-14, y-9, 9, 9)
		dc.Fill()

		dc.SetRGB(0, 0, 0)
		dc.DrawString(fmt.Sprintf("%d    0x%08X 0x%08X 0x%08X %s",
			i, d.PhysicalBase, d.LogicalBase, d.Mask, d.Status), margin, y)
	}

	return dc
}
