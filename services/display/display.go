// Package display adapts a hal.Framebuffer to the tinygo drivers display
// interface so tinyfont and tinyterm can draw on it.
package display

import (
	"image/color"

	"rvcore/hal"

	"tinygo.org/x/drivers"
)

// FB draws into a horizontal band of an RGB565 framebuffer. Coordinates
// are relative to the band.
type FB struct {
	fb   hal.Framebuffer
	y0   int
	rows int
}

var _ drivers.Displayer = (*FB)(nil)

// New returns an adapter covering the whole framebuffer.
func New(fb hal.Framebuffer) *FB {
	if fb == nil {
		return &FB{}
	}
	return &FB{fb: fb, rows: fb.Height()}
}

// Band returns an adapter covering rows [y, y+h) of fb, clipped to the
// framebuffer.
func Band(fb hal.Framebuffer, y, h int) *FB {
	if fb == nil {
		return &FB{}
	}
	y = clampInt(y, 0, fb.Height())
	h = clampInt(h, 0, fb.Height()-y)
	return &FB{fb: fb, y0: y, rows: h}
}

func (d *FB) usable() bool {
	return d.fb != nil && d.fb.Format() == hal.PixelFormatRGB565 && d.fb.Buffer() != nil
}

func (d *FB) Size() (x, y int16) {
	if d.fb == nil {
		return 0, 0
	}
	return int16(d.fb.Width()), int16(d.rows)
}

func (d *FB) SetPixel(x, y int16, c color.RGBA) {
	if !d.usable() {
		return
	}
	ix, iy := int(x), int(y)
	if ix < 0 || ix >= d.fb.Width() || iy < 0 || iy >= d.rows {
		return
	}
	buf := d.fb.Buffer()
	off := (d.y0+iy)*d.fb.StrideBytes() + ix*2
	if off+1 >= len(buf) {
		return
	}
	p := RGB565(c)
	buf[off] = byte(p)
	buf[off+1] = byte(p >> 8)
}

// Display presents the framebuffer.
func (d *FB) Display() error {
	if d.fb == nil {
		return nil
	}
	return d.fb.Present()
}

func (d *FB) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	if !d.usable() {
		return nil
	}
	x0 := clampInt(int(x), 0, d.fb.Width())
	x1 := clampInt(int(x)+int(width), 0, d.fb.Width())
	y0 := clampInt(int(y), 0, d.rows)
	y1 := clampInt(int(y)+int(height), 0, d.rows)
	if x0 >= x1 || y0 >= y1 {
		return nil
	}

	p := RGB565(c)
	lo, hi := byte(p), byte(p>>8)
	buf := d.fb.Buffer()
	stride := d.fb.StrideBytes()
	for py := y0; py < y1; py++ {
		row := (d.y0 + py) * stride
		for px := x0; px < x1; px++ {
			off := row + px*2
			if off+1 >= len(buf) {
				break
			}
			buf[off] = lo
			buf[off+1] = hi
		}
	}
	return nil
}

// ScrollUp moves the band's content up by lines rows and clears the rows
// exposed at the bottom.
func (d *FB) ScrollUp(lines int16, bg color.RGBA) error {
	if !d.usable() || lines <= 0 {
		return nil
	}
	n := int(lines)
	if n >= d.rows {
		return d.FillRectangle(0, 0, int16(d.fb.Width()), int16(d.rows), bg)
	}

	buf := d.fb.Buffer()
	stride := d.fb.StrideBytes()
	dst := d.y0 * stride
	src := (d.y0 + n) * stride
	end := (d.y0 + d.rows) * stride
	if end > len(buf) {
		end = len(buf)
	}
	if src < end {
		copy(buf[dst:], buf[src:end])
	}
	return d.FillRectangle(0, int16(d.rows-n), int16(d.fb.Width()), int16(n), bg)
}

// SetScroll is a no-op: the framebuffer has no hardware scroll.
func (d *FB) SetScroll(line int16) {}

func (d *FB) SetRotation(rotation drivers.Rotation) error {
	return nil
}

// RGB565 packs c the way the framebuffer stores it.
func RGB565(c color.RGBA) uint16 {
	return uint16(c.R>>3)<<11 | uint16(c.G>>2)<<5 | uint16(c.B>>3)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
