package ballroom

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

var (
	InkColor   = color.RGBA{R: 0xd9, G: 0x1f, B: 0x2e, A: 0xff}
	PaperColor = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// PaintCanvas is the floor texture. World (x, z) in [-half, half] maps to
// the whole image; dabs outside it are ignored.
type PaintCanvas struct {
	Img         *image.RGBA
	HalfExtent  float32
	BrushRadius float32

	raster *vector.Rasterizer
	mask   *image.Alpha
}

func NewPaintCanvas(size int, halfExtent float32) *PaintCanvas {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(PaperColor), image.Point{}, draw.Src)
	return &PaintCanvas{Img: img, HalfExtent: halfExtent, BrushRadius: BrushRadiusPx}
}

// ToPixel maps a floor point to canvas pixels.
func (c *PaintCanvas) ToPixel(x, z float32) (float32, float32, bool) {
	u := (x + c.HalfExtent) / (2 * c.HalfExtent)
	v := (z + c.HalfExtent) / (2 * c.HalfExtent)
	if u < 0 || u > 1 || v < 0 || v > 1 {
		return 0, 0, false
	}
	b := c.Img.Bounds()
	return u * float32(b.Dx()), v * float32(b.Dy()), true
}

// Paint stamps a round brush at the floor point. It reports whether the
// point was on the canvas.
func (c *PaintCanvas) Paint(x, z float32, mode PaintMode) bool {
	px, py, ok := c.ToPixel(x, z)
	if !ok {
		return false
	}
	r := c.BrushRadius
	side := int(math.Ceil(float64(2*r))) + 2
	origin := image.Pt(int(math.Floor(float64(px-r)))-1, int(math.Floor(float64(py-r)))-1)
	box := image.Rectangle{Min: origin, Max: origin.Add(image.Pt(side, side))}

	if c.raster == nil {
		c.raster = vector.NewRasterizer(side, side)
	} else {
		c.raster.Reset(side, side)
	}
	if c.mask == nil || c.mask.Bounds().Dx() != side {
		c.mask = image.NewAlpha(image.Rect(0, 0, side, side))
	} else {
		for i := range c.mask.Pix {
			c.mask.Pix[i] = 0
		}
	}
	circle(c.raster, px-float32(origin.X), py-float32(origin.Y), r)
	c.raster.Draw(c.mask, c.mask.Bounds(), image.Opaque, image.Point{})

	ink := InkColor
	if mode == PaintErase {
		ink = PaperColor
	}
	draw.DrawMask(c.Img, box, image.NewUniform(ink), image.Point{}, c.mask, image.Point{}, draw.Over)
	return true
}

// circle approximates a circle with four cubic Béziers.
func circle(z *vector.Rasterizer, cx, cy, r float32) {
	const k = 0.5522847498
	kr := k * r
	z.MoveTo(cx+r, cy)
	z.CubeTo(cx+r, cy+kr, cx+kr, cy+r, cx, cy+r)
	z.CubeTo(cx-kr, cy+r, cx-r, cy+kr, cx-r, cy)
	z.CubeTo(cx-r, cy-kr, cx-kr, cy-r, cx, cy-r)
	z.CubeTo(cx+kr, cy-r, cx+r, cy-kr, cx+r, cy)
	z.ClosePath()
}

// Thumbnail scales the canvas down to size x size.
func (c *PaintCanvas) Thumbnail(size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), c.Img, c.Img.Bounds(), xdraw.Src, nil)
	return dst
}

// WritePNG encodes the canvas, scaled to size when size is positive.
func (c *PaintCanvas) WritePNG(w io.Writer, size int) error {
	var img image.Image = c.Img
	if size > 0 && size != c.Img.Bounds().Dx() {
		img = c.Thumbnail(size)
	}
	return png.Encode(w, img)
}
