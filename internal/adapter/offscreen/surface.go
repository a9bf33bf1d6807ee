package offscreen

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/tejashwikalptaru/visualplayer/internal/domain"
)

// stencil is the fill used for geometry-only bars.
var stencil = image.NewUniform(color.White)

// trailAlpha is the opacity of a motion trail next to the bar's new top.
const trailAlpha = 0.5

// instance holds the surfaces of one visualizer.
type instance struct {
	id              domain.InstanceID
	spec            domain.SurfaceSpec
	alwaysComposite bool

	fg   *image.RGBA // bars, always with alpha
	bg   *image.RGBA // imagery
	main *image.RGBA // composite

	mask     *image.RGBA // cached foreground mask
	prevBars []domain.BarPrimitive

	raster  vector.Rasterizer
	scratch *image.RGBA
	alpha   *image.Alpha
}

func newInstance(id domain.InstanceID, p domain.InitPayload) *instance {
	return &instance{
		id:              id,
		spec:            p.Surface,
		alwaysComposite: p.AlwaysComposite,
		fg:              newSurface(p.Surface),
		bg:              newSurface(p.Surface),
		main:            newSurface(p.Surface),
	}
}

func newSurface(spec domain.SurfaceSpec) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, spec.Width, spec.Height))
}

func (in *instance) bounds() image.Rectangle {
	return image.Rect(0, 0, in.spec.Width, in.spec.Height)
}

// drawForeground redraws the bar layer.
func (in *instance) drawForeground(p domain.ForegroundPayload) {
	clear(in.fg.Pix)

	if p.MotionBlur && len(in.prevBars) == len(p.Bars) {
		for i, bar := range p.Bars {
			in.drawTrail(in.prevBars[i], bar)
		}
	}

	for _, bar := range p.Bars {
		in.drawBar(bar)
	}
	in.prevBars = append(in.prevBars[:0], p.Bars...)

	if p.Mask != nil {
		if img, err := p.Mask.Detach(); err == nil {
			in.mask = img
		}
	}
	if in.mask != nil && (p.Mask != nil || p.ReuseMask) {
		in.drawMask(p.Stretch)
	}

	for _, o := range p.Overlays {
		in.drawText(o)
	}
}

// barRect returns the bar as a rectangle with non-negative extent.
func barRect(b domain.BarPrimitive) (x0, y0, x1, y1 float64) {
	x0, x1 = b.X, b.X+b.Width
	y0, y1 = b.Y, b.Top()
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return x0, y0, x1, y1
}

func integral(vs ...float64) bool {
	for _, v := range vs {
		if v != math.Trunc(v) {
			return false
		}
	}
	return true
}

func (in *instance) drawBar(b domain.BarPrimitive) {
	x0, y0, x1, y1 := barRect(b)
	if x0 == x1 || y0 == y1 {
		return
	}

	var src image.Image = stencil
	if b.Fill != nil {
		src = image.NewUniform(b.Fill)
	}

	if integral(x0, y0, x1, y1) {
		r := image.Rect(int(x0), int(y0), int(x1), int(y1)).Intersect(in.fg.Bounds())
		draw.Draw(in.fg, r, src, image.Point{}, draw.Over)
		return
	}

	// Fractional edges get coverage-based anti-aliasing.
	in.raster.Reset(in.spec.Width, in.spec.Height)
	in.raster.MoveTo(float32(x0), float32(y0))
	in.raster.LineTo(float32(x1), float32(y0))
	in.raster.LineTo(float32(x1), float32(y1))
	in.raster.LineTo(float32(x0), float32(y1))
	in.raster.ClosePath()
	in.raster.Draw(in.fg, in.fg.Bounds(), src, image.Point{})
}

// drawTrail draws a gradient past the bar's new top that fades away from the
// bar over the height change. It stays outside the bar body, which is drawn
// opaque on top of it.
func (in *instance) drawTrail(prev, cur domain.BarPrimitive) {
	span := math.Abs(prev.Height - cur.Height)
	if span == 0 {
		return
	}
	to := cur.Top()
	dir := math.Copysign(1, cur.Height)
	if cur.Height == 0 {
		dir = math.Copysign(1, prev.Height)
	}

	x0, _, x1, _ := barRect(cur)
	c := color.NRGBAModel.Convert(color.White).(color.NRGBA)
	if cur.Fill != nil {
		c = color.NRGBAModel.Convert(cur.Fill).(color.NRGBA)
	}

	lo, hi := math.Min(to, to+dir*span), math.Max(to, to+dir*span)
	bounds := in.fg.Bounds()
	for y := int(math.Floor(lo)); y < int(math.Ceil(hi)); y++ {
		dist := math.Abs(float64(y) + 0.5 - to)
		a := trailAlpha * (1 - dist/span)
		if a <= 0 {
			continue
		}
		row := image.Rect(int(math.Floor(x0)), y, int(math.Ceil(x1)), y+1).Intersect(bounds)
		if row.Empty() {
			continue
		}
		tint := c
		tint.A = uint8(float64(c.A) * a)
		draw.Draw(in.fg, row, image.NewUniform(tint), image.Point{}, draw.Over)
	}
}

// drawMask composites the cached mask onto pixels the bars already cover.
func (in *instance) drawMask(stretch bool) {
	b := in.bounds()
	if in.scratch == nil || in.scratch.Rect != b {
		in.scratch = image.NewRGBA(b)
		in.alpha = image.NewAlpha(b)
	}
	clear(in.scratch.Pix)

	if stretch {
		xdraw.ApproxBiLinear.Scale(in.scratch, b, in.mask, in.mask.Bounds(), xdraw.Src, nil)
	} else {
		draw.Draw(in.scratch, b, in.mask, in.mask.Bounds().Min, draw.Src)
	}

	for i := range in.alpha.Pix {
		in.alpha.Pix[i] = in.fg.Pix[i*4+3]
	}
	draw.DrawMask(in.fg, b, in.scratch, image.Point{}, in.alpha, image.Point{}, draw.Over)
}

func (in *instance) drawText(o domain.TextOverlay) {
	c := o.Color
	if c == nil {
		c = color.White
	}
	d := font.Drawer{
		Dst:  in.fg,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(o.X, o.Y),
	}
	d.DrawString(o.Text)
}

// drawBackground replaces the imagery layer. The bitmap's buffer is adopted
// without copying when it already has the surface size.
func (in *instance) drawBackground(p domain.BackgroundPayload) error {
	if p.Bitmap == nil {
		clear(in.bg.Pix)
		return nil
	}
	img, err := p.Bitmap.Detach()
	if err != nil {
		return err
	}

	b := in.bounds()
	if img.Rect == b {
		in.bg = img
		return nil
	}

	clear(in.bg.Pix)
	if p.Stretch {
		xdraw.CatmullRom.Scale(in.bg, b, img, img.Bounds(), xdraw.Src, nil)
	} else {
		draw.Draw(in.bg, b, img, img.Bounds().Min, draw.Src)
	}
	return nil
}

// composite draws background then foreground onto the main surface.
func (in *instance) composite() {
	b := in.bounds()
	if in.spec.Alpha {
		clear(in.main.Pix)
	} else {
		draw.Draw(in.main, b, image.Black, image.Point{}, draw.Src)
	}
	draw.Draw(in.main, b, in.bg, image.Point{}, draw.Over)
	draw.Draw(in.main, b, in.fg, image.Point{}, draw.Over)
}

// extract hands a surface over as a bitmap and gives the layer a fresh buffer.
func (in *instance) extract(layer domain.Layer) *domain.Bitmap {
	fresh := newSurface(in.spec)
	var img *image.RGBA
	switch layer {
	case domain.LayerForeground:
		img, in.fg = in.fg, fresh
	case domain.LayerBackground:
		img, in.bg = in.bg, fresh
	default:
		img, in.main = in.main, fresh
	}
	return domain.NewBitmap(img)
}

func (in *instance) free() {
	in.fg, in.bg, in.main = nil, nil, nil
	in.mask, in.scratch, in.alpha = nil, nil, nil
	in.prevBars = nil
}
