package chart

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	stddraw "image/draw"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	defaultWidth  = 480
	defaultHeight = 360

	// Shapes are drawn at this multiple of the output size and scaled down,
	// which smooths the pie edges. Text is drawn after scaling.
	supersample = 2
	padding     = 16
)

var defaultPalette = []color.RGBA{
	{R: 0x1e, G: 0x3a, B: 0x8a, A: 0xff},
	{R: 0xdc, G: 0x26, B: 0x26, A: 0xff},
	{R: 0x05, G: 0x96, B: 0x69, A: 0xff},
	{R: 0xf5, G: 0x9e, B: 0x0b, A: 0xff},
	{R: 0x7c, G: 0x3a, B: 0xed, A: 0xff},
	{R: 0x0e, G: 0x74, B: 0x90, A: 0xff},
	{R: 0xdb, G: 0x27, B: 0x77, A: 0xff},
	{R: 0x64, G: 0x74, B: 0x8b, A: 0xff},
}

var (
	background = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	axisColor  = color.RGBA{R: 0x94, G: 0xa3, B: 0xb8, A: 0xff}
	textColor  = color.RGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}
)

// Raster draws charts in pure Go and encodes them as PNG.
type Raster struct {
	Width   int
	Height  int
	Palette []color.RGBA
}

func NewRaster() *Raster {
	return &Raster{Width: defaultWidth, Height: defaultHeight, Palette: defaultPalette}
}

// Pie draws one slice per label, largest first, starting at twelve o'clock
// and running counterclockwise, with a "label NN%" legend on the right.
func (r *Raster) Pie(counts map[string]int) ([]byte, error) {
	slices := Slices(counts)
	if len(slices) == 0 {
		return nil, ErrNoData
	}
	w, h := r.size()

	total := 0
	for _, s := range slices {
		total += s.Count
	}
	ends := make([]float64, len(slices))
	acc := 0
	for i, s := range slices {
		acc += s.Count
		ends[i] = float64(acc) / float64(total)
	}

	diameter := h - 2*padding
	if limit := w*3/5 - 2*padding; diameter > limit {
		diameter = limit
	}
	if diameter < 8 {
		return nil, fmt.Errorf("chart: %dx%d canvas too small for a pie", w, h)
	}

	big := canvas(w*supersample, h*supersample)
	radius := float64(diameter*supersample) / 2
	cx := float64(padding*supersample) + radius
	cy := float64(h*supersample) / 2
	for y := int(cy - radius); y <= int(cy+radius); y++ {
		for x := int(cx - radius); x <= int(cx+radius); x++ {
			dx := float64(x) + 0.5 - cx
			dy := cy - (float64(y) + 0.5)
			if dx*dx+dy*dy > radius*radius {
				continue
			}
			angle := math.Atan2(dy, dx)*180/math.Pi - 90
			if angle < 0 {
				angle += 360
			}
			big.SetRGBA(x, y, r.color(sliceAt(ends, angle/360)))
		}
	}
	img := downscale(big, w, h)

	face := basicfont.Face7x13
	lineHeight := face.Metrics().Height.Ceil() + 6
	legendX := padding + diameter + padding
	legendY := h/2 - len(slices)*lineHeight/2
	for i, s := range slices {
		top := legendY + i*lineHeight
		stddraw.Draw(img, image.Rect(legendX, top, legendX+10, top+10), image.NewUniform(r.color(i)), image.Point{}, stddraw.Src)
		label := fmt.Sprintf("%s %d%%", s.Label, s.Percent)
		label = fitText(face, label, w-legendX-16-padding/2)
		drawText(img, face, label, legendX+16, top+10)
	}
	return encode(img)
}

// Bar draws one bar per label in the same order as Pie, with the count
// above each bar and the label below.
func (r *Raster) Bar(counts map[string]int) ([]byte, error) {
	slices := Slices(counts)
	if len(slices) == 0 {
		return nil, ErrNoData
	}
	w, h := r.size()
	face := basicfont.Face7x13
	textHeight := face.Metrics().Height.Ceil()

	top := padding + textHeight
	bottom := h - padding - textHeight
	left, right := padding, w-padding
	if bottom-top < 8 || right-left < len(slices) {
		return nil, fmt.Errorf("chart: %dx%d canvas too small for %d bars", w, h, len(slices))
	}

	slot := float64(right-left) / float64(len(slices))
	barWidth := slot * 0.6
	maxCount := slices[0].Count

	big := canvas(w*supersample, h*supersample)
	for i, s := range slices {
		barHeight := float64(bottom-top) * float64(s.Count) / float64(maxCount)
		x0 := float64(left) + slot*float64(i) + (slot-barWidth)/2
		rect := image.Rect(
			int(x0*supersample),
			int((float64(bottom)-barHeight)*supersample),
			int((x0+barWidth)*supersample),
			bottom*supersample,
		)
		stddraw.Draw(big, rect, image.NewUniform(r.color(i)), image.Point{}, stddraw.Src)
	}
	baseline := image.Rect(left*supersample, bottom*supersample, right*supersample, bottom*supersample+supersample)
	stddraw.Draw(big, baseline, image.NewUniform(axisColor), image.Point{}, stddraw.Src)
	img := downscale(big, w, h)

	for i, s := range slices {
		center := left + int(slot*float64(i)+slot/2)
		barHeight := int(float64(bottom-top) * float64(s.Count) / float64(maxCount))

		count := fmt.Sprint(s.Count)
		drawText(img, face, count, center-textWidth(face, count)/2, bottom-barHeight-3)

		label := fitText(face, s.Label, int(slot)-2)
		drawText(img, face, label, center-textWidth(face, label)/2, bottom+textHeight+2)
	}
	return encode(img)
}

func (r *Raster) size() (int, int) {
	w, h := r.Width, r.Height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	return w, h
}

func (r *Raster) color(i int) color.RGBA {
	palette := r.Palette
	if len(palette) == 0 {
		palette = defaultPalette
	}
	return palette[i%len(palette)]
}

// sliceAt returns the index of the slice covering fraction f of the circle.
func sliceAt(ends []float64, f float64) int {
	for i, end := range ends {
		if f < end {
			return i
		}
	}
	return len(ends) - 1
}

func canvas(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	stddraw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, stddraw.Src)
	return img
}

func downscale(src *image.RGBA, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

func drawText(dst *image.RGBA, face font.Face, s string, x, y int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(textColor),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func textWidth(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

// fitText shortens s with a trailing ".." until it fits in maxWidth pixels.
func fitText(face font.Face, s string, maxWidth int) string {
	if textWidth(face, s) <= maxWidth {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ".."
		if textWidth(face, candidate) <= maxWidth {
			return candidate
		}
	}
	return ""
}

func encode(img image.Image) ([]byte, error) {
	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return nil, fmt.Errorf("chart: encode png: %w", err)
	}
	return out.Bytes(), nil
}
