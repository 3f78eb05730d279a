// Package annotate draws prediction results onto photos and builds the
// text replies that accompany them.
package annotate

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/webp"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	boxColor  = color.RGBA{R: 255, A: 200}
	textColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Result pairs one predicted face with its bounding box in
// [top, right, bottom, left] pixel coordinates.
type Result struct {
	Label       string
	Probability float64
	Box         []int
}

// Render decodes the photo, draws a box and "label p%" tag for every
// result, and re-encodes the image as PNG.
func Render(imageData []byte, results []Result) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	canvas := image.NewRGBA(src.Bounds())
	draw.Draw(canvas, canvas.Bounds(), src, src.Bounds().Min, draw.Src)

	for _, r := range results {
		if len(r.Box) != 4 {
			continue
		}
		top, right, bottom, left := r.Box[0], r.Box[1], r.Box[2], r.Box[3]
		drawBox(canvas, left, top, right, bottom)
		drawTag(canvas, left, right, bottom, tagText(r.Label, r.Probability))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode annotated image: %w", err)
	}
	return buf.Bytes(), nil
}

func tagText(label string, prob float64) string {
	return fmt.Sprintf("%s %.2f%%", label, prob*100)
}

// drawBox draws a one-pixel rectangle outline.
func drawBox(img *image.RGBA, left, top, right, bottom int) {
	for x := left; x <= right; x++ {
		setPixel(img, x, top)
		setPixel(img, x, bottom)
	}
	for y := top; y <= bottom; y++ {
		setPixel(img, left, y)
		setPixel(img, right, y)
	}
}

// drawTag fills a bar under the face box and writes the label into it.
func drawTag(img *image.RGBA, left, right, bottom int, text string) {
	face := basicfont.Face7x13
	textHeight := face.Metrics().Height.Ceil()
	bar := image.Rect(left, bottom, right+1, bottom+textHeight+4)
	bar = bar.Intersect(img.Bounds())
	if bar.Empty() {
		return
	}
	draw.Draw(img, bar, &image.Uniform{boxColor}, image.Point{}, draw.Over)

	// Center the text when it fits inside the bar.
	textWidth := font.MeasureString(face, text).Ceil()
	x := left
	if pad := (right - left - textWidth) / 2; pad > 0 {
		x += pad
	}

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{textColor},
		Face: face,
		Dot:  fixed.P(x, bottom+textHeight),
	}
	drawer.DrawString(text)
}

func setPixel(img *image.RGBA, x, y int) {
	if (image.Point{X: x, Y: y}).In(img.Bounds()) {
		img.Set(x, y, boxColor)
	}
}
