package dicom

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// drawOverlay burns text, white with a black outline, into the centre of an
// 8-bit monochrome frame. The text is scaled to about a third of the width.
func drawOverlay(px []uint8, width, height int, text string) {
	face := basicfont.Face7x13
	baseWidth := font.MeasureString(face, text).Ceil()
	if baseWidth == 0 {
		return
	}
	const baseHeight = 13

	glyphs := image.NewAlpha(image.Rect(0, 0, baseWidth, baseHeight))
	d := &font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(color.Alpha{A: 255}),
		Face: face,
		Dot:  fixed.Point26_6{Y: fixed.I(baseHeight - 2)},
	}
	d.DrawString(text)

	scale := float64(width) * 0.3 / float64(baseWidth)
	if scale < 1 {
		scale = 1
	}
	sw, sh := int(float64(baseWidth)*scale), int(float64(baseHeight)*scale)
	scaled := image.NewAlpha(image.Rect(0, 0, sw, sh))
	draw.BiLinear.Scale(scaled, scaled.Bounds(), glyphs, glyphs.Bounds(), draw.Over, nil)

	x0, y0 := (width-sw)/2, (height-sh)/2
	outline := max(1, sh/10)
	set := func(x, y int, v uint8) {
		if x >= 0 && x < width && y >= 0 && y < height {
			px[y*width+x] = v
		}
	}
	for sy := 0; sy < sh; sy++ {
		for sx := 0; sx < sw; sx++ {
			if scaled.AlphaAt(sx, sy).A == 0 {
				continue
			}
			for dy := -outline; dy <= outline; dy++ {
				for dx := -outline; dx <= outline; dx++ {
					set(x0+sx+dx, y0+sy+dy, 0)
				}
			}
		}
	}
	for sy := 0; sy < sh; sy++ {
		for sx := 0; sx < sw; sx++ {
			if a := scaled.AlphaAt(sx, sy).A; a > 0 {
				set(x0+sx, y0+sy, a)
			}
		}
	}
}
