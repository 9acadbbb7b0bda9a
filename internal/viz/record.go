package viz

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"os"

	"github.com/charmbracelet/lipgloss"
)

const (
	gifCharW = 8
	gifCharH = 16
	// gifDelay is in hundredths of a second.
	gifDelay = 2
)

var errNoFrames = errors.New("viz: no frames recorded")

// captureFrame rasterises the canvas into a two colour frame using the
// current theme's sand colour.
func (m *Model) captureFrame() {
	m.frames = append(m.frames, rasterize(m.canvas, themeColor(CurrentTheme.Sand)))
}

func rasterize(c *Canvas, fg color.Color) *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, c.Cols()*gifCharW, c.Rows()*gifCharH), color.Palette{color.Black, fg})
	dotW, dotH := gifCharW/2, gifCharH/4
	ink := image.NewUniform(fg)
	c.EachLit(func(x, y int) {
		dot := image.Rect(x*dotW, y*dotH, (x+1)*dotW, (y+1)*dotH)
		draw.Draw(img, dot, ink, image.Point{}, draw.Src)
	})
	return img
}

func themeColor(c lipgloss.Color) color.Color {
	r, g, b := parseHex(string(c))
	return color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 0xff}
}

func saveGIF(path string, frames []*image.Paletted) error {
	if len(frames) == 0 {
		return errNoFrames
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, gifDelay)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gif.EncodeAll(f, &anim)
}
