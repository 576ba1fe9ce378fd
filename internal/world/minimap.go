package world

import (
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/annel0/tileworld/internal/vec"
)

// MinimapColor возвращает цвет миникарты для клетки (прозрачный вне карты)
func (g *Grid) MinimapColor(cell vec.Vec2) color.RGBA {
	if !g.InBounds(cell) {
		return color.RGBA{}
	}
	return g.minimap[g.flat(cell)]
}

// MinimapImage собирает миникарту: один пиксель на клетку
func (g *Grid) MinimapImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, g.width, g.height))
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			img.SetRGBA(x, y, g.minimap[y*g.width+x])
		}
	}
	return img
}

// WriteMinimapPNG кодирует миникарту в PNG
func (g *Grid) WriteMinimapPNG(w io.Writer) error {
	return png.Encode(w, g.MinimapImage())
}
