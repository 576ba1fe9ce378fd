package gen

import (
	"errors"
	"fmt"

	"github.com/annel0/tileworld/internal/world/tile"
)

var (
	// ErrUnknownTile - классификатор ссылается на тайл, которого нет в реестре
	ErrUnknownTile = errors.New("gen: unknown tile")
	// ErrTooFewLayers - у карты меньше слоёв, чем нужно классификатору
	ErrTooFewLayers = errors.New("gen: too few layers")
)

func unknownTile(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownTile, name)
}

// Buffer - плотный массив тайлов карты, индекс (layer*H + y)*W + x
type Buffer struct {
	Width  int
	Height int
	Depth  int
	IDs    []tile.ID
}

// NewBuffer выделяет пустой буфер
func NewBuffer(width, height, depth int) *Buffer {
	return &Buffer{
		Width:  width,
		Height: height,
		Depth:  depth,
		IDs:    make([]tile.ID, width*height*depth),
	}
}

// Index возвращает позицию клетки в IDs без проверки границ
func (b *Buffer) Index(x, y, layer int) int {
	return (layer*b.Height+y)*b.Width + x
}

// At возвращает тайл клетки на слое
func (b *Buffer) At(x, y, layer int) tile.ID {
	return b.IDs[b.Index(x, y, layer)]
}

// Set записывает тайл клетки на слое
func (b *Buffer) Set(x, y, layer int, id tile.ID) {
	b.IDs[b.Index(x, y, layer)] = id
}
