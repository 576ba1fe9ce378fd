package gen

import (
	"context"

	"github.com/annel0/tileworld/internal/world/tile"
)

// BandClassifier делит [0, 1) на Bands зон; значения в начале зоны шириной
// BandWidth открыты (только пол), остальные закрыты стеной на слое 1.
type BandClassifier struct {
	Bands     int
	BandWidth float64
	Floor     Variants
	Wall      tile.ID
}

// NewBandClassifier собирает классификатор пещер с полом floor1/floor2 и стеной wall
func NewBandClassifier(reg *tile.Registry, bands int, bandWidth float64) (*BandClassifier, error) {
	floor, err := ResolveVariants(reg, []string{"floor1", "floor2"}, []int{1, 1})
	if err != nil {
		return nil, err
	}
	wall, ok := reg.IDByName("wall")
	if !ok {
		return nil, unknownTile("wall")
	}
	return &BandClassifier{Bands: bands, BandWidth: bandWidth, Floor: floor, Wall: wall}, nil
}

func (c *BandClassifier) Layers() int        { return 2 }
func (c *BandClassifier) UsesMoisture() bool { return false }

// Open сообщает, попадает ли значение в открытую часть какой-либо зоны
func (c *BandClassifier) Open(v float64) bool {
	for i := 0; i < c.Bands; i++ {
		start := float64(i) / float64(c.Bands)
		if v >= start && v < start+c.BandWidth {
			return true
		}
	}
	return false
}

func (c *BandClassifier) Classify(ctx context.Context, in Input, out *Buffer, rep *Reporter) error {
	if out.Depth < c.Layers() {
		return ErrTooFewLayers
	}
	return classifyRows(ctx, out.Width, out.Height, rep, func(x, y int) {
		out.Set(x, y, 0, c.Floor.Pick(in.Rand))
		if !c.Open(in.Elevation.At(x, y)) {
			out.Set(x, y, 1, c.Wall)
		}
	})
}
