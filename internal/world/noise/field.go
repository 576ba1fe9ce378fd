package noise

import (
	"context"
	"math"
	"math/rand"
)

// Field - временное поле значений шума (row-major)
type Field struct {
	Width  int
	Height int
	Values []float64
}

// NewField выделяет поле указанного размера
func NewField(width, height int) *Field {
	return &Field{Width: width, Height: height, Values: make([]float64, width*height)}
}

// At возвращает значение в клетке (x, y)
func (f *Field) At(x, y int) float64 {
	return f.Values[y*f.Width+x]
}

// Set записывает значение в клетку (x, y)
func (f *Field) Set(x, y int, v float64) {
	f.Values[y*f.Width+x] = v
}

// MinMax возвращает минимум и максимум поля
func (f *Field) MinMax() (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range f.Values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Normalize линейно переводит поле в [0, 1]: минимум -> 0, максимум -> 1.
// Однородное поле (max == min) становится нулевым.
func (f *Field) Normalize() {
	lo, hi := f.MinMax()
	span := hi - lo
	if !(span > 0) {
		for i := range f.Values {
			f.Values[i] = 0
		}
		return
	}
	for i, v := range f.Values {
		f.Values[i] = (v - lo) / span
	}
}

// RowFunc вызывается после каждой готовой строки поля
type RowFunc func(done, total int)

// Generate строит нормализованное многооктавное поле шума
func Generate(p Params) (*Field, error) {
	return GenerateContext(context.Background(), p, nil)
}

// GenerateContext - Generate с отменой через ctx и отчётом о строках.
// Параметры проверяются до начала вычислений.
func GenerateContext(ctx context.Context, p Params, onRow RowFunc) (*Field, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(p.Seed))

	var src Source
	if p.Algorithm == AlgorithmPerlin {
		src = NewPerlinSource(p.Seed)
	} else {
		src = NewGradient(rng)
	}

	offsets := make([][2]float64, p.Octaves)
	for i := range offsets {
		offsets[i][0] = float64(rng.Intn(200000) - 100000)
		offsets[i][1] = float64(rng.Intn(200000) - 100000)
	}

	field := NewField(p.Width, p.Height)
	for y := 0; y < p.Height; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := 0; x < p.Width; x++ {
			amplitude := 1.0
			frequency := 1.0
			height := 0.0

			for i := 0; i < p.Octaves; i++ {
				sx := float64(x)/p.Scale*frequency + offsets[i][0]
				sy := float64(y)/p.Scale*frequency + offsets[i][1]

				height += src.Noise2D(sx, sy) * amplitude

				amplitude *= p.Persistence
				frequency *= p.Lacunarity
			}
			field.Set(x, y, height)
		}
		if onRow != nil {
			onRow(y+1, p.Height)
		}
	}

	field.Normalize()
	return field, nil
}
