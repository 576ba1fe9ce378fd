package gen

import (
	"context"
	"math/rand"

	"github.com/annel0/tileworld/internal/world/noise"
)

// Input - поля шума и генератор случайных чисел для классификации
type Input struct {
	Elevation *noise.Field
	Moisture  *noise.Field // nil, если влажность не используется
	Rand      *rand.Rand
}

// Classifier переводит поля шума в тайлы по слоям.
// Клетки обходятся построчно, чтобы расход Rand был детерминирован.
type Classifier interface {
	// Layers - минимальное число слоёв, которое заполняет классификатор
	Layers() int
	// UsesMoisture сообщает, нужно ли пайплайну второе поле
	UsesMoisture() bool
	Classify(ctx context.Context, in Input, out *Buffer, rep *Reporter) error
}

// classifyRows - общий построчный обход с проверкой ctx и отчётом о прогрессе
func classifyRows(ctx context.Context, w, h int, rep *Reporter, cell func(x, y int)) error {
	for y := 0; y < h; y++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for x := 0; x < w; x++ {
			cell(x, y)
		}
		if rep != nil {
			rep.Advance(w)
		}
	}
	return nil
}
