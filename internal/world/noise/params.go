package noise

import (
	"errors"
	"fmt"
)

// ErrInvalidParams возвращается для некорректных параметров генерации.
// Это ошибка программиста/конфигурации: значения по умолчанию не подставляются.
var ErrInvalidParams = errors.New("noise: invalid params")

// Algorithm выбирает базовый источник градиентного шума
type Algorithm string

const (
	AlgorithmGradient Algorithm = "gradient" // собственная таблица перестановок, 8 градиентов
	AlgorithmPerlin   Algorithm = "perlin"   // github.com/aquilax/go-perlin
)

// Params - полный набор параметров поля шума.
// Одинаковые Params всегда дают побитово одинаковое поле.
type Params struct {
	Width       int
	Height      int
	Seed        int64
	Scale       float64
	Octaves     int
	Persistence float64
	Lacunarity  float64
	Algorithm   Algorithm // пусто = AlgorithmGradient
}

// Validate проверяет параметры до запуска генерации
func (p Params) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidParams, p.Width, p.Height)
	}
	if !(p.Scale > 0) {
		return fmt.Errorf("%w: scale must be > 0, got %v", ErrInvalidParams, p.Scale)
	}
	if p.Octaves < 1 {
		return fmt.Errorf("%w: octaves must be >= 1, got %d", ErrInvalidParams, p.Octaves)
	}
	switch p.Algorithm {
	case "", AlgorithmGradient, AlgorithmPerlin:
	default:
		return fmt.Errorf("%w: unknown algorithm %q", ErrInvalidParams, p.Algorithm)
	}
	return nil
}
