package gen

import (
	"math"

	"github.com/annel0/tileworld/internal/world/noise"
)

// Falloff прижимает высоту к нулю у краёв карты
type Falloff struct {
	Start float64 // нормированное расстояние от края, где спад начинается
	End   float64 // расстояние, начиная с которого высота не меняется
}

// Smoothstep - эрмитова интерполяция x между e0 и e1
func Smoothstep(e0, e1, x float64) float64 {
	if e1 == e0 {
		if x < e0 {
			return 0
		}
		return 1
	}
	t := (x - e0) / (e1 - e0)
	t = math.Max(0, math.Min(1, t))
	return t * t * (3 - 2*t)
}

// EdgeDistance возвращает нормированное расстояние клетки до ближайшего края:
// 0 на границе, 1 в центре.
func EdgeDistance(x, y, w, h int) float64 {
	dx := min(x, w-1-x)
	dy := min(y, h-1-y)
	half := float64(min(w-1, h-1)) / 2
	if half <= 0 {
		return 1
	}
	d := float64(min(dx, dy)) / half
	return math.Min(1, d)
}

// EdgeFalloff - множитель высоты для клетки (x, y) карты w×h
func EdgeFalloff(x, y, w, h int, start, end float64) float64 {
	return Smoothstep(start, end, EdgeDistance(x, y, w, h))
}

// Apply умножает поле на множитель спада
func (f Falloff) Apply(field *noise.Field) {
	for y := 0; y < field.Height; y++ {
		for x := 0; x < field.Width; x++ {
			k := EdgeFalloff(x, y, field.Width, field.Height, f.Start, f.End)
			field.Set(x, y, field.At(x, y)*k)
		}
	}
}
