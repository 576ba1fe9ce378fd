package gen

import "github.com/annel0/tileworld/internal/world/noise"

// GapFill поднимает короткие провалы ниже порога до самого порога
type GapFill struct {
	Threshold float64
	MaxGap    int
}

// Apply возвращает новое поле с заполненными провалами.
// Провал - непрерывная серия значений ниже Threshold длиной не больше MaxGap,
// ограниченная справа (снизу) значением не ниже порога. Оба прохода читают
// исходное поле, серии у правого и нижнего края не трогаются.
func (g GapFill) Apply(src *noise.Field) *noise.Field {
	out := noise.NewField(src.Width, src.Height)
	copy(out.Values, src.Values)

	for y := 0; y < src.Height; y++ {
		start := -1
		for x := 0; x < src.Width; x++ {
			if src.At(x, y) < g.Threshold {
				if start == -1 {
					start = x
				}
				continue
			}
			if start != -1 {
				if x-start <= g.MaxGap {
					for gx := start; gx < x; gx++ {
						out.Set(gx, y, g.Threshold)
					}
				}
				start = -1
			}
		}
	}

	for x := 0; x < src.Width; x++ {
		start := -1
		for y := 0; y < src.Height; y++ {
			if src.At(x, y) < g.Threshold {
				if start == -1 {
					start = y
				}
				continue
			}
			if start != -1 {
				if y-start <= g.MaxGap {
					for gy := start; gy < y; gy++ {
						out.Set(x, gy, g.Threshold)
					}
				}
				start = -1
			}
		}
	}
	return out
}
