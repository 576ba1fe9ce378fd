package gen

import (
	"math/rand"

	"github.com/annel0/tileworld/internal/world/tile"
)

// PickWeighted выбирает индекс по целочисленным весам.
// Вытягивается равномерное число в [0, Σw) и возвращается первый индекс,
// накопленный вес которого его превышает. При Σw <= 0 возвращается 0.
func PickWeighted(rng *rand.Rand, weights []int) int {
	total := 0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return 0
	}

	draw := rng.Intn(total)
	acc := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		if draw < acc {
			return i
		}
	}
	return len(weights) - 1
}

// Variant - вариант тайла с приоритетом выбора
type Variant struct {
	ID     tile.ID
	Weight int
}

// Variants - набор взаимозаменяемых вариантов одного тайла
type Variants []Variant

// Pick выбирает вариант с учётом весов. Пустой набор даёт tile.Empty.
func (vs Variants) Pick(rng *rand.Rand) tile.ID {
	switch len(vs) {
	case 0:
		return tile.Empty
	case 1:
		return vs[0].ID
	}
	weights := make([]int, len(vs))
	for i, v := range vs {
		weights[i] = v.Weight
	}
	return vs[PickWeighted(rng, weights)].ID
}

// ResolveVariants переводит пары имя→вес в идентификаторы реестра
func ResolveVariants(reg *tile.Registry, names []string, weights []int) (Variants, error) {
	out := make(Variants, 0, len(names))
	for i, name := range names {
		id, ok := reg.IDByName(name)
		if !ok {
			return nil, unknownTile(name)
		}
		w := 1
		if i < len(weights) {
			w = weights[i]
		}
		out = append(out, Variant{ID: id, Weight: w})
	}
	return out, nil
}
