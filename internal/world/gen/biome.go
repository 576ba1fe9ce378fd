package gen

import (
	"context"

	"github.com/annel0/tileworld/internal/world/tile"
)

// BiomeThresholds - границы высот (верхние, не включая) для базового слоя
// и нижние границы для оверлея гор на слое 1.
type BiomeThresholds struct {
	Water        float64 `yaml:"water"`
	Beach        float64 `yaml:"beach"`
	Plains       float64 `yaml:"plains"`
	Forest       float64 `yaml:"forest"`
	Mountain     float64 `yaml:"mountain"`
	HighMountain float64 `yaml:"high_mountain"`

	OverlayMountain     float64 `yaml:"overlay_mountain"`
	OverlayHighMountain float64 `yaml:"overlay_high_mountain"`
	OverlayUltra        float64 `yaml:"overlay_ultra"`

	Dry float64 `yaml:"dry"` // влажность ниже - пустыня
	Wet float64 `yaml:"wet"` // влажность выше - лес
}

// DefaultBiomeThresholds возвращает пороги карты поверхности
func DefaultBiomeThresholds() BiomeThresholds {
	return BiomeThresholds{
		Water:               0.30,
		Beach:               0.36,
		Plains:              0.55,
		Forest:              0.65,
		Mountain:            0.75,
		HighMountain:        0.85,
		OverlayMountain:     0.70,
		OverlayHighMountain: 0.80,
		OverlayUltra:        0.90,
		Dry:                 0.30,
		Wet:                 0.65,
	}
}

// BiomeClassifier раскладывает высоту по биомам: вода, пляж, равнины, лес,
// горный пол трёх уровней на слое 0 и горы трёх уровней на слое 1.
// Влажность, если есть, выбирает пустыню, траву или лес на равнинах и в лесу.
type BiomeClassifier struct {
	Thresholds BiomeThresholds

	Water        tile.ID
	Sand         Variants
	Grass        Variants
	Forest       Variants
	MountainBase [3]tile.ID // mountain_floor, highMountain_floor, ultraHighMountain_floor
	Mountain     [3]tile.ID // mountain, highMountain, ultraHighMountain

	withMoisture bool
}

// NewBiomeClassifier собирает классификатор поверхности по именам стандартного каталога
func NewBiomeClassifier(reg *tile.Registry, th BiomeThresholds, withMoisture bool) (*BiomeClassifier, error) {
	c := &BiomeClassifier{Thresholds: th, withMoisture: withMoisture}

	var err error
	if c.Sand, err = ResolveVariants(reg,
		[]string{"sandVar1", "sandVar2", "sandVar3", "sandVar4"}, []int{5, 5, 2, 2}); err != nil {
		return nil, err
	}
	if c.Grass, err = ResolveVariants(reg,
		[]string{"grassVar1", "grassVar2", "grassVar3", "grassVar4", "grassVar5", "grassVar6"},
		[]int{5, 5, 5, 3, 3, 1}); err != nil {
		return nil, err
	}
	if c.Forest, err = ResolveVariants(reg,
		[]string{"forestVar1", "forestVar2", "forestVar3"}, []int{5, 5, 3}); err != nil {
		return nil, err
	}

	ids := map[string]*tile.ID{
		"water":                   &c.Water,
		"mountain_floor":          &c.MountainBase[0],
		"highMountain_floor":      &c.MountainBase[1],
		"ultraHighMountain_floor": &c.MountainBase[2],
		"mountain":                &c.Mountain[0],
		"highMountain":            &c.Mountain[1],
		"ultraHighMountain":       &c.Mountain[2],
	}
	for name, dst := range ids {
		id, ok := reg.IDByName(name)
		if !ok {
			return nil, unknownTile(name)
		}
		*dst = id
	}
	return c, nil
}

func (c *BiomeClassifier) Layers() int        { return 2 }
func (c *BiomeClassifier) UsesMoisture() bool { return c.withMoisture }

// Base возвращает тайл базового слоя для высоты e и влажности m (m < 0 - нет данных)
func (c *BiomeClassifier) Base(in Input, e, m float64) tile.ID {
	th := c.Thresholds
	switch {
	case e < th.Water:
		return c.Water
	case e < th.Beach:
		return c.Sand.Pick(in.Rand)
	case e < th.Plains:
		return c.vegetation(in, m, c.Grass)
	case e < th.Forest:
		return c.vegetation(in, m, c.Forest)
	case e < th.Mountain:
		return c.MountainBase[0]
	case e < th.HighMountain:
		return c.MountainBase[1]
	default:
		return c.MountainBase[2]
	}
}

func (c *BiomeClassifier) vegetation(in Input, m float64, fallback Variants) tile.ID {
	if m < 0 {
		return fallback.Pick(in.Rand)
	}
	switch {
	case m < c.Thresholds.Dry:
		return c.Sand.Pick(in.Rand)
	case m > c.Thresholds.Wet:
		return c.Forest.Pick(in.Rand)
	default:
		return c.Grass.Pick(in.Rand)
	}
}

// Overlay возвращает тайл слоя 1 для высоты e или tile.Empty
func (c *BiomeClassifier) Overlay(e float64) tile.ID {
	th := c.Thresholds
	switch {
	case e >= th.OverlayUltra:
		return c.Mountain[2]
	case e >= th.OverlayHighMountain:
		return c.Mountain[1]
	case e >= th.OverlayMountain:
		return c.Mountain[0]
	default:
		return tile.Empty
	}
}

func (c *BiomeClassifier) Classify(ctx context.Context, in Input, out *Buffer, rep *Reporter) error {
	if out.Depth < c.Layers() {
		return ErrTooFewLayers
	}
	useMoisture := c.withMoisture && in.Moisture != nil
	return classifyRows(ctx, out.Width, out.Height, rep, func(x, y int) {
		e := in.Elevation.At(x, y)
		m := -1.0
		if useMoisture {
			m = in.Moisture.At(x, y)
		}
		out.Set(x, y, 0, c.Base(in, e, m))
		if id := c.Overlay(e); id != tile.Empty {
			out.Set(x, y, 1, id)
		}
	})
}
