package game

import (
	"fmt"

	"github.com/annel0/tileworld/internal/config"
	"github.com/annel0/tileworld/internal/world/gen"
	"github.com/annel0/tileworld/internal/world/tile"
)

// BuildPipeline собирает пайплайн генерации карты из секции конфигурации
func BuildPipeline(m config.MapConfig, reg *tile.Registry) (*gen.Pipeline, error) {
	p := &gen.Pipeline{
		Width:  m.Width,
		Height: m.Height,
		Depth:  m.Layers,
		Noise:  m.Noise.Params(),
	}

	switch m.Mode {
	case config.ModeBiome:
		th := gen.DefaultBiomeThresholds()
		if m.Biome != nil {
			th = *m.Biome
		}
		c, err := gen.NewBiomeClassifier(reg, th, m.Moisture != nil)
		if err != nil {
			return nil, err
		}
		p.Classifier = c
		if m.Moisture != nil {
			mp := m.Moisture.Params()
			p.Moisture = &mp
		}
	case config.ModeBands:
		c, err := gen.NewBandClassifier(reg, m.Bands.Count, m.Bands.Width)
		if err != nil {
			return nil, err
		}
		p.Classifier = c
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", config.ErrInvalidConfig, m.Mode)
	}

	if m.Falloff != nil {
		p.Falloff = &gen.Falloff{Start: m.Falloff.Start, End: m.Falloff.End}
	}
	if m.Gaps != nil {
		p.Gaps = &gen.GapFill{Threshold: m.Gaps.Threshold, MaxGap: m.Gaps.MaxGap}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// stageTitle - подпись этапа загрузки сессии для карты name
func stageTitle(name string) string {
	switch name {
	case "surface":
		return "Генерация поверхности"
	case "cave":
		return "Генерация пещер"
	default:
		return fmt.Sprintf("Генерация карты %s", name)
	}
}

// stageLabel добавляет к подписи номер этапа: "Генерация пещер (2/3)"
func stageLabel(title string, stage, total int) string {
	return fmt.Sprintf("%s (%d/%d)", title, stage+1, total)
}
