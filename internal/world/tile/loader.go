package tile

import (
	"encoding/hex"
	"fmt"
	"image/color"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// catalogFile - YAML-представление каталога тайлов
type catalogFile struct {
	Tiles []tileEntry `yaml:"tiles"`
}

type tileEntry struct {
	Name          string     `yaml:"name"`
	Solid         bool       `yaml:"solid"`
	LightPassable *bool      `yaml:"light_passable"`
	Durability    float64    `yaml:"durability"`
	Color         string     `yaml:"color"`
	Cover         *coverYAML `yaml:"cover"`
	Break         *breakYAML `yaml:"break"`
}

type coverYAML struct {
	Kind     string   `yaml:"kind"` // keep | replace | random
	Into     string   `yaml:"into"`
	Variants []string `yaml:"variants"`
}

type breakYAML struct {
	Kind string `yaml:"kind"` // self | into | nothing
	Into string `yaml:"into"`
}

// LoadCatalogFile читает каталог тайлов из YAML-файла
func LoadCatalogFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reg, err := LoadCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// LoadCatalog читает каталог тайлов из YAML. Зарезервированные "empty" и "debug"
// регистрируются автоматически и не должны объявляться в файле.
func LoadCatalog(r io.Reader) (*Registry, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("tile catalog: %w", err)
	}

	reg := NewRegistry()
	for i, e := range file.Tiles {
		t, err := e.toTile()
		if err != nil {
			return nil, fmt.Errorf("tile catalog: entry %d (%s): %w", i, e.Name, err)
		}
		if _, err := reg.Register(t); err != nil {
			return nil, err
		}
	}
	if err := reg.Resolve(); err != nil {
		return nil, err
	}
	return reg, nil
}

func (e tileEntry) toTile() (Tile, error) {
	t := Tile{
		Name:          e.Name,
		Solid:         e.Solid,
		LightPassable: true,
		Durability:    e.Durability,
		MapColor:      colorWhite,
	}
	if e.LightPassable != nil {
		t.LightPassable = *e.LightPassable
	}
	if e.Durability < 0 {
		return t, fmt.Errorf("negative durability %v", e.Durability)
	}
	if e.Color != "" {
		c, err := parseHexColor(e.Color)
		if err != nil {
			return t, err
		}
		t.MapColor = c
	}

	if e.Cover != nil {
		switch strings.ToLower(e.Cover.Kind) {
		case "", "keep":
			t.Cover = CoverRule{Kind: CoverKeep}
		case "replace":
			t.Cover = CoverRule{Kind: CoverReplace, Into: e.Cover.Into}
		case "random":
			t.Cover = CoverRule{Kind: CoverRandom, Variants: e.Cover.Variants}
		default:
			return t, fmt.Errorf("unknown cover kind %q", e.Cover.Kind)
		}
	}

	if e.Break != nil {
		switch strings.ToLower(e.Break.Kind) {
		case "", "self":
			t.Break = BreakRule{Kind: BreakSelf}
		case "into":
			t.Break = BreakRule{Kind: BreakInto, Into: e.Break.Into}
		case "nothing":
			t.Break = BreakRule{Kind: BreakNothing}
		default:
			return t, fmt.Errorf("unknown break kind %q", e.Break.Kind)
		}
	}
	return t, nil
}

// parseHexColor разбирает "#rrggbb" или "#rrggbbaa"
func parseHexColor(s string) (color.RGBA, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "#"))
	if err != nil || (len(raw) != 3 && len(raw) != 4) {
		return color.RGBA{}, fmt.Errorf("bad color %q", s)
	}
	c := color.RGBA{R: raw[0], G: raw[1], B: raw[2], A: 255}
	if len(raw) == 4 {
		c.A = raw[3]
	}
	return c, nil
}
