package tile

import "image/color"

// Цвета миникарты
var (
	colorWhite         = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colorAliceBlue     = color.RGBA{R: 240, G: 248, B: 255, A: 255}
	colorDarkGray      = color.RGBA{R: 169, G: 169, B: 169, A: 255}
	colorGray          = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	colorLightGreen    = color.RGBA{R: 144, G: 238, B: 144, A: 255}
	colorGreen         = color.RGBA{R: 0, G: 128, B: 0, A: 255}
	colorLightBlue     = color.RGBA{R: 173, G: 216, B: 230, A: 255}
	colorSand          = color.RGBA{R: 250, G: 255, B: 160, A: 255}
	colorDarkSlateGray = color.RGBA{R: 47, G: 79, B: 79, A: 255}
	colorBlack         = color.RGBA{A: 255}
	colorUltraFloor    = color.RGBA{R: 60, G: 60, B: 60, A: 255}
)

// Прочность разрушаемых тайлов в единицах каталога
const (
	WallDurability              = 150
	MountainDurability          = 150
	HighMountainDurability      = 700
	UltraHighMountainDurability = 3000
)

// DefaultTiles возвращает декларации стандартного каталога (пещера + поверхность)
func DefaultTiles() []Tile {
	grassCover := CoverRule{Kind: CoverReplace, Into: "grassVar6"}
	sandCover := CoverRule{Kind: CoverRandom, Variants: []string{"sandVar1", "sandVar2"}}

	return []Tile{
		{Name: "blank_white", LightPassable: true, MapColor: colorWhite},
		{Name: "blank_blue", LightPassable: true, MapColor: colorAliceBlue},

		// Пещера
		{Name: "floor1", LightPassable: true, MapColor: colorDarkGray},
		{Name: "floor2", LightPassable: true, MapColor: colorDarkGray},
		{Name: "wall", Solid: true, Durability: WallDurability, MapColor: colorGray},

		// Поверхность
		{Name: "grassVar1", LightPassable: true, MapColor: colorLightGreen, Cover: grassCover},
		{Name: "grassVar2", LightPassable: true, MapColor: colorLightGreen, Cover: grassCover},
		{Name: "grassVar3", LightPassable: true, MapColor: colorLightGreen, Cover: grassCover},
		{Name: "grassVar4", LightPassable: true, MapColor: colorLightGreen},
		{Name: "grassVar5", LightPassable: true, MapColor: colorLightGreen},
		{Name: "grassVar6", LightPassable: true, MapColor: colorLightGreen},

		{Name: "forestVar1", LightPassable: true, MapColor: colorGreen},
		{Name: "forestVar2", LightPassable: true, MapColor: colorGreen},
		{Name: "forestVar3", LightPassable: true, MapColor: colorGreen},

		{Name: "water", Solid: true, LightPassable: true, MapColor: colorLightBlue},
		{Name: "sandVar1", LightPassable: true, MapColor: colorSand},
		{Name: "sandVar2", LightPassable: true, MapColor: colorSand},
		{Name: "sandVar3", LightPassable: true, MapColor: colorSand, Cover: sandCover},
		{Name: "sandVar4", LightPassable: true, MapColor: colorSand, Cover: sandCover},

		{Name: "mountain", Solid: true, Durability: MountainDurability, MapColor: colorDarkSlateGray},
		{Name: "highMountain", Solid: true, Durability: HighMountainDurability, MapColor: colorDarkSlateGray},
		{Name: "ultraHighMountain", Solid: true, Durability: UltraHighMountainDurability, MapColor: colorDarkSlateGray},
		{Name: "ultraRock", Solid: true, MapColor: colorBlack},

		{Name: "mountain_floor", LightPassable: true, MapColor: colorDarkGray},
		{Name: "highMountain_floor", LightPassable: true, MapColor: colorGray},
		{Name: "ultraHighMountain_floor", LightPassable: true, MapColor: colorUltraFloor},
	}
}

// NewDefaultRegistry создаёт реестр со стандартным каталогом
func NewDefaultRegistry() (*Registry, error) {
	r := NewRegistry()
	for _, t := range DefaultTiles() {
		if _, err := r.Register(t); err != nil {
			return nil, err
		}
	}
	if err := r.Resolve(); err != nil {
		return nil, err
	}
	return r, nil
}
