package world

import (
	"context"
	"image/color"
	"io"
	"testing"
	"time"

	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world/gen"
	"github.com/annel0/tileworld/internal/world/noise"
	"github.com/annel0/tileworld/internal/world/tile"
	"github.com/stretchr/testify/require"
)

var (
	colorFloor = color.RGBA{R: 169, G: 169, B: 169, A: 255}
	colorWall  = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

// fixtureRegistry - маленький каталог с предсказуемыми свойствами
func fixtureRegistry(t *testing.T) *tile.Registry {
	t.Helper()
	r := tile.NewRegistry()
	tiles := []tile.Tile{
		{Name: "floor1", LightPassable: true, MapColor: colorFloor},
		{Name: "floor2", LightPassable: true, MapColor: colorFloor},
		{Name: "wall", Solid: true, Durability: 100, MapColor: colorWall},
		{Name: "crate", Solid: true, Durability: 50, Break: tile.BreakRule{Kind: tile.BreakInto, Into: "plank"}},
		{Name: "plank", LightPassable: true},
		{Name: "glass", Solid: true, LightPassable: true, Durability: 10, Break: tile.BreakRule{Kind: tile.BreakNothing}},
		{Name: "sand", LightPassable: true, Cover: tile.CoverRule{Kind: tile.CoverRandom, Variants: []string{"sandA", "sandB"}}},
		{Name: "sandA", LightPassable: true},
		{Name: "sandB", LightPassable: true},
		{Name: "grass", LightPassable: true, Cover: tile.CoverRule{Kind: tile.CoverReplace, Into: "dirt"}},
		{Name: "dirt", LightPassable: true},
		{Name: "bedrock", Solid: true},
	}
	for _, tl := range tiles {
		_, err := r.Register(tl)
		require.NoError(t, err)
	}
	require.NoError(t, r.Resolve())
	return r
}

// patternClassifier раскладывает тайлы по функции координат
type patternClassifier struct {
	cell func(x, y int) (floor, wall tile.ID)
}

func (c patternClassifier) Layers() int        { return 2 }
func (c patternClassifier) UsesMoisture() bool { return false }

func (c patternClassifier) Classify(ctx context.Context, in gen.Input, out *gen.Buffer, rep *gen.Reporter) error {
	for y := 0; y < out.Height; y++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for x := 0; x < out.Width; x++ {
			floor, wall := c.cell(x, y)
			out.Set(x, y, LayerFloor, floor)
			out.Set(x, y, LayerWall, wall)
		}
		rep.Advance(out.Width)
	}
	return nil
}

func testNoise() noise.Params {
	return noise.Params{Scale: 10, Octaves: 2, Persistence: 0.5, Lacunarity: 2}
}

func patternPipeline(w, h, depth int, cell func(x, y int) (tile.ID, tile.ID)) *gen.Pipeline {
	return &gen.Pipeline{
		Width:      w,
		Height:     h,
		Depth:      depth,
		Noise:      testNoise(),
		Classifier: patternClassifier{cell: cell},
	}
}

func bandPipeline(t *testing.T, reg *tile.Registry, w, h int, np noise.Params) *gen.Pipeline {
	t.Helper()
	c, err := gen.NewBandClassifier(reg, 2, 0.15)
	require.NoError(t, err)
	return &gen.Pipeline{Width: w, Height: h, Depth: 3, Noise: np, Classifier: c}
}

func quietLogger() *logging.Logger {
	return logging.NewWriterLogger("world", io.Discard, logging.ERROR)
}

func newTestGrid(t *testing.T, reg *tile.Registry, p *gen.Pipeline) *Grid {
	t.Helper()
	g, err := NewGrid(Options{Name: t.Name(), Registry: reg, Pipeline: p, Logger: quietLogger()})
	require.NoError(t, err)
	return g
}

func loadGrid(t *testing.T, g *Grid, seed int64) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, g.Load(ctx, seed))
	require.NoError(t, g.Wait(ctx))
	require.Equal(t, StateReady, g.State())
}

// roomGrid - карта w×h: пол floor1 везде, стены по периметру и в клетках walls
func roomGrid(t *testing.T, reg *tile.Registry, w, h int, walls ...[2]int) *Grid {
	t.Helper()
	floor := reg.MustID("floor1")
	wall := reg.MustID("wall")
	inner := make(map[[2]int]bool)
	for _, c := range walls {
		inner[c] = true
	}
	g := newTestGrid(t, reg, patternPipeline(w, h, 3, func(x, y int) (tile.ID, tile.ID) {
		if x == 0 || y == 0 || x == w-1 || y == h-1 || inner[[2]int{x, y}] {
			return floor, wall
		}
		return floor, tile.Empty
	}))
	loadGrid(t, g, 1)
	return g
}

type testObject struct {
	name string
	pos  [2]float64
}

func (o *testObject) SetPosition(p vec.Vec2Float) { o.pos = [2]float64{p.X, p.Y} }
