package gen

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/annel0/tileworld/internal/world/noise"
	"github.com/annel0/tileworld/internal/world/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *tile.Registry {
	t.Helper()
	reg, err := tile.NewDefaultRegistry()
	require.NoError(t, err)
	return reg
}

func TestPickWeightedConvergence(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	weights := []int{5, 5, 3}
	const n = 20000

	counts := make([]int, len(weights))
	for i := 0; i < n; i++ {
		counts[PickWeighted(rng, weights)]++
	}

	for i, w := range weights {
		want := float64(w) / 13
		got := float64(counts[i]) / n
		// 4 стандартных отклонения биномиального распределения
		tol := 4 * math.Sqrt(want*(1-want)/n)
		assert.InDelta(t, want, got, tol, "индекс %d", i)
	}
}

func TestPickWeightedDegenerate(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, 0, PickWeighted(rng, nil))
	assert.Equal(t, 0, PickWeighted(rng, []int{0, 0}))
	assert.Equal(t, 0, PickWeighted(rng, []int{-3, 0}))

	for i := 0; i < 100; i++ {
		assert.Equal(t, 2, PickWeighted(rng, []int{0, 0, 7}))
	}
}

func TestEdgeFalloff(t *testing.T) {
	assert.Equal(t, 0.0, EdgeFalloff(0, 50, 101, 101, 0, 0.3))
	assert.Equal(t, 0.0, EdgeFalloff(100, 50, 101, 101, 0, 0.3))
	assert.Equal(t, 1.0, EdgeFalloff(50, 50, 101, 101, 0, 0.3))

	prev := -1.0
	for x := 0; x <= 50; x++ {
		k := EdgeFalloff(x, 50, 101, 101, 0, 0.3)
		assert.GreaterOrEqual(t, k, prev, "спад должен расти к центру")
		prev = k
	}
}

func TestSmoothstep(t *testing.T) {
	assert.Equal(t, 0.0, Smoothstep(0.2, 0.4, 0.1))
	assert.Equal(t, 1.0, Smoothstep(0.2, 0.4, 0.5))
	assert.InDelta(t, 0.5, Smoothstep(0.2, 0.4, 0.3), 1e-12)
}

func TestGapFill(t *testing.T) {
	f := noise.NewField(8, 1)
	copy(f.Values, []float64{0.9, 0.1, 0.1, 0.9, 0.1, 0.1, 0.1, 0.9})

	out := GapFill{Threshold: 0.5, MaxGap: 2}.Apply(f)

	assert.Equal(t, []float64{0.9, 0.5, 0.5, 0.9, 0.1, 0.1, 0.1, 0.9}, out.Values)
	assert.Equal(t, 0.1, f.Values[1], "исходное поле не меняется")
}

func TestGapFillTrailingRunKept(t *testing.T) {
	f := noise.NewField(4, 1)
	copy(f.Values, []float64{0.9, 0.9, 0.1, 0.1})

	out := GapFill{Threshold: 0.5, MaxGap: 2}.Apply(f)
	assert.Equal(t, f.Values, out.Values)
}

func TestBandClassifierOpen(t *testing.T) {
	c, err := NewBandClassifier(testRegistry(t), 2, 0.15)
	require.NoError(t, err)

	assert.True(t, c.Open(0))
	assert.True(t, c.Open(0.149))
	assert.False(t, c.Open(0.15))
	assert.False(t, c.Open(0.3))
	assert.True(t, c.Open(0.5))
	assert.True(t, c.Open(0.6))
	assert.False(t, c.Open(0.65))
	assert.False(t, c.Open(1))
}

func TestBandClassifierClassify(t *testing.T) {
	reg := testRegistry(t)
	c, err := NewBandClassifier(reg, 2, 0.15)
	require.NoError(t, err)

	elev := noise.NewField(2, 1)
	copy(elev.Values, []float64{0.1, 0.3})
	out := NewBuffer(2, 1, 3)

	err = c.Classify(context.Background(), Input{Elevation: elev, Rand: rand.New(rand.NewSource(1))}, out, nil)
	require.NoError(t, err)

	for x := 0; x < 2; x++ {
		name := reg.ByID(out.At(x, 0, 0)).Name
		assert.Contains(t, []string{"floor1", "floor2"}, name)
	}
	assert.Equal(t, tile.Empty, out.At(0, 0, 1))
	assert.Equal(t, reg.MustID("wall"), out.At(1, 0, 1))
	assert.Equal(t, tile.Empty, out.At(1, 0, 2))
}

func TestBiomeClassifierBands(t *testing.T) {
	reg := testRegistry(t)
	c, err := NewBiomeClassifier(reg, DefaultBiomeThresholds(), false)
	require.NoError(t, err)
	in := Input{Rand: rand.New(rand.NewSource(3))}

	name := func(id tile.ID) string { return reg.ByID(id).Name }

	assert.Equal(t, "water", name(c.Base(in, 0.1, -1)))
	assert.Contains(t, name(c.Base(in, 0.33, -1)), "sandVar")
	assert.Contains(t, name(c.Base(in, 0.45, -1)), "grassVar")
	assert.Contains(t, name(c.Base(in, 0.60, -1)), "forestVar")
	assert.Equal(t, "mountain_floor", name(c.Base(in, 0.70, -1)))
	assert.Equal(t, "highMountain_floor", name(c.Base(in, 0.80, -1)))
	assert.Equal(t, "ultraHighMountain_floor", name(c.Base(in, 0.95, -1)))

	assert.Equal(t, tile.Empty, c.Overlay(0.69))
	assert.Equal(t, "mountain", name(c.Overlay(0.70)))
	assert.Equal(t, "highMountain", name(c.Overlay(0.85)))
	assert.Equal(t, "ultraHighMountain", name(c.Overlay(0.95)))
}

func TestBiomeClassifierMoisture(t *testing.T) {
	reg := testRegistry(t)
	c, err := NewBiomeClassifier(reg, DefaultBiomeThresholds(), true)
	require.NoError(t, err)
	in := Input{Rand: rand.New(rand.NewSource(3))}
	name := func(id tile.ID) string { return reg.ByID(id).Name }

	assert.Contains(t, name(c.Base(in, 0.45, 0.1)), "sandVar", "сухие равнины - пустыня")
	assert.Contains(t, name(c.Base(in, 0.45, 0.5)), "grassVar")
	assert.Contains(t, name(c.Base(in, 0.45, 0.9)), "forestVar")
	assert.Equal(t, "water", name(c.Base(in, 0.1, 0.9)), "влажность не влияет на воду")
}

func TestReporterThrottles(t *testing.T) {
	var phase, overall []float64
	rep := NewReporter(
		func(f float64, _ string) { overall = append(overall, f) },
		func(f float64, label string) {
			assert.Equal(t, "этап", label)
			phase = append(phase, f)
		},
		"этап", 1000, 0.4, 0.95)

	rep.Start()
	for i := 0; i < 1000; i++ {
		rep.Advance(1)
	}
	rep.Finish()

	require.NotEmpty(t, phase)
	assert.Equal(t, 0.0, phase[0])
	assert.Equal(t, 1.0, phase[len(phase)-1])
	assert.LessOrEqual(t, len(phase), reportSteps+2)
	assert.InDelta(t, 0.95, overall[len(overall)-1], 1e-12)
	assert.InDelta(t, 0.4, overall[0], 1e-12)

	ones := 0
	for i, f := range phase {
		if i > 0 {
			assert.Greater(t, f, phase[i-1])
		}
		if f == 1 {
			ones++
		}
	}
	assert.Equal(t, 1, ones)
}

func testPipeline(t *testing.T, reg *tile.Registry) *Pipeline {
	t.Helper()
	c, err := NewBiomeClassifier(reg, DefaultBiomeThresholds(), true)
	require.NoError(t, err)
	return &Pipeline{
		Width:  100,
		Height: 100,
		Depth:  3,
		Noise: noise.Params{
			Scale: 50, Octaves: 4, Persistence: 0.5, Lacunarity: 2,
		},
		Moisture: &noise.Params{
			Scale: 80, Octaves: 2, Persistence: 0.5, Lacunarity: 2,
		},
		Falloff:    &Falloff{Start: 0, End: 0.25},
		Classifier: c,
	}
}

func TestPipelineDeterministic(t *testing.T) {
	reg := testRegistry(t)
	p := testPipeline(t, reg)

	a, err := p.Run(context.Background(), 42, Hooks{})
	require.NoError(t, err)
	b, err := p.Run(context.Background(), 42, Hooks{})
	require.NoError(t, err)
	assert.Equal(t, a.IDs, b.IDs)

	c, err := p.Run(context.Background(), 7, Hooks{})
	require.NoError(t, err)
	assert.NotEqual(t, a.IDs, c.IDs)
}

func TestPipelineBaseLayerFilledAndBorderIsWater(t *testing.T) {
	reg := testRegistry(t)
	p := testPipeline(t, reg)

	out, err := p.Run(context.Background(), 42, Hooks{})
	require.NoError(t, err)

	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			require.NotEqual(t, tile.Empty, out.At(x, y, 0), "клетка (%d,%d)", x, y)
		}
	}
	water := reg.MustID("water")
	for x := 0; x < out.Width; x++ {
		assert.Equal(t, water, out.At(x, 0, 0))
		assert.Equal(t, water, out.At(x, out.Height-1, 0))
	}
}

func TestPipelineHooks(t *testing.T) {
	reg := testRegistry(t)
	p := testPipeline(t, reg)

	var phases []Phase
	var overall []float64
	_, err := p.Run(context.Background(), 42, Hooks{
		Enter:    func(ph Phase) { phases = append(phases, ph) },
		Progress: func(f float64, _ string) { overall = append(overall, f) },
	})
	require.NoError(t, err)

	assert.Equal(t, []Phase{PhaseNoise, PhaseClassify}, phases)
	for i, f := range overall {
		assert.Less(t, f, 1.0, "1.0 ставит только публикация")
		if i > 0 {
			assert.GreaterOrEqual(t, f, overall[i-1])
		}
	}
	assert.InDelta(t, ClassifyProgressEnd, overall[len(overall)-1], 1e-12)
}

func TestPipelineValidate(t *testing.T) {
	reg := testRegistry(t)

	p := testPipeline(t, reg)
	p.Noise.Scale = 0
	_, err := p.Run(context.Background(), 1, Hooks{})
	assert.ErrorIs(t, err, noise.ErrInvalidParams)

	p = testPipeline(t, reg)
	p.Depth = 1
	assert.ErrorIs(t, p.Validate(), ErrTooFewLayers)

	p = testPipeline(t, reg)
	p.Moisture.Octaves = 0
	assert.ErrorIs(t, p.Validate(), noise.ErrInvalidParams)

	p = testPipeline(t, reg)
	p.Classifier = nil
	assert.ErrorIs(t, p.Validate(), noise.ErrInvalidParams)
}

func TestPipelineCancelled(t *testing.T) {
	reg := testRegistry(t)
	p := testPipeline(t, reg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Run(ctx, 42, Hooks{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClassifiersUnknownTile(t *testing.T) {
	reg := tile.NewRegistry()
	require.NoError(t, reg.Resolve())

	_, err := NewBandClassifier(reg, 2, 0.15)
	assert.ErrorIs(t, err, ErrUnknownTile)
	_, err = NewBiomeClassifier(reg, DefaultBiomeThresholds(), false)
	assert.ErrorIs(t, err, ErrUnknownTile)
}
