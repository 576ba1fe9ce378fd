package game

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/annel0/tileworld/internal/config"
	"github.com/annel0/tileworld/internal/eventbus"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
	"github.com/annel0/tileworld/internal/world/gen"
	"github.com/annel0/tileworld/internal/world/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallConfig - две карты 24×24 с параметрами по умолчанию
func smallConfig(seed int64) *config.Config {
	cfg := config.Default()
	cfg.World.Seed = &seed
	for i := range cfg.World.Maps {
		cfg.World.Maps[i].Width = 24
		cfg.World.Maps[i].Height = 24
	}
	cfg.World.Maps[0].Noise.Scale = 8
	cfg.World.Maps[0].Moisture.Scale = 12
	return cfg
}

type recorder struct {
	mu     sync.Mutex
	values []float64
	labels []string
}

func (r *recorder) record(f float64, label string) {
	r.mu.Lock()
	r.values = append(r.values, f)
	r.labels = append(r.labels, label)
	r.mu.Unlock()
}

func (r *recorder) snapshot() ([]float64, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.values...), append([]string(nil), r.labels...)
}

func newTestSession(t *testing.T, cfg *config.Config, bus eventbus.EventBus) *Session {
	t.Helper()
	reg, err := tile.NewDefaultRegistry()
	require.NoError(t, err)
	s, err := NewSession(Options{
		Config:   cfg,
		Registry: reg,
		Logger:   logging.NewWriterLogger("game", io.Discard, logging.ERROR),
		Bus:      bus,
	})
	require.NoError(t, err)
	return s
}

// stepUntilReady крутит Step вручную, пока загрузка не закончится
func stepUntilReady(t *testing.T, s *Session) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	clock := s.Clock()
	for s.State() == StateLoading {
		require.True(t, time.Now().Before(deadline), "загрузка не завершилась вовремя")
		clock += 0.01
		s.Step(clock, 0.01)
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, StateReady, s.State(), "ошибка загрузки: %v", s.LastError())
}

func loadSession(t *testing.T, s *Session, seed int64) {
	t.Helper()
	require.NoError(t, s.Load(context.Background(), seed))
	stepUntilReady(t, s)
}

// runLoop запускает цикл симуляции до конца теста
func runLoop(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx, 200)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func findTop(s *Session, m *Map, name string) (vec.Vec2, bool) {
	id := s.Registry().MustID(name)
	g := m.Grid
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			cell := vec.Vec2{X: x, Y: y}
			if g.GetTile(cell, world.LayerTop) == id {
				return cell, true
			}
		}
	}
	return vec.Vec2{}, false
}

func TestBuildPipeline(t *testing.T) {
	reg, err := tile.NewDefaultRegistry()
	require.NoError(t, err)
	cfg := smallConfig(1)

	surface, err := BuildPipeline(cfg.World.Maps[0], reg)
	require.NoError(t, err)
	assert.True(t, surface.Classifier.UsesMoisture(), "поверхность использует влажность")
	require.NotNil(t, surface.Falloff)
	assert.Nil(t, surface.Gaps)
	_, ok := surface.Classifier.(*gen.BiomeClassifier)
	assert.True(t, ok)

	cave, err := BuildPipeline(cfg.World.Maps[1], reg)
	require.NoError(t, err)
	require.NotNil(t, cave.Gaps)
	assert.Equal(t, 2, cave.Gaps.MaxGap)
	_, ok = cave.Classifier.(*gen.BandClassifier)
	assert.True(t, ok)

	bad := cfg.World.Maps[1]
	bad.Mode = "islands"
	_, err = BuildPipeline(bad, reg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestStageLabels(t *testing.T) {
	assert.Equal(t, "Генерация поверхности (1/3)", stageLabel(stageTitle("surface"), 0, 3))
	assert.Equal(t, "Генерация пещер (2/3)", stageLabel(stageTitle("cave"), 1, 3))
	assert.Equal(t, "Завершение (3/3)", stageLabel(LabelFinalize, 2, 3))
	assert.Equal(t, "Генерация карты sky (1/2)", stageLabel(stageTitle("sky"), 0, 2))
}

func TestNewSessionRequiresSeed(t *testing.T) {
	reg, err := tile.NewDefaultRegistry()
	require.NoError(t, err)
	_, err = NewSession(Options{Config: config.Default(), Registry: reg})
	assert.ErrorIs(t, err, config.ErrMissingSeed)
}

func TestSessionLoadProgress(t *testing.T) {
	s := newTestSession(t, smallConfig(42), eventbus.NewMemoryBus(16))
	overall := &recorder{}
	phase := &recorder{}
	s.OnProgress(overall.record)
	s.OnPhaseProgress(phase.record)

	loadSession(t, s, 42)

	values, labels := overall.snapshot()
	require.NotEmpty(t, values)
	assert.Equal(t, 0.0, values[0])

	ones := 0
	for i, v := range values {
		if i > 0 {
			assert.GreaterOrEqual(t, v, values[i-1], "общий прогресс не убывает")
		}
		if v == 1 {
			ones++
		}
	}
	assert.Equal(t, 1, ones, "1.0 приходит ровно один раз")
	assert.Equal(t, 1.0, values[len(values)-1])
	assert.Equal(t, world.LabelDone, labels[len(labels)-1])

	joined := strings.Join(labels, "|")
	assert.Contains(t, joined, "Генерация поверхности (1/3)")
	assert.Contains(t, joined, "Генерация пещер (2/3)")
	assert.Contains(t, joined, "Завершение (3/3)")

	_, phaseLabels := phase.snapshot()
	assert.Contains(t, phaseLabels, gen.LabelNoise)
	assert.Contains(t, phaseLabels, gen.LabelClassify)
	assert.Contains(t, phaseLabels, LabelFinalize)

	assert.Equal(t, Progress{Fraction: 1, Label: world.LabelDone}, s.Progress())
	for _, m := range s.Maps() {
		assert.Equal(t, world.StateReady, m.Grid.State(), m.Name())
	}
	cave, ok := s.Map("cave")
	require.True(t, ok)
	assert.Equal(t, int64(43), cave.Grid.Seed(), "сид пещер смещён на seed_offset")
}

func TestSessionDeterministic(t *testing.T) {
	a := newTestSession(t, smallConfig(7), eventbus.NewMemoryBus(16))
	b := newTestSession(t, smallConfig(7), eventbus.NewMemoryBus(16))
	loadSession(t, a, 7)
	loadSession(t, b, 7)

	for _, m := range a.Maps() {
		other, ok := b.Map(m.Name())
		require.True(t, ok)
		assert.Equal(t, m.Grid.LayerData(), other.Grid.LayerData(), "карта %s", m.Name())
	}
}

func TestSessionReloadReplacesSeed(t *testing.T) {
	s := newTestSession(t, smallConfig(1), eventbus.NewMemoryBus(16))
	require.NoError(t, s.Load(context.Background(), 1))
	require.NoError(t, s.Load(context.Background(), 2))
	stepUntilReady(t, s)

	assert.Equal(t, int64(2), s.Seed())
	surface, _ := s.Map("surface")
	assert.Equal(t, int64(2), surface.Grid.Seed())
}

func TestSessionLoadCanceled(t *testing.T) {
	s := newTestSession(t, smallConfig(1), eventbus.NewMemoryBus(16))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Load(ctx, 1))

	deadline := time.Now().Add(5 * time.Second)
	for s.State() == StateLoading && time.Now().Before(deadline) {
		s.Step(0, 0)
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, StateFailed, s.State())
	assert.ErrorIs(t, s.LastError(), context.Canceled)
}

func TestSessionCommands(t *testing.T) {
	s := newTestSession(t, smallConfig(42), eventbus.NewMemoryBus(16))
	loadSession(t, s, 42)

	cave, _ := s.Map("cave")
	wallCell, ok := findTop(s, cave, "wall")
	require.True(t, ok, "в пещерах есть стены")
	runLoop(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// порог стены 150*0.01 = 1.5 при hit_rate 1
	res, err := s.Hit(ctx, "cave", wallCell, 1)
	require.NoError(t, err)
	assert.False(t, res.Broken)
	assert.InDelta(t, 1.0, res.Damage, 1e-9)
	assert.InDelta(t, 1.5, res.Threshold, 1e-9)

	res, err = s.Hit(ctx, "cave", wallCell, 1)
	require.NoError(t, err)
	assert.True(t, res.Broken, "второй удар добивает стену")
	assert.Equal(t, s.Registry().MustID("wall"), res.Dropped)

	floor2 := s.Registry().MustID("floor2")
	require.NoError(t, s.Place(ctx, "cave", wallCell, floor2, world.LayerAuto))
	var top tile.ID
	require.NoError(t, s.Do(ctx, func(s *Session) error {
		top = cave.Grid.GetTile(wallCell, world.LayerTop)
		return nil
	}))
	assert.Equal(t, floor2, top)

	require.NoError(t, s.Remove(ctx, "cave", wallCell))
	assert.ErrorIs(t, s.Place(ctx, "cave", vec.Vec2{X: -1, Y: 0}, floor2, world.LayerAuto), ErrRejected)
	assert.ErrorIs(t, s.Place(ctx, "moon", wallCell, floor2, world.LayerAuto), ErrUnknownMap)
	_, err = s.Hit(ctx, "moon", wallCell, 1)
	assert.ErrorIs(t, err, ErrUnknownMap)
}

func TestSessionRegenerateSingleMap(t *testing.T) {
	s := newTestSession(t, smallConfig(42), eventbus.NewMemoryBus(16))
	loadSession(t, s, 42)
	surface, _ := s.Map("surface")
	before := surface.Grid.LayerData()

	runLoop(t, s)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, s.Regenerate(ctx, "surface", 100))

	require.Eventually(t, func() bool {
		var ready bool
		_ = s.Do(ctx, func(s *Session) error {
			ready = surface.Grid.State() == world.StateReady
			return nil
		})
		return ready
	}, 10*time.Second, 5*time.Millisecond)

	assert.Equal(t, StateReady, s.State(), "сессия не уходит в загрузку")
	assert.Equal(t, int64(100), surface.Grid.Seed())
	var after []tile.ID
	require.NoError(t, s.Do(ctx, func(s *Session) error {
		after = surface.Grid.LayerData()
		return nil
	}))
	assert.NotEqual(t, before, after)
}

func TestSessionLocalAndLight(t *testing.T) {
	s := newTestSession(t, smallConfig(42), eventbus.NewMemoryBus(16))
	loadSession(t, s, 42)

	assert.Equal(t, "surface", s.Local().Name())
	require.NoError(t, s.SetLocal("cave"))
	assert.Equal(t, "cave", s.Local().Name())
	assert.ErrorIs(t, s.SetLocal("moon"), ErrUnknownMap)

	ts := s.Config().World.TileSize
	mask := s.Light(s.Local(), vec.Rect{X: 4 * ts, Y: 4 * ts, W: 4 * ts, H: 4 * ts})
	require.NotNil(t, mask)
	// обзор 4×4 клетки плюс граница 2 с каждой стороны
	assert.Equal(t, vec.Rect{X: 2, Y: 2, W: 8, H: 8}, mask.Rect)
	assert.Len(t, mask.Lit, 64)
}

func TestSessionPublishesProgressEvents(t *testing.T) {
	bus := eventbus.NewMemoryBus(4096)
	defer bus.Close()

	var mu sync.Mutex
	var fractions []float64
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{
		Types:   []string{world.EventProgress},
		Sources: []string{"session"},
	}, func(ctx context.Context, ev *eventbus.Envelope) {
		var p world.ProgressEvent
		if ev.Decode(&p) == nil && !p.Phase {
			mu.Lock()
			fractions = append(fractions, p.Fraction)
			mu.Unlock()
		}
	})
	require.NoError(t, err)

	s := newTestSession(t, smallConfig(3), bus)
	loadSession(t, s, 3)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(fractions) > 0 && fractions[len(fractions)-1] == 1
	}, 5*time.Second, 5*time.Millisecond, "событие завершения загрузки доставлено")
}
