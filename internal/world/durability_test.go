package world

import (
	"context"
	"testing"
	"time"

	"github.com/annel0/tileworld/internal/eventbus"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world/tile"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurabilityBreaksExactlyOnce(t *testing.T) {
	reg := fixtureRegistry(t)
	g := roomGrid(t, reg, 5, 5)
	d := g.Durability()
	cell := vec.Vec2{X: 0, Y: 2}
	wall := reg.MustID("wall")

	const hitRate = 2.0
	const dt = 0.05
	threshold := d.Threshold(wall)
	require.InDelta(t, 1.0, threshold, 1e-12)

	// D/R = 0.5 с ровно за 10 шагов
	breaks := 0
	clock := 0.0
	for i := 0; i < 15; i++ {
		clock += dt
		dropped, broken := d.Hit(cell, dt, hitRate, clock)
		if broken {
			breaks++
			assert.Equal(t, 9, i, "тайл ломается на последнем шаге")
			assert.Equal(t, wall, dropped)
		}
	}

	assert.Equal(t, 1, breaks)
	assert.Equal(t, reg.MustID("floor1"), g.GetTile(cell, LayerTop))
	_, ok := d.State(cell)
	assert.False(t, ok)
	assert.Equal(t, 1.0, testutil.ToFloat64(tilesBroken.WithLabelValues(t.Name())))
}

func TestDurabilityRegeneratesToRemoval(t *testing.T) {
	reg := fixtureRegistry(t)
	g := roomGrid(t, reg, 5, 5)
	d := g.Durability()
	cell := vec.Vec2{X: 4, Y: 1}

	const regenDelay, regenRate = 1.0, 1.0
	clock := 0.0
	for i := 0; i < 3; i++ {
		clock += 0.1
		_, broken := d.Hit(cell, 0.1, 2, clock)
		require.False(t, broken)
		d.Tick(clock, 0.1, regenDelay, regenRate)
	}
	st, ok := d.State(cell)
	require.True(t, ok)
	assert.InDelta(t, 0.6, st.Damage, 1e-9, "удары в том же шаге не откатываются")
	assert.InDelta(t, 0.6, d.Fraction(cell), 1e-9)

	// до regenDelay урон не уходит
	for clock < 1.1 {
		clock += 0.1
		d.Tick(clock, 0.1, regenDelay, regenRate)
	}
	st, ok = d.State(cell)
	require.True(t, ok)
	assert.InDelta(t, 0.6, st.Damage, 1e-9)

	// ждём regenDelay + damage/regenRate с запасом
	deadline := 0.3 + regenDelay + 0.6/regenRate + 0.2
	for clock < deadline {
		clock += 0.1
		d.Tick(clock, 0.1, regenDelay, regenRate)
	}
	_, ok = d.State(cell)
	assert.False(t, ok, "запись удалена после полного восстановления")
	assert.Equal(t, 0, d.Len())
	assert.Equal(t, reg.MustID("wall"), g.GetTile(cell, LayerTop), "тайл цел")
}

func TestDurabilityIgnoresInapplicableHits(t *testing.T) {
	reg := fixtureRegistry(t)
	g := roomGrid(t, reg, 5, 5)
	d := g.Durability()

	_, broken := d.Hit(vec.Vec2{X: 2, Y: 2}, 10, 10, 1)
	assert.False(t, broken, "пол неразрушаем")
	_, broken = d.Hit(vec.Vec2{X: -1, Y: 2}, 10, 10, 1)
	assert.False(t, broken)
	_, broken = d.Hit(vec.Vec2{X: 0, Y: 0}, 0, 10, 1)
	assert.False(t, broken)
	assert.Equal(t, 0, d.Len(), "записи с нулевым уроном не создаются")
}

func TestDurabilityBreakRules(t *testing.T) {
	reg := fixtureRegistry(t)
	g := roomGrid(t, reg, 5, 5)
	d := g.Durability()

	crateCell, glassCell := vec.Vec2{X: 2, Y: 2}, vec.Vec2{X: 1, Y: 1}
	require.True(t, g.SetTile(crateCell, reg.MustID("crate"), LayerAuto))
	require.True(t, g.SetTile(glassCell, reg.MustID("glass"), LayerAuto))

	dropped, broken := d.Hit(crateCell, 0.5, 1, 1)
	assert.True(t, broken)
	assert.Equal(t, reg.MustID("plank"), dropped)
	assert.Equal(t, reg.MustID("floor1"), g.GetTile(crateCell, LayerTop))

	dropped, broken = d.Hit(glassCell, 1, 1, 1)
	assert.True(t, broken)
	assert.Equal(t, tile.Empty, dropped)
}

func TestDurabilityEntryDiscardedOnMutation(t *testing.T) {
	reg := fixtureRegistry(t)
	g := roomGrid(t, reg, 5, 5)
	d := g.Durability()
	a, b := vec.Vec2{X: 0, Y: 1}, vec.Vec2{X: 0, Y: 3}

	d.Hit(a, 0.1, 1, 0)
	d.Hit(b, 0.1, 1, 0)
	require.Equal(t, 2, d.Len())

	require.True(t, g.SetTile(a, reg.MustID("crate"), LayerAuto))
	require.True(t, g.RemoveTile(b))
	assert.Equal(t, 0, d.Len())
}

func TestDurabilityTickOutsideReady(t *testing.T) {
	reg := fixtureRegistry(t)
	g := roomGrid(t, reg, 5, 5)
	d := g.Durability()
	d.Hit(vec.Vec2{X: 0, Y: 1}, 0.1, 1, 0)

	g.mu.Lock()
	g.state = StateClassifying
	g.mu.Unlock()

	d.Tick(100, 100, 0, 100)
	assert.Equal(t, 1, d.Len())
	_, broken := d.Hit(vec.Vec2{X: 0, Y: 1}, 100, 100, 0)
	assert.False(t, broken)
}

func TestDurabilityPublishesTileBroken(t *testing.T) {
	reg := fixtureRegistry(t)
	bus := eventbus.NewMemoryBus(16)
	defer bus.Close()

	got := make(chan *eventbus.Envelope, 1)
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{Types: []string{EventTileBroken}}, func(ctx context.Context, ev *eventbus.Envelope) {
		got <- ev
	})
	require.NoError(t, err)

	g, err := NewGrid(Options{
		Name: "cave", Registry: reg, Logger: quietLogger(), Bus: bus,
		Pipeline: patternPipeline(3, 3, 2, func(x, y int) (tile.ID, tile.ID) {
			return reg.MustID("floor1"), reg.MustID("wall")
		}),
	})
	require.NoError(t, err)
	loadGrid(t, g, 1)

	_, broken := g.Durability().Hit(vec.Vec2{X: 1, Y: 2}, 1, 1, 0)
	require.True(t, broken)

	select {
	case ev := <-got:
		var p TileBrokenEvent
		require.NoError(t, ev.Decode(&p))
		assert.Equal(t, TileBrokenEvent{X: 1, Y: 2, Tile: reg.MustID("wall"), Name: "wall", Dropped: reg.MustID("wall")}, p)
	case <-time.After(2 * time.Second):
		t.Fatal("событие world.tile_broken не пришло")
	}
}
