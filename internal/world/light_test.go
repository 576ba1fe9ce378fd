package world

import (
	"testing"

	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pitGrid - карта 7×7 из стен с единственной открытой клеткой (3,3)
func pitGrid(t *testing.T) (*Grid, *tile.Registry) {
	reg := fixtureRegistry(t)
	floor, wall := reg.MustID("floor1"), reg.MustID("wall")
	g := newTestGrid(t, reg, patternPipeline(7, 7, 2, func(x, y int) (tile.ID, tile.ID) {
		if x == 3 && y == 3 {
			return floor, tile.Empty
		}
		return floor, wall
	}))
	loadGrid(t, g, 1)
	return g, reg
}

func TestBuildLightRadius(t *testing.T) {
	g, _ := pitGrid(t)
	center := vec.Vec2{X: 3, Y: 3}

	for _, r := range []int{0, 1, 2} {
		mask := BuildLight(g, g.Bounds(), r)
		require.Len(t, mask.Lit, 49)
		for y := 0; y < 7; y++ {
			for x := 0; x < 7; x++ {
				cell := vec.Vec2{X: x, Y: y}
				assert.Equal(t, cell.Chebyshev(center) <= r, mask.At(cell), "радиус %d клетка %v", r, cell)
			}
		}
		assert.Equal(t, (2*r+1)*(2*r+1), mask.LitCount())
	}
}

func TestBuildLightOutsideGridIsDark(t *testing.T) {
	g, _ := pitGrid(t)

	rect := vec.Rect{X: -2, Y: -2, W: 5, H: 5}
	mask := BuildLight(g, rect, 3)
	assert.Equal(t, rect, mask.Rect)
	assert.False(t, mask.At(vec.Vec2{X: -1, Y: -1}))
	assert.False(t, mask.At(vec.Vec2{X: 2, Y: -2}))
	assert.True(t, mask.At(vec.Vec2{X: 0, Y: 0}))
	assert.True(t, mask.At(vec.Vec2{X: 2, Y: 2}))
	assert.Equal(t, 9, mask.LitCount())

	assert.Empty(t, BuildLight(g, vec.Rect{}, 2).Lit)
}

func TestLightFieldRefresh(t *testing.T) {
	g, _ := pitGrid(t)
	lf := NewLightField(g, 1)
	rect := vec.Rect{X: 0, Y: 0, W: 4, H: 4}

	m1, rebuilt := lf.Refresh(rect)
	require.True(t, rebuilt)
	assert.False(t, m1.At(vec.Vec2{X: 0, Y: 0}))

	m2, rebuilt := lf.Refresh(rect)
	assert.False(t, rebuilt)
	assert.Same(t, m1, m2)

	require.True(t, g.RemoveTile(vec.Vec2{X: 0, Y: 0}))
	m3, rebuilt := lf.Refresh(rect)
	assert.True(t, rebuilt, "ревизия карты изменилась")
	assert.True(t, m3.At(vec.Vec2{X: 0, Y: 0}))
	assert.True(t, m3.At(vec.Vec2{X: 1, Y: 1}))

	_, rebuilt = lf.Refresh(vec.Rect{X: 1, Y: 1, W: 4, H: 4})
	assert.True(t, rebuilt)
	assert.Same(t, lf.Mask(), lf.Mask())
}
