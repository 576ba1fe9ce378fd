package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloorDiv(t *testing.T) {
	assert.Equal(t, 2, FloorDiv(70, 32))
	assert.Equal(t, -1, FloorDiv(-1, 32), "отрицательные пиксели попадают в клетку -1")
	assert.Equal(t, -1, FloorDiv(-32, 32))
	assert.Equal(t, -2, FloorDiv(-33, 32))
}

func TestRectIntersect(t *testing.T) {
	r := Rect{X: -2, Y: -2, W: 6, H: 6}
	assert.Equal(t, Rect{X: 0, Y: 0, W: 4, H: 4}, r.Intersect(Rect{W: 10, H: 10}))
	assert.True(t, r.Intersect(Rect{X: 20, Y: 20, W: 1, H: 1}).Empty())
	assert.Equal(t, Rect{X: 1, Y: 1, W: 4, H: 4}, Rect{X: 2, Y: 2, W: 2, H: 2}.Inset(1))
}

func TestVec2FloatFloor(t *testing.T) {
	p := Vec2Float{X: 70, Y: -1}.Div(32)
	assert.Equal(t, Vec2{X: 2, Y: -1}, p.Floor())
	assert.Equal(t, 3, Vec2{X: 1, Y: 1}.Chebyshev(Vec2{X: 4, Y: -1}))
}
