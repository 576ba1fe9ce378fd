package physics

import (
	"testing"

	"github.com/annel0/tileworld/internal/vec"
	"github.com/stretchr/testify/assert"
)

func TestBuckets(t *testing.T) {
	assert.Equal(t, vec.Rect{X: 0, Y: 0, W: 1, H: 1}, Buckets(vec.Rect{X: 0, Y: 0, W: 32, H: 32}, 32))
	assert.Equal(t, vec.Rect{X: 0, Y: 0, W: 2, H: 1}, Buckets(vec.Rect{X: 31, Y: 0, W: 2, H: 10}, 32))
	assert.Equal(t, vec.Rect{X: -1, Y: -1, W: 1, H: 1}, Buckets(vec.Rect{X: -5, Y: -5, W: 5, H: 5}, 32))
	assert.True(t, Buckets(vec.Rect{X: 10, Y: 10}, 32).Empty())
}

func TestAnyBlocked(t *testing.T) {
	solid := vec.Vec2{X: 2, Y: 1}
	blocked := func(c vec.Vec2) bool { return c == solid }

	assert.True(t, AnyBlocked(vec.Rect{X: 0, Y: 0, W: 3, H: 3}, blocked))
	assert.False(t, AnyBlocked(vec.Rect{X: 0, Y: 0, W: 2, H: 3}, blocked))
}

type fakeWorld struct{ solid vec.Rect }

func (f fakeWorld) TouchesSolid(px vec.Rect) bool { return Overlaps(f.solid, px) }

func TestCanMoveToPosition(t *testing.T) {
	w := fakeWorld{solid: vec.Rect{X: 64, Y: 0, W: 32, H: 32}}
	c := NewBoxCollider(20, 20)

	assert.True(t, CanMoveToPosition(vec.Vec2{X: 16, Y: 16}, c, w))
	assert.False(t, CanMoveToPosition(vec.Vec2{X: 60, Y: 16}, c, w))
}
