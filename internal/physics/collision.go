package physics

import (
	"github.com/annel0/tileworld/internal/vec"
)

// BoxCollider - прямоугольный коллайдер в пикселях
type BoxCollider struct {
	Width  int
	Height int
}

// NewBoxCollider создаёт коллайдер с указанными размерами
func NewBoxCollider(width, height int) *BoxCollider {
	return &BoxCollider{
		Width:  width,
		Height: height,
	}
}

// RectAt возвращает пиксельный прямоугольник коллайдера с центром в center
func (bc *BoxCollider) RectAt(center vec.Vec2) vec.Rect {
	return vec.Rect{
		X: center.X - bc.Width/2,
		Y: center.Y - bc.Height/2,
		W: bc.Width,
		H: bc.Height,
	}
}

// Overlaps проверяет пересечение двух пиксельных прямоугольников
func Overlaps(a, b vec.Rect) bool {
	return !a.Intersect(b).Empty()
}

// Buckets возвращает прямоугольник клеток размера tileSize, которые задевает
// пиксельный прямоугольник r. Края округляются вниз до кратных tileSize,
// поэтому отрицательные координаты дают отрицательные индексы клеток.
func Buckets(r vec.Rect, tileSize int) vec.Rect {
	if r.Empty() || tileSize <= 0 {
		return vec.Rect{}
	}
	x0 := vec.FloorDiv(r.X, tileSize)
	y0 := vec.FloorDiv(r.Y, tileSize)
	x1 := vec.FloorDiv(r.Right()-1, tileSize)
	y1 := vec.FloorDiv(r.Bottom()-1, tileSize)
	return vec.Rect{X: x0, Y: y0, W: x1 - x0 + 1, H: y1 - y0 + 1}
}

// AnyBlocked обходит клетки cells и возвращает true на первой,
// для которой blocked вернул true
func AnyBlocked(cells vec.Rect, blocked func(vec.Vec2) bool) bool {
	for y := cells.Y; y < cells.Bottom(); y++ {
		for x := cells.X; x < cells.Right(); x++ {
			if blocked(vec.Vec2{X: x, Y: y}) {
				return true
			}
		}
	}
	return false
}

// SolidChecker - источник информации о твёрдости пиксельной области
type SolidChecker interface {
	TouchesSolid(pixels vec.Rect) bool
}

// CanMoveToPosition проверяет, может ли коллайдер встать центром в newPos (пиксели)
func CanMoveToPosition(newPos vec.Vec2, collider *BoxCollider, world SolidChecker) bool {
	return !world.TouchesSolid(collider.RectAt(newPos))
}
