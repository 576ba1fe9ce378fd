package vec

import "math"

// Vec2Float - точка мира в пикселях
type Vec2Float struct {
	X, Y float64
}

// Add складывает два вектора
func (v Vec2Float) Add(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X + other.X, Y: v.Y + other.Y}
}

// Div делит обе координаты на s
func (v Vec2Float) Div(s float64) Vec2Float {
	return Vec2Float{X: v.X / s, Y: v.Y / s}
}

// Floor округляет координаты вниз (для отрицательных тоже)
func (v Vec2Float) Floor() Vec2 {
	return Vec2{X: int(math.Floor(v.X)), Y: int(math.Floor(v.Y))}
}
