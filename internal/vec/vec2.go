package vec

// Vec2 представляет 2D координаты клетки сетки
type Vec2 struct {
	X, Y int
}

// Chebyshev возвращает расстояние Чебышёва (max(|dx|, |dy|))
func (v Vec2) Chebyshev(other Vec2) int {
	dx := v.X - other.X
	if dx < 0 {
		dx = -dx
	}
	dy := v.Y - other.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// FloorDiv делит с округлением вниз (в отличие от / для отрицательных чисел)
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
