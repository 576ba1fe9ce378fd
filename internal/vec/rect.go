package vec

// Rect - прямоугольник с целочисленными координатами.
// X, Y - левый верхний угол, W, H - размеры. Правая и нижняя границы не включаются.
type Rect struct {
	X, Y, W, H int
}

// Right возвращает исключающую правую границу
func (r Rect) Right() int { return r.X + r.W }

// Bottom возвращает исключающую нижнюю границу
func (r Rect) Bottom() int { return r.Y + r.H }

// Empty возвращает true, если прямоугольник не содержит ни одной клетки
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Area возвращает площадь (0 для пустого прямоугольника)
func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}
	return r.W * r.H
}

// Contains проверяет, лежит ли точка внутри прямоугольника
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.X && p.X < r.Right() && p.Y >= r.Y && p.Y < r.Bottom()
}

// Intersect возвращает пересечение двух прямоугольников.
// Для непересекающихся прямоугольников возвращается пустой Rect{}.
func (r Rect) Intersect(other Rect) Rect {
	x0 := max(r.X, other.X)
	y0 := max(r.Y, other.Y)
	x1 := min(r.Right(), other.Right())
	y1 := min(r.Bottom(), other.Bottom())
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Inset расширяет (n > 0) или сужает (n < 0) прямоугольник на n со всех сторон
func (r Rect) Inset(n int) Rect {
	return Rect{X: r.X - n, Y: r.Y - n, W: r.W + 2*n, H: r.H + 2*n}
}
