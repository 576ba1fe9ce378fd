package world

import (
	"github.com/annel0/tileworld/internal/vec"
)

// LightMask - маска освещённости клеток прямоугольника Rect (построчно)
type LightMask struct {
	Rect vec.Rect
	Lit  []bool
}

// At сообщает, освещена ли клетка. Клетки вне Rect - тёмные.
func (m *LightMask) At(cell vec.Vec2) bool {
	if m == nil || !m.Rect.Contains(cell) {
		return false
	}
	return m.Lit[(cell.Y-m.Rect.Y)*m.Rect.W+(cell.X-m.Rect.X)]
}

// LitCount возвращает число освещённых клеток
func (m *LightMask) LitCount() int {
	n := 0
	for _, lit := range m.Lit {
		if lit {
			n++
		}
	}
	return n
}

// BuildLight строит маску для rect: клетка освещена, если в её окрестности
// Чебышёва радиуса seeRange (включая её саму) есть клетка карты
// со светопроницаемым верхним тайлом.
func BuildLight(g *Grid, rect vec.Rect, seeRange int) *LightMask {
	if rect.Empty() {
		return &LightMask{}
	}
	if seeRange < 0 {
		seeRange = 0
	}
	mask := &LightMask{Rect: rect, Lit: make([]bool, rect.W*rect.H)}
	bounds := g.Bounds()

	for y := 0; y < rect.H; y++ {
		for x := 0; x < rect.W; x++ {
			cell := vec.Vec2{X: rect.X + x, Y: rect.Y + y}
			if !g.InBounds(cell) {
				continue
			}
			hood := vec.Rect{X: cell.X, Y: cell.Y, W: 1, H: 1}.Inset(seeRange).Intersect(bounds)
			mask.Lit[y*rect.W+x] = g.anyLightPassable(hood)
		}
	}
	return mask
}

func (g *Grid) anyLightPassable(r vec.Rect) bool {
	for y := r.Y; y < r.Bottom(); y++ {
		for x := r.X; x < r.Right(); x++ {
			if g.reg.ByID(g.top[y*g.width+x]).LightPassable {
				return true
			}
		}
	}
	return false
}

// LightField кеширует маску видимой области и перестраивает её,
// только когда меняется прямоугольник или ревизия карты.
type LightField struct {
	grid     *Grid
	seeRange int
	mask     *LightMask
	rect     vec.Rect
	revision uint64
	built    bool
}

// NewLightField создаёт поле освещения для карты
func NewLightField(g *Grid, seeRange int) *LightField {
	return &LightField{grid: g, seeRange: seeRange}
}

// Refresh возвращает маску для rect; true - маска была перестроена
func (lf *LightField) Refresh(rect vec.Rect) (*LightMask, bool) {
	rev := lf.grid.Revision()
	if lf.built && rect == lf.rect && rev == lf.revision {
		return lf.mask, false
	}
	lf.mask = BuildLight(lf.grid, rect, lf.seeRange)
	lf.rect = rect
	lf.revision = rev
	lf.built = true
	lightRebuilds.WithLabelValues(lf.grid.name).Inc()
	return lf.mask, true
}

// Mask возвращает последнюю построенную маску (nil до первого Refresh)
func (lf *LightField) Mask() *LightMask {
	return lf.mask
}
