package world

import (
	"errors"
	"fmt"
	"image/color"
	"math/rand"
	"sync"

	"github.com/annel0/tileworld/internal/eventbus"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/physics"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world/gen"
	"github.com/annel0/tileworld/internal/world/tile"
	"github.com/google/uuid"
)

// DefaultTileSize - размер клетки в пикселях мира
const DefaultTileSize = 32

// ErrInvalidTileSize - размер клетки должен быть положительным
var ErrInvalidTileSize = errors.New("world: tile size must be > 0")

// Options - параметры карты
type Options struct {
	Name       string
	TileSize   int
	Pipeline   *gen.Pipeline
	Registry   *tile.Registry
	BreakScale float64           // 0 - DefaultBreakScale
	Logger     *logging.Logger   // nil - логгер компонента "world"
	Bus        eventbus.EventBus // nil - глобальная шина
}

// Grid - слоистая карта тайлов с индексом объектов, трекером прочности
// и кешем цветов миникарты.
//
// Живое состояние (тайлы, объекты, урон) не потокобезопасно: им пользуется
// только цикл симуляции. Фоновая генерация трогает лишь свой результат
// и метку состояния под mu.
type Grid struct {
	name     string
	reg      *tile.Registry
	pipe     *gen.Pipeline
	log      *logging.Logger
	bus      eventbus.EventBus
	tileSize int

	width  int
	height int
	depth  int

	tiles   []tile.ID
	top     []tile.ID
	minimap []color.RGBA
	objects *objectIndex
	breaks  *Durability
	rng     *rand.Rand

	pixelW   int
	pixelH   int
	revision uint64

	mu       sync.Mutex
	state    State
	epoch    uuid.UUID
	seed     int64
	pending  bool
	latest   *result
	notify   chan struct{}
	lastErr  error
	progress progressSinks
}

// NewGrid создаёт карту в состоянии Idle. Тайлы появятся после Load.
func NewGrid(opts Options) (*Grid, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("world: registry is required")
	}
	if opts.Pipeline == nil {
		return nil, fmt.Errorf("world: pipeline is required")
	}
	if err := opts.Pipeline.Validate(); err != nil {
		return nil, err
	}
	if opts.TileSize == 0 {
		opts.TileSize = DefaultTileSize
	}
	if opts.TileSize < 0 {
		return nil, ErrInvalidTileSize
	}
	if opts.Name == "" {
		opts.Name = "map"
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetComponentLogger("world")
	}

	p := opts.Pipeline
	g := &Grid{
		name:     opts.Name,
		reg:      opts.Registry,
		pipe:     p,
		log:      opts.Logger,
		bus:      opts.Bus,
		tileSize: opts.TileSize,
		width:    p.Width,
		height:   p.Height,
		depth:    p.Depth,
		tiles:    make([]tile.ID, p.Width*p.Height*p.Depth),
		top:      make([]tile.ID, p.Width*p.Height),
		minimap:  make([]color.RGBA, p.Width*p.Height),
		objects:  newObjectIndex(),
		rng:      rand.New(rand.NewSource(0)),
		notify:   make(chan struct{}, 1),
	}
	g.breaks = newDurability(g, opts.BreakScale)
	return g, nil
}

// Name возвращает имя карты
func (g *Grid) Name() string { return g.name }

// Width возвращает ширину в клетках
func (g *Grid) Width() int { return g.width }

// Height возвращает высоту в клетках
func (g *Grid) Height() int { return g.height }

// Depth возвращает число слоёв
func (g *Grid) Depth() int { return g.depth }

// TileSize возвращает размер клетки в пикселях
func (g *Grid) TileSize() int { return g.tileSize }

// Registry возвращает реестр тайлов карты
func (g *Grid) Registry() *tile.Registry { return g.reg }

// Durability возвращает трекер прочности карты
func (g *Grid) Durability() *Durability { return g.breaks }

// Revision растёт при каждом изменении тайлов (включая публикацию генерации)
func (g *Grid) Revision() uint64 { return g.revision }

// Bounds возвращает прямоугольник карты в клетках
func (g *Grid) Bounds() vec.Rect {
	return vec.Rect{W: g.width, H: g.height}
}

// PixelBounds возвращает размеры мира в пикселях; 0×0 до первой публикации
func (g *Grid) PixelBounds() (int, int) {
	return g.pixelW, g.pixelH
}

// InBounds проверяет, что клетка лежит в [0,W)×[0,H)
func (g *Grid) InBounds(cell vec.Vec2) bool {
	return cell.X >= 0 && cell.X < g.width && cell.Y >= 0 && cell.Y < g.height
}

func (g *Grid) index(cell vec.Vec2, layer int) int {
	return (layer*g.height+cell.Y)*g.width + cell.X
}

func (g *Grid) flat(cell vec.Vec2) int {
	return cell.Y*g.width + cell.X
}

// GetTile возвращает тайл клетки на слое. LayerTop - верхний непустой тайл.
// Клетка или слой вне диапазона дают тайл-заглушку реестра.
func (g *Grid) GetTile(cell vec.Vec2, layer int) tile.ID {
	if !g.InBounds(cell) {
		return g.reg.Unknown()
	}
	if layer == LayerTop {
		return g.top[g.flat(cell)]
	}
	if layer < 0 || layer >= g.depth {
		return g.reg.Unknown()
	}
	return g.tiles[g.index(cell, layer)]
}

// TopLayer возвращает индекс верхнего непустого слоя клетки (0, если все пусты)
func (g *Grid) TopLayer(cell vec.Vec2) int {
	for l := g.depth - 1; l > 0; l-- {
		if g.tiles[g.index(cell, l)] != tile.Empty {
			return l
		}
	}
	return 0
}

// SetTile кладёт тайл в клетку. При layer == LayerAuto выбирается первый пустой
// слой снизу, а если пустых нет - перезаписывается верхний. Тайл под записанным
// проходит через своё правило покрытия. Возвращает false, если ничего не изменилось.
func (g *Grid) SetTile(cell vec.Vec2, id tile.ID, layer int) bool {
	if !g.InBounds(cell) || id == tile.Empty || int(id) >= g.reg.Len() {
		return false
	}
	if layer != LayerAuto && (layer < 0 || layer >= g.depth) {
		return false
	}
	if !g.allowMutation("set_tile") {
		return false
	}

	if layer == LayerAuto {
		layer = g.depth - 1
		for l := 0; l < g.depth; l++ {
			if g.tiles[g.index(cell, l)] == tile.Empty {
				layer = l
				break
			}
		}
	}

	g.tiles[g.index(cell, layer)] = id
	if layer > 0 {
		below := g.index(cell, layer-1)
		if g.tiles[below] != tile.Empty {
			g.tiles[below] = g.reg.Cover(g.tiles[below], id, g.rng)
		}
	}

	g.breaks.discard(cell)
	g.refreshCell(cell)
	return true
}

// RemoveTile очищает верхний непустой слой клетки
func (g *Grid) RemoveTile(cell vec.Vec2) bool {
	if !g.InBounds(cell) || !g.allowMutation("remove_tile") {
		return false
	}
	if !g.clearTop(cell) {
		return false
	}
	g.breaks.discard(cell)
	return true
}

// clearTop снимает верхний непустой тайл без проверки состояния
func (g *Grid) clearTop(cell vec.Vec2) bool {
	l := g.TopLayer(cell)
	i := g.index(cell, l)
	if g.tiles[i] == tile.Empty {
		return false
	}
	g.tiles[i] = tile.Empty
	g.refreshCell(cell)
	return true
}

// refreshCell пересчитывает верхний тайл и цвет миникарты клетки
func (g *Grid) refreshCell(cell vec.Vec2) {
	i := g.flat(cell)
	id := g.tiles[g.index(cell, g.TopLayer(cell))]
	g.top[i] = id
	g.minimap[i] = g.reg.ByID(id).MapColor
	g.revision++
}

// rebuildCaches пересчитывает верхние тайлы и миникарту целиком
func (g *Grid) rebuildCaches() {
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			cell := vec.Vec2{X: x, Y: y}
			i := g.flat(cell)
			id := g.tiles[g.index(cell, g.TopLayer(cell))]
			g.top[i] = id
			g.minimap[i] = g.reg.ByID(id).MapColor
		}
	}
	g.revision++
}

// allowMutation пропускает изменения только в состоянии Ready
func (g *Grid) allowMutation(op string) bool {
	st := g.State()
	if st == StateReady {
		return true
	}
	rejectedMutations.WithLabelValues(g.name, op).Inc()
	g.log.Warn("Карта %s: %s отклонено, состояние %s", g.name, op, st)
	return false
}

// CellToWorldOrigin возвращает левый верхний угол клетки в пикселях мира
func (g *Grid) CellToWorldOrigin(cell vec.Vec2) vec.Vec2Float {
	return vec.Vec2Float{
		X: float64(cell.X * g.tileSize),
		Y: float64(cell.Y * g.tileSize),
	}
}

// CellCenter возвращает центр клетки в пикселях мира
func (g *Grid) CellCenter(cell vec.Vec2) vec.Vec2Float {
	half := float64(g.tileSize) / 2
	return g.CellToWorldOrigin(cell).Add(vec.Vec2Float{X: half, Y: half})
}

// WorldToCell переводит точку мира в клетку; false - точка вне карты
func (g *Grid) WorldToCell(p vec.Vec2Float) (vec.Vec2, bool) {
	cell := p.Div(float64(g.tileSize)).Floor()
	return cell, g.InBounds(cell)
}

// TileAtWorld возвращает верхний тайл под точкой мира или заглушку вне карты
func (g *Grid) TileAtWorld(p vec.Vec2Float) tile.ID {
	cell, ok := g.WorldToCell(p)
	if !ok {
		return g.reg.Unknown()
	}
	return g.GetTile(cell, LayerTop)
}

// VisibleRect переводит пиксельный прямоугольник обзора в прямоугольник клеток:
// углы делятся на размер клетки с округлением вниз, результат обрезается картой
// и расширяется на border клеток с каждой стороны (снова с обрезкой).
// Обзор целиком вне карты даёт пустой прямоугольник.
func (g *Grid) VisibleRect(view vec.Rect, border int) vec.Rect {
	r := physics.Buckets(view, g.tileSize).Intersect(g.Bounds())
	if r.Empty() {
		return vec.Rect{}
	}
	if border > 0 {
		r = r.Inset(border).Intersect(g.Bounds())
	}
	return r
}

// TouchesSolid проверяет, задевает ли пиксельный прямоугольник твёрдый тайл.
// Клетки за пределами карты не блокируют.
func (g *Grid) TouchesSolid(pixels vec.Rect) bool {
	cells := physics.Buckets(pixels, g.tileSize).Intersect(g.Bounds())
	return physics.AnyBlocked(cells, func(cell vec.Vec2) bool {
		return g.reg.ByID(g.top[g.flat(cell)]).Solid
	})
}

// LayerData возвращает копию массива тайлов, индекс (layer*H + y)*W + x
func (g *Grid) LayerData() []tile.ID {
	out := make([]tile.ID, len(g.tiles))
	copy(out, g.tiles)
	return out
}
