package world

import (
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world/tile"
)

// DefaultBreakScale переводит единицы прочности реестра в единицы урона
const DefaultBreakScale = 0.01

// damageEpsilon гасит ошибку накопления при сравнении урона с порогом
const damageEpsilon = 1e-9

// BreakState - накопленный урон клетки
type BreakState struct {
	Damage  float64 // > 0
	LastHit float64 // часы симуляции в момент последнего удара, секунды
}

// Durability копит урон по клеткам и восстанавливает его со временем.
// Записи с уроном <= 0 не хранятся.
type Durability struct {
	grid    *Grid
	scale   float64
	entries map[vec.Vec2]*BreakState
}

func newDurability(g *Grid, scale float64) *Durability {
	if scale <= 0 {
		scale = DefaultBreakScale
	}
	return &Durability{grid: g, scale: scale, entries: make(map[vec.Vec2]*BreakState)}
}

// Threshold возвращает урон, разрушающий тайл id (0 - неразрушаемый)
func (d *Durability) Threshold(id tile.ID) float64 {
	return float64(d.grid.reg.ByID(id).Durability) * d.scale
}

// Hit наносит урон elapsed*hitRate верхнему тайлу клетки.
// Если урон достиг порога, тайл снимается, а Hit возвращает выпавший тайл и true.
// Неразрушаемый тайл, клетка вне карты или карта не в Ready - ничего не происходит.
func (d *Durability) Hit(cell vec.Vec2, elapsed, hitRate, clock float64) (tile.ID, bool) {
	g := d.grid
	if !g.InBounds(cell) || !g.allowMutation("hit") {
		return tile.Empty, false
	}
	id := g.GetTile(cell, LayerTop)
	t := g.reg.ByID(id)
	if id == tile.Empty || !t.Breakable() {
		return tile.Empty, false
	}
	dmg := elapsed * hitRate
	if !(dmg > 0) {
		return tile.Empty, false
	}

	st, ok := d.entries[cell]
	if !ok {
		st = &BreakState{}
		d.entries[cell] = st
	}
	st.Damage += dmg
	st.LastHit = clock

	if st.Damage+damageEpsilon < d.Threshold(id) {
		breakEntries.WithLabelValues(g.name).Set(float64(len(d.entries)))
		return tile.Empty, false
	}

	dropped := g.reg.Break(id)
	delete(d.entries, cell)
	g.clearTop(cell)

	breakEntries.WithLabelValues(g.name).Set(float64(len(d.entries)))
	tilesBroken.WithLabelValues(g.name).Inc()
	g.log.Debug("Карта %s: тайл %s в (%d,%d) разрушен", g.name, t.Name, cell.X, cell.Y)
	g.publishTileBroken(cell, id, dropped)
	return dropped, true
}

// Tick восстанавливает урон: записи, по которым не били regenDelay секунд,
// теряют regenRate*delta урона. Дошедшие до нуля удаляются.
func (d *Durability) Tick(clock, delta, regenDelay, regenRate float64) {
	if len(d.entries) == 0 || d.grid.State() != StateReady {
		return
	}
	heal := regenRate * delta
	if !(heal > 0) {
		return
	}
	for cell, st := range d.entries {
		if clock-st.LastHit < regenDelay {
			continue
		}
		st.Damage -= heal
		if st.Damage <= damageEpsilon {
			delete(d.entries, cell)
		}
	}
	breakEntries.WithLabelValues(d.grid.name).Set(float64(len(d.entries)))
}

// State возвращает копию состояния клетки
func (d *Durability) State(cell vec.Vec2) (BreakState, bool) {
	st, ok := d.entries[cell]
	if !ok {
		return BreakState{}, false
	}
	return *st, true
}

// Fraction возвращает долю накопленного урона верхнего тайла клетки в [0, 1]
func (d *Durability) Fraction(cell vec.Vec2) float64 {
	st, ok := d.entries[cell]
	if !ok {
		return 0
	}
	th := d.Threshold(d.grid.GetTile(cell, LayerTop))
	if th <= 0 {
		return 0
	}
	return min(1, st.Damage/th)
}

// Len возвращает число клеток с уроном
func (d *Durability) Len() int {
	return len(d.entries)
}

func (d *Durability) discard(cell vec.Vec2) {
	delete(d.entries, cell)
}

func (d *Durability) reset() {
	d.entries = make(map[vec.Vec2]*BreakState)
	breakEntries.WithLabelValues(d.grid.name).Set(0)
}
