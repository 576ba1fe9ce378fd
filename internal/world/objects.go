package world

import (
	"github.com/annel0/tileworld/internal/vec"
)

// Object - внешний объект, размещённый в клетке (шестерня, рычаг, мотор…).
// Сетка не заглядывает внутрь объекта, только хранит и выставляет позицию.
type Object interface {
	SetPosition(pos vec.Vec2Float)
}

// objectIndex - разреженный индекс объектов по клеткам, порядок вставки сохраняется
type objectIndex struct {
	cells map[vec.Vec2][]Object
	count int
}

func newObjectIndex() *objectIndex {
	return &objectIndex{cells: make(map[vec.Vec2][]Object)}
}

func (oi *objectIndex) add(cell vec.Vec2, obj Object) {
	oi.cells[cell] = append(oi.cells[cell], obj)
	oi.count++
}

func (oi *objectIndex) at(cell vec.Vec2) []Object {
	list := oi.cells[cell]
	if len(list) == 0 {
		return nil
	}
	out := make([]Object, len(list))
	copy(out, list)
	return out
}

func (oi *objectIndex) replace(cell vec.Vec2, objs []Object) {
	oi.count -= len(oi.cells[cell])
	if len(objs) == 0 {
		delete(oi.cells, cell)
		return
	}
	list := make([]Object, len(objs))
	copy(list, objs)
	oi.cells[cell] = list
	oi.count += len(list)
}

func (oi *objectIndex) clear() {
	oi.cells = make(map[vec.Vec2][]Object)
	oi.count = 0
}

// AddObject кладёт объект в клетку и ставит его в мировой центр клетки.
// Возвращает тот же объект; false - клетка вне карты, объект nil или карта не готова.
func (g *Grid) AddObject(cell vec.Vec2, obj Object) (Object, bool) {
	if obj == nil || !g.InBounds(cell) || !g.allowMutation("add_object") {
		return nil, false
	}
	obj.SetPosition(g.CellCenter(cell))
	g.objects.add(cell, obj)
	return obj, true
}

// ObjectsAt возвращает копию списка объектов клетки в порядке добавления
func (g *Grid) ObjectsAt(cell vec.Vec2) []Object {
	return g.objects.at(cell)
}

// ReplaceObjects заменяет список объектов клетки; пустой список удаляет запись
func (g *Grid) ReplaceObjects(cell vec.Vec2, objs []Object) bool {
	if !g.InBounds(cell) || !g.allowMutation("replace_objects") {
		return false
	}
	g.objects.replace(cell, objs)
	return true
}

// ObjectCount возвращает число размещённых объектов
func (g *Grid) ObjectCount() int {
	return g.objects.count
}
