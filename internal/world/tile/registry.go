package tile

import (
	"errors"
	"fmt"
	"image/color"
	"math/rand"
)

// ErrDuplicateName возвращается при повторной регистрации имени
var ErrDuplicateName = errors.New("tile: duplicate name")

// ErrUnknownReference возвращается, если правило ссылается на незарегистрированный тайл
var ErrUnknownReference = errors.New("tile: unknown tile reference")

// Registry - каталог тайлов. Передаётся явно в генератор и сетку,
// после Resolve используется только на чтение и безопасен для
// одновременного чтения из нескольких горутин.
type Registry struct {
	tiles   []*Tile
	byName  map[string]ID
	unknown ID
}

// NewRegistry создаёт реестр с зарезервированными тайлами "empty" (0) и "debug"
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]ID)}
	r.mustRegister(Tile{Name: EmptyName, LightPassable: true})
	r.unknown = r.mustRegister(Tile{
		Name:          UnknownName,
		LightPassable: true,
		MapColor:      color.RGBA{R: 255, G: 0, B: 255, A: 255},
	})
	return r
}

// Register добавляет тайл и возвращает присвоенный ID
func (r *Registry) Register(t Tile) (ID, error) {
	if t.Name == "" {
		return 0, fmt.Errorf("tile: empty name")
	}
	if _, exists := r.byName[t.Name]; exists {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateName, t.Name)
	}
	id := ID(len(r.tiles))
	t.ID = id
	stored := t
	r.tiles = append(r.tiles, &stored)
	r.byName[t.Name] = id
	return id, nil
}

func (r *Registry) mustRegister(t Tile) ID {
	id, err := r.Register(t)
	if err != nil {
		panic(err)
	}
	return id
}

// Resolve разрешает имена в правилах cover/break в ID.
// Вызывается один раз после регистрации всех тайлов.
func (r *Registry) Resolve() error {
	for _, t := range r.tiles {
		switch t.Cover.Kind {
		case CoverReplace:
			id, ok := r.byName[t.Cover.Into]
			if !ok {
				return fmt.Errorf("%w: %s cover -> %q", ErrUnknownReference, t.Name, t.Cover.Into)
			}
			t.coverInto = id
		case CoverRandom:
			if len(t.Cover.Variants) == 0 {
				return fmt.Errorf("tile: %s: random cover without variants", t.Name)
			}
			t.coverVariants = t.coverVariants[:0]
			for _, name := range t.Cover.Variants {
				id, ok := r.byName[name]
				if !ok {
					return fmt.Errorf("%w: %s cover -> %q", ErrUnknownReference, t.Name, name)
				}
				t.coverVariants = append(t.coverVariants, id)
			}
		}

		if t.Break.Kind == BreakInto {
			id, ok := r.byName[t.Break.Into]
			if !ok {
				return fmt.Errorf("%w: %s break -> %q", ErrUnknownReference, t.Name, t.Break.Into)
			}
			t.breakInto = id
		}
	}
	return nil
}

// Len возвращает количество зарегистрированных тайлов (включая зарезервированные)
func (r *Registry) Len() int {
	return len(r.tiles)
}

// Unknown возвращает ID тайла-заглушки "debug"
func (r *Registry) Unknown() ID {
	return r.unknown
}

// IDByName возвращает ID по имени
func (r *Registry) IDByName(name string) (ID, bool) {
	id, ok := r.byName[name]
	return id, ok
}

// MustID возвращает ID по имени и паникует, если имя не зарегистрировано.
// Для тестов и фикстур, где имя заведомо есть в каталоге.
func (r *Registry) MustID(name string) ID {
	id, ok := r.byName[name]
	if !ok {
		panic(fmt.Sprintf("tile: %q is not registered", name))
	}
	return id
}

// ByID возвращает описание тайла; для неизвестного ID - тайл "debug"
func (r *Registry) ByID(id ID) *Tile {
	if int(id) >= len(r.tiles) {
		return r.tiles[r.unknown]
	}
	return r.tiles[id]
}

// Cover применяет правило "covered-by" тайла self, поверх которого поставили covering.
// rng может быть nil - тогда выбирается первый вариант.
func (r *Registry) Cover(self, covering ID, rng *rand.Rand) ID {
	if self == Empty || covering == Empty {
		return self
	}
	t := r.ByID(self)
	switch t.Cover.Kind {
	case CoverReplace:
		return t.coverInto
	case CoverRandom:
		if len(t.coverVariants) == 0 {
			return self
		}
		if rng == nil {
			return t.coverVariants[0]
		}
		return t.coverVariants[rng.Intn(len(t.coverVariants))]
	default:
		return self
	}
}

// Break возвращает ID выпадающего при разрушении тайла (Empty - ничего)
func (r *Registry) Break(id ID) ID {
	t := r.ByID(id)
	switch t.Break.Kind {
	case BreakInto:
		return t.breakInto
	case BreakNothing:
		return Empty
	default:
		return id
	}
}
