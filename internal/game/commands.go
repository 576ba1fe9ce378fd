package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
	"github.com/annel0/tileworld/internal/world/tile"
)

// ErrRejected - карта отклонила изменение (неверные координаты, тайл
// или карта ещё не готова)
var ErrRejected = errors.New("game: mutation rejected")

type command struct {
	fn    func(*Session) error
	reply chan error
}

// hitOrder - удар, отложенный до конца приёма команд шага
type hitOrder struct {
	m       *Map
	cell    vec.Vec2
	elapsed float64
	done    chan HitResult
}

// HitResult - итог удара по клетке
type HitResult struct {
	Tile      tile.ID `json:"tile"`
	Broken    bool    `json:"broken"`
	Dropped   tile.ID `json:"dropped"`
	Damage    float64 `json:"damage"`
	Threshold float64 `json:"threshold"`
}

// Do выполняет fn внутри ближайшего Step и возвращает её ошибку.
// Блокируется, пока цикл симуляции не заберёт команду или не отменится ctx.
func (s *Session) Do(ctx context.Context, fn func(*Session) error) error {
	cmd := command{fn: fn, reply: make(chan error, 1)}
	select {
	case s.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) drainCommands() {
	for {
		select {
		case cmd := <-s.commands:
			cmd.reply <- cmd.fn(s)
		default:
			return
		}
	}
}

func (s *Session) applyHits(clock float64) {
	if len(s.hits) == 0 {
		return
	}
	rate := s.cfg.Durability.HitRate
	for _, h := range s.hits {
		d := h.m.Grid.Durability()
		res := HitResult{Tile: h.m.Grid.GetTile(h.cell, world.LayerTop)}
		res.Threshold = d.Threshold(res.Tile)
		res.Dropped, res.Broken = d.Hit(h.cell, h.elapsed, rate, clock)
		if st, ok := d.State(h.cell); ok {
			res.Damage = st.Damage
		}
		h.done <- res
	}
	s.hits = s.hits[:0]
}

func (s *Session) lookup(name string) (*Map, error) {
	m, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMap, name)
	}
	return m, nil
}

// Hit бьёт верхний тайл клетки в течение elapsed секунд.
// Удар применяется после всех команд шага.
func (s *Session) Hit(ctx context.Context, name string, cell vec.Vec2, elapsed float64) (HitResult, error) {
	done := make(chan HitResult, 1)
	err := s.Do(ctx, func(s *Session) error {
		m, err := s.lookup(name)
		if err != nil {
			return err
		}
		s.hits = append(s.hits, hitOrder{m: m, cell: cell, elapsed: elapsed, done: done})
		return nil
	})
	if err != nil {
		return HitResult{}, err
	}
	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		return HitResult{}, ctx.Err()
	}
}

// Place ставит тайл в клетку; layer == world.LayerAuto выбирает слой сам
func (s *Session) Place(ctx context.Context, name string, cell vec.Vec2, id tile.ID, layer int) error {
	return s.Do(ctx, func(s *Session) error {
		m, err := s.lookup(name)
		if err != nil {
			return err
		}
		if !m.Grid.SetTile(cell, id, layer) {
			return ErrRejected
		}
		return nil
	})
}

// Remove снимает верхний тайл клетки
func (s *Session) Remove(ctx context.Context, name string, cell vec.Vec2) error {
	return s.Do(ctx, func(s *Session) error {
		m, err := s.lookup(name)
		if err != nil {
			return err
		}
		if !m.Grid.RemoveTile(cell) {
			return ErrRejected
		}
		return nil
	})
}

// Regenerate перегенерирует одну карту с её сидом от seed.
// Загрузка сессии при этом не затрагивается.
func (s *Session) Regenerate(ctx context.Context, name string, seed int64) error {
	return s.Do(ctx, func(s *Session) error {
		m, err := s.lookup(name)
		if err != nil {
			return err
		}
		s.mu.Lock()
		parent := s.parent
		s.mu.Unlock()
		return m.Grid.Load(parent, s.MapSeed(m, seed))
	})
}

// Reload перезапускает загрузку всех карт
func (s *Session) Reload(ctx context.Context, seed int64) error {
	return s.Do(ctx, func(s *Session) error {
		s.mu.Lock()
		parent := s.parent
		s.mu.Unlock()
		return s.Load(parent, seed)
	})
}

// Light строит маску освещения карты m для пиксельного
// прямоугольника обзора. Вызывать из Step или через Do.
func (s *Session) Light(m *Map, view vec.Rect) *world.LightMask {
	rect := m.Grid.VisibleRect(view, s.cfg.Light.Border)
	mask, _ := m.Light.Refresh(rect)
	return mask
}
