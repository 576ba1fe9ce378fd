package world

import (
	"context"

	"github.com/annel0/tileworld/internal/eventbus"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world/tile"
)

// Типы событий мира
const (
	EventProgress   = "world.progress"
	EventReady      = "world.ready"
	EventTileBroken = "world.tile_broken"
)

// ProgressEvent - прогресс загрузки карты или сессии
type ProgressEvent struct {
	Fraction float64 `json:"fraction"`
	Label    string  `json:"label"`
	Phase    bool    `json:"phase"` // true - прогресс текущего этапа, false - общий
}

// ReadyEvent - карта сгенерирована и опубликована
type ReadyEvent struct {
	Seed       int64   `json:"seed"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Layers     int     `json:"layers"`
	DurationMs float64 `json:"duration_ms"`
}

// TileBrokenEvent - тайл разрушен ударами
type TileBrokenEvent struct {
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Tile    tile.ID `json:"tile"`
	Name    string  `json:"name"`
	Dropped tile.ID `json:"dropped"`
}

// publish отправляет событие в шину карты, либо в глобальную.
// Ошибки публикации только логируются: мир от шины не зависит.
func (g *Grid) publish(eventType, epoch string, priority int, payload interface{}) {
	ev, err := eventbus.NewEnvelope(g.name, eventType, payload)
	if err != nil {
		g.log.Warn("Не удалось упаковать событие %s: %v", eventType, err)
		return
	}
	ev.CorrelationID = epoch
	ev.Priority = priority

	if g.bus != nil {
		err = g.bus.Publish(context.Background(), ev)
	} else {
		err = eventbus.Publish(context.Background(), ev)
	}
	if err != nil {
		g.log.Warn("Не удалось опубликовать событие %s: %v", eventType, err)
	}
}

func (g *Grid) publishTileBroken(cell vec.Vec2, id, dropped tile.ID) {
	g.publish(EventTileBroken, g.Epoch(), 5, TileBrokenEvent{
		X:       cell.X,
		Y:       cell.Y,
		Tile:    id,
		Name:    g.reg.ByID(id).Name,
		Dropped: dropped,
	})
}
