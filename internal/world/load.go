package world

import (
	"context"
	"errors"
	"time"

	"github.com/annel0/tileworld/internal/world/gen"
	"github.com/google/uuid"
)

// ErrNotLoading - Wait вызван без Load
var ErrNotLoading = errors.New("world: no generation in flight")

// LabelDone - подпись финальной отметки прогресса
const LabelDone = "Готово"

type result struct {
	epoch   uuid.UUID
	seed    int64
	buf     *gen.Buffer
	err     error
	started time.Time
}

type progressSinks struct {
	overall gen.ProgressFunc
	phase   gen.ProgressFunc
}

// OnProgress задаёт колбэк общего прогресса генерации.
// Вызывается из горутины генерации; 1.0 приходит ровно один раз, из Poll/Wait.
func (g *Grid) OnProgress(fn gen.ProgressFunc) {
	g.mu.Lock()
	g.progress.overall = fn
	g.mu.Unlock()
}

// OnPhaseProgress задаёт колбэк прогресса текущего этапа
func (g *Grid) OnPhaseProgress(fn gen.ProgressFunc) {
	g.mu.Lock()
	g.progress.phase = fn
	g.mu.Unlock()
}

// State возвращает текущее состояние карты
func (g *Grid) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Epoch возвращает токен текущей генерации (пусто до первого Load)
func (g *Grid) Epoch() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.epoch == uuid.Nil {
		return ""
	}
	return g.epoch.String()
}

// Seed возвращает сид последнего Load
func (g *Grid) Seed() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seed
}

// Loading сообщает, ждёт ли карта результата генерации
func (g *Grid) Loading() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending
}

// LastError возвращает ошибку последней неудачной генерации
func (g *Grid) LastError() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastErr
}

// Load запускает фоновую генерацию карты с сидом seed.
// Параметры проверяются до старта горутины. Новый Load отменяет
// результат и прогресс предыдущего: они будут отброшены по эпохе.
func (g *Grid) Load(ctx context.Context, seed int64) error {
	if err := g.pipe.Validate(); err != nil {
		g.log.Error("Карта %s: некорректные параметры генерации: %v", g.name, err)
		return err
	}

	epoch := uuid.New()
	g.mu.Lock()
	g.epoch = epoch
	g.seed = seed
	g.state = StateIdle
	g.pending = true
	g.lastErr = nil
	g.mu.Unlock()

	g.log.Info("Карта %s: генерация %dx%dx%d, seed=%d, epoch=%s", g.name, g.width, g.height, g.depth, seed, epoch)
	go g.generate(ctx, epoch, seed, time.Now())
	return nil
}

func (g *Grid) generate(ctx context.Context, epoch uuid.UUID, seed int64, started time.Time) {
	hooks := gen.Hooks{
		Enter: func(ph gen.Phase) { g.enterPhase(epoch, ph) },
		Progress: func(f float64, label string) {
			if fn := g.sink(epoch, false); fn != nil {
				fn(f, label)
			}
		},
		PhaseProgress: func(f float64, label string) {
			if fn := g.sink(epoch, true); fn != nil {
				fn(f, label)
			}
		},
	}

	buf, err := g.pipe.Run(ctx, seed, hooks)

	g.mu.Lock()
	if epoch != g.epoch {
		g.mu.Unlock()
		generationRuns.WithLabelValues(g.name, "stale").Inc()
		g.log.Debug("Карта %s: результат устаревшей эпохи %s отброшен", g.name, epoch)
		return
	}
	g.latest = &result{epoch: epoch, seed: seed, buf: buf, err: err, started: started}
	g.mu.Unlock()

	select {
	case g.notify <- struct{}{}:
	default:
	}
}

// sink возвращает колбэк прогресса, если эпоха ещё актуальна
func (g *Grid) sink(epoch uuid.UUID, phase bool) gen.ProgressFunc {
	g.mu.Lock()
	defer g.mu.Unlock()
	if epoch != g.epoch {
		return nil
	}
	if phase {
		return g.progress.phase
	}
	return g.progress.overall
}

func (g *Grid) enterPhase(epoch uuid.UUID, ph gen.Phase) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if epoch != g.epoch {
		return
	}
	switch ph {
	case gen.PhaseNoise:
		g.state = StateNoiseGenerating
	case gen.PhaseClassify:
		g.state = StateClassifying
	}
}

// Poll публикует готовый результат генерации, не блокируясь.
// Вызывается из цикла симуляции. true - карта перешла в Ready.
func (g *Grid) Poll() (bool, error) {
	g.mu.Lock()
	r := g.latest
	g.latest = nil
	if r == nil || r.epoch != g.epoch {
		g.mu.Unlock()
		return false, nil
	}
	if r.err != nil {
		g.state = StateIdle
		g.pending = false
		g.lastErr = r.err
		g.mu.Unlock()

		generationRuns.WithLabelValues(g.name, "failed").Inc()
		g.log.Error("Карта %s: генерация не удалась: %v", g.name, r.err)
		return false, r.err
	}
	g.state = StateFinalizing
	g.mu.Unlock()

	g.finalize(r)
	return true, nil
}

// Wait блокируется до публикации текущей генерации или отмены ctx
func (g *Grid) Wait(ctx context.Context) error {
	for {
		ok, err := g.Poll()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !g.Loading() {
			if g.State() == StateReady {
				return nil
			}
			return ErrNotLoading
		}
		select {
		case <-g.notify:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// finalize переносит результат в живую карту: тайлы, кеши, границы в пикселях.
// Объекты и урон предыдущей карты сбрасываются.
func (g *Grid) finalize(r *result) {
	copy(g.tiles, r.buf.IDs)
	g.rebuildCaches()
	g.pixelW = g.width * g.tileSize
	g.pixelH = g.height * g.tileSize
	g.objects.clear()
	g.breaks.reset()
	g.rng.Seed(r.seed)

	g.mu.Lock()
	g.state = StateReady
	g.pending = false
	sinks := g.progress
	g.mu.Unlock()

	if sinks.phase != nil {
		sinks.phase(1, LabelDone)
	}
	if sinks.overall != nil {
		sinks.overall(1, LabelDone)
	}

	elapsed := time.Since(r.started)
	generationDuration.WithLabelValues(g.name).Observe(elapsed.Seconds())
	generationRuns.WithLabelValues(g.name, "published").Inc()
	g.log.Info("Карта %s готова за %v (seed=%d)", g.name, elapsed.Round(time.Millisecond), r.seed)

	g.publish(EventReady, r.epoch.String(), 7, ReadyEvent{
		Seed:       r.seed,
		Width:      g.width,
		Height:     g.height,
		Layers:     g.depth,
		DurationMs: float64(elapsed.Microseconds()) / 1000,
	})
}
