package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/tileworld/internal/config"
	"github.com/annel0/tileworld/internal/eventbus"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/world"
	"github.com/annel0/tileworld/internal/world/gen"
	"github.com/annel0/tileworld/internal/world/tile"
)

// ErrUnknownMap - карты с таким именем в сессии нет
var ErrUnknownMap = errors.New("game: unknown map")

// LabelFinalize - подпись последнего этапа загрузки сессии
const LabelFinalize = "Завершение"

// State - состояние загрузки сессии
type State int32

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Map - карта сессии вместе с её полем освещения
type Map struct {
	Config config.MapConfig
	Grid   *world.Grid
	Light  *world.LightField
}

// Name возвращает имя карты
func (m *Map) Name() string { return m.Config.Name }

// Progress - последняя отметка общего прогресса загрузки
type Progress struct {
	Fraction float64 `json:"fraction"`
	Label    string  `json:"label"`
}

// Options - зависимости сессии
type Options struct {
	Config   *config.Config
	Registry *tile.Registry
	Logger   *logging.Logger   // nil - логгер компонента "game"
	Bus      eventbus.EventBus // nil - глобальная шина
}

// Session владеет картами мира и последовательно загружает их по одному сиду:
// каждая карта - отдельный этап, последний этап - завершение.
// Живое состояние карт меняется только внутри Step; внешние команды
// попадают туда через канал.
type Session struct {
	cfg  *config.Config
	reg  *tile.Registry
	log  *logging.Logger
	bus  eventbus.EventBus
	maps []*Map

	byName map[string]*Map
	local  int

	commands chan command
	hits     []hitOrder
	clock    float64

	mu      sync.Mutex
	state   State
	stage   int
	seed    int64
	parent  context.Context
	loadCtx context.Context
	cancel  context.CancelFunc
	lastErr error
	last    Progress
	overall gen.ProgressFunc
	phase   gen.ProgressFunc
}

// NewSession создаёт карты по конфигурации. Конфигурация должна пройти Validate.
func NewSession(opts Options) (*Session, error) {
	if opts.Config == nil || opts.Registry == nil {
		return nil, fmt.Errorf("game: config and registry are required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetComponentLogger("game")
	}

	s := &Session{
		cfg:      opts.Config,
		reg:      opts.Registry,
		log:      opts.Logger,
		bus:      opts.Bus,
		byName:   make(map[string]*Map),
		commands: make(chan command, 64),
		parent:   context.Background(),
	}

	for i, mc := range opts.Config.World.Maps {
		p, err := BuildPipeline(mc, opts.Registry)
		if err != nil {
			return nil, fmt.Errorf("map %q: %w", mc.Name, err)
		}
		g, err := world.NewGrid(world.Options{
			Name:       mc.Name,
			TileSize:   opts.Config.World.TileSize,
			Pipeline:   p,
			Registry:   opts.Registry,
			BreakScale: opts.Config.Durability.BreakScale,
			Logger:     opts.Logger,
			Bus:        opts.Bus,
		})
		if err != nil {
			return nil, fmt.Errorf("map %q: %w", mc.Name, err)
		}

		idx := i
		g.OnProgress(func(f float64, label string) { s.mapProgress(idx, f, label, false) })
		g.OnPhaseProgress(func(f float64, label string) { s.mapProgress(idx, f, label, true) })

		m := &Map{Config: mc, Grid: g, Light: world.NewLightField(g, opts.Config.Light.SeeRange)}
		s.maps = append(s.maps, m)
		s.byName[mc.Name] = m
	}
	return s, nil
}

// OnProgress задаёт колбэк общего прогресса загрузки сессии.
// Вызывается из горутин генерации и из Step.
func (s *Session) OnProgress(fn gen.ProgressFunc) {
	s.mu.Lock()
	s.overall = fn
	s.mu.Unlock()
}

// OnPhaseProgress задаёт колбэк прогресса текущего этапа
func (s *Session) OnPhaseProgress(fn gen.ProgressFunc) {
	s.mu.Lock()
	s.phase = fn
	s.mu.Unlock()
}

// Maps возвращает карты в порядке загрузки
func (s *Session) Maps() []*Map {
	out := make([]*Map, len(s.maps))
	copy(out, s.maps)
	return out
}

// Map ищет карту по имени
func (s *Session) Map(name string) (*Map, bool) {
	m, ok := s.byName[name]
	return m, ok
}

// Local возвращает текущую (локальную) карту
func (s *Session) Local() *Map { return s.maps[s.local] }

// SetLocal переключает локальную карту. Вызывать из Step или через Do.
func (s *Session) SetLocal(name string) error {
	for i, m := range s.maps {
		if m.Name() == name {
			s.local = i
			s.log.Info("Локальная карта: %s", name)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownMap, name)
}

// Registry возвращает реестр тайлов
func (s *Session) Registry() *tile.Registry { return s.reg }

// Config возвращает конфигурацию сессии
func (s *Session) Config() *config.Config { return s.cfg }

// Clock возвращает часы симуляции последнего шага, секунды
func (s *Session) Clock() float64 { return s.clock }

// State возвращает состояние загрузки
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Seed возвращает сид последней загрузки
func (s *Session) Seed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seed
}

// LastError возвращает ошибку неудачной загрузки
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Progress возвращает последнюю отметку общего прогресса
func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// MapSeed возвращает сид карты для сида сессии
func (s *Session) MapSeed(m *Map, seed int64) int64 {
	return seed + m.Config.SeedOffset
}

func (s *Session) stages() int { return len(s.maps) + 1 }

// Load начинает загрузку всех карт с сидом seed. Карты генерируются по очереди,
// следующая стартует из Step после публикации предыдущей. Повторный Load
// отменяет незавершённую загрузку.
func (s *Session) Load(ctx context.Context, seed int64) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.parent = ctx
	loadCtx, cancel := context.WithCancel(ctx)
	s.loadCtx = loadCtx
	s.cancel = cancel
	s.state = StateLoading
	s.stage = 0
	s.seed = seed
	s.lastErr = nil
	s.mu.Unlock()

	s.log.Info("Загрузка мира: %d карт, seed=%d", len(s.maps), seed)
	s.emit(0, stageLabel(stageTitle(s.maps[0].Name()), 0, s.stages()), false)

	first := s.maps[0]
	if err := first.Grid.Load(loadCtx, s.MapSeed(first, seed)); err != nil {
		s.fail(0, err)
		return err
	}
	return nil
}

// mapProgress переводит прогресс карты idx в прогресс сессии.
// Отметки карт вне текущего этапа загрузки уходят только в шину.
func (s *Session) mapProgress(idx int, f float64, label string, phase bool) {
	s.mu.Lock()
	current := s.state == StateLoading && s.stage == idx
	s.mu.Unlock()

	if !current {
		if !phase {
			s.publishProgress(s.maps[idx].Name(), f, label, false)
		}
		return
	}
	if phase {
		s.emit(f, label, true)
		return
	}
	total := s.stages()
	s.emit((float64(idx)+f)/float64(total), stageLabel(stageTitle(s.maps[idx].Name()), idx, total), false)
}

// emit отдаёт отметку прогресса колбэку сессии и в шину
func (s *Session) emit(f float64, label string, phase bool) {
	s.mu.Lock()
	fn := s.overall
	if phase {
		fn = s.phase
	} else {
		s.last = Progress{Fraction: f, Label: label}
	}
	s.mu.Unlock()

	if fn != nil {
		fn(f, label)
	}
	s.publishProgress("session", f, label, phase)
}

func (s *Session) publishProgress(source string, f float64, label string, phase bool) {
	ev, err := eventbus.NewEnvelope(source, world.EventProgress, world.ProgressEvent{
		Fraction: f,
		Label:    label,
		Phase:    phase,
	})
	if err != nil {
		return
	}
	ev.Priority = 2
	if s.bus != nil {
		err = s.bus.Publish(context.Background(), ev)
	} else {
		err = eventbus.Publish(context.Background(), ev)
	}
	if err != nil {
		s.log.Debug("Прогресс не опубликован: %v", err)
	}
}

// Step - один шаг симуляции: публикация готовых карт, команды,
// накопленные удары, затем восстановление прочности.
func (s *Session) Step(clock, delta float64) {
	s.clock = clock
	s.pollMaps()
	s.drainCommands()
	s.applyHits(clock)

	d := s.cfg.Durability
	for _, m := range s.maps {
		m.Grid.Durability().Tick(clock, delta, d.RegenDelay, d.RegenRate)
	}
}

// Run крутит Step с частотой tickRate до отмены ctx
func (s *Session) Run(ctx context.Context, tickRate int) error {
	if tickRate <= 0 {
		tickRate = 30
	}
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	start := time.Now()
	last := start
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.Step(now.Sub(start).Seconds(), now.Sub(last).Seconds())
			last = now
		}
	}
}

func (s *Session) pollMaps() {
	for i, m := range s.maps {
		ok, err := m.Grid.Poll()
		if err != nil {
			s.fail(i, err)
			continue
		}
		if ok {
			s.advance(i)
		}
	}
}

// advance переходит к следующему этапу, если опубликована карта текущего
func (s *Session) advance(idx int) {
	s.mu.Lock()
	if s.state != StateLoading || s.stage != idx {
		s.mu.Unlock()
		return
	}
	s.stage++
	next := s.stage
	seed := s.seed
	s.mu.Unlock()

	if next < len(s.maps) {
		m := s.maps[next]
		s.mu.Lock()
		ctx := s.loadCtx
		s.mu.Unlock()

		if err := m.Grid.Load(ctx, s.MapSeed(m, seed)); err != nil {
			s.fail(next, err)
		}
		return
	}
	s.finish()
}

// finish - этап завершения: сброс полей освещения и локальной карты
func (s *Session) finish() {
	total := s.stages()
	title := stageLabel(LabelFinalize, total-1, total)
	s.emit(float64(total-1)/float64(total), title, false)
	s.emit(0, LabelFinalize, true)

	for _, m := range s.maps {
		m.Light = world.NewLightField(m.Grid, s.cfg.Light.SeeRange)
	}
	s.local = 0

	s.mu.Lock()
	s.state = StateReady
	s.stage = len(s.maps)
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.emit(1, world.LabelDone, true)
	s.emit(1, world.LabelDone, false)
	s.log.Info("✅ Мир загружен: seed=%d, карт=%d", s.Seed(), len(s.maps))
}

// fail фиксирует ошибку загрузки, если она относится к текущему этапу
func (s *Session) fail(idx int, err error) {
	s.mu.Lock()
	current := s.state == StateLoading && s.stage == idx
	if current {
		s.state = StateFailed
		s.lastErr = err
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
	}
	s.mu.Unlock()

	if !current {
		if !errors.Is(err, context.Canceled) {
			s.log.Warn("Карта %s: %v", s.maps[idx].Name(), err)
		}
		return
	}
	s.log.Error("❌ Загрузка мира прервана на карте %s: %v", s.maps[idx].Name(), err)
}
