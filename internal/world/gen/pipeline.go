package gen

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/annel0/tileworld/internal/world/noise"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Phase - этап фоновой генерации
type Phase int

const (
	PhaseNoise Phase = iota + 1
	PhaseClassify
)

func (p Phase) String() string {
	switch p {
	case PhaseNoise:
		return "noise"
	case PhaseClassify:
		return "classify"
	default:
		return "unknown"
	}
}

// Диапазоны общего прогресса по этапам. Отметку 1.0 ставит публикация результата.
const (
	NoiseProgressEnd    = 0.40
	ClassifyProgressEnd = 0.95
)

const (
	LabelNoise    = "Генерация шума"
	LabelClassify = "Классификация тайлов"
)

// moistureSalt отделяет сид поля влажности от сида высот
const moistureSalt int64 = 0x5bd1e995

// Hooks - колбэки фонового прогона. Вызываются из горутины генерации.
type Hooks struct {
	Progress      ProgressFunc
	PhaseProgress ProgressFunc
	Enter         func(Phase)
}

// Pipeline описывает генерацию одной карты: шум → (спад, заполнение провалов) → классификация.
// Width, Height и Seed в Noise/Moisture подставляются из самого Pipeline.
type Pipeline struct {
	Width  int
	Height int
	Depth  int

	Noise    noise.Params
	Moisture *noise.Params
	Falloff  *Falloff
	Gaps     *GapFill

	Classifier Classifier
}

var tracer = otel.Tracer("github.com/annel0/tileworld/internal/world/gen")

func (p *Pipeline) elevationParams(seed int64) noise.Params {
	np := p.Noise
	np.Width, np.Height, np.Seed = p.Width, p.Height, seed
	return np
}

func (p *Pipeline) moistureParams(seed int64) (noise.Params, bool) {
	if p.Moisture == nil || p.Classifier == nil || !p.Classifier.UsesMoisture() {
		return noise.Params{}, false
	}
	mp := *p.Moisture
	mp.Width, mp.Height, mp.Seed = p.Width, p.Height, seed^moistureSalt
	return mp, true
}

// Validate проверяет параметры до запуска фоновой работы
func (p *Pipeline) Validate() error {
	if p.Classifier == nil {
		return fmt.Errorf("%w: classifier is not set", noise.ErrInvalidParams)
	}
	if err := p.elevationParams(0).Validate(); err != nil {
		return err
	}
	if mp, ok := p.moistureParams(0); ok {
		if err := mp.Validate(); err != nil {
			return fmt.Errorf("moisture: %w", err)
		}
	}
	if p.Depth < p.Classifier.Layers() {
		return fmt.Errorf("%w: depth %d, need %d", ErrTooFewLayers, p.Depth, p.Classifier.Layers())
	}
	return nil
}

// Run выполняет генерацию синхронно. Вызывающий сам решает, в какой горутине.
func (p *Pipeline) Run(ctx context.Context, seed int64, hooks Hooks) (*Buffer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "gen.Run", trace.WithAttributes(
		attribute.Int64("world.seed", seed),
		attribute.Int("world.width", p.Width),
		attribute.Int("world.height", p.Height),
		attribute.Int("world.depth", p.Depth),
	))
	defer span.End()

	in, err := p.runNoise(ctx, seed, hooks)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "noise")
		return nil, err
	}

	out, err := p.runClassify(ctx, seed, in, hooks)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "classify")
		return nil, err
	}
	return out, nil
}

func (p *Pipeline) runNoise(ctx context.Context, seed int64, hooks Hooks) (Input, error) {
	ctx, span := tracer.Start(ctx, "gen.noise")
	defer span.End()

	if hooks.Enter != nil {
		hooks.Enter(PhaseNoise)
	}

	ep := p.elevationParams(seed)
	mp, withMoisture := p.moistureParams(seed)

	rows := p.Height
	if withMoisture {
		rows *= 2
	}
	rep := NewReporter(hooks.Progress, hooks.PhaseProgress, LabelNoise, rows, 0, NoiseProgressEnd)
	rep.Start()
	onRow := func(int, int) { rep.Advance(1) }

	var in Input
	elev, err := noise.GenerateContext(ctx, ep, onRow)
	if err != nil {
		return in, err
	}
	if p.Falloff != nil {
		p.Falloff.Apply(elev)
	}
	if p.Gaps != nil {
		elev = p.Gaps.Apply(elev)
	}
	in.Elevation = elev

	if withMoisture {
		moist, err := noise.GenerateContext(ctx, mp, onRow)
		if err != nil {
			return in, err
		}
		in.Moisture = moist
	}
	rep.Finish()
	return in, nil
}

func (p *Pipeline) runClassify(ctx context.Context, seed int64, in Input, hooks Hooks) (*Buffer, error) {
	ctx, span := tracer.Start(ctx, "gen.classify")
	defer span.End()

	if hooks.Enter != nil {
		hooks.Enter(PhaseClassify)
	}

	in.Rand = rand.New(rand.NewSource(seed))
	out := NewBuffer(p.Width, p.Height, p.Depth)

	rep := NewReporter(hooks.Progress, hooks.PhaseProgress, LabelClassify,
		p.Width*p.Height, NoiseProgressEnd, ClassifyProgressEnd)
	rep.Start()
	if err := p.Classifier.Classify(ctx, in, out, rep); err != nil {
		return nil, err
	}
	rep.Finish()
	return out, nil
}
