package gen

// ProgressFunc получает долю выполнения в [0, 1] и короткую подпись этапа
type ProgressFunc func(fraction float64, label string)

// reportSteps - сколько раз за этап Reporter сообщает о прогрессе (~каждые 5%)
const reportSteps = 20

// Reporter прореживает отчёты о прогрессе длинного этапа.
// Прогресс этапа (phase) идёт от 0 до 1, общий (overall) отображается
// в отрезок [lo, hi].
type Reporter struct {
	overall ProgressFunc
	phase   ProgressFunc
	label   string
	lo, hi  float64

	total  int
	done   int
	stride int
	next   int
	closed bool
}

// NewReporter создаёт Reporter для этапа из total единиц работы.
// Любой из колбэков может быть nil.
func NewReporter(overall, phase ProgressFunc, label string, total int, lo, hi float64) *Reporter {
	if total < 1 {
		total = 1
	}
	stride := total / reportSteps
	if stride < 1 {
		stride = 1
	}
	return &Reporter{
		overall: overall,
		phase:   phase,
		label:   label,
		lo:      lo,
		hi:      hi,
		total:   total,
		stride:  stride,
		next:    stride,
	}
}

// Start сообщает о начале этапа (доля 0)
func (r *Reporter) Start() {
	r.emit(0)
}

// Advance отмечает n выполненных единиц работы
func (r *Reporter) Advance(n int) {
	if r.closed {
		return
	}
	r.done += n
	if r.done >= r.total {
		r.Finish()
		return
	}
	if r.done >= r.next {
		r.emit(float64(r.done) / float64(r.total))
		for r.next <= r.done {
			r.next += r.stride
		}
	}
}

// Finish сообщает о завершении этапа. Повторные вызовы ничего не делают.
func (r *Reporter) Finish() {
	if r.closed {
		return
	}
	r.closed = true
	r.done = r.total
	r.emit(1)
}

func (r *Reporter) emit(frac float64) {
	if r.phase != nil {
		r.phase(frac, r.label)
	}
	if r.overall != nil {
		r.overall(r.lo+(r.hi-r.lo)*frac, r.label)
	}
}
