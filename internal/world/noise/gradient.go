package noise

import (
	"math"
	"math/rand"

	"github.com/aquilax/go-perlin"
)

// Source - двумерный источник когерентного шума, значения примерно в [-1, 1]
type Source interface {
	Noise2D(x, y float64) float64
}

// Gradient - градиентный шум с таблицей перестановок, перемешанной по сиду
type Gradient struct {
	perm [512]int
}

// NewGradient строит таблицу перестановок: Фишер–Йетс над 0..255 и дублирование до 512
func NewGradient(rng *rand.Rand) *Gradient {
	g := &Gradient{}

	var base [256]int
	for i := range base {
		base[i] = i
	}
	for i := 255; i > 0; i-- {
		j := rng.Intn(i + 1)
		base[i], base[j] = base[j], base[i]
	}

	for i := 0; i < 256; i++ {
		g.perm[i] = base[i]
		g.perm[i+256] = base[i]
	}
	return g
}

// fade - кривая 6t^5 - 15t^4 + 10t^3
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(t, a, b float64) float64 {
	return a + t*(b-a)
}

// grad выбирает одно из 8 направлений по младшим трём битам хеша
func grad(hash int, x, y float64) float64 {
	switch hash & 7 {
	case 0:
		return x
	case 1:
		return -x
	case 2:
		return y
	case 3:
		return -y
	case 4:
		return x + y
	case 5:
		return -x + y
	case 6:
		return x - y
	default:
		return -x - y
	}
}

// Noise2D возвращает значение шума в точке (x, y)
func (g *Gradient) Noise2D(x, y float64) float64 {
	fx := math.Floor(x)
	fy := math.Floor(y)

	xi := int(fx) & 255
	yi := int(fy) & 255

	xf := x - fx
	yf := y - fy

	u := fade(xf)
	v := fade(yf)

	aa := g.perm[g.perm[xi]+yi]
	ab := g.perm[g.perm[xi]+yi+1]
	ba := g.perm[g.perm[xi+1]+yi]
	bb := g.perm[g.perm[xi+1]+yi+1]

	x1 := lerp(u, grad(aa, xf, yf), grad(ba, xf-1, yf))
	x2 := lerp(u, grad(ab, xf, yf-1), grad(bb, xf-1, yf-1))
	return lerp(v, x1, x2)
}

// perlinSource адаптирует aquilax/go-perlin к интерфейсу Source.
// Октавы считаются общим циклом Generate, поэтому здесь n = 1.
type perlinSource struct {
	p *perlin.Perlin
}

// NewPerlinSource создаёт источник на базе go-perlin
func NewPerlinSource(seed int64) Source {
	alpha := 2.0 // сглаживание
	beta := 2.0  // частота
	return &perlinSource{p: perlin.NewPerlin(alpha, beta, 1, seed)}
}

func (s *perlinSource) Noise2D(x, y float64) float64 {
	return s.p.Noise2D(x, y)
}
