package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/annel0/tileworld/internal/world/gen"
	"github.com/annel0/tileworld/internal/world/noise"
	"gopkg.in/yaml.v3"
)

// ErrMissingSeed - сид мира не задан. Подставлять значение нельзя:
// карта должна воспроизводиться по конфигу.
var ErrMissingSeed = errors.New("config: world.seed is required")

// ErrInvalidConfig - прочие ошибки конфигурации
var ErrInvalidConfig = errors.New("config: invalid")

// Режимы классификации карты
const (
	ModeBiome = "biome"
	ModeBands = "bands"
)

// Переменные окружения
const (
	EnvConfigPath = "TILEWORLD_CONFIG"
	EnvSeed       = "TILEWORLD_SEED"
	EnvRESTPort   = "TILEWORLD_REST_PORT"
)

// Config корневая структура конфигурации приложения.
type Config struct {
	World      WorldConfig      `yaml:"world"`
	Durability DurabilityConfig `yaml:"durability"`
	Light      LightConfig      `yaml:"light"`
	Simulation SimulationConfig `yaml:"simulation"`
	Server     ServerConfig     `yaml:"server"`
	EventBus   EventBusConfig   `yaml:"eventbus"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type WorldConfig struct {
	Seed     *int64      `yaml:"seed"`
	TileSize int         `yaml:"tile_size"`
	Catalog  string      `yaml:"catalog"` // YAML-каталог тайлов; пусто - встроенный
	Maps     []MapConfig `yaml:"maps"`
}

// MapConfig - параметры генерации одной карты
type MapConfig struct {
	Name       string `yaml:"name"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Layers     int    `yaml:"layers"`
	Mode       string `yaml:"mode"`
	SeedOffset int64  `yaml:"seed_offset"` // сид карты = world.seed + seed_offset

	Noise    NoiseConfig          `yaml:"noise"`
	Moisture *NoiseConfig         `yaml:"moisture"`
	Falloff  *FalloffConfig       `yaml:"falloff"`
	Gaps     *GapsConfig          `yaml:"gaps"`
	Bands    BandsConfig          `yaml:"bands"`
	Biome    *gen.BiomeThresholds `yaml:"biome"`
}

type NoiseConfig struct {
	Scale       float64 `yaml:"scale"`
	Octaves     int     `yaml:"octaves"`
	Persistence float64 `yaml:"persistence"`
	Lacunarity  float64 `yaml:"lacunarity"`
	Algorithm   string  `yaml:"algorithm"`
}

type FalloffConfig struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
}

type GapsConfig struct {
	Threshold float64 `yaml:"threshold"`
	MaxGap    int     `yaml:"max_gap"`
}

type BandsConfig struct {
	Count int     `yaml:"count"`
	Width float64 `yaml:"width"`
}

// DurabilityConfig - параметры разрушения и восстановления тайлов
type DurabilityConfig struct {
	BreakScale float64 `yaml:"break_scale"`
	HitRate    float64 `yaml:"hit_rate"`    // урон в секунду
	RegenDelay float64 `yaml:"regen_delay"` // секунд без ударов до начала восстановления
	RegenRate  float64 `yaml:"regen_rate"`  // восстановление урона в секунду
}

type LightConfig struct {
	SeeRange int `yaml:"see_range"`
	Border   int `yaml:"border"`
}

type SimulationConfig struct {
	TickRate int `yaml:"tick_rate"` // шагов симуляции в секунду
}

type ServerConfig struct {
	Host     string `yaml:"host"`
	RESTPort int    `yaml:"rest_port"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"` // пусто - in-memory шина
	Stream    string `yaml:"stream"`
	Subject   string `yaml:"subject"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// Params переводит секцию шума в параметры генератора (размеры и сид задаёт пайплайн)
func (n NoiseConfig) Params() noise.Params {
	return noise.Params{
		Scale:       n.Scale,
		Octaves:     n.Octaves,
		Persistence: n.Persistence,
		Lacunarity:  n.Lacunarity,
		Algorithm:   noise.Algorithm(n.Algorithm),
	}
}

// MapSeed возвращает сид карты; вызывать после Validate
func (w WorldConfig) MapSeed(m MapConfig) int64 {
	return *w.Seed + m.SeedOffset
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, EnvRESTPort, 8088)
}

// Addr возвращает адрес REST сервера host:port
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.GetRESTPort())
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}
	return defaultPort
}

// Default возвращает конфигурацию двух карт 375×375: поверхность (биомы)
// и пещеры (полосы). Сид не задаётся.
func Default() *Config {
	surfaceBiome := gen.DefaultBiomeThresholds()
	return &Config{
		World: WorldConfig{
			TileSize: 32,
			Maps: []MapConfig{
				{
					Name:   "surface",
					Width:  375,
					Height: 375,
					Layers: 3,
					Mode:   ModeBiome,
					Noise: NoiseConfig{
						Scale: 60, Octaves: 4, Persistence: 0.5, Lacunarity: 2,
					},
					Moisture: &NoiseConfig{
						Scale: 90, Octaves: 3, Persistence: 0.5, Lacunarity: 2,
					},
					Falloff: &FalloffConfig{Start: 0, End: 0.3},
					Biome:   &surfaceBiome,
				},
				{
					Name:       "cave",
					Width:      375,
					Height:     375,
					Layers:     3,
					Mode:       ModeBands,
					SeedOffset: 1,
					Noise: NoiseConfig{
						Scale: 10, Octaves: 4, Persistence: 0.5, Lacunarity: 2,
					},
					Bands: BandsConfig{Count: 2, Width: 0.15},
					Gaps:  &GapsConfig{Threshold: 0.5, MaxGap: 2},
				},
			},
		},
		Durability: DurabilityConfig{
			BreakScale: 0.01,
			HitRate:    1,
			RegenDelay: 2,
			RegenRate:  0.5,
		},
		Light:      LightConfig{SeeRange: 2, Border: 2},
		Simulation: SimulationConfig{TickRate: 30},
		Server:     ServerConfig{Host: "0.0.0.0"},
		EventBus: EventBusConfig{
			Stream:    "TILEWORLD",
			Subject:   "tileworld",
			Retention: 24,
			Buffer:    1024,
		},
		Telemetry: TelemetryConfig{ServiceName: "tileworld"},
		Logging:   LoggingConfig{Level: "INFO", Dir: "logs"},
	}
}

// Load читает YAML поверх Default().
// Если path == "", берётся TILEWORLD_CONFIG; без файла возвращаются значения
// по умолчанию. TILEWORLD_SEED задаёт сид, если его нет в файле.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := Parse(data, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if cfg.World.Seed == nil {
		if env := os.Getenv(EnvSeed); env != "" {
			seed, err := strconv.ParseInt(env, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvSeed, env)
			}
			cfg.World.Seed = &seed
		}
	}
	return cfg, nil
}

// Parse разбирает YAML в cfg; неизвестные поля считаются ошибкой
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate проверяет конфигурацию до запуска генерации
func (c *Config) Validate() error {
	if c.World.Seed == nil {
		return ErrMissingSeed
	}
	if c.World.TileSize <= 0 {
		return fmt.Errorf("%w: world.tile_size must be > 0", ErrInvalidConfig)
	}
	if len(c.World.Maps) == 0 {
		return fmt.Errorf("%w: world.maps is empty", ErrInvalidConfig)
	}

	names := make(map[string]bool)
	for i, m := range c.World.Maps {
		if m.Name == "" {
			return fmt.Errorf("%w: world.maps[%d].name is empty", ErrInvalidConfig, i)
		}
		if names[m.Name] {
			return fmt.Errorf("%w: duplicate map %q", ErrInvalidConfig, m.Name)
		}
		names[m.Name] = true
		if err := m.validate(); err != nil {
			return fmt.Errorf("map %q: %w", m.Name, err)
		}
	}

	d := c.Durability
	if d.BreakScale <= 0 || d.HitRate < 0 || d.RegenDelay < 0 || d.RegenRate < 0 {
		return fmt.Errorf("%w: durability values must be non-negative, break_scale > 0", ErrInvalidConfig)
	}
	if c.Light.SeeRange < 0 || c.Light.Border < 0 {
		return fmt.Errorf("%w: light values must be non-negative", ErrInvalidConfig)
	}
	if c.Simulation.TickRate <= 0 {
		return fmt.Errorf("%w: simulation.tick_rate must be > 0", ErrInvalidConfig)
	}
	return nil
}

func (m MapConfig) validate() error {
	np := m.Noise.Params()
	np.Width, np.Height = m.Width, m.Height
	if err := np.Validate(); err != nil {
		return err
	}
	if m.Moisture != nil {
		mp := m.Moisture.Params()
		mp.Width, mp.Height = m.Width, m.Height
		if err := mp.Validate(); err != nil {
			return fmt.Errorf("moisture: %w", err)
		}
	}
	if m.Layers < 2 {
		return fmt.Errorf("%w: layers must be >= 2", ErrInvalidConfig)
	}
	switch m.Mode {
	case ModeBiome:
	case ModeBands:
		if m.Bands.Count < 1 || !(m.Bands.Width > 0) || m.Bands.Width > 1 {
			return fmt.Errorf("%w: bands.count >= 1 and 0 < bands.width <= 1", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, m.Mode)
	}
	if m.Falloff != nil && m.Falloff.End < m.Falloff.Start {
		return fmt.Errorf("%w: falloff.end < falloff.start", ErrInvalidConfig)
	}
	if m.Gaps != nil && m.Gaps.MaxGap < 1 {
		return fmt.Errorf("%w: gaps.max_gap must be >= 1", ErrInvalidConfig)
	}
	return nil
}
