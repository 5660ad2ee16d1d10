package config

import (
	"os"
	"strconv"

	"github.com/annel0/terrain-editor/internal/cache"
	"github.com/annel0/terrain-editor/internal/observability"
	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации редактора.
type Config struct {
	Editor   EditorConfig                `yaml:"editor"`
	Brush    BrushConfig                 `yaml:"brush"`
	Textures TexturesConfig              `yaml:"textures"`
	Storage  StorageConfig               `yaml:"storage"`
	Server   ServerConfig                `yaml:"server"`
	Preview  PreviewConfig               `yaml:"preview"`
	Cache    cache.CacheConfig           `yaml:"cache"`
	Tracing  observability.TracingConfig `yaml:"tracing"`
	Logging  LoggingConfig               `yaml:"logging"`
}

type EditorConfig struct {
	BigAlpha      bool    `yaml:"big_alpha"`
	DoNotFixAlpha bool    `yaml:"do_not_fix_alpha"`
	DetailSize    float64 `yaml:"detail_size"`  // размер детали для анимации текстур
	AlphaFormat   string  `yaml:"alpha_format"` // compressed | big | legacy
	Seed          int64   `yaml:"seed"`
}

type BrushConfig struct {
	Radius   float64 `yaml:"radius"`
	Hardness float64 `yaml:"hardness"`
	Pressure float64 `yaml:"pressure"`
	Strength float64 `yaml:"strength"`
}

type TexturesConfig struct {
	Root string `yaml:"root"`
	// Palette текстуры автотекстурирования по возрастанию высоты шума
	Palette []string `yaml:"palette"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

type ServerConfig struct {
	HTTPPort int `yaml:"http_port"`
	// JWTSecret ключ HMAC в base64; пустой отключает проверку токенов
	JWTSecret string `yaml:"jwt_secret"`
}

type PreviewConfig struct {
	Scale int `yaml:"scale"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default возвращает конфигурацию со всеми значениями по умолчанию
func Default() *Config {
	return &Config{
		Editor: EditorConfig{
			BigAlpha:    true,
			DetailSize:  8,
			AlphaFormat: "compressed",
			Seed:        1,
		},
		Brush: BrushConfig{
			Radius:   15,
			Hardness: 0.5,
			Pressure: 0.9,
			Strength: 255,
		},
		Textures: TexturesConfig{
			Root: "textures",
			Palette: []string{
				"tileset/generic/sand.blp",
				"tileset/generic/grass.blp",
				"tileset/generic/dirt.blp",
				"tileset/generic/rock.blp",
			},
		},
		Storage: StorageConfig{Path: "data"},
		Preview: PreviewConfig{Scale: 4},
		Logging: LoggingConfig{Level: "INFO"},
	}
}

// GetJWTSecret возвращает ключ из конфигурации или ENV TERRAIN_JWT_SECRET
func (s *ServerConfig) GetJWTSecret() string {
	if s.JWTSecret != "" {
		return s.JWTSecret
	}
	return os.Getenv("TERRAIN_JWT_SECRET")
}

// GetHTTPPort возвращает порт HTTP API с поддержкой fallback значений
func (s *ServerConfig) GetHTTPPort() int {
	return getPortWithEnvFallback(s.HTTPPort, "TERRAIN_HTTP_PORT", 8090)
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

// Load читает YAML файл поверх значений по умолчанию.
// Если path == "", берётся ENV TERRAIN_CONFIG; если и он пуст, возвращается Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("TERRAIN_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
