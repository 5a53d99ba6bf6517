package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"GazetteHere-App/internal/domain/model"
	"GazetteHere-App/internal/domain/service"
	"GazetteHere-App/internal/infrastructure/ai"

	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定
type Config struct {
	Server         ServerConfig              `yaml:"server"`
	Generation     GenerationSettings        `yaml:"generation"`
	Proxy          ProxyConfig               `yaml:"proxy"`
	Geocoding      GeocodingConfig           `yaml:"geocoding"`
	Acquisition    service.AcquisitionPolicy `yaml:"acquisition"`
	CircuitBreaker ai.CircuitBreakerConfig   `yaml:"circuit_breaker"`
	LogLevel       string                    `yaml:"log_level"`

	// OpenAIAPIKey は環境変数 OPENAI_API_KEY からのみ読み込む
	OpenAIAPIKey string `yaml:"-"`
}

// ServerConfig HTTPサーバーの設定
type ServerConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// GenerationSettings 生成バックエンドの設定
type GenerationSettings struct {
	Model           string  `yaml:"model"`
	MaxTokens       int     `yaml:"max_tokens"`
	Temperature     float64 `yaml:"temperature"`
	BackendEndpoint string  `yaml:"backend_endpoint"` // 空の場合は同じプロセスのプロキシ
}

// ProxyConfig 生成プロキシの設定
type ProxyConfig struct {
	OpenAIBaseURL     string `yaml:"openai_base_url"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	Burst             int    `yaml:"burst"`
}

// GeocodingConfig ジオコーディングの設定
type GeocodingConfig struct {
	BaseURL string `yaml:"base_url"`
}

// Defaults は既定の設定
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "3000",
			ShutdownTimeout: 10 * time.Second,
		},
		Generation: GenerationSettings{
			Model:       model.DefaultModel,
			MaxTokens:   model.DefaultMaxTokens,
			Temperature: model.DefaultTemperature,
		},
		Proxy: ProxyConfig{
			RequestsPerMinute: 60,
			Burst:             10,
		},
		Acquisition: service.DefaultAcquisitionPolicy(),
		LogLevel:    "info",
	}
}

// Load はYAMLファイル（任意）を読み込み、環境変数で上書きする
// path が空、またはファイルが存在しない場合は既定値と環境変数のみを使う
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("設定ファイルのパースに失敗: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
	}

	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides は環境変数で設定を上書きする
func ApplyEnvOverrides(cfg *Config) error {
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")

	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("GAZETTE_BACKEND_ENDPOINT"); v != "" {
		cfg.Generation.BackendEndpoint = v
	}
	if v := os.Getenv("GAZETTE_MODEL"); v != "" {
		cfg.Generation.Model = v
	}
	if v := os.Getenv("GAZETTE_MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GAZETTE_MAX_TOKENS が不正です: %w", err)
		}
		cfg.Generation.MaxTokens = n
	}
	if v := os.Getenv("GAZETTE_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("GAZETTE_TEMPERATURE が不正です: %w", err)
		}
		cfg.Generation.Temperature = f
	}
	if v := os.Getenv("NOMINATIM_BASE_URL"); v != "" {
		cfg.Geocoding.BaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

// Validate は設定値を検証する
func Validate(cfg *Config) error {
	if _, err := strconv.Atoi(cfg.Server.Port); err != nil {
		return fmt.Errorf("ポート番号が不正です: %q", cfg.Server.Port)
	}
	if cfg.Generation.Model == "" {
		return fmt.Errorf("generation.model は必須です")
	}
	if cfg.Generation.MaxTokens <= 0 {
		return fmt.Errorf("generation.max_tokens は1以上を指定してください")
	}
	if cfg.Generation.Temperature < 0 || cfg.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature は0から2の範囲で指定してください")
	}
	if cfg.Proxy.RequestsPerMinute < 0 || cfg.Proxy.Burst < 0 {
		return fmt.Errorf("proxy のレート制限は0以上を指定してください")
	}
	return nil
}

// BackendEnabled 生成バックエンド連携が有効か（APIキーがない場合は全ての応答をフォールバックで返す）
func (c *Config) BackendEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// BackendEndpoint クライアントが送信するプロキシのURL
func (c *Config) BackendEndpoint() string {
	if c.Generation.BackendEndpoint != "" {
		return c.Generation.BackendEndpoint
	}
	return fmt.Sprintf("http://127.0.0.1:%s/api/openai", c.Server.Port)
}

// GenerationConfig 会話で使う生成設定（バックエンドが無効なら BackendEndpoint は空）
func (c *Config) GenerationConfig() model.GenerationConfig {
	cfg := model.GenerationConfig{
		Model:       c.Generation.Model,
		MaxTokens:   c.Generation.MaxTokens,
		Temperature: c.Generation.Temperature,
	}
	if c.BackendEnabled() {
		cfg.BackendEndpoint = c.BackendEndpoint()
	}
	return cfg
}

// Addr HTTPサーバーの待ち受けアドレス
func (c *Config) Addr() string {
	return ":" + c.Server.Port
}
