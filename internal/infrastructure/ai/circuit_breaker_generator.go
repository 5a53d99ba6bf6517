package ai

import (
	"context"
	"errors"
	"time"

	"GazetteHere-App/internal/domain/model"
	"GazetteHere-App/internal/domain/repository"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	defaultCBMaxFailures uint32        = 3
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// CircuitBreakerConfig はサーキットブレーカーの設定
type CircuitBreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`  // open から half-open になるまでの時間
	Interval    time.Duration `yaml:"interval"` // closed 状態で失敗回数をリセットする周期
}

// CircuitBreakerGenerator は生成バックエンドの連続障害時に即座に失敗させるラッパー
// 失敗しても再試行はせず、呼び出し側がフォールバックに切り替える
type CircuitBreakerGenerator struct {
	inner   repository.GenerationRepository
	breaker *gobreaker.CircuitBreaker[string]
}

// NewCircuitBreakerGenerator は inner をサーキットブレーカーで包む
func NewCircuitBreakerGenerator(inner repository.GenerationRepository, cfg CircuitBreakerConfig, logger *zap.SugaredLogger) *CircuitBreakerGenerator {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "generation-backend",
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf("🔌 サーキットブレーカーの状態変化 (%s): %s -> %s", name, from.String(), to.String())
		},
		IsSuccessful: func(err error) bool {
			return !IsBackendFailure(err)
		},
	})

	return &CircuitBreakerGenerator{inner: inner, breaker: cb}
}

// Generate はサーキットブレーカー経由で生成を呼び出す
func (g *CircuitBreakerGenerator) Generate(ctx context.Context, messages []model.Message, cfg model.GenerationConfig) (string, error) {
	reply, err := g.breaker.Execute(func() (string, error) {
		return g.inner.Generate(ctx, messages, cfg)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", &model.BackendError{Kind: model.BackendGeneric, Message: "generation backend temporarily unavailable", Err: err}
		}
		return "", err
	}
	return reply, nil
}

// State 現在の状態
func (g *CircuitBreakerGenerator) State() gobreaker.State {
	return g.breaker.State()
}

var _ repository.GenerationRepository = (*CircuitBreakerGenerator)(nil)
