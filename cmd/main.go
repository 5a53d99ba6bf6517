package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"GazetteHere-App/internal/domain/model"
	"GazetteHere-App/internal/domain/repository"
	"GazetteHere-App/internal/domain/service"
	"GazetteHere-App/internal/handler"
	"GazetteHere-App/internal/infrastructure/ai"
	"GazetteHere-App/internal/infrastructure/config"
	"GazetteHere-App/internal/infrastructure/geocoding"
	"GazetteHere-App/internal/infrastructure/logger"
	"GazetteHere-App/internal/infrastructure/sensor"
	"GazetteHere-App/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var (
	configPath string
	debug      bool
)

func main() {
	root := &cobra.Command{
		Use:           "gazettehere",
		Short:         "Location-aware conversational gazetteer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(newServeCommand(), newReplayCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

// bootstrap は .env と設定ファイルを読み込みロガーを作成する
func bootstrap() (*config.Config, *zap.SugaredLogger, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using system environment variables")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if debug {
		cfg.LogLevel = "debug"
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// newGenerator はバックエンドが有効な場合のみサーキットブレーカー付きの生成クライアントを返す
func newGenerator(cfg *config.Config, log *zap.SugaredLogger) repository.GenerationRepository {
	if !cfg.BackendEnabled() {
		log.Warn("⚠️ OPENAI_API_KEY が未設定のため、全ての応答をフォールバックで返します")
		return nil
	}
	client := ai.NewGenerationClient(cfg.BackendEndpoint())
	return ai.NewCircuitBreakerGenerator(client, cfg.CircuitBreaker, log)
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the generation proxy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			if !debug {
				gin.SetMode(gin.ReleaseMode)
			}

			// 依存関係の組み立て
			pushSensor := sensor.NewPushSensor()
			acquisition := service.NewPositionAcquisitionService(pushSensor, cfg.Acquisition, log)
			geocoder := geocoding.NewNominatimClient(cfg.Geocoding.BaseURL)
			synthesizer := service.NewResponseSynthesizer(newGenerator(cfg, log), service.NewFallbackResponder(), cfg.GenerationConfig(), log)
			gazetteerUseCase := usecase.NewGazetteerUseCase(acquisition, pushSensor, geocoder, synthesizer, log)

			var forwarder handler.ChatCompletionForwarder
			if cfg.OpenAIAPIKey != "" {
				client := ai.NewOpenAIClient(cfg.OpenAIAPIKey)
				if cfg.Proxy.OpenAIBaseURL != "" {
					client = client.WithBaseURL(cfg.Proxy.OpenAIBaseURL)
				}
				forwarder = client
			}
			var limiter *rate.Limiter
			if cfg.Proxy.RequestsPerMinute > 0 {
				limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.Proxy.RequestsPerMinute)), cfg.Proxy.Burst)
			}

			router := handler.NewRouter(
				handler.NewGenerationProxyHandler(forwarder, limiter, log),
				handler.NewGazetteerHandler(gazetteerUseCase, pushSensor),
				log,
			)

			server := &http.Server{
				Addr:              cfg.Addr(),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Infof("🚀 GazetteHere server starting on %s...", cfg.Addr())
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("サーバーの起動に失敗: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				log.Info("🛑 シャットダウンしています...")
				gazetteerUseCase.StopTracking()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})

			return g.Wait()
		},
	}
}

func newReplayCommand() *cobra.Command {
	var (
		file     string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Run continuous tracking over recorded readings and print the transcript",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			replaySensor, err := sensor.OpenReplayFile(file, interval)
			if err != nil {
				return err
			}
			log.Infof("📂 %d件の測位結果を再生します: %s", replaySensor.Len(), file)

			acquisition := service.NewPositionAcquisitionService(replaySensor, cfg.Acquisition, log)
			geocoder := geocoding.NewNominatimClient(cfg.Geocoding.BaseURL)
			synthesizer := service.NewResponseSynthesizer(newGenerator(cfg, log), service.NewFallbackResponder(), cfg.GenerationConfig(), log)
			gazetteerUseCase := usecase.NewGazetteerUseCase(acquisition, replaySensor, geocoder, synthesizer, log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if _, err := gazetteerUseCase.StartTracking(ctx); err != nil {
				return fmt.Errorf("追跡の開始に失敗: %w", err)
			}

			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
		wait:
			for {
				select {
				case <-ctx.Done():
					gazetteerUseCase.StopTracking()
					break wait
				case <-ticker.C:
					if gazetteerUseCase.TrackingStatus().Mode == model.TrackingIdle {
						break wait
					}
				}
			}

			snapshot := gazetteerUseCase.Snapshot()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "session: %s\n", snapshot.SessionID)
			fmt.Fprintf(out, "location: %s\n", snapshot.FormattedName)
			for _, entry := range snapshot.Transcript {
				fmt.Fprintf(out, "[%s] %s: %s\n", entry.At.Format(time.TimeOnly), entry.Kind, entry.Text)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "JSON-lines file of recorded readings")
	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "delay between replayed readings")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
