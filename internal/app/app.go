package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/hitoshi/disneydex/internal/config"
	"github.com/hitoshi/disneydex/internal/disneyapi"
	"github.com/hitoshi/disneydex/internal/handler"
	"github.com/hitoshi/disneydex/internal/logger"
	"github.com/hitoshi/disneydex/internal/metrics"
	"github.com/hitoshi/disneydex/internal/middleware"
	"github.com/hitoshi/disneydex/internal/security"
	"github.com/hitoshi/disneydex/internal/viewsession"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, *slog.Logger, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	log := logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, log, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, log, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	log.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("disney_api_base_url", cfg.DisneyAPIBaseURL),
	)

	return runServe(cfg, log)
}

// NewCharacterClient は設定に従ってDisney APIクライアントを生成する。
// AllowPrivateAPIが無効の場合はベースURLを事前検証し、SSRF防止機能付きのHTTPクライアントを使う。
func NewCharacterClient(cfg *config.Config, log *slog.Logger, mc metrics.MetricsCollector) (*disneyapi.Client, error) {
	httpClient := &http.Client{Timeout: cfg.DisneyAPITimeout}

	if !cfg.AllowPrivateAPI {
		guard := security.NewSSRFGuard()
		if err := guard.ValidateURL(cfg.DisneyAPIBaseURL); err != nil {
			return nil, fmt.Errorf("disney api base url rejected: %w", err)
		}
		port, err := security.PortOf(cfg.DisneyAPIBaseURL)
		if err != nil {
			return nil, fmt.Errorf("disney api base url rejected: %w", err)
		}
		httpClient = guard.NewSafeClient(cfg.DisneyAPITimeout, port)
	}

	return disneyapi.NewClient(httpClient, log,
		disneyapi.WithBaseURL(cfg.DisneyAPIBaseURL),
		disneyapi.WithTimeout(cfg.DisneyAPITimeout),
		disneyapi.WithMaxBodySize(cfg.DisneyAPIMaxSize),
		disneyapi.WithRateLimit(rate.Limit(cfg.DisneyAPIRate), 1),
		disneyapi.WithMetrics(mc),
	), nil
}

// Server は依存関係をワイヤリングしたWebサーバー。
type Server struct {
	logger      *slog.Logger
	http        *http.Server
	sessions    *viewsession.Store
	rateLimiter *middleware.RateLimiter
}

// NewServer は全依存関係をワイヤリングしたServerを生成する。
// regにはアプリケーションのメトリクスを登録し、/metricsで公開する。
func NewServer(cfg *config.Config, log *slog.Logger, reg *prometheus.Registry) (*Server, error) {
	// 1. メトリクス
	collector := metrics.NewCollector(reg)

	// 2. Disney APIクライアント
	client, err := NewCharacterClient(cfg, log, collector)
	if err != nil {
		return nil, err
	}

	// 3. 画面状態とレート制限
	sessions := viewsession.NewStore(client, log, viewsession.Config{
		TTL:      cfg.ViewSessionTTL,
		PageSize: cfg.PageSize,
		Metrics:  collector,
	})
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral))

	// 4. ルーター
	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		Sessions:          sessions,
		Sanitizer:         security.NewTextSanitizer(),
		Source:            client,
		PageSize:          cfg.PageSize,
		Metrics:           collector,
		RateLimiter:       rateLimiter,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CookieSecure:      cfg.CookieSecure,
		CookieDomain:      cfg.CookieDomain,
		MetricsGatherer:   reg,
	})

	return &Server{
		logger: log,
		http: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15*time.Second + cfg.DisneyAPITimeout,
			IdleTimeout:  60 * time.Second,
		},
		sessions:    sessions,
		rateLimiter: rateLimiter,
	}, nil
}

// Handler はサーバーのHTTPハンドラーを返す。
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Serve はlnでHTTPリクエストを受け付け、ctxがキャンセルされるとグレースフルシャットダウンする。
// 終了時に画面状態とレート制限のバックグラウンド処理も停止する。
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.rateLimiter.Stop()
	defer s.sessions.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server starting",
			slog.String("addr", ln.Addr().String()),
		)
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down web server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("web server stopped gracefully")
	return nil
}

// runServe はWebサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv, err := NewServer(cfg, log, reg)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Addr(), err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Serve(ctx, ln)
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
