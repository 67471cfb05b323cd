package http

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"trustmark/internal/config"
	"trustmark/internal/domain"
	"trustmark/internal/infra/c2patool"
	"trustmark/internal/infra/crypto"
	"trustmark/internal/infra/db"
	"trustmark/internal/infra/ffprobe"
	"trustmark/internal/infra/hosted"
	"trustmark/internal/infra/policy"
	"trustmark/internal/infra/ratelimit"
	"trustmark/internal/infra/toolrunner"
	"trustmark/internal/infra/tracker"
	"trustmark/internal/infra/ytdlp"
	"trustmark/internal/usecase"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Server struct {
	cfg    config.Config
	store  *db.Store
	r      *gin.Engine
	logger *slog.Logger

	proofs   *usecase.ProofService
	verifier *usecase.MediaVerifier
	status   *tracker.Tracker

	rateLimiter       domain.RateLimiter
	rateLimitRequests int
	rateLimitWindow   time.Duration

	initErr error
}

func NewServer(cfg config.Config, store *db.Store) *Server {
	r := gin.New()
	r.Use(gin.Recovery(), requestID())

	s := &Server{cfg: cfg, store: store, r: r, logger: newLogger(cfg)}
	s.initDeps()
	s.routes()
	return s
}

// ServerDeps lets tests and alternate wiring swap any collaborator.
type ServerDeps struct {
	Proofs      *usecase.ProofService
	Verifier    *usecase.MediaVerifier
	RateLimiter domain.RateLimiter
	Logger      *slog.Logger
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery(), requestID())

	logger := deps.Logger
	if logger == nil {
		logger = newLogger(cfg)
	}
	s := &Server{
		cfg:      cfg,
		r:        r,
		logger:   logger,
		proofs:   deps.Proofs,
		verifier: deps.Verifier,
	}
	s.initRateLimit(deps.RateLimiter)
	s.routes()
	return s
}

func (s *Server) initDeps() {
	runner := toolrunner.New(s.logger)

	downloader := ytdlp.NewDownloader(
		s.cfg.YtDlpBin, s.cfg.DownloadTempDir, s.cfg.DownloadTimeout(), s.cfg.DownloadMaxBytes, runner, s.logger)
	inspector := c2patool.NewInspector(s.cfg.C2PAToolBin, s.cfg.C2PAToolTimeout(), runner, s.logger)
	probe := ffprobe.NewProbe(s.cfg.FFProbeBin, s.cfg.FFProbeTimeout(), runner, s.logger)
	hasher := crypto.FileHasher{}
	signer := crypto.NewSigner(s.cfg.SigningKeyPath)

	var hostedVerifier usecase.HostedVerifier = noHostedVerifier{}
	if s.cfg.HostedVerifierBaseURL != "" {
		hostedVerifier = hosted.NewClient(
			s.cfg.HostedVerifierBaseURL, s.cfg.HostedVerifierTimeout(), s.cfg.HostedVerifierMaxRetries, s.logger)
	}

	engine, err := policy.NewEngine(context.Background())
	if err != nil {
		s.initErr = err
		return
	}

	s.status = tracker.New(s.cfg.StatusTTL())
	s.verifier = usecase.NewMediaVerifier(
		hostedVerifier, downloader, inspector, hasher, s.status, s.cfg.MockMode, s.logger)

	var gdb *gorm.DB
	if s.store != nil {
		gdb = s.store.DB
	}
	s.proofs = usecase.NewProofService(usecase.ProofService{
		Verifier:    s.verifier,
		Downloader:  downloader,
		Tool:        inspector,
		Hasher:      hasher,
		Probe:       probe,
		Policy:      engine,
		Signer:      signer,
		Assets:      db.NewAssetRepository(gdb),
		Proofs:      db.NewProofRepository(gdb),
		Receipts:    db.NewReceiptRepository(gdb),
		Links:       db.NewLinkIndexRepository(gdb),
		Idempotency: db.NewIdempotencyRepository(gdb),
		TempDir:     s.cfg.DownloadTempDir,
		Logger:      s.logger,
	})

	s.initRateLimit(nil)
}

func (s *Server) initRateLimit(override domain.RateLimiter) {
	if override != nil {
		s.rateLimiter = override
	}
	if s.rateLimiter == nil && s.cfg.RateLimitRequests > 0 {
		if s.cfg.RedisAddr != "" {
			if limiter, err := ratelimit.NewRedisLimiter(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB, nil); err == nil {
				s.rateLimiter = limiter
			}
		}
		if s.rateLimiter == nil {
			s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{})
		}
	}
	s.rateLimitRequests = s.cfg.RateLimitRequests
	s.rateLimitWindow = s.cfg.RateLimitWindow()
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		mode := "sqlite"
		if s.cfg.PostgresDSN != "" {
			mode = "postgres"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": mode, "mock": s.cfg.MockMode})
	})

	v1 := s.r.Group("/v1")
	{
		v1.POST("/proofs/url", s.handleCreateURLProof)
		v1.POST("/proofs/file", s.handleCreateFileProof)
		v1.GET("/verify-trustmark/:trustmark_id", s.handleVerifyTrustmark)
		v1.GET("/verification-status/:run_id", s.handleVerificationStatus)
		// :trustmark_id carries the .svg suffix, e.g. /v1/badge/ab12cd34.svg
		v1.GET("/badge/:trustmark_id", s.handleBadge)
		v1.GET("/badge/:trustmark_id/embed", s.handleBadgeEmbed)
	}

	s.r.NoRoute(s.handleNoRoute)
}

func (s *Server) Run() error {
	if s.initErr != nil {
		return s.initErr
	}
	return s.r.Run(s.cfg.HTTPAddr)
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// noHostedVerifier stands in when no hosted service is configured; every
// call falls through to local verification.
type noHostedVerifier struct{}

func (noHostedVerifier) TryVerify(context.Context, string) (bool, *domain.ManifestCheckResult) {
	return false, nil
}
