package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	cfgpkg "github.com/local/readorder/internal/config"
	"github.com/local/readorder/internal/converter"
	"github.com/local/readorder/internal/detector"
	"github.com/local/readorder/internal/dispatcher"
	"github.com/local/readorder/internal/limiter"
	logpkg "github.com/local/readorder/internal/logger"
	"github.com/local/readorder/internal/metrics"
	"github.com/local/readorder/internal/ocrclient"
	"github.com/local/readorder/internal/orchestrator"
	"github.com/local/readorder/internal/queue"
	"github.com/local/readorder/internal/statuscheck"
	"github.com/local/readorder/internal/storage"
	"github.com/local/readorder/internal/store"
	"github.com/local/readorder/internal/web"
)

func main() {
	_ = godotenv.Load()
	cfg := cfgpkg.FromEnv()

	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	metrics.Init()

	rq, err := queue.NewRedisQueue(cfg.Queue.RedisURL, cfg.Queue.Stream, cfg.Queue.Group, cfg.Queue.PollInterval)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rq.Close()

	rs, err := store.NewRedisStatus(cfg.Queue.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init status store")
	}
	defer rs.Close()

	ps, err := store.NewPageStore(cfg.Queue.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init page store")
	}
	defer ps.Close()

	es, err := store.NewElementStore(cfg.Queue.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init element store")
	}
	defer es.Close()

	var results orchestrator.ResultStore
	if cfg.Storage.Bucket != "" {
		s3c, err := storage.NewS3Client(context.Background(), cfg.Storage.Bucket)
		if err != nil {
			log.Fatal().Err(err).Str("bucket", cfg.Storage.Bucket).Msg("failed to init s3 client")
		}
		results = s3ResultStore{c: s3c}
	} else {
		log.Warn().Msg("S3_BUCKET not set, result upload disabled")
	}

	lo := converter.NewLibreOffice(2)
	if err := lo.CheckInstallation(); err != nil {
		log.Warn().Err(err).Msg("libreoffice unavailable, office conversion disabled")
		lo = nil
	}

	orch := orchestrator.New(cfg, orchestrator.Dependencies{
		Queue:    rq,
		Status:   rs,
		Pages:    ps,
		Elements: es,
		Results:  results,
		Convert:  converterOrNil(lo),
	})
	mux := http.NewServeMux()
	orch.RegisterRoutes(mux)
	mux.Handle("/metrics", metrics.Handler())

	checker := statuscheck.New(statuscheck.Options{
		Redis:        rq,
		S3Bucket:     cfg.Storage.Bucket,
		DetectorURL:  cfg.Detector.URL,
		OCRURL:       cfg.OCR.URL,
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
	})
	mux.HandleFunc("/health/full", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(checker.Summary(r.Context()))
	})

	dash := web.New(checker)
	dash.RegisterRoutes(mux)

	runDispatcher := os.Getenv("RUN_DISPATCHER")
	if runDispatcher == "" || runDispatcher == "1" || runDispatcher == "true" {
		breaker, err := limiter.New(limiter.Options{
			RedisURL:    cfg.Queue.RedisURL,
			MaxInflight: cfg.Worker.MaxInflightPerKey,
			BaseBackoff: cfg.Worker.BreakerBaseBackoff,
			MaxBackoff:  cfg.Worker.BreakerMaxBackoff,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init rate limiter")
		}
		defer breaker.CloseClient()

		det := detector.New(cfg.Detector.URL, cfg.Detector.Timeout)
		ocr := ocrclient.New(cfg.OCR.URL, cfg.OCR.Timeout)
		disp := dispatcher.New(cfg, rq, det, ocr, breaker)
		disp.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = disp.Stop(ctx)
		}()
	}

	go pollQueueDepths(rq)
	go sweepTemps()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		log.Info().Str("port", port).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info().Msg("shutdown complete")
}

// s3ResultStore bridges the storage client to the orchestrator's narrower
// result interface.
type s3ResultStore struct {
	c *storage.S3Client
}

func (s s3ResultStore) Upload(ctx context.Context, key string, data []byte, password string, meta *orchestrator.FileMeta) error {
	var m *storage.FileMetadata
	if meta != nil {
		m = &storage.FileMetadata{
			OriginalName: meta.OriginalName,
			ContentType:  meta.ContentType,
			Size:         int64(len(data)),
		}
	}
	return s.c.Upload(ctx, key, data, password, m)
}

func (s s3ResultStore) ListNextVersion(ctx context.Context, baseKey string) (int, error) {
	return s.c.ListNextVersion(ctx, baseKey)
}

// converterOrNil avoids storing a typed nil in the interface field.
func converterOrNil(lo *converter.LibreOffice) orchestrator.Converter {
	if lo == nil {
		return nil
	}
	return lo
}

func pollQueueDepths(rq *queue.RedisQueue) {
	t := time.NewTicker(15 * time.Second)
	defer t.Stop()
	for range t.C {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		ready, delayed, dlq, err := rq.Depths(ctx)
		cancel()
		if err != nil {
			continue
		}
		metrics.SetQueueDepth("ready", ready)
		metrics.SetQueueDepth("delayed", delayed)
		metrics.SetQueueDepth("dlq", dlq)
	}
}

func sweepTemps() {
	t := time.NewTicker(30 * time.Minute)
	defer t.Stop()
	for range t.C {
		orchestrator.CleanupTemps(time.Hour)
	}
}
