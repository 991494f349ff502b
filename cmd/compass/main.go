package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/compasshq/compass/internal/ai"
	"github.com/compasshq/compass/internal/config"
	"github.com/compasshq/compass/internal/embedcache"
	"github.com/compasshq/compass/internal/filestore"
	"github.com/compasshq/compass/internal/graph"
	"github.com/compasshq/compass/internal/handler"
	"github.com/compasshq/compass/internal/job"
	"github.com/compasshq/compass/internal/middleware"
	"github.com/compasshq/compass/internal/repo"
	"github.com/compasshq/compass/internal/schedule"
	"github.com/compasshq/compass/internal/service"
	"github.com/compasshq/compass/internal/transcribe"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "compass",
		Short: "compass knowledge graph and transcription server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run compass server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	var transcribeIDs []string
	transcribeCmd := &cobra.Command{
		Use:   "transcribe",
		Short: "transcribe pending episodes and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(configPath)
			if err != nil {
				return err
			}
			return runTranscribe(cfg, transcribeIDs)
		},
	}
	transcribeCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	transcribeCmd.Flags().StringSliceVar(&transcribeIDs, "episode", nil, "episode ids to transcribe (default: all pending)")
	rootCmd.AddCommand(transcribeCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func setup(configPath string) (*config.Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
	return cfg, nil
}

type app struct {
	cfg           *config.Config
	db            *sql.DB
	graphClient   *graph.Client
	episodeRepo   *repo.EpisodeRepo
	podcastRepo   *repo.PodcastRepo
	cacheRepo     *repo.EmbeddingCacheRepo
	indexer       *service.IndexService
	search        *service.SearchService
	related       *service.RelatedService
	graphService  *service.GraphService
	transcription *service.TranscriptionService
	feeds         *service.FeedService
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := repo.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := repo.ApplyMigrations(db); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	graphClient, err := graph.NewClient(ctx, cfg.Graph)
	if err != nil {
		return nil, fmt.Errorf("connect graph store: %w", err)
	}
	if err := graphClient.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure graph schema: %w", err)
	}

	episodeRepo := repo.NewEpisodeRepo(db)
	podcastRepo := repo.NewPodcastRepo(db)
	cacheRepo := repo.NewEmbeddingCacheRepo(db)

	provider, err := ai.NewProvider(cfg.Embedding.Provider, cfg.Embedding.Data)
	if err != nil {
		return nil, fmt.Errorf("init embedding provider: %w", err)
	}
	embedder := ai.NewEmbedder(provider, cfg.Embedding.Model)
	embedder = embedcache.WrapDBCacheToEmbedder(embedder, cacheRepo)
	embedder = embedcache.WrapLruCacheToEmbedder(embedder, cfg.Embedding.CacheSize,
		time.Duration(cfg.Embedding.CacheTTLMinutes)*time.Minute)

	archive, err := filestore.New(cfg.AudioStore)
	if err != nil {
		return nil, fmt.Errorf("init audio store: %w", err)
	}

	pool := transcribe.NewPool(cfg.Transcription)
	downloader := transcribe.NewHTTPDownloader(cfg.Transcription.DownloadDir,
		time.Duration(cfg.Transcription.DownloadTimeout)*time.Second)

	indexer := service.NewIndexService(graphClient, embedder, cfg.Embedding.IndexQueueSize)
	transcription := service.NewTranscriptionService(
		episodeRepo,
		pool,
		downloader,
		archive,
		cfg.Transcription.ArchiveAudio,
		cfg.Transcription.BeamSize,
		cfg.Transcription.QueueSize,
	)

	return &app{
		cfg:           cfg,
		db:            db,
		graphClient:   graphClient,
		episodeRepo:   episodeRepo,
		podcastRepo:   podcastRepo,
		cacheRepo:     cacheRepo,
		indexer:       indexer,
		search:        service.NewSearchService(graphClient, embedder),
		related:       service.NewRelatedService(graphClient),
		graphService:  service.NewGraphService(graphClient),
		transcription: transcription,
		feeds:         service.NewFeedService(podcastRepo, episodeRepo),
	}, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.graphClient.Close(ctx); err != nil {
		logutil.GetLogger(ctx).Warn("close graph client", zap.Error(err))
	}
	if err := a.db.Close(); err != nil {
		logutil.GetLogger(ctx).Warn("close db", zap.Error(err))
	}
}

func runServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	a.indexer.Start(ctx)
	a.transcription.StartWorker(ctx)

	scheduler := schedule.NewCronScheduler()
	if err := scheduleJobs(scheduler, a); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	deps := handler.RouterDeps{
		Search:   handler.NewSearchHandler(a.search),
		Graph:    handler.NewGraphHandler(a.indexer, a.related, a.graphService),
		Episodes: handler.NewEpisodeHandler(a.episodeRepo, a.transcription),
		Podcasts: handler.NewPodcastHandler(a.podcastRepo, a.feeds),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

func scheduleJobs(scheduler *schedule.CronScheduler, a *app) error {
	cfg := a.cfg.Jobs
	jobs := []struct {
		job  schedule.Job
		spec string
	}{
		{job.NewFeedRefreshJob(a.feeds), cfg.FeedRefreshSpec},
		{job.NewTranscriptionSweepJob(a.transcription, cfg.TranscribeSweepLimit), cfg.TranscribeSweepSpec},
		{job.NewGraphReindexJob(a.episodeRepo, a.indexer, cfg.GraphReindexBatchSize), cfg.GraphReindexSpec},
		{job.NewEmbeddingCacheCleanupJob(a.cacheRepo, cfg.CacheKeepDays), cfg.CacheCleanupSpec},
	}
	for _, item := range jobs {
		if item.spec == "" {
			continue
		}
		if err := scheduler.AddJob(item.job, item.spec); err != nil {
			return err
		}
	}
	return nil
}

func runTranscribe(cfg *config.Config, episodeIDs []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	if len(episodeIDs) == 0 {
		pending, err := a.transcription.ListUntranscribed(ctx, cfg.Jobs.TranscribeSweepLimit)
		if err != nil {
			return err
		}
		for _, episode := range pending {
			episodeIDs = append(episodeIDs, episode.ID)
		}
	}
	if len(episodeIDs) == 0 {
		logutil.GetLogger(ctx).Info("no episodes pending transcription")
		return nil
	}

	results := a.transcription.TranscribeBatch(ctx, episodeIDs, service.TranscribeOptions{})
	failed := 0
	for _, id := range episodeIDs {
		result := results[id]
		if result.Success {
			logutil.GetLogger(ctx).Info("episode transcribed", zap.String("episode_id", id))
			continue
		}
		failed++
		logutil.GetLogger(ctx).Error("episode transcription failed",
			zap.String("episode_id", id), zap.String("error", result.Error))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d episodes failed", failed, len(episodeIDs))
	}
	return nil
}
