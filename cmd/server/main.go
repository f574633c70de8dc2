package main

import (
	"context"
	"log"
	"time"

	"ragchat-backend/config"
	"ragchat-backend/guard"
	"ragchat-backend/handlers"
	"ragchat-backend/retrieval"
	"ragchat-backend/service"
	"ragchat-backend/store"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env from the current directory or the project root.
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Printf("Warning: No .env file found, using environment variables")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger, err := initLogger(cfg.Debug)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	conversations, pool, err := initConversationStore(cfg)
	if err != nil {
		logger.Fatal("failed to initialize conversation store", zap.Error(err))
	}
	if pool != nil {
		defer pool.Close()
	}

	client := retrieval.NewClient(cfg.BaseURL, cfg.Token,
		retrieval.WithMetricType(cfg.MetricType),
		retrieval.WithDefaultTopK(cfg.TopK),
		retrieval.WithSearchTimeout(cfg.SearchTimeout),
		retrieval.WithDialogueTimeout(cfg.DialogueTimeout),
	)

	// The database may already exist on the vector service. Bootstrap
	// failures are logged and the server starts anyway.
	dbName := cfg.DatabaseName()
	bootstrapDatabase(context.Background(), client, dbName, cfg.SettleDelay, logger)

	opts := []service.ChatServiceOption{
		service.WithRetriever(client),
		service.WithConversationStore(conversations),
		service.WithGuard(guard.New(logger)),
		service.WithEvaluator(service.NewEvaluator(client, 2, logger)),
		service.WithLogger(logger),
		service.WithDatabase(dbName),
		service.WithMaxContextLength(cfg.MaxContextLength),
		service.WithRerankTopN(cfg.RerankTopN),
	}
	if cfg.RerankerURL != "" {
		opts = append(opts, service.WithRanker(
			retrieval.NewReranker(retrieval.NewHTTPScorer(cfg.RerankerURL))))
		logger.Info("reranker enabled", zap.String("url", cfg.RerankerURL))
	}
	chatService := service.NewChatService(opts...)

	chatHandler := handlers.NewChatHandler(chatService, conversations, logger)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	chatHandler.RegisterRoutes(r)

	logger.Info("server starting",
		zap.String("port", cfg.Port),
		zap.String("database", dbName),
		zap.String("conversation_store", cfg.StoreBackend))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

// bootstrapDatabase creates the vector database and uploads a small seed
// corpus so the search path works before a real corpus is loaded. The settle
// delay gives the service time to index the seed.
func bootstrapDatabase(ctx context.Context, client *retrieval.Client, dbName string, settle time.Duration, logger *zap.Logger) {
	if err := client.CreateDatabase(ctx, dbName); err != nil {
		logger.Warn("vector database creation failed, assuming it exists",
			zap.String("database", dbName),
			zap.Error(err))
		return
	}
	logger.Info("vector database ready", zap.String("database", dbName))

	seed := []retrieval.CorpusEntry{
		{File: "hello world, 网络安全测试", Metadata: map[string]interface{}{"description": "测试文件1"}},
		{File: "第二条测试文本", Metadata: map[string]interface{}{"description": "测试文件2"}},
		{File: "网络安全是指保护网络系统及其数据免受攻击、损坏或未经授权访问的过程。", Metadata: map[string]interface{}{"description": "网络安全定义"}},
		{File: "防火墙是一种网络安全系统,用于监控和控制传入和传出的网络流量。", Metadata: map[string]interface{}{"description": "防火墙定义"}},
	}
	if err := client.UploadFiles(ctx, dbName, seed); err != nil {
		logger.Warn("seed data upload failed", zap.Error(err))
		return
	}
	time.Sleep(settle)
}

func initLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// initConversationStore wires the configured backend. The returned pool is
// nil for the memory backend.
func initConversationStore(cfg *config.Settings) (store.ConversationStore, *pgxpool.Pool, error) {
	backend := store.Backend(cfg.StoreBackend)
	if backend != store.BackendPostgres {
		cs, err := store.New(backend, nil)
		return cs, nil, err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	pg := store.NewPostgresStore(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pg, pool, nil
}
