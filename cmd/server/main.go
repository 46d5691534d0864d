// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edumate-go/internal/config"
	"edumate-go/internal/handler"
	"edumate-go/internal/middleware"
	"edumate-go/internal/pipeline"
	"edumate-go/internal/repository"
	"edumate-go/internal/service"
	"edumate-go/internal/workflow"
	"edumate-go/pkg/database"
	"edumate-go/pkg/embedding"
	"edumate-go/pkg/extract"
	"edumate-go/pkg/kafka"
	"edumate-go/pkg/llm"
	"edumate-go/pkg/log"
	"edumate-go/pkg/storage"
	"edumate-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis、MinIO 和 Kafka
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	kafka.InitProducer(cfg.Kafka)

	// 4. 初始化 Repository
	userRepository := repository.NewUserRepository(database.DB)
	assistantRepo := repository.NewAssistantRepository(database.DB)
	documentRepo := repository.NewDocumentRepository(database.DB)
	conversationRepo := repository.NewConversationRepository(database.DB)
	checkpointStore := repository.NewCheckpointStore(database.RDB)
	levelStore := repository.NewLevelStore(database.RDB, time.Duration(cfg.Chat.LevelCacheHours)*time.Hour)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	tikaClient := extract.NewTikaClient(cfg.Tika)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)

	userService := service.NewUserService(userRepository, jwtManager)
	assistantService := service.NewAssistantService(assistantRepo, checkpointStore)
	documentService := service.NewDocumentService(assistantRepo, documentRepo)
	conversationService := service.NewConversationService(conversationRepo)
	retrievalService := service.NewRetrievalService(embeddingClient, documentRepo)
	assessorService := service.NewAssessorService(llmClient, levelStore)
	summarizerService := service.NewSummarizerService(llmClient)
	generatorService := service.NewGeneratorService(llmClient)

	// 6. 初始化对话工作流引擎
	engine := workflow.NewEngine(
		assistantRepo,
		conversationRepo,
		checkpointStore,
		retrievalService,
		assessorService,
		summarizerService,
		generatorService,
		cfg.Chat.TopK,
		cfg.Chat.HistoryTurns,
	)

	// 7. 初始化文档摄取管道并启动后台 Kafka 消费者
	processor := pipeline.NewProcessor(tikaClient, embeddingClient, cfg.Ingest, documentRepo)
	go kafka.StartConsumer(cfg.Kafka, processor)

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	authHandler := handler.NewAuthHandler(userService)
	userHandler := handler.NewUserHandler(userService)
	assistantHandler := handler.NewAssistantHandler(assistantService)
	documentHandler := handler.NewDocumentHandler(documentService)
	chatHandler := handler.NewChatHandler(engine, jwtManager)
	conversationHandler := handler.NewConversationHandler(conversationService)
	authRequired := middleware.AuthMiddleware(jwtManager, userService)

	// 9. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		// Auth 路由组
		auth := apiV1.Group("/auth")
		{
			auth.POST("/refreshToken", authHandler.RefreshToken)
		}

		users := apiV1.Group("/users")
		{
			// 无需认证的路由 (公开访问)
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)

			// 需要认证的路由 (仅限登录用户访问)
			authed := users.Group("/")
			authed.Use(authRequired)
			{
				authed.GET("/me", userHandler.Me)
				authed.POST("/logout", userHandler.Logout)
				authed.GET("/conversations", conversationHandler.List)
			}
		}

		// Assistant 路由组，需要认证
		assistants := apiV1.Group("/assistants")
		assistants.Use(authRequired)
		{
			assistants.POST("", assistantHandler.Create)
			assistants.GET("", assistantHandler.List)
			assistants.GET("/:id", assistantHandler.Get)
			assistants.PUT("/:id", assistantHandler.Update)
			assistants.DELETE("/:id", assistantHandler.Delete)
			assistants.POST("/:id/ratings", assistantHandler.SubmitRating)
			assistants.POST("/:id/documents", documentHandler.Add)
			assistants.GET("/:id/documents", documentHandler.List)
		}

		// Document 路由组，需要认证
		documents := apiV1.Group("/documents")
		documents.Use(authRequired)
		{
			documents.DELETE("/:docId", documentHandler.Delete)
		}

		// Conversation 路由组，需要认证
		conversations := apiV1.Group("/conversations")
		conversations.Use(authRequired)
		{
			conversations.GET("/:id/turns", conversationHandler.Turns)
		}

		// Chat 路由
		chatGroup := apiV1.Group("/chat")
		chatGroup.Use(authRequired)
		{
			chatGroup.POST("/query", chatHandler.Query)
			chatGroup.GET("/websocket-token", chatHandler.GetWebsocketToken)
		}
	}
	r.GET("/chat/:token", chatHandler.HandleWebsocket)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	// Kafka 消费者是一个阻塞循环，会随进程退出自然结束。
	log.Info("服务已优雅关闭")
}
