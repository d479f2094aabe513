package server

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"BeatStudio/cache"
	"BeatStudio/config"
	"BeatStudio/core/access"
	"BeatStudio/core/auth"
	"BeatStudio/core/delivery"
	"BeatStudio/core/payment"
	"BeatStudio/core/pricing"
	"BeatStudio/db"
	"BeatStudio/logger"
	"BeatStudio/model"
	"BeatStudio/repository"
	"BeatStudio/storage"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()
	logger.Init(logger.Config{
		Level:      "info",
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})
	auth.Configure(cfg.JWTSecret, cfg.JWTTTLMinutes)

	// 设置服务器超时
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 初始化 MinIO 客户端
	if err := storage.InitMinio(cfg); err != nil {
		logger.Fatal("Failed to initialize MinIO", logger.ErrorField(err))
	}

	// Connect to the database
	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()

	// Connect to Redis
	if err := db.ConnectRedis(cfg); err != nil {
		logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
	}
	defer db.CloseRedis()

	// Initialize database schema
	if err := db.InitDB(); err != nil {
		logger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}

	// The news module runs on GORM.
	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("Failed to connect GORM", logger.ErrorField(err))
	}
	defer db.CloseGormDB()
	if err := db.AutoMigrateModels(&model.News{}, &model.NewsLike{}, &model.NewsComment{}); err != nil {
		logger.Fatal("Failed to migrate news tables", logger.ErrorField(err))
	}

	// Repositories
	userRepo := repository.NewMySQLUserRepository(db.DB)
	beatRepo := repository.NewMySQLBeatRepository(db.DB)
	purchaseRepo := repository.NewMySQLPurchaseRepository(db.DB)
	cartRepo := repository.NewMySQLCartRepository(db.DB)
	recordingRepo := repository.NewMySQLRecordingRepository(db.DB)
	bookingRepo := repository.NewMySQLBookingRepository(db.DB)
	chatRepo := repository.NewMySQLChatRepository(db.DB)
	newsRepo := repository.NewGormNewsRepository(db.GormDB)

	// Domain services
	counters := cache.NewCounterCache(db.RedisClient)
	policy := pricing.NewPolicy(recordingRepo, cfg.DiscountThreshold, cfg.DiscountPercent)
	gateway := payment.NewGateway(cfg)
	checkout := payment.NewCheckoutService(
		gateway, beatRepo, purchaseRepo, cartRepo, recordingRepo, policy,
		time.Duration(cfg.PendingPaymentWindowMin)*time.Minute,
	)
	reconciler := payment.NewReconciler(purchaseRepo, recordingRepo, cartRepo)

	// 初始化处理器
	apiHandler := NewAPIHandler(
		userRepo, beatRepo, purchaseRepo, cartRepo, recordingRepo,
		bookingRepo, chatRepo, newsRepo,
		checkout, reconciler, policy, counters, cfg,
	)

	// Delivery watcher picks up finished tracks from the exchange directory.
	watcherCtx, stopWatcher := context.WithCancel(context.Background())
	defer stopWatcher()
	watcher := delivery.NewWatcher(cfg.DeliveryDir, recordingRepo, storage.UploadObject, storage.DeliveredPrefix)
	go func() {
		if err := watcher.Run(watcherCtx); err != nil {
			logger.Error("Delivery watcher stopped", logger.ErrorField(err))
		}
	}()

	// 使用 gorilla/mux 创建路由器
	router := mux.NewRouter()

	// 添加 CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// 用户认证相关的API端点
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/me", apiHandler.AuthMiddleware(apiHandler.MeHandler)).Methods(http.MethodGet)

	// Beat catalog
	router.HandleFunc("/api/beats", apiHandler.ListBeatsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/beats", apiHandler.AuthMiddleware(apiHandler.RequireAction(access.UploadBeat, apiHandler.UploadBeatHandler))).Methods(http.MethodPost)
	router.HandleFunc("/api/beats/{id}", apiHandler.GetBeatHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/beats/{id}", apiHandler.AuthMiddleware(apiHandler.UpdateBeatHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/beats/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteBeatHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/beats/{id}/play", apiHandler.PlayBeatHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/beats/{id}/download", apiHandler.AuthMiddleware(apiHandler.DownloadBeatHandler)).Methods(http.MethodGet)

	// Favorites
	router.HandleFunc("/api/favorites", apiHandler.AuthMiddleware(apiHandler.ListFavoritesHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/favorites/{id}", apiHandler.AuthMiddleware(apiHandler.AddFavoriteHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/favorites/{id}", apiHandler.AuthMiddleware(apiHandler.RemoveFavoriteHandler)).Methods(http.MethodDelete)

	// Cart and purchases
	router.HandleFunc("/api/cart", apiHandler.AuthMiddleware(apiHandler.GetCartHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/cart", apiHandler.AuthMiddleware(apiHandler.AddToCartHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/cart/{beat_id}", apiHandler.AuthMiddleware(apiHandler.RemoveFromCartHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/purchases", apiHandler.AuthMiddleware(apiHandler.ListPurchasesHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/purchases/beats", apiHandler.AuthMiddleware(apiHandler.ListOwnedBeatsHandler)).Methods(http.MethodGet)

	// Payments
	router.HandleFunc("/api/cart/checkout", apiHandler.AuthMiddleware(apiHandler.CheckoutCartHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/payments/beat/pay", apiHandler.AuthMiddleware(apiHandler.PayBeatHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/payments/create", apiHandler.AuthMiddleware(apiHandler.PayRecordingHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/payments/discount-info", apiHandler.AuthMiddleware(apiHandler.DiscountInfoHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/payments/provider/webhook", apiHandler.PaymentWebhookHandler).Methods(http.MethodPost)

	// Recordings
	router.HandleFunc("/api/recordings", apiHandler.AuthMiddleware(apiHandler.CreateRecordingHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/recordings", apiHandler.AuthMiddleware(apiHandler.ListMyRecordingsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/recordings/all", apiHandler.AuthMiddleware(apiHandler.RequireAction(access.ManageRecordings, apiHandler.ListAllRecordingsHandler))).Methods(http.MethodGet)
	router.HandleFunc("/api/recordings/{id}", apiHandler.AuthMiddleware(apiHandler.GetRecordingHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/recordings/{id}", apiHandler.AuthMiddleware(apiHandler.CancelRecordingHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/recordings/{id}/status", apiHandler.AuthMiddleware(apiHandler.RequireAction(access.ManageRecordings, apiHandler.UpdateRecordingStatusHandler))).Methods(http.MethodPut)
	router.HandleFunc("/api/recordings/{id}/track", apiHandler.AuthMiddleware(apiHandler.DownloadRecordingHandler)).Methods(http.MethodGet)

	// Studio bookings
	router.HandleFunc("/api/bookings", apiHandler.CreateBookingHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/bookings", apiHandler.AuthMiddleware(apiHandler.ListMyBookingsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/bookings/all", apiHandler.AuthMiddleware(apiHandler.RequireAction(access.ManageBookings, apiHandler.ListAllBookingsHandler))).Methods(http.MethodGet)
	router.HandleFunc("/api/bookings/{id}", apiHandler.AuthMiddleware(apiHandler.RequireAction(access.ManageBookings, apiHandler.UpdateBookingHandler))).Methods(http.MethodPut)

	// News
	router.HandleFunc("/api/news", apiHandler.ListNewsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/news", apiHandler.AuthMiddleware(apiHandler.RequireAction(access.ManageNews, apiHandler.CreateNewsHandler))).Methods(http.MethodPost)
	router.HandleFunc("/api/news/{id}", apiHandler.GetNewsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/news/{id}", apiHandler.AuthMiddleware(apiHandler.RequireAction(access.ManageNews, apiHandler.UpdateNewsHandler))).Methods(http.MethodPut)
	router.HandleFunc("/api/news/{id}", apiHandler.AuthMiddleware(apiHandler.RequireAction(access.ManageNews, apiHandler.DeleteNewsHandler))).Methods(http.MethodDelete)
	router.HandleFunc("/api/news/{id}/like", apiHandler.AuthMiddleware(apiHandler.LikeNewsHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/news/{id}/like", apiHandler.AuthMiddleware(apiHandler.UnlikeNewsHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/news/{id}/comments", apiHandler.ListNewsCommentsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/news/{id}/comments", apiHandler.AuthMiddleware(apiHandler.AddNewsCommentHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/news/comments/{comment_id}", apiHandler.AuthMiddleware(apiHandler.DeleteNewsCommentHandler)).Methods(http.MethodDelete)

	// Support chat
	router.HandleFunc("/api/chat/history", apiHandler.AuthMiddleware(apiHandler.GetChatHistoryHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/chat/send", apiHandler.AuthMiddleware(apiHandler.SendChatMessageHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/chat/unread", apiHandler.AuthMiddleware(apiHandler.ChatUnreadHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/chat/read", apiHandler.AuthMiddleware(apiHandler.ChatMarkReadHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/chat/conversations", apiHandler.AuthMiddleware(apiHandler.RequireAction(access.StaffChat, apiHandler.ListChatConversationsHandler))).Methods(http.MethodGet)
	router.HandleFunc("/api/chat/ws", apiHandler.ChatWebSocketHandler)

	// Public cover images are served straight from MinIO.
	router.PathPrefix("/static/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		objectPath := strings.TrimPrefix(r.URL.Path, "/static/")
		// Only image prefixes are public; audio goes through the
		// entitlement-gated download endpoints.
		if !strings.HasPrefix(objectPath, storage.BeatCoverPrefix) && !strings.HasPrefix(objectPath, storage.NewsCoverPrefix) {
			respondError(w, "Not found", http.StatusNotFound)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		object, err := storage.GetObject(ctx, objectPath)
		if err != nil {
			respondError(w, "File not found", http.StatusNotFound)
			return
		}
		defer object.Close()

		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "public, max-age=31536000") // 缓存一年
		if _, err := io.Copy(w, object); err != nil {
			logger.Error("Error serving file from MinIO", logger.ErrorField(err))
		}
	})

	server.Handler = router

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// 在goroutine中启动服务器
	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	// 等待中断信号
	<-stop
	logger.Info("Shutting down server...")
	stopWatcher()

	// 创建一个5秒超时的上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 优雅关闭服务器
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server stopped")
}
