package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"civictrack-be/config"
	"civictrack-be/controllers"
	"civictrack-be/filestore"
	"civictrack-be/middlewares"
	"civictrack-be/models"
	"civictrack-be/routes"
	"civictrack-be/services"
	"civictrack-be/store"
	"civictrack-be/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := config.NewLogger("civictrack-be")

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := utils.InitIDs(cfg.NodeID); err != nil {
		log.WithError(err).Fatal("failed to initialise id generator")
	}

	ctx := context.Background()

	backend, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer closeStore()

	if err := config.SeedLookups(ctx, backend, cfg.SeedCategories, log); err != nil {
		log.WithError(err).Fatal("failed to seed lookup tables")
	}

	files, filesDir, err := openFileStore(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to open file store")
	}

	redisClient, err := config.ConnectRedis(ctx, cfg.RedisAddress, cfg.RedisPassword, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to Redis")
	}
	var limiter middlewares.Counter
	if redisClient != nil {
		defer redisClient.Close()
		limiter = middlewares.NewRedisCounter(redisClient)
	}

	auth := services.NewAuthService(backend.Users(), cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	handlers := &routes.Handlers{
		Auth:          controllers.NewAuthController(auth, cfg.IsProduction(), log),
		Issues:        controllers.NewIssueController(services.NewIssueService(backend, files, log), log),
		Comments:      controllers.NewCommentController(services.NewCommentService(backend, files, log), log),
		Lookups:       controllers.NewLookupController(services.NewLookupService(backend), log),
		Authenticator: auth,
		IssueLimit:    limiter,
		LimitKey:      cfg.IssueLimitKey,
		DailyLimit:    cfg.IssueDailyLimit,
		Log:           log,
	}

	r := routes.NewRouter(handlers, routes.Options{CORSOrigin: cfg.CORSOrigin, FilesDir: filesDir})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}
}

func openStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (store.Backend, func(), error) {
	if cfg.StoreDriver == "memory" {
		log.Warn("Using the in-memory store; data is lost on restart")
		return store.NewMemory(), func() {}, nil
	}

	client, db, err := config.ConnectDB(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.WithError(err).Error("MongoDB disconnect failed")
		}
	}
	if err := models.EnsureIndexes(db); err != nil {
		closeFn()
		return nil, nil, err
	}
	return store.NewMongo(client, db, cfg.MongoTransactions), closeFn, nil
}

// openFileStore returns the configured store and, for the local driver, the
// directory to serve under /files.
func openFileStore(cfg *config.Config) (filestore.FileStore, string, error) {
	if cfg.FileStoreDriver == "ftp" {
		return filestore.NewFTPStore(cfg.FTPHost, strconv.Itoa(cfg.FTPPort), cfg.FTPUser, cfg.FTPPassword, cfg.FTPDir, cfg.FilesBaseURL), "", nil
	}
	local, err := filestore.NewLocalStore(cfg.LocalFilesDir, cfg.FilesBaseURL)
	if err != nil {
		return nil, "", err
	}
	return local, cfg.LocalFilesDir, nil
}
