// cmd/server/main.go
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

	"cardiopredict/internal/auth"
	"cardiopredict/internal/chat"
	"cardiopredict/internal/config"
	"cardiopredict/internal/database"
	"cardiopredict/internal/handlers"
	"cardiopredict/internal/logger"
	"cardiopredict/internal/middleware"
	"cardiopredict/internal/prediction"
	"cardiopredict/internal/repository"
	"cardiopredict/internal/storage"
	"cardiopredict/pkg/imaging"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to build logger:", err)
		os.Exit(1)
	}
	os.Exit(finish(log, run(cfg, log)))
}

// finish flushes the logger and returns the process exit code. os.Exit skips
// deferred calls, so the flush has to happen here.
func finish(log *zap.Logger, err error) int {
	code := 0
	if err != nil {
		log.Error("server stopped", zap.Error(err))
		code = 1
	}
	_ = log.Sync()
	return code
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL, log.Named("gorm"))
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}()

	if err := database.MigrateDB(db); err != nil {
		return err
	}

	// Archive stays off unless MINIO_ENDPOINT is set. Both interfaces must stay
	// nil in that case, not hold a nil *MinIOClient.
	var (
		archiver prediction.Archiver
		objects  handlers.ObjectStore
	)
	if cfg.MinIO.Enabled() {
		minioClient, err := storage.NewMinIOClient(ctx, cfg.MinIO)
		if err != nil {
			return fmt.Errorf("initialize MinIO client: %w", err)
		}
		archiver, objects = minioClient, minioClient
		log.Info("image archive enabled", zap.String("endpoint", cfg.MinIO.Endpoint), zap.String("bucket", cfg.MinIO.Bucket))
	}

	stager, err := storage.NewStager(cfg.Upload.Dir)
	if err != nil {
		return err
	}

	// Questionnaire analysis has no model behind it and is always simulated.
	simulated := imaging.NewSimulatedClassifier(uint64(time.Now().UnixNano()))
	var classifier imaging.Classifier
	switch cfg.Classifier.Mode {
	case config.ClassifierModeSimulated:
		classifier = simulated
		log.Warn("using simulated classifier")
	default:
		classifier = imaging.NewCommandClassifier(cfg.Classifier.PythonExecutable, cfg.Classifier.PredictScript)
	}

	users := repository.NewUserRepository(db)
	analyses := repository.NewAnalysisRepository(db)
	patients := repository.NewPatientRepository(db)
	chats := repository.NewChatRepository(db)

	predictOpts := prediction.Options{
		MaxBytes:      cfg.Upload.MaxBytes,
		AcceptedTypes: cfg.Upload.AcceptedMediaTypes,
		ModelVersion:  cfg.Classifier.ModelVersion,
		Timeout:       cfg.Classifier.Timeout,
	}
	predictor := prediction.NewService(classifier, analyses, patients, stager, archiver, predictOpts, log.Named("prediction"))
	questionnaire := prediction.NewQuestionnaireService(simulated, analyses, patients, predictOpts, log.Named("questionnaire"))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.MaxMultipartMemory = cfg.Upload.MaxBytes
	r.Use(
		middleware.RequestLogger(log.Named("http")),
		middleware.Recovery(log),
		middleware.CORSMiddleware(cfg.CORSAllowedOrigins),
	)

	handlers.RegisterRoutes(r, handlers.Deps{
		DB:            db,
		Tokens:        auth.NewService(cfg.JWTSecret, cfg.JWTTTL),
		Users:         users,
		Analyses:      analyses,
		Patients:      patients,
		Prediction:    predictor,
		Questionnaire: questionnaire,
		Chat:          chat.NewService(chats, chat.NewResponder(), log.Named("chat")),
		Objects:       objects,
		Log:           log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv), zap.String("classifier", cfg.Classifier.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
