package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/course-system-api/api/swagger"
	"github.com/noah-isme/course-system-api/internal/handler"
	internalmiddleware "github.com/noah-isme/course-system-api/internal/middleware"
	"github.com/noah-isme/course-system-api/internal/repository"
	"github.com/noah-isme/course-system-api/internal/service"
	"github.com/noah-isme/course-system-api/pkg/cache"
	"github.com/noah-isme/course-system-api/pkg/config"
	"github.com/noah-isme/course-system-api/pkg/database"
	"github.com/noah-isme/course-system-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-system-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/course-system-api/pkg/middleware/requestid"
	"github.com/noah-isme/course-system-api/pkg/storage"
)

// @title Course System API
// @version 1.0.0
// @description Courses, groups, assignments, submissions and learning materials.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type objectStorage interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

type objectOpener interface {
	Open(key string) (io.ReadCloser, error)
}

type downloadSigner interface {
	Generate(materialID, key string) (string, time.Time, error)
	Parse(token string) (materialID, key string, err error)
}

type transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// materialBackend holds the storage driver. Local storage has no public URLs, so it also
// carries the opener and signer behind signed download links.
type materialBackend struct {
	store  objectStorage
	opener objectOpener
	signer downloadSigner
}

func newMaterialBackend(cfg *config.Config) (*materialBackend, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverS3:
		s3, err := storage.NewS3Storage(cfg.Storage.S3)
		if err != nil {
			return nil, err
		}
		return &materialBackend{store: s3}, nil
	case config.StorageDriverLocal, "":
		local, err := storage.NewLocalStorage(cfg.Storage.LocalDir)
		if err != nil {
			return nil, err
		}
		signer := storage.NewSignedURLSigner(cfg.Materials.SignedURLSecret, cfg.Materials.SignedURLTTL)
		return &materialBackend{store: local, opener: local, signer: signer}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Progress.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("progress cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
		}
	}

	apiPrefix := cfg.APIPrefix
	if apiPrefix == "" {
		apiPrefix = "/api/v1"
	}
	backend, err := newMaterialBackend(cfg)
	if err != nil {
		logr.Fatal("failed to init material storage", zap.Error(err))
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	courseRepo := repository.NewCourseRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	materialRepo := repository.NewMaterialRepository(db)
	userRepo := repository.NewUserRepository(db)
	cascadeRepo := repository.NewCascadeRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	var txOrNil transactor
	if cfg.Enrollment.UseTransactions {
		txOrNil = repository.NewTransactor(db)
	}

	precedence := service.ParseStatusPrecedence(cfg.Assignments.StatusPrecedence)

	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
	})
	notificationSvc := service.NewNotificationService(notificationRepo, logr)
	membershipSvc := service.NewMembershipService(enrollmentRepo, notificationRepo, backend.store, metricsSvc, logr)
	cascade := service.NewCascadeDeleter(cascadeRepo, materialRepo, membershipSvc, txOrNil, metricsSvc, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Progress.CacheTTL, logr, cfg.Progress.CacheEnabled && redisClient != nil)
	progressSvc := service.NewProgressService(assignmentRepo, enrollmentRepo, groupRepo, cacheSvc, cfg.Progress.CacheTTL, logr)
	courseSvc := service.NewCourseService(courseRepo, membershipSvc, cascade, notificationSvc, txOrNil, metricsSvc, validate, logr)
	groupSvc := service.NewGroupService(groupRepo, courseRepo, membershipSvc, cascade, progressSvc, notificationSvc, txOrNil, metricsSvc, validate, logr)
	assignmentSvc := service.NewAssignmentService(service.AssignmentServiceDeps{
		Repo:        assignmentRepo,
		Groups:      groupRepo,
		Submissions: submissionRepo,
		Users:       userRepo,
		Progress:    progressSvc,
		Deleter:     cascade,
		Activities:  notificationSvc,
		Transactor:  txOrNil,
		Metrics:     metricsSvc,
		Precedence:  precedence,
		Validator:   validate,
		Logger:      logr,
	})
	answerSvc := service.NewAnswerService(submissionRepo, assignmentRepo, progressSvc, notificationSvc, txOrNil, metricsSvc, validate, logr)
	materialSvc := service.NewMaterialService(materialRepo, backend.store, backend.opener, backend.signer, courseRepo, groupRepo, notificationSvc, metricsSvc, service.MaterialServiceConfig{
		MaxFileSize:  cfg.Materials.MaxFileSizeBytes,
		DownloadPath: path.Join(apiPrefix, "materials", "download"),
	}, logr)

	healthChecks := map[string]handler.HealthCheck{"database": db.PingContext}
	if redisClient != nil {
		healthChecks["progress_cache"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, healthChecks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if cfg.Metrics.Enabled {
		r.Use(internalmiddleware.Metrics(metricsSvc))
		r.GET("/metrics", metricsHandler.Prometheus)
	}

	r.GET("/health", metricsHandler.Health)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(apiPrefix), authSvc, handler.Handlers{
		Courses:       handler.NewCourseHandler(courseSvc),
		Groups:        handler.NewGroupHandler(groupSvc),
		Assignments:   handler.NewAssignmentHandler(assignmentSvc),
		Answers:       handler.NewAnswerHandler(answerSvc),
		Materials:     handler.NewMaterialHandler(materialSvc),
		Memberships:   handler.NewMembershipHandler(membershipSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Progress:      handler.NewProgressHandler(progressSvc),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "storage", cfg.Storage.Driver, "transactions", cfg.Enrollment.UseTransactions)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
