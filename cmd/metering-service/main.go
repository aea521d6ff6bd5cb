package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hypernova-labs/metering-service/internal/api"
	"github.com/hypernova-labs/metering-service/internal/config"
	"github.com/hypernova-labs/metering-service/internal/database"
	"github.com/hypernova-labs/metering-service/internal/models"
	"github.com/hypernova-labs/metering-service/internal/services"
	"github.com/hypernova-labs/metering-service/internal/storage"
	"github.com/hypernova-labs/metering-service/internal/vision"
	"github.com/hypernova-labs/metering-service/internal/workflows"
	"github.com/sirupsen/logrus"
)

func main() {
	// Cargar configuración
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	// Configurar logging
	logger := setupLogger(cfg)
	logger.Info("Starting Metering Service...")

	// Configurar modo de Gin
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Conectar a la base de datos
	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatalf("Error connecting to database: %v", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(); err != nil {
		logger.Fatalf("Error ensuring database schema: %v", err)
	}

	// Conectar a Redis (opcional: sin Redis la limpieza de imágenes cae a timers en memoria)
	redis, err := database.ConnectRedis(cfg)
	if err != nil {
		logger.Warnf("Error connecting to Redis: %v", err)
		redis = nil
	} else {
		defer redis.Close()
	}

	// Inicializar cliente de object storage si está configurado
	var objectStorage *database.ObjectStorageClient
	if cfg.HasObjectStorage() {
		objectStorage, err = database.NewObjectStorageClient(&cfg.Supabase, logger)
		if err != nil {
			logger.Warnf("Error initializing object storage client: %v", err)
			objectStorage = nil
		} else {
			if err := objectStorage.HealthCheck(cfg.Storage.Bucket); err != nil {
				logger.Warnf("Object storage health check failed: %v", err)
			} else {
				logger.Info("Object storage connection healthy")
			}
		}
	} else {
		logger.Info("Object storage not configured, meter images will be stored on local disk")
	}

	// Inicializar el store de imágenes y su janitor
	imageStore, err := storage.NewImageStore(cfg, objectStorage, redis, logger)
	if err != nil {
		logger.Fatalf("Error initializing image store: %v", err)
	}

	if janitor := imageStore.StartJanitor(); janitor != nil {
		defer janitor.Stop()
	}

	// Inicializar cliente de Inngest
	inngestClient, err := workflows.NewInngestClient(cfg, logger)
	if err != nil {
		logger.Warnf("Error initializing Inngest client: %v", err)
		inngestClient = nil
	}

	if inngestClient != nil {
		if err := inngestClient.RegisterWorkflows(imageStore); err != nil {
			logger.Warnf("Error registering workflows: %v", err)
		}
	} else {
		logger.Warn("Inngest credentials not provided, workflows will not be available")
	}

	// Inicializar cliente de visión
	if cfg.Vision.APIKey == "" {
		logger.Warn("Vision API key not provided, meter reading inference will fail")
	}
	visionClient := vision.NewClient(&cfg.Vision, logger)

	// Inicializar servicio de lecturas
	measureService := services.NewMeasureService(db, visionClient, imageStore, inngestClient, logger)

	// Inicializar API
	apiHandler := api.NewAPI(measureService, logger)

	// Configurar router
	router := setupRouter(apiHandler, inngestClient, objectStorage, cfg, logger)

	// Crear servidor HTTP
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Canal para señales de terminación
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Iniciar servidor en goroutine
	go func() {
		logger.Infof("Server starting on %s:%s", cfg.Server.Host, cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	// Esperar señal de terminación
	<-quit
	logger.Info("Shutting down server...")

	// Contexto con timeout para shutdown graceful
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown graceful del servidor
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// setupLogger configura el logger según la configuración
func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	// Configurar nivel de log
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Configurar formato
	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

// setupRouter configura el router principal
func setupRouter(apiHandler *api.API, inngestClient *workflows.InngestClient, objectStorage *database.ObjectStorageClient, cfg *config.Config, logger *logrus.Logger) *gin.Engine {
	router := gin.New()

	// Middleware global: cualquier panic termina en el envelope de error genérico
	router.Use(gin.Logger())
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.WithField("panic", recovered).Error("Unhandled panic in request")
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.NewInternalError("Unexpected error"))
	}))

	// Middleware de CORS para desarrollo
	if cfg.IsDevelopment() {
		router.Use(func(c *gin.Context) {
			c.Header("Access-Control-Allow-Origin", "*")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")

			if c.Request.Method == "OPTIONS" {
				c.AbortWithStatus(204)
				return
			}

			c.Next()
		})
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "metering-service",
			"version":   "1.0.0",
		})
	})

	// Las imágenes locales se sirven estáticas; con object storage la URL es externa
	if objectStorage == nil {
		router.Static("/uploads", cfg.Storage.Path)
	}

	// API de lecturas
	measures := router.Group("/api")
	{
		measures.POST("/upload", apiHandler.Upload)
		measures.PATCH("/confirm", apiHandler.Confirm)
		measures.GET("/:customer_code/list", apiHandler.ListByCustomer)
	}

	// Endpoint de ejecución de workflows de Inngest. Va fuera de /api para no
	// chocar con la ruta parametrizada del listado en el árbol de gin.
	if inngestClient != nil {
		router.Any("/inngest", gin.WrapH(inngestClient.Serve()))
	}

	return router
}
