package main

import (
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	"github.com/media-library-system/internal/auth"
	"github.com/media-library-system/internal/catalog"
	"github.com/media-library-system/internal/favorites"
	"github.com/media-library-system/internal/playlist"
	"github.com/media-library-system/internal/ws"
	"github.com/media-library-system/pkg/database"
	"github.com/media-library-system/pkg/events"
	"github.com/media-library-system/pkg/redis"
	"github.com/media-library-system/pkg/storage"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	// Set Gin mode based on environment
	if os.Getenv("ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize the database (MySQL in deployment, sqlite for local runs)
	db, err := openDatabase()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Initialize Redis client
	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     os.Getenv("REDIS_HOST") + ":" + os.Getenv("REDIS_PORT"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	// Initialize Kafka client
	kafkaClient := events.NewKafkaClient(
		strings.Split(os.Getenv("KAFKA_BROKERS"), ","),
		"library-events",
		os.Getenv("KAFKA_GROUP_ID"),
	)

	// Initialize media file storage
	uploadsDir := os.Getenv("UPLOADS_DIR")
	if uploadsDir == "" {
		uploadsDir = "uploads"
	}
	store, err := storage.NewLocalStore(uploadsDir, os.Getenv("BASE_URL"))
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Initialize services
	sessions := redis.NewSessionStore(redisClient)
	catalogService := catalog.NewService(db, store, kafkaClient)
	playlistService := playlist.NewService(db, kafkaClient)
	favoritesService := favorites.NewService(db, kafkaClient)

	// Initialize handlers
	authHandler := auth.NewHandler(db, sessions)
	catalogHandler := catalog.NewHandler(catalogService)
	playlistHandler := playlist.NewHandler(playlistService)
	favoritesHandler := favorites.NewHandler(favoritesService)
	wsHandler := ws.NewHandler(kafkaClient)

	// Initialize Gin router
	router := gin.Default()

	// CORS middleware
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{frontendURL()},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// Uploaded media
	router.Static("/uploads", store.Root())

	// API routes
	v1 := router.Group("/api/v1")

	// Public routes (identity optional on reads)
	authHandler.RegisterRoutes(v1)
	public := v1.Group("/")
	public.Use(auth.AuthOptional(sessions))
	catalogHandler.RegisterPublicRoutes(public)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(auth.AuthRequired(sessions))
	{
		catalogHandler.RegisterProtectedRoutes(protected)
		playlistHandler.RegisterRoutes(protected)
		favoritesHandler.RegisterRoutes(protected)

		// WebSocket event feed
		protected.GET("/ws", wsHandler.HandleWebSocket)
	}

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func openDatabase() (*database.DB, error) {
	if os.Getenv("DB_DRIVER") == "sqlite" {
		path := os.Getenv("SQLITE_PATH")
		if path == "" {
			path = "library.db"
		}
		return database.NewSQLite(path)
	}
	return database.NewMySQL(
		os.Getenv("MYSQL_HOST"),
		os.Getenv("MYSQL_PORT"),
		os.Getenv("MYSQL_USER"),
		os.Getenv("MYSQL_PASSWORD"),
		os.Getenv("MYSQL_DATABASE"),
	)
}

func frontendURL() string {
	if url := os.Getenv("FRONTEND_URL"); url != "" {
		return url
	}
	return "http://localhost:5173"
}
