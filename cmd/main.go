package main

import (
	"context"
	"errors"
	"log"
	"mechmap/backend/internal/api/handler"
	"mechmap/backend/internal/auth"
	"mechmap/backend/internal/maphub"
	"mechmap/backend/internal/models"
	"mechmap/backend/internal/notify"
	"mechmap/backend/internal/registry"
	"mechmap/backend/internal/storage"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	defaultGridCols = 47
	defaultGridRows = 25
)

func setupDependencies() (*gorm.DB, *redis.Client) {
	// 1. PostgreSQL (Використовуємо дані з docker-compose)
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost user=user password=password dbname=mechmapdb port=5432 sslmode=disable"
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	// 2. Redis
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6380"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: "",
		DB:       0,
	})

	// Перевірка з'єднання Redis
	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	// 3. Міграції (Створення таблиць)
	err = db.AutoMigrate(
		&models.User{},
		&models.RoomRecord{},
		&models.HexRecord{},
		&models.LineRecord{},
		&models.UnitRecord{},
	)
	if err != nil {
		// Якщо міграція не спрацювала, зупиняємо додаток
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func gridSize() (int, int) {
	cols, rows := defaultGridCols, defaultGridRows
	if v := os.Getenv("GRID_COLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cols = n
		}
	}
	if v := os.Getenv("GRID_ROWS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			rows = n
		}
	}
	return cols, rows
}

func main() {
	log.Println("Starting MechMap Backend...")

	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Error loading .env file")
	}

	// 1. Ініціалізація залежностей
	db, rdb := setupDependencies()
	s := storage.NewService(db, rdb)
	authSvc := auth.NewService()

	// 2. Реєстр кімнат: відновлюємо стан карт із бази перед стартом хаба
	cols, rows := gridSize()
	reg := registry.NewRegistry(s, cols, rows)
	if err := reg.Restore(); err != nil {
		log.Fatalf("Failed to restore rooms from database: %v", err)
	}

	hub := maphub.NewManager(s, reg, authSvc)

	// Необов'язковий Telegram-сповіщувач для адміністратора
	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	chatIDStr := os.Getenv("TELEGRAM_ADMIN_CHAT_ID")
	if botToken != "" && chatIDStr != "" {
		chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			log.Fatalf("Invalid TELEGRAM_ADMIN_CHAT_ID: %v", err)
		}
		notifier, err := notify.NewNotifier(botToken, chatID)
		if err != nil {
			log.Fatalf("Не вдалося запустити Telegram-бота: %v", err)
		}
		hub.NotifyCh = notifier.Events
		go notifier.Run()
	} else {
		log.Println("Telegram notifications disabled (no TELEGRAM_BOT_TOKEN)")
	}

	// 3. Запуск основних Goroutines
	go hub.Run() // Головний диспетчер

	// 4. Налаштування Gin та роутингу
	r := gin.Default()
	h := handler.NewHandler(hub, authSvc, s, reg)

	// Роути
	r.POST("/api/register", h.Register)
	r.POST("/api/login", h.Login)
	r.POST("/api/logout", h.Logout)
	r.GET("/api/verify-token", h.VerifyToken)
	r.GET("/api/rooms-status", h.RoomsStatus)
	r.GET("/ws", h.ServeWebSocket) // WebSocket Upgrade

	// Запуск HTTP-сервера
	server := &http.Server{
		Addr:           ":8080",
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Коректне завершення: чекаємо на сигнал, зупиняємо сервер та акторів кімнат
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: HTTP server shutdown: %v", err)
	}
	reg.Shutdown()
	log.Println("Server stopped")
}
