// main.go
//
// A real-time collaborative photo-jigsaw service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of puzzle-rooms.
// puzzle-rooms is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// puzzle-rooms is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with puzzle-rooms.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/joho/godotenv"
	_ "github.com/localnerve/puzzle-rooms/docs/api" // Swagger docs
	"github.com/localnerve/puzzle-rooms/internal/config"
	"github.com/localnerve/puzzle-rooms/internal/database"
	"github.com/localnerve/puzzle-rooms/internal/handlers"
	"github.com/localnerve/puzzle-rooms/internal/middleware"
	"github.com/localnerve/puzzle-rooms/internal/realtime"
	"github.com/localnerve/puzzle-rooms/internal/services"
	"github.com/localnerve/puzzle-rooms/internal/storage"
	"github.com/sirupsen/logrus"
)

// @title Puzzle Rooms API
// @version 1.0.0
// @description Real-time collaborative photo-jigsaw service
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/puzzle-rooms
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	// Notification plane: Redis when configured, in-process otherwise
	var broker realtime.Broker
	if cfg.RedisAddr != "" {
		redisBroker := realtime.NewRedisBroker(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisBroker.Ping(pingCtx); err != nil {
			cancel()
			logrus.Fatalf("Failed to connect to redis: %v", err)
		}
		cancel()
		defer redisBroker.Close()
		broker = redisBroker
		logrus.WithField("addr", cfg.RedisAddr).Info("Using redis change notifications")
	} else {
		broker = realtime.NewMemoryBroker()
		logrus.Info("Using in-process change notifications")
	}

	// Object store for room images
	objects, err := storage.New(context.Background(), cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize object store: %v", err)
	}

	store := &services.Store{DB: db, Broker: broker}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler,
		DisableStartupMessage: false,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("puzzle-rooms")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API routes under /api
	api := app.Group("/api")

	// Version middleware
	api.Use(middleware.VersionMiddleware())

	api.Get("/health", func(c *fiber.Ctx) error {
		result := services.HealthCheck(cfg, db)
		status := fiber.StatusOK
		if result.Status != "healthy" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(result)
	})

	// Create handlers
	roomHandler := &handlers.RoomHandler{Store: store, Objects: objects}
	pieceHandler := &handlers.PieceHandler{Store: store}
	wsHandler := &handlers.WSHandler{Store: store, Broker: broker}

	// Room routes (public reads, authenticated mutations)
	api.Get("/rooms", roomHandler.ListRooms)
	api.Get("/rooms/:id", roomHandler.GetRoom)
	api.Get("/rooms/:id/pieces", pieceHandler.ListPieces)
	api.Post("/rooms", middleware.AuthUser(cfg), roomHandler.CreateRoom)
	api.Post("/rooms/:id/join", middleware.AuthUser(cfg), roomHandler.JoinRoom)
	api.Post("/rooms/:id/reset", middleware.AuthUser(cfg), roomHandler.ResetRoom)
	api.Delete("/rooms/:id", middleware.AuthUser(cfg), roomHandler.DeleteRoom)

	// Piece routes
	api.Post("/pieces/:id/move", middleware.AuthUser(cfg), pieceHandler.MovePiece)

	// Live session over websocket
	api.Get("/rooms/:id/ws", middleware.AuthUser(cfg), wsHandler.Upgrade, wsHandler.Serve())

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		logrus.Info("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	logrus.Infof("Starting server on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		logrus.Fatalf("Failed to start server: %v", err)
	}

	logrus.Info("Server stopped")
}
