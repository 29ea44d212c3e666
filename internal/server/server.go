package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"jot/internal/config"
	"jot/internal/database"
	"jot/internal/database/repositories"
)

type FiberServer struct {
	*fiber.App

	db    database.Service
	notes repositories.NoteRepository
	cfg   *config.Config
	log   zerolog.Logger
}

func New(cfg *config.Config, db database.Service, log zerolog.Logger) *FiberServer {
	server := &FiberServer{
		db:    db,
		notes: repositories.NewNoteRepository(db.DB()),
		cfg:   cfg,
		log:   log,
	}
	server.App = fiber.New(fiber.Config{
		ServerHeader: "jot",
		AppName:      "jot",
		ErrorHandler: server.errorHandler,
	})
	server.App.Use(recover.New())
	server.App.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
	}))
	server.App.Use(logger.New())
	server.App.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	return server
}
