package api

import (
	"os"
	"path/filepath"

	"bracescarebot/docs"
	"bracescarebot/internal/api/handlers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

func SetupRouter(chatHandler *handlers.ChatHandler, appLogger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		// A 5MB image grows by a third in base64, leave headroom above that
		BodyLimit: 16 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))
	app.Use(logger.New())

	// Swagger docs registered through the docs package init()
	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Static chat interface, when bundled alongside the binary
	webStaticPath := findWebStaticPath()
	if webStaticPath != "" {
		appLogger.Info("Serving static files", zap.String("path", webStaticPath))
		app.Static("/static", webStaticPath)
		app.Get("/", func(c *fiber.Ctx) error {
			return c.SendFile(filepath.Join(webStaticPath, "index.html"))
		})
	} else {
		appLogger.Warn("Web static directory not found, static files will not be served")
	}

	app.Post("/chat", chatHandler.Chat)
	app.Get("/history", chatHandler.History)

	return app
}

// findWebStaticPath locates the web/static directory relative to the
// working directory.
func findWebStaticPath() string {
	paths := []string{
		"./web/static",
		"web/static",
		"../web/static",
		"../../web/static",
	}

	for _, path := range paths {
		if fileExists(filepath.Join(path, "index.html")) {
			return path
		}
	}

	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
