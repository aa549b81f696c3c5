package hostapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// Config configures the HTTP bridge.
type Config struct {
	Manager *Manager
	// History serves recorded revisions. Optional.
	History History
	// AccessLog enables request logging.
	AccessLog bool
	// AllowOrigins lists the origins allowed by CORS. Empty allows all.
	AllowOrigins []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewApp builds the fiber application serving cfg.Manager's sessions.
func NewApp(cfg Config) *fiber.App {
	if cfg.Manager == nil {
		cfg.Manager = NewManager()
	}
	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		AppName:      "Siteplan",
		ErrorHandler: errorHandler,
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	if cfg.AccessLog {
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE"},
	}))

	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})
	app.Get("/health/ready", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ready", "sessions": cfg.Manager.Len()})
	})

	// ============================================================
	// Session Routes
	// ============================================================

	h := &handler{m: cfg.Manager, history: cfg.History}

	app.Post("/sessions", h.CreateSession)
	app.Delete("/sessions/:id", h.DeleteSession)
	app.Get("/sessions/:id", h.GetState)

	app.Post("/sessions/:id/tool", h.SetTool)
	app.Post("/sessions/:id/pointer", h.Pointer)
	app.Post("/sessions/:id/key", h.Key)
	app.Post("/sessions/:id/text", h.Text)
	app.Post("/sessions/:id/zoom", h.Zoom)
	app.Post("/sessions/:id/pan", h.Pan)
	app.Post("/sessions/:id/resize", h.Resize)
	app.Post("/sessions/:id/style", h.Style)
	app.Post("/sessions/:id/clear", h.Clear)
	app.Post("/sessions/:id/delete", h.DeleteSelection)
	app.Post("/sessions/:id/select", h.Select)
	app.Post("/sessions/:id/polygon/close", h.ClosePolygon)
	app.Post("/sessions/:id/polygon/cancel", h.CancelPolygon)
	app.Delete("/sessions/:id/objects/:oid", h.DeleteObject)
	app.Post("/sessions/:id/objects/:oid/vertices/:index", h.MoveVertex)

	app.Put("/sessions/:id/background", h.SetBackground)
	app.Put("/sessions/:id/overlay", h.SetOverlay)
	app.Post("/sessions/:id/assets", h.InsertAsset)

	app.Get("/sessions/:id/elements", h.Elements)
	app.Get("/sessions/:id/objects", h.Objects)
	app.Get("/sessions/:id/snapshot.png", h.Snapshot)
	app.Get("/sessions/:id/frame.png", h.Frame)
	app.Get("/sessions/:id/affordance", h.Affordance)
	app.Get("/sessions/:id/errors", h.Errors)
	app.Get("/sessions/:id/history", h.History)
	app.Get("/sessions/:id/measurements", h.Measurements)

	return app
}

func errorHandler(c fiber.Ctx, err error) error {
	code := http.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
