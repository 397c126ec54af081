package handlers

import (
	"github.com/gofiber/fiber/v3"

	"crm-sync-service/internal/services"
)

// HealthHandler exposes liveness and run statistics for monitoring.
type HealthHandler struct {
	stats func() services.SyncStats
}

func NewHealthHandler(stats func() services.SyncStats) *HealthHandler {
	return &HealthHandler{stats: stats}
}

func (h *HealthHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/checkhealth", h.CheckHealth)
	app.Get("/stats", h.Stats)
}

func (h *HealthHandler) CheckHealth(c fiber.Ctx) error {
	return c.Status(fiber.StatusOK).SendString("CRM sync service is healthy")
}

func (h *HealthHandler) Stats(c fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.stats())
}
