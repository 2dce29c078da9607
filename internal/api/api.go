package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/restock-engine/internal/api/handlers"
	"github.com/andresuchdata/restock-engine/internal/api/middleware"
	"github.com/andresuchdata/restock-engine/internal/service"
)

type Services struct {
	Replenishment *service.ReplenishmentService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	corsConfig := cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	if services == nil || services.Replenishment == nil {
		return router
	}

	h := handlers.NewReplenishmentHandler(services.Replenishment)
	router.GET("/health", h.Health)

	apiGroup := router.Group("/api/v1")
	{
		apiGroup.GET("/cycles/status", h.GetStatus)
		apiGroup.POST("/cycles/run", h.RunCycle)
		apiGroup.GET("/cycles/:id", h.GetCycleRun)
		apiGroup.GET("/decisions/latest", h.GetLatestDecisions)
		apiGroup.GET("/alerts/latest", h.GetLatestAlerts)
		apiGroup.POST("/commands", h.ExecuteCommand)
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		for _, part := range strings.Split(origin, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
