package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"classbook/internal/handler/api"
	"classbook/internal/handler/middleware"
	"classbook/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

func NewRouter(
	engine *gin.Engine,
	cfg config.Config,
	bookingHandler *api.BookingHandler,
	lessonHandler *api.LessonHandler,
	classPassHandler *api.ClassPassHandler,
	webhookHandler *api.WebhookHandler,
) {
	setupMiddleware(engine, cfg)
	setupRoutes(engine, bookingHandler, lessonHandler, classPassHandler, webhookHandler)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.LoggingMiddleware(cfg.Log))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(
	engine *gin.Engine,
	bookingHandler *api.BookingHandler,
	lessonHandler *api.LessonHandler,
	classPassHandler *api.ClassPassHandler,
	webhookHandler *api.WebhookHandler,
) {
	engine.GET("/health", healthCheck)

	// Webhooks authenticate by signature, not by gateway identity headers.
	engine.POST("/webhooks/stripe", webhookHandler.HandleStripeEvent)

	apiGroup := engine.Group("/api")
	apiGroup.Use(middleware.RequireIdentity())
	{
		bookings := apiGroup.Group("/bookings")
		{
			addRoutes(bookings, []route{
				{Method: http.MethodPost, Path: "", Handler: bookingHandler.CreateBooking},
				{Method: http.MethodGet, Path: "", Handler: bookingHandler.GetUserBookings},
				{Method: http.MethodGet, Path: "/:id", Handler: bookingHandler.GetBooking},
				{Method: http.MethodPost, Path: "/:id/confirm", Handler: bookingHandler.ConfirmBooking,
					Mw: []gin.HandlerFunc{middleware.RequireRoleAtLeast(middleware.RoleStaff)}},
				{Method: http.MethodDelete, Path: "/:id", Handler: bookingHandler.CancelBooking},
			})
		}

		lessons := apiGroup.Group("/lessons")
		{
			addRoutes(lessons, []route{
				{Method: http.MethodGet, Path: "", Handler: lessonHandler.ListLessons},
				{Method: http.MethodGet, Path: "/:id", Handler: lessonHandler.GetLesson},
			})
		}

		passes := apiGroup.Group("/class-passes")
		{
			addRoutes(passes, []route{
				{Method: http.MethodGet, Path: "", Handler: classPassHandler.GetUserClassPasses},
			})
		}
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
