package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/eduva-go-api/internal/config"
	"github.com/noah-isme/eduva-go-api/internal/handler"
	"github.com/noah-isme/eduva-go-api/internal/middleware"
	"github.com/noah-isme/eduva-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AssessmentHandler *handler.AssessmentHandler
	QuestionHandler   *handler.QuestionHandler
	AttemptHandler    *handler.AttemptHandler
	GradingHandler    *handler.GradingHandler
	AuditHandler      *handler.AuditHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Teacher surface: authoring, manual grading, audit trail.
	teacher := api.Group("/teacher", jwtMiddleware, middleware.RequireRole("teacher", "admin"))
	if deps.AssessmentHandler != nil {
		assessments := teacher.Group("/assessments")
		deps.AssessmentHandler.RegisterTeacher(assessments)

		if deps.QuestionHandler != nil {
			deps.QuestionHandler.RegisterAssessmentScoped(assessments)
			deps.QuestionHandler.RegisterQuestionScoped(teacher.Group("/questions"))
			deps.QuestionHandler.RegisterOptionScoped(teacher.Group("/options"))
		}
	}
	if deps.GradingHandler != nil {
		deps.GradingHandler.Register(teacher.Group("/grading"))
	}
	if deps.AuditHandler != nil {
		deps.AuditHandler.Register(teacher.Group("/audit"))
	}

	// Student surface: listing, attempt lifecycle.
	student := api.Group("/student", jwtMiddleware, middleware.RequireRole("student"))
	if deps.AssessmentHandler != nil {
		assessments := student.Group("/assessments")
		deps.AssessmentHandler.RegisterStudent(assessments)

		if deps.AttemptHandler != nil {
			deps.AttemptHandler.RegisterAssessmentScoped(assessments, middleware.RateLimit("attempt-start", 5, time.Minute))
		}
	}
	if deps.AttemptHandler != nil {
		deps.AttemptHandler.RegisterAttemptScoped(student.Group("/attempts"))
	}
}
