// internal/api/router.go
package api

import (
	"context"

	"agrischemes/internal/catalog"
	"agrischemes/internal/common/errors"
	"agrischemes/internal/common/logger"
	"agrischemes/internal/lifecycle"
	"agrischemes/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SchemeCatalog is the read/write catalog capability the handlers need.
type SchemeCatalog interface {
	GetScheme(ctx context.Context, schemeID string) (*models.Scheme, error)
	List(ctx context.Context, filter catalog.Filter) ([]*models.Scheme, int, error)
	CreateScheme(ctx context.Context, scheme *models.Scheme) error
	UpdateScheme(ctx context.Context, scheme *models.Scheme) error
	DeactivateScheme(ctx context.Context, schemeID string) error
}

// ApplicationService is the lifecycle capability the handlers need.
type ApplicationService interface {
	CreateDraft(ctx context.Context, applicantID, schemeID string, snapshot models.Snapshot) (*models.Application, error)
	UpdateDraft(ctx context.Context, applicationID string, snapshot models.Snapshot, actor lifecycle.Actor) (*models.Application, error)
	Submit(ctx context.Context, applicationID string, actor lifecycle.Actor) (*models.Application, error)
	Transition(ctx context.Context, applicationID string, req lifecycle.TransitionRequest, actor lifecycle.Actor) (*models.Application, error)
	GetApplication(ctx context.Context, applicationID string) (*models.Application, error)
	ListByApplicant(ctx context.Context, applicantID string, actor lifecycle.Actor) ([]*models.Application, error)
}

// ProfileService is the profile capability the handlers need.
type ProfileService interface {
	GetProfile(ctx context.Context, userID string) (*models.ApplicantProfile, error)
	Save(ctx context.Context, profile *models.ApplicantProfile) error
	Deactivate(ctx context.Context, userID string) error
}

// Evaluator is the standalone eligibility-check capability.
type Evaluator interface {
	Evaluate(profile *models.ApplicantProfile, scheme *models.Scheme) (*models.EligibilityResult, error)
}

// Deps bundles everything the routes delegate to.
type Deps struct {
	Catalog      SchemeCatalog
	Applications ApplicationService
	Profiles     ProfileService
	Evaluator    Evaluator
	Logger       logger.Logger
	MaxPageSize  int
	DefaultPage  int
}

// NewApp builds the Fiber application with all routes registered.
func NewApp(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})

	app.Use(requestContext(deps.Logger))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "status": "ok"})
	})

	api := app.Group("/api")
	registerSchemeRoutes(api, deps)
	registerApplicationRoutes(api, deps)
	registerProfileRoutes(api, deps)

	return app
}

// errorHandler renders DomainErrors with their mapped status and a uniform
// JSON envelope; everything else becomes a 500.
func errorHandler(c *fiber.Ctx, err error) error {
	if fe, ok := err.(*fiber.Error); ok {
		return c.Status(fe.Code).JSON(fiber.Map{
			"success": false,
			"error":   fe.Message,
		})
	}

	de := errors.Normalize(err)
	return c.Status(errors.HTTPStatus(de.Code)).JSON(fiber.Map{
		"success": false,
		"error":   de.Message,
		"code":    de.Code,
		"details": de.Details,
	})
}
