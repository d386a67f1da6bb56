// internal/api/schemes.go
package api

import (
	"encoding/json"
	"strconv"

	"agrischemes/internal/catalog"
	"agrischemes/internal/common/errors"
	"agrischemes/internal/models"

	"github.com/gofiber/fiber/v2"
)

func registerSchemeRoutes(router fiber.Router, deps Deps) {
	schemes := router.Group("/schemes")

	schemes.Get("/", func(c *fiber.Ctx) error {
		return listSchemes(c, deps)
	})
	schemes.Get("/:id", func(c *fiber.Ctx) error {
		return getScheme(c, deps)
	})
	schemes.Post("/check", func(c *fiber.Ctx) error {
		return checkEligibility(c, deps)
	})

	schemes.Post("/", func(c *fiber.Ctx) error {
		return createScheme(c, deps)
	})
	schemes.Put("/:id", func(c *fiber.Ctx) error {
		return updateScheme(c, deps)
	})
	schemes.Delete("/:id", func(c *fiber.Ctx) error {
		return deactivateScheme(c, deps)
	})
}

func listSchemes(c *fiber.Ctx, deps Deps) error {
	filter := catalog.Filter{
		Category: models.SchemeCategory(c.Query("category")),
		State:    c.Query("state"),
		Crop:     c.Query("crop"),
		Query:    c.Query("q"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "pageSize", deps.DefaultPage),
	}
	if deps.MaxPageSize > 0 && filter.PageSize > deps.MaxPageSize {
		filter.PageSize = deps.MaxPageSize
	}

	schemes, total, err := deps.Catalog.List(c.Context(), filter)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    schemes,
		"pagination": fiber.Map{
			"page":     filter.Page,
			"pageSize": filter.PageSize,
			"total":    total,
		},
	})
}

func getScheme(c *fiber.Ctx, deps Deps) error {
	scheme, err := deps.Catalog.GetScheme(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": scheme})
}

// checkEligibility evaluates an ad-hoc profile against a scheme without
// creating an application.
func checkEligibility(c *fiber.Ctx, deps Deps) error {
	if err := validatePayload(c.Body(), checkPayloadSchema); err != nil {
		return err
	}

	var payload struct {
		Profile  models.ApplicantProfile `json:"profile"`
		SchemeID string                  `json:"schemeId"`
	}
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return errors.NewInvalidInputError("request body is not valid JSON")
	}

	scheme, err := deps.Catalog.GetScheme(c.Context(), payload.SchemeID)
	if err != nil {
		return err
	}

	result, err := deps.Evaluator.Evaluate(&payload.Profile, scheme)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": result})
}

func createScheme(c *fiber.Ctx, deps Deps) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	if err := validatePayload(c.Body(), schemePayloadSchema); err != nil {
		return err
	}

	var scheme models.Scheme
	if err := json.Unmarshal(c.Body(), &scheme); err != nil {
		return errors.NewInvalidInputError("request body is not valid JSON")
	}

	if err := deps.Catalog.CreateScheme(c.Context(), &scheme); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": scheme})
}

func updateScheme(c *fiber.Ctx, deps Deps) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	if err := validatePayload(c.Body(), schemePayloadSchema); err != nil {
		return err
	}

	var scheme models.Scheme
	if err := json.Unmarshal(c.Body(), &scheme); err != nil {
		return errors.NewInvalidInputError("request body is not valid JSON")
	}
	scheme.ID = c.Params("id")

	if err := deps.Catalog.UpdateScheme(c.Context(), &scheme); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": scheme})
}

func deactivateScheme(c *fiber.Ctx, deps Deps) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	if err := deps.Catalog.DeactivateScheme(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func requireAdmin(c *fiber.Ctx) error {
	if actorFrom(c).Role != models.RoleAdmin {
		return errors.NewForbiddenError("admin role required")
	}
	return nil
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
