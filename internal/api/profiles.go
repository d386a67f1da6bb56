// internal/api/profiles.go
package api

import (
	"encoding/json"

	"agrischemes/internal/common/errors"
	"agrischemes/internal/models"

	"github.com/gofiber/fiber/v2"
)

func registerProfileRoutes(router fiber.Router, deps Deps) {
	profiles := router.Group("/profiles")

	profiles.Get("/:userId", func(c *fiber.Ctx) error {
		return getProfile(c, deps)
	})
	profiles.Put("/:userId", func(c *fiber.Ctx) error {
		return saveProfile(c, deps)
	})
	profiles.Delete("/:userId", func(c *fiber.Ctx) error {
		return deactivateProfile(c, deps)
	})
}

func getProfile(c *fiber.Ctx, deps Deps) error {
	userID := c.Params("userId")
	if err := requireSelfOrAdmin(c, userID); err != nil {
		return err
	}

	profile, err := deps.Profiles.GetProfile(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": profile})
}

func saveProfile(c *fiber.Ctx, deps Deps) error {
	userID := c.Params("userId")
	if err := requireSelfOrAdmin(c, userID); err != nil {
		return err
	}
	if err := validatePayload(c.Body(), profilePayloadSchema); err != nil {
		return err
	}

	var profile models.ApplicantProfile
	if err := json.Unmarshal(c.Body(), &profile); err != nil {
		return errors.NewInvalidInputError("request body is not valid JSON")
	}
	profile.UserID = userID
	// Profiles are only deactivated through the delete route; an update
	// never carries the active flag.
	profile.Active = true

	if err := deps.Profiles.Save(c.Context(), &profile); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": profile})
}

func deactivateProfile(c *fiber.Ctx, deps Deps) error {
	userID := c.Params("userId")
	if err := requireSelfOrAdmin(c, userID); err != nil {
		return err
	}

	if err := deps.Profiles.Deactivate(c.Context(), userID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func requireSelfOrAdmin(c *fiber.Ctx, userID string) error {
	actor := actorFrom(c)
	if actor.UserID != userID && !actor.IsAdmin() {
		return errors.NewForbiddenError("cannot access another user's profile")
	}
	return nil
}
