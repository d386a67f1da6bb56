// internal/api/applications.go
package api

import (
	"encoding/json"

	"agrischemes/internal/common/errors"
	"agrischemes/internal/lifecycle"
	"agrischemes/internal/models"

	"github.com/gofiber/fiber/v2"
)

func registerApplicationRoutes(router fiber.Router, deps Deps) {
	apps := router.Group("/applications")

	apps.Post("/", func(c *fiber.Ctx) error {
		return createApplication(c, deps)
	})
	apps.Get("/", func(c *fiber.Ctx) error {
		return listApplications(c, deps)
	})
	apps.Get("/:id", func(c *fiber.Ctx) error {
		return getApplication(c, deps)
	})
	apps.Put("/:id", func(c *fiber.Ctx) error {
		return updateApplication(c, deps)
	})
	apps.Post("/:id/submit", func(c *fiber.Ctx) error {
		return submitApplication(c, deps)
	})
	apps.Post("/:id/transition", func(c *fiber.Ctx) error {
		return transitionApplication(c, deps)
	})
}

type draftPayload struct {
	ApplicantID string          `json:"applicantId"`
	SchemeID    string          `json:"schemeId"`
	Snapshot    models.Snapshot `json:"snapshot"`
}

func createApplication(c *fiber.Ctx, deps Deps) error {
	if err := validatePayload(c.Body(), draftPayloadSchema); err != nil {
		return err
	}

	var payload draftPayload
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return errors.NewInvalidInputError("request body is not valid JSON")
	}

	actor := actorFrom(c)
	if payload.ApplicantID != actor.UserID && !actor.IsAdmin() {
		return errors.NewForbiddenError("cannot create applications for another user")
	}

	app, err := deps.Applications.CreateDraft(c.Context(), payload.ApplicantID, payload.SchemeID, payload.Snapshot)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": app})
}

func listApplications(c *fiber.Ctx, deps Deps) error {
	actor := actorFrom(c)
	applicantID := c.Query("applicantId")
	if applicantID == "" {
		applicantID = actor.UserID
	}

	apps, err := deps.Applications.ListByApplicant(c.Context(), applicantID, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": apps})
}

func getApplication(c *fiber.Ctx, deps Deps) error {
	app, err := deps.Applications.GetApplication(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	actor := actorFrom(c)
	if app.ApplicantID != actor.UserID && !actor.IsAdmin() {
		return errors.NewForbiddenError("cannot view another user's application")
	}
	return c.JSON(fiber.Map{"success": true, "data": app})
}

func updateApplication(c *fiber.Ctx, deps Deps) error {
	var payload struct {
		Snapshot models.Snapshot `json:"snapshot"`
	}
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return errors.NewInvalidInputError("request body is not valid JSON")
	}

	app, err := deps.Applications.UpdateDraft(c.Context(), c.Params("id"), payload.Snapshot, actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": app})
}

func submitApplication(c *fiber.Ctx, deps Deps) error {
	app, err := deps.Applications.Submit(c.Context(), c.Params("id"), actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": app})
}

type transitionPayload struct {
	Target          string               `json:"target"`
	ApprovedAmount  *float64             `json:"approvedAmount"`
	RejectionReason string               `json:"rejectionReason"`
	ReviewNotes     string               `json:"reviewNotes"`
	Disbursement    *models.Disbursement `json:"disbursement"`
}

func transitionApplication(c *fiber.Ctx, deps Deps) error {
	if err := validatePayload(c.Body(), transitionPayloadSchema); err != nil {
		return err
	}

	var payload transitionPayload
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return errors.NewInvalidInputError("request body is not valid JSON")
	}

	req := lifecycle.TransitionRequest{
		Target:          models.ApplicationStatus(payload.Target),
		ApprovedAmount:  payload.ApprovedAmount,
		RejectionReason: payload.RejectionReason,
		ReviewNotes:     payload.ReviewNotes,
		Disbursement:    payload.Disbursement,
	}

	app, err := deps.Applications.Transition(c.Context(), c.Params("id"), req, actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": app})
}
