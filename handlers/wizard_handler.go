package handlers

import (
	"github.com/anjiri1684/tutoring_portal/middleware"
	"github.com/anjiri1684/tutoring_portal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type wizardChoice struct {
	SchoolType  string `json:"school_type"`
	Subject     string `json:"subject"`
	Level       string `json:"level"`
	ClassNumber int    `json:"class_number"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

type wizardContact struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	LessonType string `json:"lesson_type"`
	Notes      string `json:"notes"`
}

func (h *Handler) StartWizard(c *fiber.Ctx) error {
	w := h.Wizards.Create()
	return c.Status(fiber.StatusCreated).JSON(w.View())
}

func (h *Handler) GetWizard(c *fiber.Ctx) error {
	return h.wizardStep(c, func(*services.Wizard) error { return nil })
}

func (h *Handler) DeleteWizard(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid wizard id")
	}
	h.Wizards.Delete(id)
	return c.SendStatus(fiber.StatusNoContent)
}

// wizardStep runs one transition. Errors are returned together with the
// current wizard view so the client keeps its selections.
func (h *Handler) wizardStep(c *fiber.Ctx, step func(w *services.Wizard) error) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid wizard id")
	}
	w, err := h.Wizards.Get(id)
	if err != nil {
		return h.respondError(c, err)
	}

	if err := step(w); err != nil {
		status, msg := h.describe(c, err)
		return c.Status(status).JSON(fiber.Map{"error": msg, "wizard": w.View()})
	}
	return c.JSON(w.View())
}

func (h *Handler) parseChoice(c *fiber.Ctx) (*wizardChoice, error) {
	var req wizardChoice
	if err := c.BodyParser(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (h *Handler) WizardSchoolType(c *fiber.Ctx) error {
	req, err := h.parseChoice(c)
	if err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	return h.wizardStep(c, func(w *services.Wizard) error { return w.ChooseSchoolType(req.SchoolType) })
}

func (h *Handler) WizardSubject(c *fiber.Ctx) error {
	req, err := h.parseChoice(c)
	if err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	return h.wizardStep(c, func(w *services.Wizard) error { return w.ChooseSubject(req.Subject) })
}

func (h *Handler) WizardLevel(c *fiber.Ctx) error {
	req, err := h.parseChoice(c)
	if err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	return h.wizardStep(c, func(w *services.Wizard) error { return w.ChooseLevel(req.Level) })
}

func (h *Handler) WizardClass(c *fiber.Ctx) error {
	req, err := h.parseChoice(c)
	if err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	return h.wizardStep(c, func(w *services.Wizard) error { return w.ChooseClass(req.ClassNumber) })
}

func (h *Handler) WizardProceed(c *fiber.Ctx) error {
	return h.wizardStep(c, func(w *services.Wizard) error { return w.Proceed() })
}

func (h *Handler) WizardBack(c *fiber.Ctx) error {
	return h.wizardStep(c, func(w *services.Wizard) error { return w.Back() })
}

func (h *Handler) WizardDate(c *fiber.Ctx) error {
	req, err := h.parseChoice(c)
	if err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	return h.wizardStep(c, func(w *services.Wizard) error { return w.ChooseDate(c.UserContext(), req.Date) })
}

func (h *Handler) WizardTime(c *fiber.Ctx) error {
	req, err := h.parseChoice(c)
	if err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	return h.wizardStep(c, func(w *services.Wizard) error { return w.ChooseTime(req.Time) })
}

func (h *Handler) WizardContact(c *fiber.Ctx) error {
	var req wizardContact
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	return h.wizardStep(c, func(w *services.Wizard) error {
		return w.SetContact(services.Contact{
			FullName: req.FullName,
			Phone:    req.Phone,
			Email:    req.Email,
		}, req.LessonType, req.Notes)
	})
}

func (h *Handler) WizardSubmit(c *fiber.Ctx) error {
	return h.wizardStep(c, func(w *services.Wizard) error {
		_, err := w.Submit(c.UserContext(), middleware.Session(c))
		return err
	})
}

func (h *Handler) WizardClose(c *fiber.Ctx) error {
	return h.wizardStep(c, func(w *services.Wizard) error {
		w.Close()
		return nil
	})
}
