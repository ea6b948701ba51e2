package handlers

import (
	"github.com/anjiri1684/tutoring_portal/middleware"
	"github.com/anjiri1684/tutoring_portal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const maxNoteFileSize = 10 << 20

// CreateNote accepts multipart form data: student_id, title, body and an
// optional file.
func (h *Handler) CreateNote(c *fiber.Ctx) error {
	studentID, err := uuid.Parse(c.FormValue("student_id"))
	if err != nil {
		return badRequest(c, "Invalid student_id")
	}

	var attachment *services.Attachment
	if fh, err := c.FormFile("file"); err == nil {
		if fh.Size > maxNoteFileSize {
			return badRequest(c, "File is too large")
		}
		f, err := fh.Open()
		if err != nil {
			return badRequest(c, "Cannot read file")
		}
		defer f.Close()
		attachment = &services.Attachment{Filename: fh.Filename, Content: f}
	}

	note, err := h.Notes.Create(c.UserContext(), middleware.Session(c), services.NoteInput{
		StudentID: studentID,
		Title:     c.FormValue("title"),
		Body:      c.FormValue("body"),
	}, attachment)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(note)
}

func (h *Handler) ListStudentNotes(c *fiber.Ctx) error {
	studentID, err := uuid.Parse(c.Query("student_id"))
	if err != nil {
		return badRequest(c, "Invalid student_id")
	}
	notes, err := h.Notes.ListForStudent(c.UserContext(), middleware.Session(c), studentID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(notes)
}

func (h *Handler) ListMyNotes(c *fiber.Ctx) error {
	notes, err := h.Notes.ListMine(c.UserContext(), middleware.Session(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(notes)
}

func (h *Handler) DeleteNote(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, "Invalid note id")
	}
	if err := h.Notes.Delete(c.UserContext(), middleware.Session(c), id); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
