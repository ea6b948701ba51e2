package handlers

import (
	"github.com/anjiri1684/tutoring_portal/middleware"
	"github.com/anjiri1684/tutoring_portal/services"
	"github.com/anjiri1684/tutoring_portal/websocket"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (h *Handler) StartThread(c *fiber.Ctx) error {
	var req services.StartThreadRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}

	thread, err := h.Messaging.StartThread(c.UserContext(), middleware.Session(c), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(thread)
}

func (h *Handler) AdminStartThread(c *fiber.Ctx) error {
	var req struct {
		StudentID string `json:"student_id"`
		Subject   string `json:"subject"`
		Body      string `json:"body"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		return badRequest(c, "Invalid student_id")
	}

	thread, err := h.Messaging.AdminStartThread(c.UserContext(), middleware.Session(c), studentID, req.Subject, req.Body)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(thread)
}

func (h *Handler) ListThreads(c *fiber.Ctx) error {
	threads, err := h.Messaging.ListThreads(c.UserContext(), middleware.Session(c), services.ThreadFilter{
		UnreadOnly: c.QueryBool("unread", false),
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(threads)
}

func (h *Handler) ListMyThreads(c *fiber.Ctx) error {
	threads, err := h.Messaging.ListMyThreads(c.UserContext(), middleware.Session(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(threads)
}

func (h *Handler) GetThread(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, "Invalid thread id")
	}
	thread, err := h.Messaging.GetThread(c.UserContext(), middleware.Session(c), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(thread)
}

func (h *Handler) AppendEntry(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, "Invalid thread id")
	}
	var req struct {
		Body string `json:"body"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}

	entry, err := h.Messaging.Append(c.UserContext(), middleware.Session(c), id, req.Body)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

func (h *Handler) MarkThreadRead(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, "Invalid thread id")
	}
	if err := h.Messaging.MarkRead(c.UserContext(), middleware.Session(c), id); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) DeleteThread(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, "Invalid thread id")
	}
	if err := h.Messaging.DeleteThread(c.UserContext(), middleware.Session(c), id); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ServeWs authenticates with a first {"type":"auth","token":...} frame and
// then only pushes thread events. Messages are sent over HTTP.
func (h *Handler) ServeWs(c *websocketcontrib.Conn) {
	var auth struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	}
	if err := c.ReadJSON(&auth); err != nil || auth.Type != "auth" {
		_ = c.WriteJSON(fiber.Map{"error": "Invalid or missing auth message"})
		c.Close()
		return
	}

	sess, err := h.Auth.ParseToken(auth.Token)
	if err != nil {
		_ = c.WriteJSON(fiber.Map{"error": "Invalid token"})
		c.Close()
		return
	}

	// Writes after Register go through client, never c directly.
	client := &websocket.Client{UserID: sess.UserID, Admin: sess.IsAdmin(), Conn: c}
	h.Hub.Register(client)
	defer func() {
		h.Hub.Unregister(client)
		c.Close()
	}()
	_ = client.WriteJSON(websocket.Event{Type: "ready"})

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if !websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseNormalClosure) {
				h.Logger.Debug("WebSocket read error", zap.String("user_id", sess.UserID.String()), zap.Error(err))
			}
			return
		}
	}
}
