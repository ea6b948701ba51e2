package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anjiri1684/tutoring_portal/models"
	"github.com/anjiri1684/tutoring_portal/notifications"
	"github.com/anjiri1684/tutoring_portal/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxMessageLength = 5000

// Publisher pushes live thread updates to connected clients.
type Publisher interface {
	Publish(d websocket.Delivery)
}

type StartThreadRequest struct {
	Name    string `json:"name" validate:"omitempty,min=2,max=255"`
	Email   string `json:"email" validate:"omitempty,email"`
	Subject string `json:"subject" validate:"required,max=255"`
	Body    string `json:"body" validate:"required"`
}

type MessagingService struct {
	db          *gorm.DB
	notifier    Notifier
	publisher   Publisher
	frontendURL string
	now         Clock
	logger      *zap.Logger
}

func NewMessagingService(db *gorm.DB, notifier Notifier, publisher Publisher, frontendURL string, now Clock, logger *zap.Logger) *MessagingService {
	if now == nil {
		now = time.Now
	}
	return &MessagingService{
		db:          db,
		notifier:    notifier,
		publisher:   publisher,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         now,
		logger:      logger,
	}
}

func checkBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", validationErr("message cannot be empty", nil)
	}
	if len(body) > maxMessageLength {
		return "", validationErr("message is too long", nil)
	}
	return body, nil
}

// StartThread opens a conversation with the tutor. Anonymous visitors must
// give a name and email; signed-in students use their profile.
func (s *MessagingService) StartThread(ctx context.Context, sess Session, req StartThreadRequest) (*models.ContactThread, error) {
	if err := validate.Struct(req); err != nil {
		return nil, validationErr("subject and message are required", err)
	}
	body, err := checkBody(req.Body)
	if err != nil {
		return nil, err
	}

	thread := models.ContactThread{
		Name:             strings.TrimSpace(req.Name),
		Email:            strings.TrimSpace(req.Email),
		Subject:          strings.TrimSpace(req.Subject),
		IsRead:           false,
		StudentReadReply: true,
		LastSenderType:   models.SenderStudent,
	}

	if sess.IsAuthenticated() {
		user, err := s.loadUser(ctx, sess.UserID)
		if err != nil {
			return nil, err
		}
		uid := user.ID
		thread.UserID = &uid
		thread.Name = user.FullName
		thread.Email = user.Email
	} else if thread.Name == "" || thread.Email == "" {
		return nil, validationErr("name and email are required", nil)
	}

	entry, err := s.create(ctx, &thread, models.SenderStudent, body)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Thread started", zap.String("thread_id", thread.ID.String()), zap.String("email", thread.Email))
	s.notifyAdmin(&thread, body)
	s.publisher.Publish(websocket.Delivery{
		ToAdmins: true,
		Event:    websocket.Event{Type: "thread.created", ThreadID: thread.ID, Payload: entry},
	})
	return &thread, nil
}

// AdminStartThread opens a conversation addressed to one student.
func (s *MessagingService) AdminStartThread(ctx context.Context, sess Session, studentID uuid.UUID, subject, body string) (*models.ContactThread, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	body, err := checkBody(body)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(subject) == "" {
		return nil, validationErr("subject is required", nil)
	}

	student, err := s.loadUser(ctx, studentID)
	if err != nil {
		return nil, err
	}

	uid := student.ID
	thread := models.ContactThread{
		UserID:           &uid,
		Name:             student.FullName,
		Email:            student.Email,
		Subject:          strings.TrimSpace(subject),
		IsRead:           true,
		StudentReadReply: false,
		LastSenderType:   models.SenderAdmin,
	}

	entry, err := s.create(ctx, &thread, models.SenderAdmin, body)
	if err != nil {
		return nil, err
	}

	s.notifyStudent(&thread, body)
	s.publisher.Publish(websocket.Delivery{
		UserID: student.ID,
		Event:  websocket.Event{Type: "thread.created", ThreadID: thread.ID, Payload: entry},
	})
	return &thread, nil
}

func (s *MessagingService) create(ctx context.Context, thread *models.ContactThread, sender models.SenderType, body string) (*models.ThreadEntry, error) {
	now := s.now().UTC()
	thread.CreatedAt = now
	thread.UpdatedAt = now
	entry := models.ThreadEntry{SenderType: sender, Body: body, CreatedAt: now}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Entries").Create(thread).Error; err != nil {
			return err
		}
		entry.ThreadID = thread.ID
		return tx.Create(&entry).Error
	})
	if err != nil {
		s.logger.Error("Failed to create thread", zap.Error(err))
		return nil, transientErr("could not send the message, please try again", err)
	}
	thread.Entries = []models.ThreadEntry{entry}
	return &entry, nil
}

// Append adds one entry to a thread. Students may only write to their own
// threads; admins to any.
func (s *MessagingService) Append(ctx context.Context, sess Session, threadID uuid.UUID, body string) (*models.ThreadEntry, error) {
	body, err := checkBody(body)
	if err != nil {
		return nil, err
	}

	thread, err := s.loadThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if err := canAccess(sess, thread); err != nil {
		return nil, err
	}

	sender := models.SenderStudent
	updates := map[string]interface{}{"last_sender_type": models.SenderStudent, "is_read": false}
	if sess.IsAdmin() {
		sender = models.SenderAdmin
		updates = map[string]interface{}{"last_sender_type": models.SenderAdmin, "student_read_reply": false}
	}

	now := s.now().UTC()
	updates["updated_at"] = now
	entry := models.ThreadEntry{ThreadID: thread.ID, SenderType: sender, Body: body, CreatedAt: now}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return tx.Model(&models.ContactThread{}).Where("id = ?", thread.ID).Updates(updates).Error
	})
	if err != nil {
		s.logger.Error("Failed to append message", zap.String("thread_id", thread.ID.String()), zap.Error(err))
		return nil, transientErr("could not send the message, please try again", err)
	}

	event := websocket.Event{Type: "thread.entry", ThreadID: thread.ID, Payload: entry}
	if sender == models.SenderAdmin {
		s.notifyStudent(thread, body)
		if thread.UserID != nil {
			s.publisher.Publish(websocket.Delivery{UserID: *thread.UserID, Event: event})
		}
	} else {
		s.notifyAdmin(thread, body)
		s.publisher.Publish(websocket.Delivery{ToAdmins: true, Event: event})
	}
	return &entry, nil
}

type ThreadFilter struct {
	UnreadOnly bool
}

func (s *MessagingService) ListThreads(ctx context.Context, sess Session, f ThreadFilter) ([]models.ContactThread, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Model(&models.ContactThread{})
	if f.UnreadOnly {
		q = q.Where("is_read = ?", false)
	}

	threads := []models.ContactThread{}
	if err := q.Order("updated_at DESC").Find(&threads).Error; err != nil {
		return nil, transientErr("could not load messages", err)
	}
	return threads, nil
}

func (s *MessagingService) ListMyThreads(ctx context.Context, sess Session) ([]models.ContactThread, error) {
	if !sess.IsAuthenticated() {
		return nil, &Error{Kind: KindAuthorization, Msg: "sign in to see your messages"}
	}

	threads := []models.ContactThread{}
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", sess.UserID).
		Order("updated_at DESC").
		Find(&threads).Error; err != nil {
		return nil, transientErr("could not load messages", err)
	}
	return threads, nil
}

// GetThread returns a thread with its entries in the order they were written.
func (s *MessagingService) GetThread(ctx context.Context, sess Session, id uuid.UUID) (*models.ContactThread, error) {
	var thread models.ContactThread
	err := s.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		First(&thread, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("conversation not found")
		}
		return nil, transientErr("could not load the conversation", err)
	}
	if err := canAccess(sess, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

// MarkRead clears the unread flag of whoever is reading.
func (s *MessagingService) MarkRead(ctx context.Context, sess Session, id uuid.UUID) error {
	thread, err := s.loadThread(ctx, id)
	if err != nil {
		return err
	}
	if err := canAccess(sess, thread); err != nil {
		return err
	}

	column := "student_read_reply"
	if sess.IsAdmin() {
		column = "is_read"
	}
	if err := s.db.WithContext(ctx).Model(&models.ContactThread{}).
		Where("id = ?", id).
		UpdateColumn(column, true).Error; err != nil {
		return transientErr("could not update the conversation", err)
	}
	return nil
}

func (s *MessagingService) DeleteThread(ctx context.Context, sess Session, id uuid.UUID) error {
	if err := sess.requireAdmin(); err != nil {
		return err
	}

	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("thread_id = ?", id).Delete(&models.ThreadEntry{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.ContactThread{}, "id = ?", id)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return transientErr("could not delete the conversation", err)
	}
	if affected == 0 {
		return notFoundErr("conversation not found")
	}
	return nil
}

func canAccess(sess Session, thread *models.ContactThread) error {
	if sess.IsAdmin() {
		return nil
	}
	if sess.IsAuthenticated() && thread.UserID != nil && *thread.UserID == sess.UserID {
		return nil
	}
	return &Error{Kind: KindAuthorization, Msg: "you do not have access to this conversation"}
}

func (s *MessagingService) loadThread(ctx context.Context, id uuid.UUID) (*models.ContactThread, error) {
	var thread models.ContactThread
	if err := s.db.WithContext(ctx).First(&thread, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("conversation not found")
		}
		return nil, transientErr("could not load the conversation", err)
	}
	return &thread, nil
}

func (s *MessagingService) loadUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("user not found")
		}
		return nil, transientErr("could not load user", err)
	}
	return &user, nil
}

func (s *MessagingService) notifyAdmin(thread *models.ContactThread, body string) {
	html, err := notifications.NewMessageEmail(notifications.MessageDetails{
		Name:    thread.Name,
		Email:   thread.Email,
		Subject: thread.Subject,
		Body:    body,
	})
	if err != nil {
		s.logger.Error("Failed to render message email", zap.Error(err))
	} else {
		s.notifier.EmailAdmin("New message: "+thread.Subject, html)
	}
	s.notifier.AlertAdmin(fmt.Sprintf("New message from %s (%s): %s", thread.Name, thread.Email, thread.Subject))
}

func (s *MessagingService) notifyStudent(thread *models.ContactThread, body string) {
	html, err := notifications.ReplyEmail(notifications.MessageDetails{
		Name:    thread.Name,
		Subject: thread.Subject,
		Body:    body,
		Link:    s.frontendURL + "/messages/" + thread.ID.String(),
	})
	if err != nil {
		s.logger.Error("Failed to render reply email", zap.Error(err))
		return
	}
	s.notifier.Email(notifications.Email{
		ToName:  thread.Name,
		ToEmail: thread.Email,
		Subject: "Re: " + thread.Subject,
		HTML:    html,
	})
}
