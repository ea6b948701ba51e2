package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/anjiri1684/tutoring_portal/models"
	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Raw HTML in note bodies is escaped (no WithUnsafe).
var markdown = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkhtml.WithHardWraps(),
	),
)

// FileStore keeps note attachments.
type FileStore interface {
	Upload(ctx context.Context, r io.Reader, filename string) (url, publicID string, err error)
	Delete(ctx context.Context, publicID string) error
}

type NoteInput struct {
	StudentID uuid.UUID `validate:"required"`
	Title     string    `validate:"required,max=255"`
	Body      string    `validate:"max=20000"`
}

type Attachment struct {
	Filename string
	Content  io.Reader
}

type NoteService struct {
	db     *gorm.DB
	files  FileStore
	logger *zap.Logger
}

// NewNoteService accepts a nil FileStore, in which case attachments are refused.
func NewNoteService(db *gorm.DB, files FileStore, logger *zap.Logger) *NoteService {
	return &NoteService{db: db, files: files, logger: logger}
}

func (s *NoteService) Create(ctx context.Context, sess Session, in NoteInput, file *Attachment) (*models.StudentNote, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := validate.Struct(in); err != nil {
		return nil, validationErr("student and title are required", err)
	}

	var student models.User
	if err := s.db.WithContext(ctx).First(&student, "id = ?", in.StudentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("student not found")
		}
		return nil, transientErr("could not load student", err)
	}

	note := models.StudentNote{
		StudentID: student.ID,
		CreatedBy: sess.UserID,
		Title:     in.Title,
		Body:      in.Body,
	}

	if file != nil {
		if s.files == nil {
			return nil, validationErr("file uploads are not configured", nil)
		}
		url, publicID, err := s.files.Upload(ctx, file.Content, file.Filename)
		if err != nil {
			s.logger.Error("Failed to upload note attachment", zap.Error(err))
			return nil, transientErr("could not upload the file, please try again", err)
		}
		note.FileURL = &url
		note.FilePublicID = &publicID
	}

	if err := s.db.WithContext(ctx).Create(&note).Error; err != nil {
		if note.FilePublicID != nil {
			s.removeFile(ctx, *note.FilePublicID)
		}
		return nil, transientErr("could not save the note", err)
	}

	s.logger.Info("Note created", zap.String("note_id", note.ID.String()), zap.String("student_id", student.ID.String()))
	renderNote(&note)
	return &note, nil
}

// Delete removes the note and, best effort, its attachment.
func (s *NoteService) Delete(ctx context.Context, sess Session, id uuid.UUID) error {
	if err := sess.requireAdmin(); err != nil {
		return err
	}

	var note models.StudentNote
	if err := s.db.WithContext(ctx).First(&note, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundErr("note not found")
		}
		return transientErr("could not load the note", err)
	}
	if err := s.db.WithContext(ctx).Delete(&note).Error; err != nil {
		return transientErr("could not delete the note", err)
	}

	if note.FilePublicID != nil {
		s.removeFile(ctx, *note.FilePublicID)
	}
	return nil
}

func (s *NoteService) removeFile(ctx context.Context, publicID string) {
	if s.files == nil {
		return
	}
	if err := s.files.Delete(ctx, publicID); err != nil {
		s.logger.Warn("Failed to delete note attachment", zap.String("public_id", publicID), zap.Error(err))
	}
}

func (s *NoteService) ListMine(ctx context.Context, sess Session) ([]models.StudentNote, error) {
	if !sess.IsAuthenticated() {
		return nil, &Error{Kind: KindAuthorization, Msg: "sign in to see your notes"}
	}
	return s.list(ctx, sess.UserID)
}

func (s *NoteService) ListForStudent(ctx context.Context, sess Session, studentID uuid.UUID) ([]models.StudentNote, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	return s.list(ctx, studentID)
}

func (s *NoteService) list(ctx context.Context, studentID uuid.UUID) ([]models.StudentNote, error) {
	notes := []models.StudentNote{}
	if err := s.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&notes).Error; err != nil {
		return nil, transientErr("could not load notes", err)
	}
	for i := range notes {
		renderNote(&notes[i])
	}
	return notes, nil
}

func renderNote(n *models.StudentNote) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(n.Body), &buf); err != nil {
		n.BodyHTML = ""
		return
	}
	n.BodyHTML = buf.String()
}
