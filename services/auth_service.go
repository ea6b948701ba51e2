package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anjiri1684/tutoring_portal/models"
	"github.com/anjiri1684/tutoring_portal/notifications"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const TokenTTL = 72 * time.Hour

type RegisterRequest struct {
	FullName string `json:"full_name" validate:"required,min=2,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone" validate:"omitempty,min=6,max=32"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserLookup struct {
	Exists   bool       `json:"exists"`
	ID       *uuid.UUID `json:"id,omitempty"`
	FullName string     `json:"full_name,omitempty"`
	Role     string     `json:"role,omitempty"`
}

type AuthService struct {
	db       *gorm.DB
	secret   []byte
	notifier Notifier
	now      Clock
	logger   *zap.Logger
}

func NewAuthService(db *gorm.DB, secret string, notifier Notifier, now Clock, logger *zap.Logger) *AuthService {
	if now == nil {
		now = time.Now
	}
	return &AuthService{db: db, secret: []byte(secret), notifier: notifier, now: now, logger: logger}
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := validate.Struct(req); err != nil {
		return nil, validationErr(err.Error(), err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		FullName: req.FullName,
		Email:    req.Email,
		Password: string(hashed),
		Role:     models.RoleStudent,
	}
	if req.Phone != "" {
		user.Phone = &req.Phone
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, conflictErr("email already exists", err)
		}
		return nil, transientErr("could not create the account", err)
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	s.notifier.Email(notifications.Email{
		ToName:  user.FullName,
		ToEmail: user.Email,
		Subject: "Welcome!",
		HTML:    "<h1>Welcome!</h1><p>Thank you for registering. You can now book lessons and message your tutor.</p>",
	})
	return &user, nil
}

// Login checks the credentials and returns a signed token.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (string, *models.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		return "", nil, validationErr(err.Error(), err)
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, &Error{Kind: KindUnauthenticated, Msg: "invalid email or password", Err: ErrBadCredentials}
		}
		return "", nil, transientErr("could not sign in, please try again", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return "", nil, &Error{Kind: KindUnauthenticated, Msg: "invalid email or password", Err: ErrBadCredentials}
	}

	token, err := s.IssueToken(&user)
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}

func (s *AuthService) IssueToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"email":   user.Email,
		"role":    user.Role,
		"exp":     s.now().Add(TokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies an HS256 token and returns the session it carries.
func (s *AuthService) ParseToken(raw string) (Session, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return Session{}, &Error{Kind: KindUnauthenticated, Msg: "invalid or expired token", Err: err}
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Session{}, &Error{Kind: KindUnauthenticated, Msg: "invalid or expired token"}
	}
	return SessionFromClaims(claims)
}

// SessionFromClaims builds a session from verified token claims.
func SessionFromClaims(claims jwt.MapClaims) (Session, error) {
	rawID, _ := claims["user_id"].(string)
	id, err := uuid.Parse(rawID)
	if err != nil {
		return Session{}, &Error{Kind: KindUnauthenticated, Msg: "invalid token subject", Err: err}
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	return Session{UserID: id, Email: email, Role: role}, nil
}

func (s *AuthService) Me(ctx context.Context, sess Session) (*models.User, error) {
	if !sess.IsAuthenticated() {
		return nil, &Error{Kind: KindUnauthenticated, Msg: "not signed in"}
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", sess.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("user not found")
		}
		return nil, transientErr("could not load profile", err)
	}
	return &user, nil
}

// LookupByEmail lets the admin check whether a student account exists.
func (s *AuthService) LookupByEmail(ctx context.Context, sess Session, email string) (*UserLookup, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, validationErr("a valid email is required", err)
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &UserLookup{Exists: false}, nil
	}
	if err != nil {
		return nil, transientErr("could not look the user up", err)
	}
	id := user.ID
	return &UserLookup{Exists: true, ID: &id, FullName: user.FullName, Role: user.Role}, nil
}
