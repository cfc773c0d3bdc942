package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"taskmate/internal/model"
	"taskmate/internal/repository"
	"taskmate/pkg/util"
)

var (
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("a valid email and a password of at least 8 characters are required")
)

const minPasswordLen = 8

// UserStore 用户读写
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

type Service struct {
	users     UserStore
	jwtSecret string
	ttl       time.Duration
	logger    *zap.Logger
}

func NewService(users UserStore, jwtSecret string, ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{
		users:     users,
		jwtSecret: jwtSecret,
		ttl:       ttl,
		logger:    logger,
	}
}

// Register creates a new user.
func (s *Service) Register(ctx context.Context, email, password string) (*model.User, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil || len(password) < minPasswordLen {
		return nil, ErrInvalidInput
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		// 并发注册同一邮箱时由唯一索引兜底
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.logger.Info("User registered", zap.Int("user_id", u.ID))
	return u, nil
}

// Login checks user credentials and returns a session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !util.CheckPassword(password, u.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(u.ID, s.jwtSecret, s.ttl)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info("User logged in", zap.Int("user_id", u.ID))
	return token, u, nil
}

// Authenticate 校验会话 token，返回用户 ID
func (s *Service) Authenticate(token string) (int, error) {
	if token == "" {
		return 0, ErrInvalidCredentials
	}
	userID, err := util.ParseJWT(token, s.jwtSecret)
	if err != nil {
		return 0, errors.Join(ErrInvalidCredentials, err)
	}
	return userID, nil
}

// TTL 会话有效期
func (s *Service) TTL() time.Duration { return s.ttl }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
