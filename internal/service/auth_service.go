package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"nclexkeys/backend/internal/model"
	"nclexkeys/backend/internal/repository"
	"nclexkeys/backend/pkg/crypto"
	jwtpkg "nclexkeys/backend/pkg/jwt"
)

const (
	refreshKeyPrefix      = "refresh:"
	verifyEmailKeyPrefix  = "verify_email:"
	emailVerificationTTL  = 24 * time.Hour
	minimumPasswordLength = 8
)

// TokenSet represents a set of tokens returned after authentication.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type RegisterInput struct {
	Email            string
	Password         string
	FullName         string
	RegistrationCode string
}

type AuthService interface {
	// Register creates a student account. The code is consumed in the same
	// transaction, so a failed registration leaves it unused.
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*TokenSet, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID uuid.UUID) (*model.User, error)
	SendVerification(ctx context.Context, userID uuid.UUID) error
	VerifyEmail(ctx context.Context, token string) error
}

type authService struct {
	userRepo    repository.UserRepository
	codes       RegistrationCodeService
	tx          repository.Transactor
	stateStore  repository.StateStore
	jwtManager  *jwtpkg.Manager
	mailer      MailSender
	logger      *zap.Logger
	frontendURL string
}

func NewAuthService(
	userRepo repository.UserRepository,
	codes RegistrationCodeService,
	tx repository.Transactor,
	stateStore repository.StateStore,
	jwtManager *jwtpkg.Manager,
	mailer MailSender,
	logger *zap.Logger,
	frontendURL string,
) AuthService {
	return &authService{
		userRepo:    userRepo,
		codes:       codes,
		tx:          tx,
		stateStore:  stateStore,
		jwtManager:  jwtManager,
		mailer:      mailer,
		logger:      logger,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	return email, nil
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < minimumPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minimumPasswordLength)
	}
	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var user *model.User
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		code, err := s.codes.Validate(ctx, in.RegistrationCode, "")
		if err != nil {
			return err
		}

		_, err = s.userRepo.GetByEmail(ctx, email)
		switch {
		case err == nil:
			return ErrEmailAlreadyExists
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("lookup user: %w", err)
		}

		user = &model.User{
			Email:        email,
			FullName:     strings.TrimSpace(in.FullName),
			Role:         model.RoleStudent,
			Program:      code.Program,
			PasswordHash: hash,
			Status:       model.UserStatusActive,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		_, err = s.codes.Consume(ctx, code.Code, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("student registered", zap.String("user_id", user.ID.String()), zap.String("program", string(user.Program)))
	if err := s.SendVerification(ctx, user.ID); err != nil {
		s.logger.Warn("send verification email failed", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*TokenSet, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !crypto.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if user.Status != model.UserStatusActive {
		return nil, ErrUserDisabled
	}
	return s.issueTokens(ctx, user)
}

func (s *authService) issueTokens(ctx context.Context, user *model.User) (*TokenSet, error) {
	id := jwtpkg.Identity{UserID: user.ID, Email: user.Email, Role: string(user.Role)}
	access, err := s.jwtManager.GenerateAccessToken(id)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, claims, err := s.jwtManager.GenerateRefreshToken(id)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	if err := s.stateStore.Set(ctx, refreshKeyPrefix+claims.ID, []byte(user.ID.String()), s.jwtManager.RefreshTokenTTL()); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &TokenSet{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.jwtManager.AccessTokenTTL().Seconds()),
	}, nil
}

func (s *authService) parseRefresh(refreshToken string) (*jwtpkg.Claims, error) {
	claims, err := s.jwtManager.Validate(refreshToken)
	if err != nil || claims.TokenType != jwtpkg.TokenTypeRefresh {
		return nil, ErrRefreshTokenInvalid
	}
	return claims, nil
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error) {
	claims, err := s.parseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	// Rotate: taking the JTI revokes the presented token, and only one caller gets it.
	ok, err := s.stateStore.Take(ctx, refreshKeyPrefix+claims.ID)
	if err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}
	if !ok {
		return nil, ErrRefreshTokenInvalid
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrRefreshTokenInvalid
	}
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status != model.UserStatusActive {
		return nil, ErrUserDisabled
	}
	return s.issueTokens(ctx, user)
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.parseRefresh(refreshToken)
	if err != nil {
		return err
	}
	return s.stateStore.Delete(ctx, refreshKeyPrefix+claims.ID)
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *authService) SendVerification(ctx context.Context, userID uuid.UUID) error {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsEmailVerified {
		return nil
	}

	token := uuid.NewString()
	if err := s.stateStore.Set(ctx, verifyEmailKeyPrefix+token, []byte(user.ID.String()), emailVerificationTTL); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}
	link := fmt.Sprintf("%s/verify-email?token=%s", s.frontendURL, token)
	body := fmt.Sprintf("Hello %s,\n\nConfirm your email address by opening:\n\n%s\n\nThe link expires in 24 hours.\n", user.FullName, link)
	return s.mailer.Send(ctx, user.Email, "Verify your email address", body)
}

func (s *authService) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrVerificationInvalid
	}
	key := verifyEmailKeyPrefix + token
	raw, err := s.stateStore.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load verification token: %w", err)
	}
	if raw == nil {
		return ErrVerificationInvalid
	}
	userID, err := uuid.Parse(string(raw))
	if err != nil {
		return ErrVerificationInvalid
	}
	if err := s.userRepo.MarkEmailVerified(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("mark email verified: %w", err)
	}
	return s.stateStore.Delete(ctx, key)
}

// ensure authService implements AuthService
var _ AuthService = (*authService)(nil)
