package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/primeestates/primeestates/internal/config"
	"github.com/primeestates/primeestates/internal/domain/user"
	"github.com/primeestates/primeestates/internal/security"
)

// UserStore is the slice of the repository the auth flows need.
// Token consumption must be atomic: match-and-clear in one store operation,
// so two concurrent attempts with the same token cannot both succeed.
type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)

	SetVerificationToken(ctx context.Context, id, tokenHash string, expires time.Time) error
	ClearVerificationToken(ctx context.Context, id string) error
	ConsumeVerificationToken(ctx context.Context, tokenHash string, now time.Time) (user.User, error)

	SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, newPasswordHash string) (user.User, error)
}

// Mailer delivers a single templated message. Delivery failures surface as
// errors so the caller can roll back the just-issued token.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Service owns every registration, verification, login and password-recovery
// state transition.
type Service struct {
	users  UserStore
	mail   Mailer
	jwt    *Manager
	cfg    config.Config
	tracer trace.Tracer
}

func NewService(users UserStore, mail Mailer, jwtManager *Manager, cfg config.Config) *Service {
	return &Service{
		users:  users,
		mail:   mail,
		jwt:    jwtManager,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/primeestates/primeestates/internal/auth"),
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// Register creates an unverified user and emails a verification link.
// Exactly one email is sent on the success path; if delivery fails the token
// pair is cleared and the user row stays behind so a resend can recover.
func (s *Service) Register(ctx context.Context, in RegisterInput) error {
	ctx, span := s.tracer.Start(ctx, "AuthService.Register")
	defer span.End()

	if strings.TrimSpace(in.Name) == "" ||
		strings.TrimSpace(in.Email) == "" ||
		strings.TrimSpace(in.Phone) == "" ||
		in.Password == "" {
		return ErrValidation
	}

	in.Email = normalizeEmail(in.Email)

	_, err := s.users.GetByEmail(ctx, in.Email)

	if err == nil {
		return ErrEmailTaken
	}

	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, err := security.HashPassword(in.Password)

	if err != nil {
		return err
	}

	now := time.Now().UTC()

	u, err := s.users.Create(ctx, user.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: hash,
		Role:         user.RoleUser,
		IsVerified:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
	})

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return ErrEmailTaken
		}

		return err
	}

	return s.issueTokenAndNotify(ctx, u, verificationToken)
}

// VerifyEmail consumes a verification token. The store clears the token in
// the same conditional update that matches it, so a second attempt with the
// same token fails.
func (s *Service) VerifyEmail(ctx context.Context, presentedToken string) error {
	ctx, span := s.tracer.Start(ctx, "AuthService.VerifyEmail")
	defer span.End()

	if presentedToken == "" {
		return ErrInvalidOrExpired
	}

	_, err := s.users.ConsumeVerificationToken(ctx, security.HashToken(presentedToken), time.Now().UTC())

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrInvalidOrExpired
		}

		return err
	}

	return nil
}

type LoginResult struct {
	Token string
	User  user.Summary
}

// Login checks credentials and mints a session credential. Unknown email and
// wrong password produce the same error so accounts cannot be enumerated.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	if strings.TrimSpace(email) == "" || password == "" {
		return LoginResult{}, ErrValidation
	}

	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}

		return LoginResult{}, err
	}

	if !u.IsVerified {
		return LoginResult{}, ErrUnverifiedAccount
	}

	if err := security.CheckPassword(u.PasswordHash, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateSessionToken(u.ID, u.Role)

	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{Token: token, User: u.Summary()}, nil
}

// ResendVerification re-issues a verification token for an unverified account.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	ctx, span := s.tracer.Start(ctx, "AuthService.ResendVerification")
	defer span.End()

	if strings.TrimSpace(email) == "" {
		return ErrValidation
	}

	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUserNotFound
		}

		return err
	}

	if u.IsVerified {
		return ErrAlreadyVerified
	}

	return s.issueTokenAndNotify(ctx, u, verificationToken)
}

// ForgotPassword issues a reset token and emails the reset link.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	ctx, span := s.tracer.Start(ctx, "AuthService.ForgotPassword")
	defer span.End()

	if strings.TrimSpace(email) == "" {
		return ErrValidation
	}

	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUserNotFound
		}

		return err
	}

	return s.issueTokenAndNotify(ctx, u, resetToken)
}

// ResetPassword consumes a reset token and replaces the password hash in the
// same conditional update.
func (s *Service) ResetPassword(ctx context.Context, presentedToken, newPassword string) error {
	ctx, span := s.tracer.Start(ctx, "AuthService.ResetPassword")
	defer span.End()

	if presentedToken == "" || newPassword == "" {
		return ErrValidation
	}

	hash, err := security.HashPassword(newPassword)

	if err != nil {
		return err
	}

	_, err = s.users.ConsumeResetToken(ctx, security.HashToken(presentedToken), time.Now().UTC(), hash)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrInvalidOrExpired
		}

		return err
	}

	return nil
}

// CurrentUser resolves a verified session identity to a fresh safe projection.
func (s *Service) CurrentUser(ctx context.Context, userID string) (user.Summary, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.CurrentUser")
	defer span.End()

	u, err := s.users.GetByID(ctx, userID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.Summary{}, ErrUserNotFound
		}

		return user.Summary{}, err
	}

	return u.Summary(), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// token issuance shared by register, resend-verification and forgot-password

type tokenKind int

const (
	verificationToken tokenKind = iota
	resetToken
)

// issueTokenAndNotify generates a token pair, persists the hash + expiry and
// emails the plaintext link. If the email cannot be delivered the token pair
// is cleared again so the row is never left holding an undeliverable secret.
func (s *Service) issueTokenAndNotify(ctx context.Context, u user.User, kind tokenKind) error {
	plain, hash, err := security.NewToken()

	if err != nil {
		return err
	}

	var (
		subject string
		body    string
		expires time.Time
	)

	switch kind {
	case verificationToken:
		expires = time.Now().UTC().Add(s.cfg.VerificationTTL)

		if err := s.users.SetVerificationToken(ctx, u.ID, hash, expires); err != nil {
			return err
		}

		subject = "Email Verification - Prime Estates"
		body = verificationEmailBody(s.cfg.FrontendURL + "/verify-email/" + plain)

	case resetToken:
		expires = time.Now().UTC().Add(s.cfg.ResetTTL)

		if err := s.users.SetResetToken(ctx, u.ID, hash, expires); err != nil {
			return err
		}

		subject = "Password Reset - Prime Estates"
		body = resetEmailBody(s.cfg.FrontendURL + "/reset-password/" + plain)
	}

	if err := s.mail.Send(ctx, u.Email, subject, body); err != nil {
		// Roll back: a persisted token nobody received must not stay around.
		var clearErr error

		switch kind {
		case verificationToken:
			clearErr = s.users.ClearVerificationToken(ctx, u.ID)
		case resetToken:
			clearErr = s.users.ClearResetToken(ctx, u.ID)
		}

		if clearErr != nil {
			return fmt.Errorf("%w (token rollback also failed: %s)", ErrDelivery, clearErr)
		}

		return fmt.Errorf("%w: %s", ErrDelivery, err)
	}

	return nil
}

func verificationEmailBody(link string) string {
	return fmt.Sprintf(`
      <h1>Email Verification</h1>
      <p>Please verify your email by clicking on the link below:</p>
      <a href="%s" target="_blank">Verify Email</a>
    `, link)
}

func resetEmailBody(link string) string {
	return fmt.Sprintf(`
      <h1>Password Reset</h1>
      <p>Please reset your password by clicking on the link below:</p>
      <a href="%s" target="_blank">Reset Password</a>
      <p>If you did not request this, please ignore this email.</p>
    `, link)
}
