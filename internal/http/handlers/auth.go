package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/primeestates/primeestates/internal/auth"
	"github.com/primeestates/primeestates/internal/config"
	"github.com/primeestates/primeestates/internal/domain/user"
	"github.com/primeestates/primeestates/internal/http/middlewares"
)

// Keep this small so tests can fake the service easily.
type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput) error
	VerifyEmail(ctx context.Context, presentedToken string) error
	Login(ctx context.Context, email, password string) (auth.LoginResult, error)
	ResendVerification(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, presentedToken, newPassword string) error
	CurrentUser(ctx context.Context, userID string) (user.Summary, error)
}

type AuthHandler struct {
	svc AuthService
	cfg config.Config
}

func NewAuthHandler(svc AuthService, cfg config.Config) *AuthHandler {
	return &AuthHandler{svc: svc, cfg: cfg}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=6"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// generous timeout: this path sends the verification email inline
	cctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	err := h.svc.Register(cctx, auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})

	if err != nil {
		h.respondAuthError(ctx, err, "Invalid or expired verification token")
		return
	}

	RespondMessage(ctx, http.StatusCreated, "User registered! Please verify your email")
}

func (h *AuthHandler) VerifyEmail(ctx *gin.Context) {
	token := ctx.Param("token")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.svc.VerifyEmail(cctx, token); err != nil {
		h.respondAuthError(ctx, err, "Invalid or expired verification token")
		return
	}

	RespondMessage(ctx, http.StatusOK, "Email verified successfully")
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	result, err := h.svc.Login(cctx, req.Email, req.Password)

	if err != nil {
		h.respondAuthError(ctx, err, "")
		return
	}

	h.setSessionCookie(ctx, result.Token)

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   result.Token,
		"user":    result.User,
	})
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	// Stateless sessions: nothing to revoke, just have the client drop its copy.
	h.clearSessionCookie(ctx)

	RespondMessage(ctx, http.StatusOK, "User logged out successfully")
}

func (h *AuthHandler) ResendVerification(ctx *gin.Context) {
	var req EmailRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := h.svc.ResendVerification(cctx, req.Email); err != nil {
		h.respondAuthError(ctx, err, "")
		return
	}

	RespondMessage(ctx, http.StatusOK, "Verification email sent")
}

func (h *AuthHandler) ForgotPassword(ctx *gin.Context) {
	var req EmailRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := h.svc.ForgotPassword(cctx, req.Email); err != nil {
		h.respondAuthError(ctx, err, "")
		return
	}

	RespondMessage(ctx, http.StatusOK, "Reset email sent")
}

func (h *AuthHandler) ResetPassword(ctx *gin.Context) {
	token := ctx.Param("token")

	var req ResetPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.svc.ResetPassword(cctx, token, req.Password); err != nil {
		h.respondAuthError(ctx, err, "Invalid or expired reset token")
		return
	}

	RespondMessage(ctx, http.StatusOK, "Password reset successful")
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnauthorized(ctx, "Not authorized to access this route")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	summary, err := h.svc.CurrentUser(cctx, userID)

	if err != nil {
		h.respondAuthError(ctx, err, "")
		return
	}

	RespondData(ctx, http.StatusOK, summary)
}

// respondAuthError maps service failures onto the envelope. tokenMessage
// carries the endpoint-specific wording for invalid/expired tokens.
func (h *AuthHandler) respondAuthError(ctx *gin.Context, err error, tokenMessage string) {
	switch {
	case errors.Is(err, auth.ErrValidation):
		RespondBadRequest(ctx, "Please provide all required fields", nil)
	case errors.Is(err, auth.ErrEmailTaken):
		RespondBadRequest(ctx, "Email is already registered", nil)
	case errors.Is(err, auth.ErrInvalidCredentials):
		RespondUnauthorized(ctx, "Invalid credentials")
	case errors.Is(err, auth.ErrUnverifiedAccount):
		RespondUnauthorized(ctx, "Please verify your email first")
	case errors.Is(err, auth.ErrAlreadyVerified):
		RespondBadRequest(ctx, "Email already verified", nil)
	case errors.Is(err, auth.ErrUserNotFound):
		RespondNotFound(ctx, "User not found")
	case errors.Is(err, auth.ErrInvalidOrExpired):
		RespondBadRequest(ctx, tokenMessage, nil)
	case errors.Is(err, auth.ErrDelivery):
		RespondInternal(ctx, "Email could not be sent")
	default:
		RespondInternal(ctx, "Something went wrong")
	}
}

// session cookie helpers

func (h *AuthHandler) setSessionCookie(ctx *gin.Context, token string) {
	secure := h.cfg.IsProd()

	if secure {
		ctx.SetSameSite(http.SameSiteNoneMode)
	} else {
		ctx.SetSameSite(http.SameSiteLaxMode)
	}

	ctx.SetCookie(
		h.cfg.CookieName,
		token,
		int(h.cfg.SessionTTL().Seconds()),
		"/",
		"",
		secure,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearSessionCookie(ctx *gin.Context) {
	secure := h.cfg.IsProd()
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(
		h.cfg.CookieName,
		"none",
		10, // matches the short grace the web client expects
		"/",
		"",
		secure,
		true,
	)
}
