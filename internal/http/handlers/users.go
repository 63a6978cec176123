package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/primeestates/primeestates/internal/cache"
	"github.com/primeestates/primeestates/internal/config"
	"github.com/primeestates/primeestates/internal/domain/user"
)

const userListCacheKey = "users:list"

type UserAdminStore interface {
	List(ctx context.Context) ([]user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	UpdateRole(ctx context.Context, id, role string) (user.User, error)
}

// UsersHandler serves the admin user-management endpoints.
type UsersHandler struct {
	store UserAdminStore
	cache *cache.Cache
}

func NewUsersHandler(store UserAdminStore, c *cache.Cache) *UsersHandler {
	return &UsersHandler{store: store, cache: c}
}

type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	if h.cache != nil {
		if cached, ok := h.cache.Get(userListCacheKey); ok {
			RespondJSONWithETag(ctx, http.StatusOK, cached)
			return
		}
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	users, err := h.store.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	summaries := make([]user.Summary, 0, len(users))

	for _, u := range users {
		summaries = append(summaries, u.Summary())
	}

	payload := gin.H{
		"success": true,
		"count":   len(summaries),
		"data":    summaries,
	}

	if h.cache != nil {
		h.cache.Set(userListCacheKey, payload)
	}

	RespondJSONWithETag(ctx, http.StatusOK, payload)
}

func (h *UsersHandler) GetUserByID(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not fetch user")
		return
	}

	RespondData(ctx, http.StatusOK, u.Summary())
}

func (h *UsersHandler) UpdateUserRole(ctx *gin.Context) {
	id := ctx.Param("id")

	var req UpdateRoleRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if !user.ValidRole(req.Role) {
		RespondBadRequest(ctx, "Role must be either 'user' or 'admin'", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.store.UpdateRole(cctx, id, req.Role)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not update user role")
		return
	}

	if h.cache != nil {
		h.cache.Delete(userListCacheKey)
	}

	RespondData(ctx, http.StatusOK, u.Summary())
}
