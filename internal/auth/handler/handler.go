package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"clientiq/internal/auth/models"
	"clientiq/internal/auth/ports"
	"clientiq/internal/auth/service"
	authzmw "clientiq/internal/authz/middleware"
	authzmodels "clientiq/internal/authz/models"
	id "clientiq/pkg/domain"
	dErrors "clientiq/pkg/domain-errors"
	"clientiq/pkg/platform/httputil"
	request "clientiq/pkg/platform/middleware/request"
	"clientiq/pkg/platform/privacy"
	"clientiq/pkg/requestcontext"
)

// Service defines the authentication and user management operations.
// Returns domain objects, not HTTP response DTOs.
type Service interface {
	Login(ctx context.Context, email, password string) (*models.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*models.LoginResult, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID id.UserID) (int, error)
	Me(ctx context.Context, userID id.UserID) (*models.User, error)
	ListSessions(ctx context.Context, userID id.UserID) (*models.SessionsResult, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
	GetUser(ctx context.Context, userID id.UserID) (*models.User, error)
	CreateUser(ctx context.Context, cmd service.CreateUserCommand) (*models.User, error)
	UpdateUser(ctx context.Context, userID id.UserID, cmd service.UpdateUserCommand) (*models.User, error)
}

// Handler serves /auth/* and /users/* for the resolved tenant.
type Handler struct {
	auth      Service
	rateLimit ports.RateLimitPort
	logger    *slog.Logger
}

// New builds the handler. rateLimit may be nil, which disables the per
// identifier login limit.
func New(auth Service, rateLimit ports.RateLimitPort, logger *slog.Logger) *Handler {
	return &Handler{
		auth:      auth,
		rateLimit: rateLimit,
		logger:    logger,
	}
}

// RegisterPublic mounts the endpoints reachable without an access token.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/login/", h.HandleLogin)
	r.Post("/auth/refresh/", h.HandleRefresh)
	r.Post("/auth/logout/", h.HandleLogout)
}

// Register mounts the authenticated endpoints. r must already run
// auth.RequireAuth.
func (h *Handler) Register(r chi.Router, guard authzmw.Guard) {
	r.Post("/auth/logout-all/", h.HandleLogoutAll)
	r.Get("/auth/me/", h.HandleMe)
	r.Get("/auth/sessions/", h.HandleListSessions)

	r.With(guard(authzmodels.PermUsersView)).Get("/users/", h.HandleListUsers)
	r.With(guard(authzmodels.PermUsersManage)).Post("/users/", h.HandleCreateUser)
	r.With(guard(authzmodels.PermUsersView)).Get("/users/{id}/", h.HandleGetUser)
	r.With(guard(authzmodels.PermUsersManage)).Patch("/users/{id}/", h.HandleUpdateUser)
}

// HandleLogin implements POST /auth/login/.
//
// Input: { "email": "admin@acme.com", "password": "..." }
// Output: { "access_token": "...", "refresh_token": "...", "token_type": "Bearer", "expires_in": 900, "user": {...} }
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if !h.allowLogin(ctx, w, req.Email, requestID) {
		return
	}

	res, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "login failed",
			"error", err,
			"request_id", requestID,
			"email", privacy.MaskEmail(req.Email),
			"ip_prefix", privacy.AnonymizeIP(requestcontext.ClientIP(ctx)),
		)
		httputil.WriteError(ctx, w, err)
		return
	}

	h.logger.InfoContext(ctx, "login successful",
		"request_id", requestID,
		"user_id", res.User.ID.String(),
	)
	httputil.WriteSuccess(ctx, w, http.StatusOK, &models.LoginResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    seconds(res.ExpiresIn),
		User:         models.ToUserResponse(res.User),
	})
}

// allowLogin applies the per identifier limit. A limiter failure lets the
// attempt through.
func (h *Handler) allowLogin(ctx context.Context, w http.ResponseWriter, identifier, requestID string) bool {
	if h.rateLimit == nil {
		return true
	}
	res, err := h.rateLimit.CheckAuthRateLimit(ctx, identifier)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to check login rate limit",
			"error", err,
			"request_id", requestID,
		)
		return true
	}
	if res.Allowed {
		return true
	}

	h.logger.WarnContext(ctx, "login rate limited",
		"request_id", requestID,
		"ip_prefix", privacy.AnonymizeIP(requestcontext.ClientIP(ctx)),
		"retry_after", res.RetryAfter,
	)
	w.Header().Set("Retry-After", strconv.Itoa(max(res.RetryAfter, 1)))
	httputil.WriteError(ctx, w, dErrors.New(dErrors.CodeRateLimited, "too many login attempts, try again later"))
	return false
}

// HandleRefresh implements POST /auth/refresh/. The refresh token sent is
// consumed; the response carries its replacement.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RefreshTokenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		h.logger.WarnContext(ctx, "token refresh failed",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(ctx, w, err)
		return
	}

	httputil.WriteSuccess(ctx, w, http.StatusOK, &models.RefreshResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    seconds(res.ExpiresIn),
	})
}

// HandleLogout implements POST /auth/logout/. Repeating it with the same
// token succeeds.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RefreshTokenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.auth.Logout(ctx, req.RefreshToken); err != nil {
		h.logger.WarnContext(ctx, "logout failed",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(ctx, w, err)
		return
	}

	httputil.WriteSuccess(ctx, w, http.StatusOK, &models.MessageResponse{Message: "successfully logged out"})
}

// HandleLogoutAll revokes every refresh token the caller holds.
func (h *Handler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	userID, err := httputil.RequireUserID(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(ctx, w, err)
		return
	}

	revoked, err := h.auth.LogoutAll(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "logout all failed",
			"error", err,
			"request_id", requestID,
			"user_id", userID.String(),
		)
		httputil.WriteError(ctx, w, err)
		return
	}

	httputil.WriteSuccess(ctx, w, http.StatusOK, &models.LogoutAllResult{RevokedCount: revoked})
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	userID, err := httputil.RequireUserID(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(ctx, w, err)
		return
	}

	user, err := h.auth.Me(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load current user",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(ctx, w, err)
		return
	}

	httputil.WriteSuccess(ctx, w, http.StatusOK, models.ToUserResponse(user))
}

// HandleListSessions lists the caller's active refresh tokens.
func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	userID, err := httputil.RequireUserID(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(ctx, w, err)
		return
	}

	res, err := h.auth.ListSessions(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list sessions",
			"error", err,
			"request_id", requestID,
			"user_id", userID.String(),
		)
		httputil.WriteError(ctx, w, err)
		return
	}

	httputil.WriteSuccess(ctx, w, http.StatusOK, res)
}

type UserListResponse struct {
	Users  []*models.UserResponse `json:"users"`
	Count  int                    `json:"count"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	limit, offset, err := httputil.ParsePage(r)
	if err != nil {
		httputil.WriteError(ctx, w, err)
		return
	}
	limit, offset = service.ClampPage(limit, offset)

	users, err := h.auth.ListUsers(ctx, limit, offset)
	if err != nil {
		h.logger.ErrorContext(ctx, "list users failed", "error", err, "request_id", requestID)
		httputil.WriteError(ctx, w, err)
		return
	}

	out := &UserListResponse{Users: make([]*models.UserResponse, 0, len(users)), Limit: limit, Offset: offset}
	for _, u := range users {
		out.Users = append(out.Users, models.ToUserResponse(u))
	}
	out.Count = len(out.Users)
	httputil.WriteSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.CreateUserRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	cmd := service.CreateUserCommand{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Admin:     req.IsAdmin,
	}
	if req.RoleID != "" {
		roleID, err := id.ParseRoleID(req.RoleID)
		if err != nil {
			httputil.WriteError(ctx, w, dErrors.New(dErrors.CodeValidation, "invalid role id"))
			return
		}
		cmd.RoleID = roleID
	}

	user, err := h.auth.CreateUser(ctx, cmd)
	if err != nil {
		h.logger.WarnContext(ctx, "create user failed", "error", err, "request_id", requestID)
		httputil.WriteError(ctx, w, err)
		return
	}

	httputil.WriteSuccess(ctx, w, http.StatusCreated, models.ToUserResponse(user))
}

func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	user, err := h.auth.GetUser(ctx, userID)
	if err != nil {
		h.logger.WarnContext(ctx, "get user failed", "error", err, "request_id", request.GetRequestID(ctx))
		httputil.WriteError(ctx, w, err)
		return
	}

	httputil.WriteSuccess(ctx, w, http.StatusOK, models.ToUserResponse(user))
}

// HandleUpdateUser applies a partial update. Deactivation and password
// changes end the user's sessions.
func (h *Handler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.UpdateUserRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	cmd := service.UpdateUserCommand{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Active:    req.IsActive,
		Admin:     req.IsAdmin,
		Password:  req.Password,
	}
	if req.RoleID != nil {
		roleID, err := id.ParseRoleID(*req.RoleID)
		if err != nil {
			httputil.WriteError(ctx, w, dErrors.New(dErrors.CodeValidation, "invalid role id"))
			return
		}
		cmd.RoleID = &roleID
	}

	user, err := h.auth.UpdateUser(ctx, userID, cmd)
	if err != nil {
		h.logger.WarnContext(ctx, "update user failed", "error", err, "request_id", requestID, "user_id", userID.String())
		httputil.WriteError(ctx, w, err)
		return
	}

	httputil.WriteSuccess(ctx, w, http.StatusOK, models.ToUserResponse(user))
}

func (h *Handler) userIDParam(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(r.Context(), w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return id.UserID{}, false
	}
	return userID, true
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}
