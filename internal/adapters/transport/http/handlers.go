package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/peitalin/dt-auth-service/internal/adapters/transport/http/dto"
	"github.com/peitalin/dt-auth-service/internal/app/health"
	"github.com/peitalin/dt-auth-service/internal/app/user/reset"
	"github.com/peitalin/dt-auth-service/internal/app/user/service"
	customErrors "github.com/peitalin/dt-auth-service/internal/domain/user/errors"
	"github.com/peitalin/dt-auth-service/internal/domain/user/model"
	lg "github.com/peitalin/dt-auth-service/internal/infra/log"
	"go.uber.org/zap"
)

const (
	statusLoggedOut     = "logged out successfully."
	statusResetSent     = "If an account exists for that email, a password reset link has been sent."
	statusPasswordReset = "password has been reset."
	statusPasswordSaved = "password changed. please log in again."
	statusUserDeleted   = "account deleted."
)

type Handler struct {
	users  service.Service
	reset  reset.Manager
	health *health.Checker
	cookie CookieConfig
	log    *zap.Logger
	now    func() time.Time
}

func NewHandler(users service.Service, rm reset.Manager, hp *health.Checker, cookie CookieConfig, log *zap.Logger) *Handler {
	return &Handler{users: users, reset: rm, health: hp, cookie: cookie, log: log, now: time.Now}
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		handleError(c, customErrors.NewInvalidArgument("malformed request body"))
		return false
	}
	return true
}

func identity(c *gin.Context) (model.Identity, bool) {
	id, ok := model.IdentityFromContext(c.Request.Context())
	if !ok {
		handleError(c, customErrors.ErrInvalidToken)
	}
	return id, ok
}

func (h *Handler) GetUser(c *gin.Context) {
	u, err := h.users.GetPublicProfile(c.Request.Context(), c.Query("user_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPublicProfile(u))
}

func (h *Handler) GetUserByEmail(c *gin.Context) {
	u, err := h.users.GetPublicProfileByEmail(c.Request.Context(), c.Query("user_email"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPublicProfile(u))
}

func (h *Handler) GetUsersByIDs(c *gin.Context) {
	var body dto.UsersByIDsDTO
	if !bindJSON(c, &body) {
		return
	}
	users, err := h.users.GetPublicProfiles(c.Request.Context(), body)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PublicProfilesResponse{Users: dto.NewPublicProfiles(users)})
}

func (h *Handler) CreateUser(c *gin.Context) {
	var body dto.CreateUserDTO
	if !bindJSON(c, &body) {
		return
	}
	h.log.Info("/user/create", lg.Email(body.Email))

	u, err := h.users.CreateUser(c.Request.Context(), body)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.CreateUserResponse{User: dto.NewPrivateProfile(u)})
}

func (h *Handler) Login(c *gin.Context) {
	var body dto.LoginDTO
	if !bindJSON(c, &body) {
		return
	}
	h.log.Info("/login", lg.Email(body.Email))

	session, err := h.users.Login(c.Request.Context(), body)
	if err != nil {
		handleError(c, err)
		return
	}
	ttl := session.TTL(h.now())
	h.cookie.set(c, session.Token, ttl)
	c.JSON(http.StatusOK, dto.LoginResponse{
		User:      dto.NewPrivateProfile(session.User),
		ExpiresIn: int(ttl.Seconds()),
	})
}

func (h *Handler) Logout(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	if err := h.users.Logout(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	h.cookie.clear(c)
	c.JSON(http.StatusOK, dto.StatusResponse{Status: statusLoggedOut})
}

// GetProfile never reads the request body; the session alone decides.
func (h *Handler) GetProfile(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	u, err := h.users.GetProfile(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPrivateProfile(u))
}

func (h *Handler) SessionInfo(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.NewSessionInfo(id))
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var body dto.UpdateProfileDTO
	if !bindJSON(c, &body) {
		return
	}

	u, session, err := h.users.UpdateProfile(c.Request.Context(), id, body)
	if err != nil {
		handleError(c, err)
		return
	}
	if session != nil {
		h.cookie.set(c, session.Token, session.TTL(h.now()))
	}
	c.JSON(http.StatusOK, dto.NewPrivateProfile(u))
}

func (h *Handler) ChangePassword(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var body dto.ChangePasswordDTO
	if !bindJSON(c, &body) {
		return
	}
	if err := h.users.ChangePassword(c.Request.Context(), id, body); err != nil {
		handleError(c, err)
		return
	}
	h.cookie.clear(c)
	c.JSON(http.StatusOK, dto.StatusResponse{Status: statusPasswordSaved})
}

func (h *Handler) CheckPassword(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var body dto.PasswordCheckDTO
	if !bindJSON(c, &body) {
		return
	}
	if err := h.users.CheckPassword(c.Request.Context(), id, body); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PasswordCheckResponse{PasswordMatches: true})
}

func (h *Handler) DeleteAccount(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var body dto.DeleteAccountDTO
	if !bindJSON(c, &body) {
		return
	}
	if err := h.users.DeleteAccount(c.Request.Context(), id, body); err != nil {
		handleError(c, err)
		return
	}
	h.cookie.clear(c)
	c.JSON(http.StatusOK, dto.StatusResponse{Status: statusUserDeleted})
}

func (h *Handler) SendResetPasswordEmail(c *gin.Context) {
	var body dto.ForgotPasswordDTO
	if !bindJSON(c, &body) {
		return
	}
	if err := h.reset.SendResetPasswordEmail(c.Request.Context(), body); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.StatusResponse{Status: statusResetSent})
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var body dto.ResetPasswordDTO
	if !bindJSON(c, &body) {
		return
	}
	if err := h.reset.ResetPassword(c.Request.Context(), body); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.StatusResponse{Status: statusPasswordReset})
}

func (h *Handler) Health(c *gin.Context) {
	if h.health == nil {
		c.JSON(http.StatusOK, health.Report{Healthy: true})
		return
	}
	r := h.health.Check(c.Request.Context())
	status := http.StatusOK
	if !r.Healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, r)
}

func (h *Handler) NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"status": http.StatusNotFound,
		"reason": "Endpoint not found.",
		"path":   c.Request.URL.Path,
	})
}
