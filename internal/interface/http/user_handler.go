package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/coursebind/user-service/internal/application"
	"github.com/coursebind/user-service/internal/domain/entity"
	"github.com/coursebind/user-service/pkg/response"
	"github.com/coursebind/user-service/pkg/validation"
)

type UserHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewUserHandler(svc *userapp.Service, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

type registerRequest struct {
	Username string `json:"username" binding:"required,alphanum,min=3,max=30"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
	Role     string `json:"role" binding:"omitempty,oneof=student instructor admin"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
}

// Register handles POST /api/register. The created user is echoed back
// without the password hash.
func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	u, err := h.Svc.Register(c.Request.Context(), userapp.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     entity.Role(req.Role),
	})
	if err != nil {
		switch {
		case errors.Is(err, userapp.ErrEmailInUse),
			errors.Is(err, userapp.ErrUsernameTaken),
			errors.Is(err, userapp.ErrDuplicateIdentity):
			response.Error(c, http.StatusConflict, err.Error(), nil)
		default:
			h.Logger.WithError(err).Error("registration failed")
			response.Error(c, http.StatusInternalServerError, "registration failed", nil)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"role":     u.Role,
	}, "user registered successfully")
}

// Login handles POST /api/login and returns the bearer token with the
// claims it embeds.
func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	res, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, userapp.ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, "invalid credentials", nil)
			return
		}
		h.Logger.WithError(err).Error("login failed")
		response.Error(c, http.StatusInternalServerError, "login failed", nil)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token": res.Token,
		"user": gin.H{
			"id":    res.UserID,
			"email": res.Email,
			"role":  res.Role,
		},
	}, "login successful")
}

// GetProfile handles GET /api/profile for the authenticated user.
func (h *UserHandler) GetProfile(c *gin.Context) {
	uid := c.GetString("userID")
	p, err := h.Svc.GetProfile(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, userapp.ErrUserNotFound) {
			response.Error(c, http.StatusNotFound, "user not found", nil)
			return
		}
		h.Logger.WithError(err).Error("profile lookup failed")
		response.Error(c, http.StatusInternalServerError, "profile lookup failed", nil)
		return
	}
	response.Success(c, http.StatusOK, p, "profile")
}
