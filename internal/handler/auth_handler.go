package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/aleksamitic110/assessly/internal/middleware"
	"github.com/aleksamitic110/assessly/internal/repository"
	"github.com/aleksamitic110/assessly/internal/response"
	"github.com/aleksamitic110/assessly/internal/service"
	"github.com/aleksamitic110/assessly/internal/validator"
)

// AuthHandler handles professor and student logins.
type AuthHandler struct {
	authService *service.AuthService
	users       *repository.UserRepository
	log         zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, users *repository.UserRepository, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		users:       users,
		log:         log.With().Str("component", "auth_handler").Logger(),
	}
}

type professorLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type studentLoginRequest struct {
	Code     string `json:"code" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  interface{} `json:"user"`
}

// ProfessorLogin godoc
// POST /api/v1/auth/professor/login
func (h *AuthHandler) ProfessorLogin(c *gin.Context) {
	var req professorLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	prof, err := h.users.GetProfessorByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}
	if err := h.authService.CheckPassword(prof.PasswordHash, req.Password); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	token, err := h.authService.GenerateToken(service.TokenTypeProfessor, prof.ID, prof.Name)
	if err != nil {
		h.log.Error().Err(err).Msg("Generate professor token failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, loginResponse{Token: token, User: prof})
}

// StudentLogin godoc
// POST /api/v1/auth/student/login
func (h *AuthHandler) StudentLogin(c *gin.Context) {
	var req studentLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.users.GetStudentByCode(c.Request.Context(), req.Code)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}
	if err := h.authService.CheckPassword(student.PasswordHash, req.Password); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	token, err := h.authService.GenerateToken(service.TokenTypeStudent, student.ID, student.Name)
	if err != nil {
		h.log.Error().Err(err).Msg("Generate student token failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, loginResponse{Token: token, User: student})
}

// Me godoc
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"user_id": claims.UserID,
		"name":    claims.Name,
		"role":    claims.TokenType,
	})
}
