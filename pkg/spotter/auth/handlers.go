package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/spotter/pkg/spotter/apperr"
	"github.com/mikepea/spotter/pkg/spotter/mediator"
	"github.com/mikepea/spotter/pkg/spotter/models"
)

// Accounts is the user store used for registration and login.
type Accounts interface {
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

// Handler handles authentication requests
type Handler struct {
	accounts Accounts
	signer   *Signer
}

// NewHandler creates a new auth handler
func NewHandler(accounts Accounts, signer *Signer) *Handler {
	return &Handler{accounts: accounts, signer: signer}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func userResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  string(user.Role),
	}
}

// Register handles member registration
// @Summary Register a new member
// @Description Create a member account and receive a JWT token. Admin accounts cannot be self-registered.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration details"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} mediator.ErrorResponse "Validation error"
// @Failure 409 {object} mediator.ErrorResponse "Email already registered"
// @Router /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		mediator.Fail(c, apperr.Wrap(apperr.KindInvalidInput, "bind registration", err))
		return
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		mediator.Fail(c, apperr.Internal("hash password", err))
		return
	}

	user := models.User{
		Email:        req.Email,
		PasswordHash: hashedPassword,
		Name:         req.Name,
		Role:         models.RoleMember,
	}
	if err := h.accounts.CreateUser(c.Request.Context(), &user); err != nil {
		mediator.Fail(c, err)
		return
	}

	h.respondWithToken(c, http.StatusCreated, &user)
}

// Login handles user login
// @Summary Login
// @Description Authenticate with email and password to receive a JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} mediator.ErrorResponse "Validation error"
// @Failure 401 {object} mediator.ErrorResponse "Invalid credentials"
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		mediator.Fail(c, apperr.Wrap(apperr.KindInvalidInput, "bind login", err))
		return
	}

	user, err := h.accounts.FindUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			mediator.Fail(c, apperr.New(apperr.KindInvalidCredential, "login for unknown email"))
			return
		}
		mediator.Fail(c, err)
		return
	}

	if !CheckPassword(req.Password, user.PasswordHash) {
		mediator.Fail(c, apperr.Newf(apperr.KindInvalidCredential, "wrong password for user %d", user.ID))
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

func (h *Handler) respondWithToken(c *gin.Context, status int, user *models.User) {
	token, err := h.signer.GenerateToken(user)
	if err != nil {
		mediator.Fail(c, apperr.Internal("sign token", err))
		return
	}
	c.JSON(status, AuthResponse{Token: token, User: userResponse(user)})
}

// Me returns the current authenticated user
// @Summary Get current user
// @Description Get the authenticated user's profile with their current role
// @Tags auth
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 401 {object} mediator.ErrorResponse "Authentication required"
// @Security BearerAuth
// @Router /auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	id, ok := mediator.IdentityFrom(c)
	if !ok {
		mediator.Fail(c, apperr.New(apperr.KindInvalidCredential, "no identity in context"))
		return
	}

	user, err := h.accounts.FindUserByID(c.Request.Context(), id.SubjectID)
	if err != nil {
		mediator.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}

// Logout handles user logout (client-side token invalidation)
// @Summary Logout
// @Description Logout the current user (client-side token invalidation)
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string "Logged out successfully"
// @Router /auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, mediator.Message("Logged out successfully"))
}

// RegisterRoutes registers auth routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authenticate gin.HandlerFunc) {
	rg.POST("/register", h.Register)
	rg.POST("/login", h.Login)
	rg.POST("/logout", h.Logout)
	rg.GET("/me", authenticate, h.Me)
}
