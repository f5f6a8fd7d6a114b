package service

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mmynk/giveback/internal/auth"
)

// AuthService serves registration and login.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		logger:        logger,
	}
}

// Register mounts the routes on mux. Both are public.
func (s *AuthService) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /users", s.CreateUser)
	mux.HandleFunc("POST /login", s.Login)
}

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type userView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

// CreateUser registers a new account.
func (s *AuthService) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Info("Register request", "email", req.Email)

	user, err := s.authenticator.Register(r.Context(), auth.Registration{
		Email:       req.Email,
		DisplayName: req.Name,
		Role:        req.Role,
		Credential:  req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailExists), errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidEmail):
			s.logger.Warn("Registration rejected", "email", req.Email, "error", err)
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("Registration failed", "email", req.Email, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "email", user.Email)
	writeJSON(w, http.StatusCreated, userView{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.DisplayName,
		Role:  user.Role,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

// Login authenticates a user and returns a JWT token.
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := s.authenticator.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.logger.Warn("Login failed", "email", req.Email)
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
		return
	}
	if err != nil {
		s.logger.Error("Login failed", "email", req.Email, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID)
	writeJSON(w, http.StatusOK, loginResponse{
		Token: token,
		User: userView{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.DisplayName,
			Role:  user.Role,
		},
	})
}
