package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taskmanager/backend/internal/utils"
)

const maxBodyBytes = 1 << 20

// Handler serves the /auth HTTP surface on top of a Service.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger.With("component", "auth_http")}
}

type authResponse struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message"`
	Token     string       `json:"token,omitempty"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty"`
	User      *AccountView `json:"user,omitempty"`
	Errors    []string     `json:"errors,omitempty"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type validateResponse struct {
	Valid   bool   `json:"valid"`
	UserID  string `json:"userId"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an auth outcome to its status and a body safe for clients.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var authErr *Error
	if !errors.As(err, &authErr) {
		h.logger.ErrorContext(r.Context(), "unhandled error", "path", r.URL.Path, "error", err)
		authErr = &Error{Kind: KindInternal, Message: "An unexpected error occurred"}
	}
	writeJSON(w, authErr.Kind.Status(), authResponse{
		Success: false,
		Message: authErr.Message,
		Errors:  authErr.Fields,
	})
}

// decode reads a JSON body into v. A malformed body is a validation failure.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return validationError([]string{"Request body must be valid JSON"})
	}
	return nil
}

func sessionResponse(msg string, s *Session) authResponse {
	view := s.Account.View()
	exp := s.ExpiresAt
	return authResponse{
		Success:   true,
		Message:   msg,
		Token:     s.Token,
		ExpiresAt: &exp,
		User:      &view,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	sess, err := h.svc.Register(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse("Registration successful", sess))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	sess, err := h.svc.Login(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse("Login successful", sess))
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, r, &Error{Kind: KindUnauthenticated, Message: "Invalid user token"})
		return
	}

	var in ChangePasswordInput
	if err := decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	changed, err := h.svc.ChangePassword(r.Context(), userID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !changed {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Current password is incorrect"})
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Password changed successfully"})
}

// Profile returns the caller's own account.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, r, &Error{Kind: KindUnauthenticated, Message: "Invalid user token"})
		return
	}
	h.writeAccount(w, r, func() (*Account, error) { return h.svc.GetAccountByID(r.Context(), userID) })
}

// ValidateToken echoes the claims the gateway already verified.
func (h *Handler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, r, &Error{Kind: KindUnauthenticated, Message: "Invalid user token"})
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{
		Valid:   true,
		UserID:  id.UserID,
		Email:   id.Email,
		Role:    id.Role,
		Message: "Token is valid",
	})
}

// Logout is advisory. Tokens are not revoked server-side; the client drops it.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Logged out successfully"})
}

func (h *Handler) AccountByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.writeAccount(w, r, func() (*Account, error) { return h.svc.GetAccountByID(r.Context(), id) })
}

func (h *Handler) AccountByEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		h.writeError(w, r, validationError([]string{"Email is required"}))
		return
	}
	h.writeAccount(w, r, func() (*Account, error) { return h.svc.GetAccountByEmail(r.Context(), email) })
}

func (h *Handler) writeAccount(w http.ResponseWriter, r *http.Request, lookup func() (*Account, error)) {
	acct, err := lookup()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "account lookup failed", "path", r.URL.Path, "error", err)
		h.writeError(w, r, err)
		return
	}
	if acct == nil {
		h.writeError(w, r, &Error{Kind: KindNotFound, Message: "User not found"})
		return
	}
	writeJSON(w, http.StatusOK, acct.View())
}
