package authhandler

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"shiftrota/internal/domain/auth"
	"shiftrota/internal/domain/department"
	"shiftrota/internal/platform/config"
	"shiftrota/internal/platform/metrics"
	"shiftrota/internal/platform/notify"
	"shiftrota/internal/transport/http/api"
	"shiftrota/internal/transport/http/middleware"
	"shiftrota/internal/transport/http/shared"
)

const (
	defaultBaseURL = "http://localhost:8080"
	resetLinkPath  = "reset-password"
)

type Handler struct {
	Departments    *department.Repository
	Tokens         *auth.TokenService
	Email          notify.Deliverer
	SMS            notify.Deliverer
	Metrics        *metrics.Collector
	Secret         string
	SessionTTL     time.Duration
	EditorPassword string
	BaseURL        string
	SecureCookie   bool
	// ExposeDevOTP echoes SMS codes in the response when no real SMS
	// provider is configured.
	ExposeDevOTP bool
}

func NewHandler(departments *department.Repository, tokens *auth.TokenService, cfg config.Config, email, sms notify.Deliverer, collector *metrics.Collector) *Handler {
	return &Handler{
		Departments:    departments,
		Tokens:         tokens,
		Email:          email,
		SMS:            sms,
		Metrics:        collector,
		Secret:         cfg.EffectiveSessionSecret(),
		SessionTTL:     cfg.SessionTTL,
		EditorPassword: cfg.EditorPassword,
		BaseURL:        cfg.BaseURL,
		SecureCookie:   cfg.Environment == "production",
		ExposeDevOTP:   cfg.SMSProvider == config.SMSProviderMock && cfg.Environment != "production",
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.HandleLogin)
		r.Post("/department-login", h.HandleDepartmentLogin)
		r.Post("/logout", h.HandleLogout)
		r.Get("/session", h.HandleSession)
		r.Post("/forgot/email", h.HandleForgotEmail)
		r.Post("/forgot/sms", h.HandleForgotSMS)
		r.Post("/forgot/verify-otp", h.HandleVerifyOTP)
		r.Get("/reset/{token}", h.HandleResetInfo)
		r.Post("/reset/{token}", h.HandleReset)
		r.Post("/emergency-request", h.HandleEmergencyRequest)
	})
}

// RegisterResetLinkRoutes serves the path mailed by the email reset flow.
// It is mounted at the site root, next to the API.
func (h *Handler) RegisterResetLinkRoutes(r chi.Router) {
	r.Get("/"+resetLinkPath+"/{token}", h.HandleResetInfo)
	r.Post("/"+resetLinkPath+"/{token}", h.HandleReset)
}

type loginRequest struct {
	Department string `json:"department"`
	Password   string `json:"password" validate:"required"`
}

type departmentLoginRequest struct {
	Department string `json:"department" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type departmentRequest struct {
	Department string `json:"department" validate:"required"`
}

type verifyOTPRequest struct {
	Department      string `json:"department" validate:"required"`
	OTPCode         string `json:"otpCode" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type resetPasswordRequest struct {
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type emergencyRequest struct {
	RequesterName string `json:"requesterName" validate:"required"`
	Department    string `json:"department" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Reason        string `json:"reason" validate:"required"`
}

// HandleLogin accepts the global editor password, or a department password
// when a department is named.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload loginRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}

	if h.EditorPassword != "" && subtle.ConstantTimeCompare([]byte(payload.Password), []byte(h.EditorPassword)) == 1 {
		h.startSession(w, r, auth.Context{IsGlobalAdmin: true})
		return
	}
	name := strings.TrimSpace(payload.Department)
	if name != "" {
		if dept, err := h.Departments.Get(r.Context(), name); err == nil && dept.CheckPassword(payload.Password) == nil {
			h.startSession(w, r, auth.Context{Department: name})
			return
		}
	}
	api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "Invalid department or password.", reqID)
}

func (h *Handler) HandleDepartmentLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload departmentLoginRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}

	name := strings.TrimSpace(payload.Department)
	dept, ok := h.department(w, r, name)
	if !ok {
		return
	}
	if err := dept.CheckPassword(payload.Password); err != nil {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "Invalid password for this department.", reqID)
		return
	}
	h.startSession(w, r, auth.Context{Department: name})
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, actor auth.Context) {
	reqID := middleware.GetRequestID(r.Context())
	token, err := auth.GenerateToken(h.Secret, actor, h.SessionTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue session", reqID)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	message := "Logged in as editor"
	if actor.Department != "" {
		message = "Logged into " + actor.Department
	}
	api.Success(w, map[string]any{
		"token":         token,
		"isGlobalAdmin": actor.IsGlobalAdmin,
		"department":    actor.Department,
		"message":       message,
	}, reqID)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	api.Success(w, map[string]string{"status": "logged_out"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())
	api.Success(w, map[string]any{
		"authenticated": actor.Authenticated(),
		"isGlobalAdmin": actor.IsGlobalAdmin,
		"department":    actor.Department,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) HandleForgotEmail(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	name, dept, ok := h.recoveryTarget(w, r)
	if !ok {
		return
	}
	if len(dept.AdminEmails) == 0 {
		api.Fail(w, http.StatusUnprocessableEntity, "recovery_not_configured", "No admin emails configured for "+name, reqID)
		return
	}

	token, err := h.Tokens.CreateResetToken(r.Context(), name)
	if err != nil {
		slog.Error("create reset token failed", "department", name, "err", err)
		api.Fail(w, http.StatusInternalServerError, "store_write_failed", "failed to create reset token", reqID)
		return
	}
	link := buildResetLink(h.BaseURL, token)
	subject := fmt.Sprintf("Password Reset Request - %s Department", name)
	if err := h.Email.Deliver(r.Context(), dept.AdminEmails, subject, buildResetEmailMessage(name, link, h.Tokens.ResetTTL)); err != nil {
		slog.Error("reset email failed", "department", name, "err", err)
		api.Fail(w, http.StatusBadGateway, "delivery_failed", "Failed to send reset email", reqID)
		return
	}
	h.Metrics.RecoveryRequest()
	api.Success(w, map[string]string{
		"message": fmt.Sprintf("Password reset email sent! Reset email sent to %d administrator(s)", len(dept.AdminEmails)),
	}, reqID)
}

func (h *Handler) HandleForgotSMS(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	name, dept, ok := h.recoveryTarget(w, r)
	if !ok {
		return
	}
	if len(dept.AdminPhones) == 0 {
		api.Fail(w, http.StatusUnprocessableEntity, "recovery_not_configured",
			fmt.Sprintf("SMS OTP is not configured for %s. Please use email reset or contact administrator.", name), reqID)
		return
	}

	code, err := h.Tokens.CreateOTP(r.Context(), name)
	if err != nil {
		slog.Error("create otp failed", "department", name, "err", err)
		api.Fail(w, http.StatusInternalServerError, "store_write_failed", "failed to create otp", reqID)
		return
	}
	if err := h.SMS.Deliver(r.Context(), dept.AdminPhones, "", buildOTPMessage(name, code, h.Tokens.OTPTTL)); err != nil {
		slog.Error("otp sms failed", "department", name, "err", err)
		api.Fail(w, http.StatusBadGateway, "delivery_failed", "Failed to send OTP", reqID)
		return
	}
	h.Metrics.RecoveryRequest()

	data := map[string]string{
		"message": fmt.Sprintf("OTP sent via SMS to %s administrators! OTP sent to %d administrator(s)", name, len(dept.AdminPhones)),
	}
	if h.ExposeDevOTP {
		data["devOtp"] = code
	}
	api.Success(w, data, reqID)
}

// recoveryTarget decodes the department of a recovery request and clears
// expired tokens on the way.
func (h *Handler) recoveryTarget(w http.ResponseWriter, r *http.Request) (string, *department.Department, bool) {
	reqID := middleware.GetRequestID(r.Context())
	var payload departmentRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return "", nil, false
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return "", nil, false
	}
	h.cleanupTokens(r)

	name := strings.TrimSpace(payload.Department)
	dept, ok := h.department(w, r, name)
	return name, dept, ok
}

func (h *Handler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload verifyOTPRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	payload.Department = strings.TrimSpace(payload.Department)
	payload.OTPCode = strings.TrimSpace(payload.OTPCode)
	payload.NewPassword = strings.TrimSpace(payload.NewPassword)
	payload.ConfirmPassword = strings.TrimSpace(payload.ConfirmPassword)
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}
	if err := department.ValidatePassword(payload.NewPassword, payload.ConfirmPassword); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_password", passwordMessage(err), reqID)
		return
	}
	if _, ok := h.department(w, r, payload.Department); !ok {
		return
	}

	if err := h.Tokens.VerifyOTP(r.Context(), payload.OTPCode, payload.Department); err != nil {
		if errors.Is(err, auth.ErrOTPWrongDept) {
			api.Fail(w, http.StatusBadRequest, "otp_department_mismatch", auth.Reason(err), reqID)
			return
		}
		api.Fail(w, http.StatusBadRequest, "otp_invalid", "OTP verification failed: "+auth.Reason(err), reqID)
		return
	}

	if !h.updatePassword(w, r, payload.Department, payload.NewPassword) {
		return
	}
	if err := h.Tokens.Consume(r.Context(), payload.OTPCode); err != nil {
		slog.Warn("consume otp failed", "department", payload.Department, "err", err)
	}
	api.Success(w, map[string]string{
		"message": fmt.Sprintf("Password for %s has been successfully updated using SMS OTP!", payload.Department),
	}, reqID)
}

func (h *Handler) HandleResetInfo(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	h.cleanupTokens(r)
	name, err := h.Tokens.ValidateResetToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		api.Fail(w, http.StatusNotFound, "invalid_token", auth.Reason(err), reqID)
		return
	}
	api.Success(w, map[string]any{"department": name, "tokenValid": true}, reqID)
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	token := chi.URLParam(r, "token")
	h.cleanupTokens(r)
	name, err := h.Tokens.ValidateResetToken(r.Context(), token)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "invalid_token", auth.Reason(err), reqID)
		return
	}

	var payload resetPasswordRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	newPassword := strings.TrimSpace(payload.NewPassword)
	if err := department.ValidatePassword(newPassword, strings.TrimSpace(payload.ConfirmPassword)); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_password", passwordMessage(err), reqID)
		return
	}

	if !h.updatePassword(w, r, name, newPassword) {
		return
	}
	if err := h.Tokens.Consume(r.Context(), token); err != nil {
		slog.Warn("consume reset token failed", "department", name, "err", err)
	}
	api.Success(w, map[string]string{
		"message": fmt.Sprintf("Password for %s has been successfully updated!", name),
	}, reqID)
}

func (h *Handler) HandleEmergencyRequest(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload emergencyRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	payload.RequesterName = strings.TrimSpace(payload.RequesterName)
	payload.Department = strings.TrimSpace(payload.Department)
	payload.Email = strings.TrimSpace(payload.Email)
	payload.Reason = strings.TrimSpace(payload.Reason)
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}

	slog.Info("emergency access request",
		"requester", payload.RequesterName,
		"email", payload.Email,
		"department", payload.Department,
		"reason", payload.Reason,
		"requestId", reqID,
	)
	api.Success(w, map[string]string{
		"message": fmt.Sprintf("Emergency access request submitted successfully! An administrator will review your request for %s access and respond to %s within 24 hours.", payload.Department, payload.Email),
	}, reqID)
}

func (h *Handler) department(w http.ResponseWriter, r *http.Request, name string) (*department.Department, bool) {
	reqID := middleware.GetRequestID(r.Context())
	dept, err := h.Departments.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, department.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "department_not_found", "Invalid department.", reqID)
			return nil, false
		}
		api.Fail(w, http.StatusInternalServerError, "department_lookup_failed", "failed to load department", reqID)
		return nil, false
	}
	return dept, true
}

func (h *Handler) updatePassword(w http.ResponseWriter, r *http.Request, name, password string) bool {
	reqID := middleware.GetRequestID(r.Context())
	err := h.Departments.Update(r.Context(), name, func(dept *department.Department) error {
		return dept.SetPassword(password, password)
	})
	switch {
	case err == nil:
		return true
	case errors.Is(err, department.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "department_not_found", "Invalid department.", reqID)
	default:
		slog.Error("password update failed", "department", name, "err", err)
		api.Fail(w, http.StatusInternalServerError, "store_write_failed", "failed to update password", reqID)
	}
	return false
}

func (h *Handler) cleanupTokens(r *http.Request) {
	if removed, err := h.Tokens.CleanupExpired(r.Context()); err != nil {
		slog.Warn("token cleanup failed", "err", err)
	} else if removed > 0 {
		slog.Info("expired recovery tokens removed", "count", removed)
	}
}

func passwordMessage(err error) string {
	switch {
	case errors.Is(err, department.ErrPasswordEmpty):
		return "Password cannot be empty."
	case errors.Is(err, department.ErrPasswordMismatch):
		return "Passwords do not match."
	case errors.Is(err, department.ErrPasswordTooShort):
		return fmt.Sprintf("Password must be at least %d characters long.", department.MinPasswordLength)
	default:
		return err.Error()
	}
}

func buildResetLink(baseURL, token string) string {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		base, _ = url.Parse(defaultBaseURL)
	}
	return base.JoinPath(resetLinkPath, token).String()
}

func buildResetEmailMessage(dept, link string, ttl time.Duration) string {
	return fmt.Sprintf(`A password reset has been requested for the %s department in the Shift Rota application.

Click the link below to reset the password:
%s

This link will expire in %d minutes.

If you did not request this reset, please ignore this email.

Best regards,
Shift Rota System
`, dept, link, int(ttl.Minutes()))
}

func buildOTPMessage(dept, code string, ttl time.Duration) string {
	return fmt.Sprintf(`Shift Rota Password Reset

Your OTP: %s

Department: %s
Valid for %d minutes

Do not share this code.`, code, dept, int(ttl.Minutes()))
}
