package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/cashtrackr/internal/access"
	"github.com/dukerupert/cashtrackr/internal/account"
	"github.com/dukerupert/cashtrackr/internal/respond"
	"github.com/dukerupert/cashtrackr/internal/validation"
)

type AuthHandler struct {
	accounts  *account.Service
	validator *validation.Validator
	logger    *slog.Logger
}

func NewAuthHandler(accounts *account.Service, v *validation.Validator, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, validator: v, logger: logger}
}

type createAccountRequest struct {
	Name     string `json:"name" validate:"required" msg:"El nombre no puede ir vacio"`
	Lastname string `json:"lastname" validate:"required" msg:"El apellido no puede ir vacio"`
	Email    string `json:"email" validate:"required,email" msg:"El email no es válido"`
	Password string `json:"password" validate:"min=8,pwbytes" msg:"min=El password es muy corto, mínimo 8 caracteres|pwbytes=El password es muy largo, máximo 72 caracteres"`
}

func (h *AuthHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeValid(w, r, h.validator, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	_, err := h.accounts.Register(r.Context(), account.Registration{
		Name:     req.Name,
		Lastname: req.Lastname,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.Message(w, http.StatusCreated, "Cuenta creada correctamente, revisa tú email para confirmar la cuenta")
}

type tokenRequest struct {
	Token string `json:"token" validate:"len=6" msg:"Token no válido"`
}

func (h *AuthHandler) ConfirmAccount(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeValid(w, r, h.validator, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if err := h.accounts.ConfirmAccount(r.Context(), req.Token); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.Message(w, http.StatusOK, "Cuenta confirmada correctamente")
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email" msg:"El email no es válido"`
	Password string `json:"password" validate:"required" msg:"El password es obligatorio"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeValid(w, r, h.validator, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	token, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, token)
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email" msg:"El email no es válido"`
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeValid(w, r, h.validator, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if err := h.accounts.ForgotPassword(r.Context(), req.Email); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.Message(w, http.StatusOK, "Se ha enviado un mail a tú correo para recuperar tú password")
}

func (h *AuthHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeValid(w, r, h.validator, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if err := h.accounts.ValidateToken(r.Context(), req.Token); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.Message(w, http.StatusOK, "Token válido, asigna un nuevo password")
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"len=6" msg:"Token no válido"`
	Password string `json:"password" validate:"min=8,pwbytes" msg:"min=El password es muy corto, mínimo 8 caracteres|pwbytes=El password es muy largo, máximo 72 caracteres"`
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decode(w, r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	// The token comes from the path, never the body.
	req.Token = r.PathValue("token")
	if err := h.validator.Struct(&req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if err := h.accounts.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.Message(w, http.StatusOK, "El password se actualizo correctamente")
}

func (h *AuthHandler) User(w http.ResponseWriter, r *http.Request, scope access.Scope) {
	respond.JSON(w, http.StatusOK, scope.User)
}

type updateProfileRequest struct {
	Name     string `json:"name" validate:"required" msg:"El nombre no puede ir vacio"`
	Lastname string `json:"lastname" validate:"required" msg:"El apellido no puede ir vacio"`
	Email    string `json:"email" validate:"required,email" msg:"El email no es válido"`
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request, scope access.Scope) {
	var req updateProfileRequest
	if err := decodeValid(w, r, h.validator, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	_, err := h.accounts.UpdateProfile(r.Context(), scope.User.ID, account.ProfileUpdate{
		Name:     req.Name,
		Lastname: req.Lastname,
		Email:    req.Email,
	})
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.Message(w, http.StatusOK, "Perfil actualizado correctamente")
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required" msg:"El password actual no puede estar vacio"`
	Password        string `json:"password" validate:"min=8,pwbytes" msg:"min=El password nuevo es muy corto, mínimo 8 caracteres|pwbytes=El password nuevo es muy largo, máximo 72 caracteres"`
}

func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request, scope access.Scope) {
	var req updatePasswordRequest
	if err := decodeValid(w, r, h.validator, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if err := h.accounts.ChangePassword(r.Context(), scope.User.ID, req.CurrentPassword, req.Password); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.Message(w, http.StatusOK, "El password se actualizo correctamente")
}

type checkPasswordRequest struct {
	Password string `json:"password" validate:"required" msg:"El password actual no puede estar vacio"`
}

func (h *AuthHandler) CheckPassword(w http.ResponseWriter, r *http.Request, scope access.Scope) {
	var req checkPasswordRequest
	if err := decodeValid(w, r, h.validator, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if err := h.accounts.CheckPassword(r.Context(), scope.User.ID, req.Password); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.Message(w, http.StatusOK, "El password correcto")
}
