package account

import (
	"net/http"

	"github.com/dukerupert/cashtrackr/internal/apperr"
)

var (
	ErrDuplicateEmail       = apperr.New(apperr.KindConflict, http.StatusConflict, "El Email ya está registrado")
	ErrUserNotFound         = apperr.New(apperr.KindNotFound, http.StatusNotFound, "El Usuario no esta registrado")
	ErrAccountNotConfirmed  = apperr.New(apperr.KindForbidden, http.StatusForbidden, "La cuenta no ha sido confirmada")
	ErrInvalidPassword      = apperr.New(apperr.KindUnauthorized, http.StatusUnauthorized, "Password Incorrecto")
	ErrWrongCurrentPassword = apperr.New(apperr.KindUnauthorized, http.StatusUnauthorized, "El Password actual es incorrecto")
	ErrUnauthorized         = apperr.New(apperr.KindUnauthorized, http.StatusUnauthorized, "No Autorizado")

	// Confirmation answers an unknown token with 401, the reset flow with 404.
	ErrInvalidConfirmToken = apperr.New(apperr.KindInvalidToken, http.StatusUnauthorized, "Token no válido")
	ErrInvalidResetToken   = apperr.New(apperr.KindInvalidToken, http.StatusNotFound, "Token no válido")

	ErrPasswordTooLong = apperr.Validation([]apperr.FieldError{{Field: "password", Msg: PasswordTooLongMessage}})
)

// PasswordTooLongMessage is shown for passwords past bcrypt's 72-byte input limit.
const PasswordTooLongMessage = "El password es muy largo, máximo 72 caracteres"
