package dtos

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/veloxcrm/velox/modules/core/services"
	"github.com/veloxcrm/velox/pkg/constants"
)

type LoginDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (d *LoginDTO) Ok() (map[string]string, bool) {
	return validateStruct(d)
}

type RefreshDTO struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (d *RefreshDTO) Ok() (map[string]string, bool) {
	return validateStruct(d)
}

type TokenPairResponse struct {
	AccessToken           string    `json:"access_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshToken          string    `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

func NewTokenPairResponse(pair *services.TokenPair) *TokenPairResponse {
	return &TokenPairResponse{
		AccessToken:           pair.AccessToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshToken:          pair.RefreshToken,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             "Bearer",
	}
}

func validateStruct(v any) (map[string]string, bool) {
	errorMessages := map[string]string{}
	errs := constants.Validate.Struct(v)
	if errs == nil {
		return errorMessages, true
	}
	for _, err := range errs.(validator.ValidationErrors) {
		errorMessages[err.Field()] = err.Tag()
	}
	return errorMessages, false
}
