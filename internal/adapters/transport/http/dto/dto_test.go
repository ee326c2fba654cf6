package dto

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	customErrors "github.com/peitalin/dt-auth-service/internal/domain/user/errors"
	"github.com/peitalin/dt-auth-service/internal/domain/user/model"
	"github.com/stretchr/testify/require"
)

func TestValidator_StrongPassword(t *testing.T) {
	v := NewValidator()
	for pwd, ok := range map[string]bool{
		"Password1":   true,
		"password1":   false,
		"Password":    false,
		"Pa1":         false,
		"Geheimnis99": true,
	} {
		err := v.Struct(ChangePasswordDTO{CurrentPassword: "x", NewPassword: pwd})
		require.Equal(t, ok, err == nil, pwd)
	}
}

func TestValidator_CreateUser(t *testing.T) {
	v := NewValidator()
	require.NoError(t, v.Struct(CreateUserDTO{Email: "severus@hogwarts.com", Password: "Password1", Username: "snape"}))
	require.Error(t, v.Struct(CreateUserDTO{Email: "not-an-email", Password: "Password1"}))
	require.NoError(t, v.Struct(CreateUserDTO{Email: "a@b.c", Password: "Password1", Username: "Halfblood Prince"}))
	require.NoError(t, v.Struct(CreateUserDTO{Email: "a@b.c", Password: "Password1", Username: "Лили Поттер"}))
	require.Error(t, v.Struct(CreateUserDTO{Email: "a@b.c", Password: "Password1", Username: "bell\x07"}))
	require.Error(t, v.Struct(CreateUserDTO{Email: "a@b.c", Password: "Password1", LastName: "Snape\n"}))
}

func TestValidate_FieldErrorsUseJSONNames(t *testing.T) {
	v := NewValidator()
	long := strings.Repeat("x", 65)
	err := Validate(v, CreateUserDTO{Email: "not-an-email", Password: "weak", FirstName: long})

	var fields FieldErrors
	require.ErrorAs(t, err, &fields)
	require.True(t, customErrors.IsInvalidArgument(err))
	require.Equal(t, FieldErrors{
		"email":      "email",
		"password":   "strongpwd",
		"first_name": "max=64",
	}, fields)
	require.NotContains(t, err.Error(), "CreateUserDTO")

	require.NoError(t, Validate(v, LoginDTO{Email: "a@b.c", Password: "x"}))
}

func TestValidator_UpdateProfileOptional(t *testing.T) {
	v := NewValidator()
	require.NoError(t, v.Struct(UpdateProfileDTO{}))
	bad := "nope"
	require.Error(t, v.Struct(UpdateProfileDTO{Email: &bad}))
}

func TestPublicProfile_HasNoSecrets(t *testing.T) {
	u := model.User{
		ID: uuid.New(), Email: "severus@hogwarts.com", PasswordHash: "$argon2id$...",
		Username: "snape", CreatedAt: time.Now(),
	}
	b, err := json.Marshal(NewPublicProfile(u))
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(b, &fields))
	require.NotContains(t, fields, "email")
	require.NotContains(t, fields, "password_hash")
	require.NotContains(t, string(b), "argon2id")
	require.Equal(t, "snape", fields["username"])
}
