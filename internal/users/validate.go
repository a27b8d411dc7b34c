package users

import (
	"strings"

	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
)

// NormalizeIdentity trims both fields, lowercases the email and checks their shape.
func NormalizeIdentity(username, email string) (string, string, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if n := len([]rune(username)); n < MinUsernameLength || n > MaxUsernameLength {
		return "", "", pkgerrors.Newf(pkgerrors.CodeValidation, "username must be %d to %d characters", MinUsernameLength, MaxUsernameLength)
	}
	if at := strings.Index(email, "@"); at <= 0 || at == len(email)-1 {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	return username, email, nil
}
