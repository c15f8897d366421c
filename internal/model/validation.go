package model

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field limits enforced before any account is written.
const (
	NameMinLen     = 2
	NameMaxLen     = 50
	PasswordMinLen = 6
	PasswordMaxLen = 72 // bcrypt ignores input past 72 bytes
	BioMaxLen      = 500
	AvatarMaxLen   = 2048
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeName trims surrounding whitespace from a display name.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// ValidationErrors collects human readable problems with a payload.
type ValidationErrors []string

func (v ValidationErrors) Error() string {
	return strings.Join(v, "; ")
}

// Err returns nil when no problem was recorded.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// CheckName appends a message when the trimmed name is out of range.
func (v *ValidationErrors) CheckName(name string) {
	n := utf8.RuneCountInString(NormalizeName(name))
	switch {
	case n == 0:
		*v = append(*v, "Name is required")
	case n < NameMinLen:
		*v = append(*v, "Name must be at least 2 characters")
	case n > NameMaxLen:
		*v = append(*v, "Name cannot exceed 50 characters")
	}
}

// CheckEmail appends a message when the normalized address is missing or malformed.
func (v *ValidationErrors) CheckEmail(email string) {
	email = NormalizeEmail(email)
	switch {
	case email == "":
		*v = append(*v, "Email is required")
	case !emailPattern.MatchString(email):
		*v = append(*v, "Please provide a valid email")
	}
}

// CheckNewPassword applies the registration password policy.
func (v *ValidationErrors) CheckNewPassword(password string) {
	switch {
	case password == "":
		*v = append(*v, "Password is required")
	case len(password) < PasswordMinLen:
		*v = append(*v, "Password must be at least 6 characters")
	case len(password) > PasswordMaxLen:
		*v = append(*v, "Password cannot exceed 72 bytes")
	}
}

// CheckRequired appends "<field> is required" for blank values.
func (v *ValidationErrors) CheckRequired(field, value string) {
	if strings.TrimSpace(value) == "" {
		*v = append(*v, field+" is required")
	}
}

// CheckBio limits the free-form bio length.
func (v *ValidationErrors) CheckBio(bio string) {
	if utf8.RuneCountInString(bio) > BioMaxLen {
		*v = append(*v, "Bio cannot exceed 500 characters")
	}
}

// CheckAvatar limits the avatar reference length.
func (v *ValidationErrors) CheckAvatar(avatar string) {
	if len(avatar) > AvatarMaxLen {
		*v = append(*v, "Avatar URL is too long")
	}
}
