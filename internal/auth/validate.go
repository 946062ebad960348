package auth

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	maxNameLength     = 100
	maxEmailLength    = 255
	minPasswordLength = 6
)

// NormalizeEmail trims and lowercases an email address. Account lookups and
// uniqueness are defined over this form.
func NormalizeEmail(email string) string {
	// Casers carry state; build one per call.
	return cases.Lower(language.Und).String(strings.TrimSpace(email))
}

// CanonicalRole maps a role name to its canonical spelling, case-insensitively.
// An empty role selects RoleUser.
func CanonicalRole(role string) (string, bool) {
	role = strings.TrimSpace(role)
	if role == "" {
		return RoleUser, true
	}
	for _, r := range Roles {
		if strings.EqualFold(r, role) {
			return r, true
		}
	}
	return "", false
}

type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role,omitempty"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// fieldErrors collects field-level messages in input order.
type fieldErrors []string

func (f *fieldErrors) add(msg string) { *f = append(*f, msg) }

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return validationError(f)
}

func (in RegisterInput) validate() error {
	var errs fieldErrors
	checkName(&errs, "First name", in.FirstName)
	checkName(&errs, "Last name", in.LastName)
	checkEmail(&errs, in.Email)
	switch {
	case in.Password == "":
		errs.add("Password is required")
	case utf8.RuneCountInString(in.Password) < minPasswordLength:
		errs.add("Password must be at least 6 characters")
	}
	if _, ok := CanonicalRole(in.Role); !ok {
		errs.add("Role must be one of User, Manager, Admin")
	}
	return errs.err()
}

func (in LoginInput) validate() error {
	var errs fieldErrors
	if strings.TrimSpace(in.Email) == "" {
		errs.add("Email is required")
	}
	if in.Password == "" {
		errs.add("Password is required")
	}
	return errs.err()
}

func (in ChangePasswordInput) validate() error {
	var errs fieldErrors
	if in.CurrentPassword == "" {
		errs.add("Current password is required")
	}
	switch {
	case in.NewPassword == "":
		errs.add("New password is required")
	case utf8.RuneCountInString(in.NewPassword) < minPasswordLength:
		errs.add("New password must be at least 6 characters")
	}
	return errs.err()
}

func checkName(errs *fieldErrors, label, v string) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		errs.add(label + " is required")
	case utf8.RuneCountInString(v) > maxNameLength:
		errs.add(label + " cannot exceed 100 characters")
	}
}

func checkEmail(errs *fieldErrors, v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		errs.add("Email is required")
		return
	}
	if len(v) > maxEmailLength {
		errs.add("Email cannot exceed 255 characters")
		return
	}
	if !validEmail(v) {
		errs.add("Email must be a valid email address")
	}
}

// validEmail accepts a bare address such as "a@x.com" of acceptable length.
func validEmail(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" || len(v) > maxEmailLength {
		return false
	}
	addr, err := mail.ParseAddress(v)
	return err == nil && addr.Address == v
}
