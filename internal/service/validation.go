package service

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/chowfast/chowfast-api/internal/config"
	"github.com/chowfast/chowfast-api/internal/domain/entity"
	apperrors "github.com/chowfast/chowfast-api/internal/pkg/errors"
)

var (
	vendorPhonePattern   = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	customerPhonePattern = regexp.MustCompile(`^\+?1?\d{9,15}$`)
)

const maxEmailLength = 255

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateEmail applies the syntax rules and the configured domain policy
// to an already normalized address.
func validateEmail(email string, policy config.SignupConfig) error {
	if email == "" {
		return apperrors.NewFieldError("email", "This field is required.")
	}
	if len(email) > maxEmailLength {
		return apperrors.NewFieldError("email", fmt.Sprintf("Ensure this field has no more than %d characters.", maxEmailLength))
	}
	if strings.ContainsAny(email, " \t\r\n") {
		return apperrors.NewFieldError("email", "Email address must not contain spaces.")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperrors.NewFieldError("email", "Enter a valid email address.")
	}

	domain := email[strings.LastIndex(email, "@")+1:]
	if policy.RequiredEmailTLD != "" && !strings.HasSuffix(domain, strings.ToLower(policy.RequiredEmailTLD)) {
		return apperrors.NewFieldError("email", fmt.Sprintf("Email must end with %s.", policy.RequiredEmailTLD))
	}
	if len(policy.AllowedEmailDomains) > 0 {
		name := strings.SplitN(domain, ".", 2)[0]
		allowed := false
		for _, d := range policy.AllowedEmailDomains {
			if name == d {
				allowed = true
				break
			}
		}
		if !allowed {
			return apperrors.NewFieldError("email",
				fmt.Sprintf("Email domain must be one of: %s.", strings.Join(policy.AllowedEmailDomains, ", ")))
		}
	}
	return nil
}

func validatePassword(password string, policy config.SignupConfig) error {
	n := utf8.RuneCountInString(password)
	switch {
	case n == 0:
		return apperrors.NewFieldError("password", "This field is required.")
	case policy.PasswordMinLength > 0 && n < policy.PasswordMinLength:
		return apperrors.NewFieldError("password",
			fmt.Sprintf("Ensure this field has at least %d characters.", policy.PasswordMinLength))
	case policy.PasswordMaxLength > 0 && n > policy.PasswordMaxLength:
		return apperrors.NewFieldError("password",
			fmt.Sprintf("Ensure this field has no more than %d characters.", policy.PasswordMaxLength))
	case len(password) > entity.MaxPasswordBytes:
		return apperrors.NewFieldError("password",
			fmt.Sprintf("Ensure this field has no more than %d bytes.", entity.MaxPasswordBytes))
	}
	return nil
}

// isNumericCode reports whether code is exactly length ASCII digits.
func isNumericCode(code string, length int) bool {
	if len(code) != length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
