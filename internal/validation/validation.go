// Package validation holds the stateless request validators. Each validator
// returns the full list of violations so a client sees every problem at once,
// not just the first.
package validation

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bibliotekaglazury-jpg/fit-check-backend/internal/models"
)

var (
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	idRegex    = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidatePassword checks the registration/change-password rules and reports
// every violated rule.
func ValidatePassword(password string) []string {
	var violations []string

	// Length bounds count characters, not bytes, so non-Latin input is
	// measured the way users perceive it.
	if utf8.RuneCountInString(password) < 8 {
		violations = append(violations, "Password must be at least 8 characters long")
	}

	hasUpper, hasLower, hasDigit := false, false, false
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasUpper {
		violations = append(violations, "Password must contain at least one uppercase letter")
	}
	if !hasLower {
		violations = append(violations, "Password must contain at least one lowercase letter")
	}
	if !hasDigit {
		violations = append(violations, "Password must contain at least one digit")
	}

	return violations
}

func ValidateRegistration(email, password string, name *string) []string {
	var violations []string

	if email == "" || password == "" {
		violations = append(violations, "Email and password are required")
		return violations
	}

	if !IsValidEmail(email) {
		violations = append(violations, "Invalid email format")
	}

	violations = append(violations, ValidatePassword(password)...)

	if name != nil {
		violations = append(violations, validateName(*name)...)
	}

	return violations
}

func ValidateLogin(email, password string) []string {
	var violations []string

	if email == "" || password == "" {
		violations = append(violations, "Email and password are required")
		return violations
	}

	if !IsValidEmail(email) {
		violations = append(violations, "Invalid email format")
	}

	return violations
}

func ValidateProfileUpdate(name, avatar *string) []string {
	var violations []string

	if name == nil && avatar == nil {
		violations = append(violations, "At least one field must be provided")
		return violations
	}

	if name != nil {
		violations = append(violations, validateName(*name)...)
	}

	if avatar != nil && !isValidHTTPURL(*avatar) {
		violations = append(violations, "Avatar must be a valid URL")
	}

	return violations
}

func ValidatePasswordChange(currentPassword, newPassword string) []string {
	var violations []string

	if currentPassword == "" || newPassword == "" {
		violations = append(violations, "Current and new password are required")
		return violations
	}

	violations = append(violations, ValidatePassword(newPassword)...)

	if currentPassword == newPassword {
		violations = append(violations, "New password must differ from the current password")
	}

	return violations
}

// ValidateWardrobeItem checks the create/update payload. On create, name,
// category and an image are required; on update every field is optional.
func ValidateWardrobeItem(name, category, color *string, isUpdate bool) []string {
	var violations []string

	if !isUpdate && (name == nil || category == nil) {
		violations = append(violations, "Name and category are required")
	}

	if name != nil {
		n := utf8.RuneCountInString(strings.TrimSpace(*name))
		if n < 1 || n > 100 {
			violations = append(violations, "Name must be between 1 and 100 characters")
		}
	}

	if category != nil && !models.IsValidCategory(*category) {
		violations = append(violations, "Invalid category. Allowed: "+strings.Join(models.WardrobeCategories, ", "))
	}

	if color != nil && utf8.RuneCountInString(strings.TrimSpace(*color)) > 50 {
		violations = append(violations, "Color must not exceed 50 characters")
	}

	return violations
}

// ParseTags parses the tags form value. It accepts a JSON array of strings,
// at most 20 entries, each 1 to 30 characters after trimming.
func ParseTags(raw string) ([]string, []string) {
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, []string{"Tags must be a JSON array of strings"}
	}

	if len(tags) > 20 {
		return nil, []string{"A maximum of 20 tags is allowed"}
	}

	for _, tag := range tags {
		n := utf8.RuneCountInString(strings.TrimSpace(tag))
		if n < 1 || n > 30 {
			return nil, []string{"Each tag must be between 1 and 30 characters"}
		}
	}

	return tags, nil
}

// ValidatePagination checks and resolves page/limit query parameters.
// Absent values default to page 1, limit 10.
func ValidatePagination(pageStr, limitStr string) (page, limit int, violations []string) {
	page, limit = 1, 10

	if pageStr != "" {
		n, err := strconv.Atoi(pageStr)
		if err != nil || n < 1 {
			violations = append(violations, "Page must be a positive number")
		} else {
			page = n
		}
	}

	if limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 || n > 100 {
			violations = append(violations, "Limit must be a number between 1 and 100")
		} else {
			limit = n
		}
	}

	return page, limit, violations
}

func ValidateID(id string) bool {
	return id != "" && idRegex.MatchString(id)
}

func ValidateSearch(search string) []string {
	if utf8.RuneCountInString(search) > 100 {
		return []string{"Search query must not exceed 100 characters"}
	}
	return nil
}

func validateName(name string) []string {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < 2 || n > 50 {
		return []string{"Name must be between 2 and 50 characters"}
	}
	return nil
}

func isValidHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
