package user

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-user-registry/internal/api"
	"github.com/FACorreiaa/go-user-registry/internal/types"
)

// Mode selects which validation rules apply to a candidate field set.
type Mode int

const (
	// ModeCreate and ModeReplace require email and password.
	ModeCreate Mode = iota
	ModeReplace
	// ModePatch checks only the fields that were supplied.
	ModePatch
	// ModeImport is used for bulk import rows: id, password_hash and
	// last_login_at become settable so exported data can be loaded back,
	// and password is optional. Email is still required unless the row
	// targets an existing record by id.
	ModeImport
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeReplace:
		return "replace"
	case ModePatch:
		return "patch"
	case ModeImport:
		return "import"
	}
	return "unknown"
}

// Schema limits, matching the users table column sizes.
const (
	maxEmailLen     = 120
	maxNameLen      = 80
	maxPhoneLen     = 20
	maxAvatarURLLen = 256
	maxLanguageLen  = 10
	maxHashLen      = 256
	maxPasswordLen  = 72 // bcrypt input limit
)

// apiFields are the keys clients may send on create/replace/patch.
var apiFields = map[string]bool{
	"email":        true,
	"password":     true,
	"firstname":    true,
	"lastname":     true,
	"phone_number": true,
	"avatar_url":   true,
	"language":     true,
	"is_active":    true,
	"is_verified":  true,
	"company_id":   true,
	"role_id":      true,
}

// importOnlyFields are additionally accepted on import rows.
var importOnlyFields = map[string]bool{
	"id":            true,
	"password_hash": true,
	"last_login_at": true,
}

// Validator checks and normalizes candidate field sets against the user
// schema. The schema is closed: unknown keys are rejected rather than
// ignored, so typos never silently drop data.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate returns the normalized field set, or a *api.ValidationError
// listing every problem found. It never partially succeeds.
func (v *Validator) Validate(fields map[string]any, mode Mode) (*types.UserParams, error) {
	verr := api.NewValidationError()
	params := &types.UserParams{}

	for key, value := range fields {
		switch {
		case apiFields[key]:
			v.validateField(key, value, params, verr)
		case importOnlyFields[key]:
			if mode != ModeImport {
				verr.Add(key, fmt.Sprintf("Field %q is not settable.", key))
				continue
			}
			v.validateImportField(key, value, params, verr)
		case key == "created_at" || key == "updated_at":
			// Ignored on import rows so an exported file loads back
			// cleanly; the store regenerates both.
			if mode != ModeImport {
				verr.Add(key, fmt.Sprintf("Field %q is not settable.", key))
			}
		default:
			verr.Add(key, fmt.Sprintf("Unknown field %q.", key))
		}
	}

	switch mode {
	case ModeCreate, ModeReplace:
		if params.Email == nil {
			verr.Add("email", "Email is required.")
		}
		if params.Password == nil {
			verr.Add("password", "Password is required.")
		}
	case ModeImport:
		if params.Email == nil && params.ID == nil {
			verr.Add("email", "Email is required.")
		}
	}

	if verr.HasErrors() {
		return nil, verr
	}
	return params, nil
}

func (v *Validator) validateField(key string, value any, params *types.UserParams, verr *api.ValidationError) {
	switch key {
	case "email":
		s, ok := asString(value)
		if !ok {
			verr.Add(key, "Email must be a string.")
			return
		}
		if e := validateEmail(s); e != "" {
			verr.Add(key, e)
			return
		}
		params.Email = &s
	case "password":
		s, ok := asString(value)
		if !ok {
			verr.Add(key, "Password must be a string.")
			return
		}
		if s == "" {
			verr.Add(key, "Password cannot be empty.")
			return
		}
		if len(s) > maxPasswordLen {
			verr.Add(key, fmt.Sprintf("Password cannot exceed %d characters.", maxPasswordLen))
			return
		}
		params.Password = &s
	case "firstname":
		params.Firstname = boundedString(key, "First name", value, maxNameLen, verr)
	case "lastname":
		params.Lastname = boundedString(key, "Last name", value, maxNameLen, verr)
	case "phone_number":
		params.PhoneNumber = boundedString(key, "Phone number", value, maxPhoneLen, verr)
	case "avatar_url":
		params.AvatarURL = boundedString(key, "Avatar URL", value, maxAvatarURLLen, verr)
	case "language":
		params.Language = boundedString(key, "Language", value, maxLanguageLen, verr)
	case "is_active":
		b, ok := value.(bool)
		if !ok {
			verr.Add(key, "is_active must be a boolean.")
			return
		}
		params.IsActive = &b
	case "is_verified":
		b, ok := value.(bool)
		if !ok {
			verr.Add(key, "is_verified must be a boolean.")
			return
		}
		params.IsVerified = &b
	case "company_id":
		n, ok := asInt(value)
		if !ok || n < 0 {
			verr.Add(key, "company_id must be a non-negative integer.")
			return
		}
		params.CompanyID = &n
	case "role_id":
		n, ok := asInt(value)
		if !ok || n < 0 {
			verr.Add(key, "role_id must be a non-negative integer.")
			return
		}
		params.RoleID = &n
	}
}

func (v *Validator) validateImportField(key string, value any, params *types.UserParams, verr *api.ValidationError) {
	switch key {
	case "id":
		s, ok := asString(value)
		if !ok {
			verr.Add(key, "id must be a string.")
			return
		}
		id, err := uuid.Parse(s)
		if err != nil {
			verr.Add(key, "id must be a valid UUID.")
			return
		}
		params.ID = &id
	case "password_hash":
		s, ok := asString(value)
		if !ok || s == "" {
			verr.Add(key, "Hashed password cannot be empty.")
			return
		}
		if len(s) > maxHashLen {
			verr.Add(key, fmt.Sprintf("Hashed password cannot exceed %d characters.", maxHashLen))
			return
		}
		params.PasswordHash = &s
	case "last_login_at":
		switch t := value.(type) {
		case time.Time:
			params.LastLoginAt = &t
		case string:
			parsed, err := time.Parse(time.RFC3339, t)
			if err != nil {
				verr.Add(key, "last_login_at must be a valid RFC3339 datetime string.")
				return
			}
			params.LastLoginAt = &parsed
		default:
			verr.Add(key, "last_login_at must be a datetime string.")
		}
	}
}

func validateEmail(s string) string {
	if s == "" || strings.TrimSpace(s) == "" {
		return "Email cannot be empty."
	}
	if !strings.Contains(s, "@") {
		return "Email must contain '@' character."
	}
	if len(s) > maxEmailLen {
		return fmt.Sprintf("Email cannot exceed %d characters.", maxEmailLen)
	}
	for _, r := range s {
		if r > unicode.MaxASCII {
			return "Email must be ASCII characters only."
		}
	}
	return ""
}

func boundedString(key, label string, value any, max int, verr *api.ValidationError) *string {
	s, ok := asString(value)
	if !ok {
		verr.Add(key, fmt.Sprintf("%s must be a string.", label))
		return nil
	}
	if len(s) > max {
		verr.Add(key, fmt.Sprintf("%s cannot exceed %d characters.", label, max))
		return nil
	}
	return &s
}

func asString(value any) (string, bool) {
	s, ok := value.(string)
	return s, ok
}

// asInt accepts the integer shapes a JSON decoder or CSV parser can
// produce. Floats are only accepted when integral.
func asInt(value any) (int, bool) {
	switch n := value.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}
