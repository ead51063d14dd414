package validation

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/long1234hcc/ctc-east-extract/pkg/pagination"
)

var v *validator.Validate

// Validator returns a singleton validator with custom rules registered.
func Validator() *validator.Validate {
	if v == nil {
		v = validator.New()
		// Custom: workbook path must have a supported Excel extension.
		_ = v.RegisterValidation("xlsxpath", func(fl validator.FieldLevel) bool {
			s := strings.TrimSpace(fl.Field().String())
			if s == "" {
				return false
			}
			s = strings.ToLower(s)
			return strings.HasSuffix(s, ".xlsx") || strings.HasSuffix(s, ".xlsm") || strings.HasSuffix(s, ".xltx") || strings.HasSuffix(s, ".xltm")
		})
		// Custom: border-ruled-fraction threshold must lie in [0,1].
		_ = v.RegisterValidation("threshold01", func(fl validator.FieldLevel) bool {
			f := fl.Field().Float()
			return f >= 0 && f <= 1
		})
		// Custom: cursor must be decodable via pagination.DecodeCursor.
		_ = v.RegisterValidation("cursor", func(fl validator.FieldLevel) bool {
			s := strings.TrimSpace(fl.Field().String())
			if s == "" {
				return true // empty is allowed; use omitempty with this tag
			}
			if _, err := base64.RawURLEncoding.DecodeString(s); err != nil {
				return false
			}
			if _, err := pagination.DecodeCursor(s); err != nil {
				return false
			}
			return true
		})
	}
	return v
}

// ValidateStruct validates a struct and returns a user-friendly error string
// suitable for MCP tool errors. Returns empty string when valid.
func ValidateStruct(s any) string {
	if err := Validator().Struct(s); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			fe := ve[0]
			field := strings.ToLower(fe.Field())
			switch fe.Tag() {
			case "required":
				return fmt.Sprintf("VALIDATION: %s is required", field)
			case "required_without":
				if field == "sheet" {
					return "VALIDATION: sheet is required (or supply cursor)"
				}
				return fmt.Sprintf("VALIDATION: %s is required", field)
			case "xlsxpath":
				return "VALIDATION: path must be an Excel file (.xlsx, .xlsm, .xltx, .xltm)"
			case "threshold01":
				return "VALIDATION: border_threshold must be between 0 and 1"
			case "cursor":
				return "CURSOR_INVALID: failed to decode cursor; reopen workbook and restart pagination"
			case "min", "max", "gte", "lte":
				return fmt.Sprintf("VALIDATION: %s must satisfy %s=%s", field, fe.Tag(), fe.Param())
			}
			return fmt.Sprintf("VALIDATION: invalid %s", field)
		}
		return "VALIDATION: invalid inputs"
	}
	return ""
}
