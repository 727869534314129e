package utils

import (
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode"

	"mindcare-api/internal/models"

	"github.com/go-playground/validator/v10"
)

var Validate *validator.Validate

var phonePattern = regexp.MustCompile(`^[\+]?[1-9][\d]{0,15}$`)

// DateLayouts are the accepted calendar date formats, tried in order.
var DateLayouts = []string{"2006-01-02", time.RFC3339}

func init() {
	Validate = validator.New()

	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = Validate.RegisterValidation("password", validatePassword)
	_ = Validate.RegisterValidation("pastdate", validatePastDate)
	_ = Validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = Validate.RegisterValidation("interest", oneOfList(models.Interests))
	_ = Validate.RegisterValidation("mood_tag", oneOfList(models.MoodTags))
	_ = Validate.RegisterValidation("mood_activity", oneOfList(models.MoodActivities))
}

// validatePassword requires 8+ characters with an upper, a lower and a digit.
func validatePassword(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if len(value) < 8 {
		return false
	}
	var upper, lower, digit bool
	for _, r := range value {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

func validatePastDate(fl validator.FieldLevel) bool {
	t, err := ParseDate(fl.Field().String(), time.UTC)
	if err != nil {
		return false
	}
	return !t.After(time.Now())
}

func oneOfList(allowed []string) validator.Func {
	set := make(map[string]struct{}, len(allowed))
	for _, v := range allowed {
		set[v] = struct{}{}
	}
	return func(fl validator.FieldLevel) bool {
		_, ok := set[fl.Field().String()]
		return ok
	}
}

// ParseDate accepts YYYY-MM-DD (interpreted in loc) or RFC 3339.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	var lastErr error
	for _, layout := range DateLayouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ValidationMessage renders one field error as client-facing text.
func ValidationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "Please provide a valid email"
	case "password":
		return "Password must be at least 8 characters and contain an uppercase letter, a lowercase letter and a number"
	case "pastdate":
		return "Date of birth must be a valid date in the past"
	case "phone":
		return "Please provide a valid phone number"
	case "min":
		return field + " must be at least " + fe.Param()
	case "max":
		return field + " must be at most " + fe.Param()
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "interest", "mood_tag", "mood_activity":
		return field + " contains an unsupported value"
	default:
		return field + " is invalid"
	}
}
