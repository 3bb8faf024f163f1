package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/utils"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Report fields by their JSON names so messages match what users typed into
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	custom := map[string]validator.Func{
		"hhmm":      validateTimeOfDay,
		"frequency": validateFrequency,
		"priority":  validatePriority,
		"datestr":   validateDate,
		"timezone":  validateTimezone,
	}
	for tag, fn := range custom {
		if err := Validate.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("failed to register %s validator: %v", tag, err))
		}
	}
}

// validateTimeOfDay accepts zero-padded HH:MM with 00<=HH<=23 and 00<=MM<=59
func validateTimeOfDay(fl validator.FieldLevel) bool {
	return IsTimeOfDay(fl.Field().String())
}

func validateFrequency(fl validator.FieldLevel) bool {
	switch constants.Frequency(fl.Field().String()) {
	case constants.FrequencyDaily, constants.FrequencyWeekly, constants.FrequencyMonthly:
		return true
	default:
		return false
	}
}

func validatePriority(fl validator.FieldLevel) bool {
	switch constants.Priority(fl.Field().String()) {
	case constants.PriorityLow, constants.PriorityMedium, constants.PriorityHigh:
		return true
	default:
		return false
	}
}

func validateDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(constants.DateFormat, fl.Field().String())
	return err == nil
}

func validateTimezone(fl validator.FieldLevel) bool {
	return utils.ValidateTimezone(fl.Field().String())
}

// IsTimeOfDay reports whether s is a well-formed HH:MM string.
func IsTimeOfDay(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	_, err := time.Parse(constants.TimeFormat, s)
	return err == nil
}

// SanitizeText trims whitespace and removes control characters except newline and tab
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// Routine sanitizes the free-text fields of r in place and validates it.
func Routine(r *models.Routine) error {
	r.Name = SanitizeText(r.Name)
	r.Description = SanitizeText(r.Description)
	r.TimeOfDay = strings.TrimSpace(r.TimeOfDay)
	return humanize(Validate.Struct(r))
}

// Task sanitizes and validates a one-off task.
func Task(t *models.Task) error {
	t.Title = SanitizeText(t.Title)
	t.Description = SanitizeText(t.Description)
	if t.Priority == "" {
		t.Priority = constants.PriorityMedium
	}
	return humanize(Validate.Struct(t))
}

// Preferences validates user preferences.
func Preferences(p *models.UserPreferences) error {
	return humanize(Validate.Struct(p))
}

// humanize turns the first validator failure into a message fit for users.
func humanize(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "min":
		return fmt.Errorf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Errorf("%s must be at most %s characters", field, fe.Param())
	case "gte":
		return fmt.Errorf("%s must not be negative", field)
	case "hhmm":
		return fmt.Errorf("%s must be a time in HH:MM format, got %q", field, fe.Value())
	case "frequency":
		return fmt.Errorf("%s must be daily, weekly or monthly, got %q", field, fe.Value())
	case "priority":
		return fmt.Errorf("%s must be low, medium or high, got %q", field, fe.Value())
	case "datestr":
		return fmt.Errorf("%s must be a date in YYYY-MM-DD format, got %q", field, fe.Value())
	case "timezone":
		return fmt.Errorf("%s %q is not a known IANA timezone", field, fe.Value())
	default:
		return fmt.Errorf("%s is invalid", field)
	}
}
