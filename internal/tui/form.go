package tui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/engine"
	"github.com/julianstephens/routinely/internal/validation"
)

// RoutineForm backs the add-routine form fields.
type RoutineForm struct {
	Name        string
	Description string
	TimeOfDay   string
	Frequency   string
}

func (f *RoutineForm) Input() engine.RoutineInput {
	return engine.RoutineInput{
		Name:        strings.TrimSpace(f.Name),
		Description: strings.TrimSpace(f.Description),
		TimeOfDay:   strings.TrimSpace(f.TimeOfDay),
		Frequency:   f.Frequency,
	}
}

func runeLen(min, max int, field string) func(string) error {
	return func(s string) error {
		if n := utf8.RuneCountInString(strings.TrimSpace(s)); n < min || n > max {
			return fmt.Errorf("%s must be %d-%d characters", field, min, max)
		}
		return nil
	}
}

// NewRoutineForm builds the add-routine form over fm.
func NewRoutineForm(fm *RoutineForm) *huh.Form {
	if fm.Frequency == "" {
		fm.Frequency = string(constants.FrequencyDaily)
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&fm.Name).
				Validate(runeLen(constants.RoutineNameMin, constants.RoutineNameMax, "name")),
			huh.NewText().
				Title("Description").
				Value(&fm.Description).
				Validate(runeLen(constants.RoutineDescriptionMin, constants.RoutineDescriptionMax, "description")),
			huh.NewInput().
				Title("Time (HH:MM)").
				Value(&fm.TimeOfDay).
				Validate(func(s string) error {
					if !validation.IsTimeOfDay(strings.TrimSpace(s)) {
						return fmt.Errorf("time must be HH:MM")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Frequency").
				Options(huh.NewOptions(
					string(constants.FrequencyDaily),
					string(constants.FrequencyWeekly),
					string(constants.FrequencyMonthly),
				)...).
				Value(&fm.Frequency),
		),
	).WithTheme(huh.ThemeDracula())
}
