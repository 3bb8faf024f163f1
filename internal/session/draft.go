package session

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/validation"
)

// Step is the field a routine draft is waiting for.
type Step int

const (
	StepName Step = iota
	StepDescription
	StepTime
	StepFrequency
	StepDone
)

func (s Step) String() string {
	switch s {
	case StepName:
		return "name"
	case StepDescription:
		return "description"
	case StepTime:
		return "time"
	case StepFrequency:
		return "frequency"
	case StepDone:
		return "done"
	default:
		return "unknown"
	}
}

// ErrNoDraft is returned when a session has no draft in progress.
var ErrNoDraft = errors.New("no routine draft in progress")

// Draft is a routine being built one answer at a time.
type Draft struct {
	Step        Step
	Name        string
	Description string
	TimeOfDay   string
	Frequency   constants.Frequency
}

// Advance validates input for the current step and moves to the next one.
// On error the draft is unchanged.
func (d Draft) Advance(input string) (Draft, error) {
	input = validation.SanitizeText(input)
	switch d.Step {
	case StepName:
		if n := utf8.RuneCountInString(input); n < constants.RoutineNameMin || n > constants.RoutineNameMax {
			return d, fmt.Errorf("name must be %d-%d characters", constants.RoutineNameMin, constants.RoutineNameMax)
		}
		d.Name = input
	case StepDescription:
		if n := utf8.RuneCountInString(input); n < constants.RoutineDescriptionMin || n > constants.RoutineDescriptionMax {
			return d, fmt.Errorf("description must be %d-%d characters", constants.RoutineDescriptionMin, constants.RoutineDescriptionMax)
		}
		d.Description = input
	case StepTime:
		if !validation.IsTimeOfDay(input) {
			return d, fmt.Errorf("time must be HH:MM, got %q", input)
		}
		d.TimeOfDay = input
	case StepFrequency:
		freq, err := models.ParseFrequency(input)
		if err != nil {
			return d, err
		}
		d.Frequency = freq
	default:
		return d, errors.New("draft is already complete")
	}
	d.Step++
	return d, nil
}

// Drafts tracks routine drafts per session.
type Drafts struct {
	store *Store[Draft]
}

func NewDrafts(store *Store[Draft]) *Drafts {
	return &Drafts{store: store}
}

// Start opens a fresh draft for id, replacing any previous one. Drafts
// abandoned past their ttl are dropped first.
func (d *Drafts) Start(id string) Draft {
	d.store.Sweep()
	draft := Draft{Step: StepName}
	d.store.Put(id, draft)
	return draft
}

// Answer feeds input to id's draft. When the draft reaches StepDone it is
// removed from the store and returned for the caller to persist.
func (d *Drafts) Answer(id, input string) (Draft, error) {
	draft, ok := d.store.Get(id)
	if !ok {
		return Draft{}, ErrNoDraft
	}
	next, err := draft.Advance(input)
	if err != nil {
		d.store.Put(id, draft)
		return draft, err
	}
	if next.Step == StepDone {
		d.store.Delete(id)
	} else {
		d.store.Put(id, next)
	}
	return next, nil
}

// Cancel drops id's draft.
func (d *Drafts) Cancel(id string) {
	d.store.Delete(id)
}
