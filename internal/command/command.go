// Package command resolves the action payloads attached to reminders and
// routine lists into a typed value. Payloads are parsed once at the edge
// (chat callback, CLI argument) and only Action values travel further in.
package command

import (
	"fmt"
	"strings"
)

// Kind identifies what a user asked to do with a routine.
type Kind int

const (
	KindUnknown Kind = iota
	KindComplete
	KindSkip
	KindPostpone
	KindToggle
	KindDelete
)

var kindNames = map[Kind]string{
	KindComplete: "complete",
	KindSkip:     "skip",
	KindPostpone: "postpone",
	KindToggle:   "toggle",
	KindDelete:   "delete",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Action is a resolved user command targeting a routine or task.
type Action struct {
	Kind      Kind
	RoutineID string
}

// Payload encodes the action as "<kind>_<id>".
func (a Action) Payload() string {
	return a.Kind.String() + "_" + a.RoutineID
}

// Complete builds a complete action for id.
func Complete(id string) Action { return Action{Kind: KindComplete, RoutineID: id} }

// Skip builds a skip action for id.
func Skip(id string) Action { return Action{Kind: KindSkip, RoutineID: id} }

// Postpone builds a postpone action for id.
func Postpone(id string) Action { return Action{Kind: KindPostpone, RoutineID: id} }

// ReminderActions returns the actions offered with every reminder.
func ReminderActions(id string) []Action {
	return []Action{Complete(id), Skip(id), Postpone(id)}
}

// Parse resolves a payload produced by Action.Payload.
func Parse(payload string) (Action, error) {
	name, id, ok := strings.Cut(strings.TrimSpace(payload), "_")
	if !ok || id == "" {
		return Action{}, fmt.Errorf("malformed action payload %q", payload)
	}
	for kind, kindName := range kindNames {
		if kindName == name {
			return Action{Kind: kind, RoutineID: id}, nil
		}
	}
	return Action{}, fmt.Errorf("unknown action %q", name)
}
