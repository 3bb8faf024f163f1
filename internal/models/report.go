package models

import "time"

// WindowKind selects the date range a report covers
type WindowKind string

const (
	WindowToday   WindowKind = "today"
	WindowWeek    WindowKind = "week"
	WindowMonth   WindowKind = "month"
	WindowAllTime WindowKind = "all"
)

// Window is a report range. WeekStart only matters for WindowWeek.
type Window struct {
	Kind      WindowKind
	WeekStart time.Weekday
}

// Today returns the today window.
func Today() Window { return Window{Kind: WindowToday} }

// ThisWeek returns the week window starting on startDow.
func ThisWeek(startDow time.Weekday) Window { return Window{Kind: WindowWeek, WeekStart: startDow} }

// ThisMonth returns the calendar month window.
func ThisMonth() Window { return Window{Kind: WindowMonth} }

// AllTime returns the unbounded window.
func AllTime() Window { return Window{Kind: WindowAllTime} }

// Report is the aggregated view of the ledger over one window.
// Exactly one of the detail pointers is set, matching Window.Kind.
type Report struct {
	OwnerID     string  `json:"owner_id"`
	Window      Window  `json:"window"`
	Start       string  `json:"start,omitempty"`
	End         string  `json:"end,omitempty"`
	Completed   int     `json:"completed"`
	Total       int     `json:"total"`
	SuccessRate float64 `json:"success_rate"`

	Today   *TodayDetail   `json:"today,omitempty"`
	Week    *WeekDetail    `json:"week,omitempty"`
	Month   *MonthDetail   `json:"month,omitempty"`
	AllTime *AllTimeDetail `json:"all_time,omitempty"`
}

// RoutineStatus is one line of the today report
type RoutineStatus struct {
	RoutineID string `json:"routine_id"`
	Name      string `json:"name"`
	TimeOfDay string `json:"time_of_day"`
	Done      bool   `json:"done"`
}

// DayCount is the number of completions on one date
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// WeekCount is the number of completions in one ISO week
type WeekCount struct {
	Year  int `json:"year"`
	Week  int `json:"week"`
	Count int `json:"count"`
}

// RoutineCount is the number of completions of one routine
type RoutineCount struct {
	RoutineID string `json:"routine_id"`
	Name      string `json:"name"`
	Count     int    `json:"count"`
}

type TodayDetail struct {
	Routines []RoutineStatus `json:"routines"`
}

// WeekDetail rates daily routines only. Weekly and monthly routines are
// reported as raw counts next to their due occurrences.
type WeekDetail struct {
	DailyRoutines    int        `json:"daily_routines"`
	DailyCompleted   int        `json:"daily_completed"`
	ActiveDays       int        `json:"active_days"`
	Days             []DayCount `json:"days"`
	WeeklyCompleted  int        `json:"weekly_completed"`
	WeeklyDue        int        `json:"weekly_due"`
	MonthlyCompleted int        `json:"monthly_completed"`
	MonthlyDue       int        `json:"monthly_due"`
}

type MonthDetail struct {
	DaysInMonth   int         `json:"days_in_month"`
	ActiveDays    int         `json:"active_days"`
	AveragePerDay float64     `json:"average_per_day"`
	BestDayCount  int         `json:"best_day_count"`
	Weeks         []WeekCount `json:"weeks"`
}

type AllTimeDetail struct {
	FirstDate           string         `json:"first_date,omitempty"`
	LastDate            string         `json:"last_date,omitempty"`
	ActiveDays          int            `json:"active_days"`
	AveragePerActiveDay float64        `json:"average_per_active_day"`
	TopRoutine          *RoutineCount  `json:"top_routine,omitempty"`
	PerRoutine          []RoutineCount `json:"per_routine"`
}
