package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TravelMode is how the traveler reaches a step.
type TravelMode string

const (
	TravelModePlane TravelMode = "plane"
	TravelModeTrain TravelMode = "train"
	TravelModeBus   TravelMode = "bus"
	TravelModeWalk  TravelMode = "walk"
	TravelModeBike  TravelMode = "bike"
	TravelModeCar   TravelMode = "car"
	TravelModeOther TravelMode = "other"
)

// DefaultBudget is the fallback when a journey carries no budget.
var DefaultBudget = decimal.NewFromInt(1000)

// Journey is one planned trip: an ordered span of Days derived from the
// journey's date range and its stops. A Journey exclusively owns its Days.
type Journey struct {
	ID            uuid.UUID       `json:"id"`
	JourneyName   string          `json:"journeyName"`
	StartingPoint string          `json:"startingPoint"`
	EndingPoint   string          `json:"endingPoint"`
	StartDate     CalendarDate    `json:"startDate"`
	EndDate       CalendarDate    `json:"endDate"`
	Who           string          `json:"who"`
	Budget        decimal.Decimal `json:"budget"`
	Days          []Day           `json:"days"`
}

// Day is one calendar day within a Journey's date span. DayNumber is the
// 1-based rank of Date within the span; the Day sequence has no gaps and no
// duplicate dates. A Day exclusively owns its Steps.
type Day struct {
	DayNumber int          `json:"dayNumber"`
	Date      CalendarDate `json:"date"`
	Steps     []Step       `json:"steps"`
	IsOpen    bool         `json:"isOpen"` // UI accordion flag, not itinerary-semantic
}

// Location is an optional place reference. Coords, when present, is a
// [longitude, latitude] pair; nil means "no marker".
type Location struct {
	PlaceName string    `json:"placeName,omitempty"`
	Coords    []float64 `json:"coords"`
}

// MediaRef points at an already-persisted media object. Filename is empty
// for persisted stops; it is only known at upload time.
type MediaRef struct {
	URL      string `json:"url"`
	Type     string `json:"type"`
	Filename string `json:"filename,omitempty"`
}

// Step is one stop/activity within a Day.
type Step struct {
	ID              uuid.UUID    `json:"id,omitempty"`
	Name            string       `json:"name"`
	Location        Location     `json:"location"`
	Notes           string       `json:"notes,omitempty"`
	Media           []MediaRef   `json:"media,omitempty"`
	Mode            TravelMode   `json:"mode,omitempty"`
	StartDate       CalendarDate `json:"startDate,omitempty"`
	EndDate         CalendarDate `json:"endDate,omitempty"`
	Category        string       `json:"category"`
	ValidationError string       `json:"validationError,omitempty"`
}

// Marker is a map pin derived from a Step with usable coordinates.
type Marker struct {
	StepName  string  `json:"stepName"`
	DayNumber int     `json:"dayNumber"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Category  string  `json:"category,omitempty"`
}

// JourneySummary is the list-view projection of a stored journey.
type JourneySummary struct {
	ID            uuid.UUID       `json:"id"`
	JourneyName   string          `json:"journeyName"`
	StartingPoint string          `json:"startingPoint"`
	EndingPoint   string          `json:"endingPoint"`
	StartDate     CalendarDate    `json:"startDate"`
	EndDate       CalendarDate    `json:"endDate"`
	Who           string          `json:"who"`
	Budget        decimal.Decimal `json:"budget"`
	StopCount     int             `json:"stopCount"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type CreateJourneyRequest struct {
	Name          string  `json:"name" validate:"required,min=1,max=150"`
	StartLocation string  `json:"start_location,omitempty" validate:"max=150"`
	EndLocation   string  `json:"end_location,omitempty" validate:"max=150"`
	StartDate     string  `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate       string  `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Who           string  `json:"who,omitempty" validate:"max=100"`
	Budget        *string `json:"budget,omitempty" validate:"omitempty,numeric"`
}

type UpdateJourneyRequest struct {
	Name          *string `json:"name,omitempty" validate:"omitempty,min=1,max=150"`
	StartLocation *string `json:"start_location,omitempty" validate:"omitempty,max=150"`
	EndLocation   *string `json:"end_location,omitempty" validate:"omitempty,max=150"`
	StartDate     *string `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate       *string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Who           *string `json:"who,omitempty" validate:"omitempty,max=100"`
	Budget        *string `json:"budget,omitempty" validate:"omitempty,numeric"`
}

type AddStopRequest struct {
	Title        string          `json:"title,omitempty" validate:"max=150"`
	CategoryName string          `json:"category_name,omitempty" validate:"max=100"`
	CategoryID   *int64          `json:"category_id,omitempty"`
	Latitude     *string         `json:"latitude,omitempty"`
	Longitude    *string         `json:"longitude,omitempty"`
	Notes        string          `json:"notes,omitempty" validate:"max=2000"`
	Mode         TravelMode      `json:"mode,omitempty" validate:"omitempty,oneof=plane train bus walk bike car other"`
	StartDate    string          `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate      string          `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Media        []AddStopMedium `json:"media,omitempty" validate:"dive"`
}

type AddStopMedium struct {
	URL  string `json:"url" validate:"required,url"`
	Type string `json:"type" validate:"required,max=100"`
}

type UpdateStopRequest struct {
	Title        *string     `json:"title,omitempty" validate:"omitempty,max=150"`
	CategoryName *string     `json:"category_name,omitempty" validate:"omitempty,max=100"`
	CategoryID   *int64      `json:"category_id,omitempty"`
	Latitude     *string     `json:"latitude,omitempty"`
	Longitude    *string     `json:"longitude,omitempty"`
	Notes        *string     `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Mode         *TravelMode `json:"mode,omitempty" validate:"omitempty,oneof=plane train bus walk bike car other"`
	StartDate    *string     `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate      *string     `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}
