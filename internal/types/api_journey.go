package types

// APIJourney is the loosely-shaped journey payload as it arrives from the
// outside world (an import payload or a row hydrated from storage). Every
// field is optional and inconsistently present; the itinerary normalizer
// turns it into a total Journey with explicit defaults instead of letting
// the gaps leak into rendering.
type APIJourney struct {
	ID            string    `json:"id,omitempty"`
	Title         *string   `json:"title,omitempty"`
	StartLocation *string   `json:"start_location,omitempty"`
	EndLocation   *string   `json:"end_location,omitempty"`
	StartDate     *string   `json:"start_date,omitempty"`
	EndDate       *string   `json:"end_date,omitempty"`
	Who           *string   `json:"who,omitempty"`
	Budget        *string   `json:"budget,omitempty"`
	Stops         []APIStop `json:"stops,omitempty"`
}

// APIStop is one raw stop within an APIJourney. Latitude and longitude are
// carried as strings exactly as received; the normalizer decides whether
// they amount to usable coordinates.
type APIStop struct {
	ID           string       `json:"id,omitempty"`
	Title        *string      `json:"title,omitempty"`
	CategoryName *string      `json:"category_name,omitempty"`
	CategoryID   *int64       `json:"category_id,omitempty"`
	Latitude     *string      `json:"latitude,omitempty"`
	Longitude    *string      `json:"longitude,omitempty"`
	Notes        *string      `json:"notes,omitempty"`
	Mode         *string      `json:"mode,omitempty"`
	StartDate    *string      `json:"start_date,omitempty"`
	EndDate      *string      `json:"end_date,omitempty"`
	Media        []APIMedium `json:"media,omitempty"`
}

// APIMedium is a persisted media reference on a raw stop. Only url and type
// survive persistence; the original filename is not retrievable.
type APIMedium struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}
