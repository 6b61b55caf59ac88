package protocol

import (
	"encoding/json"

	"booking/entities"
)

// Caller is stamped into every request body by the master after
// authentication. Values supplied by the client are overwritten.
type Caller struct {
	UserRole Role  `json:"user_role,omitempty"`
	UserID   int64 `json:"user_id,omitempty"`
}

// Envelope is the minimal view of a raw client message.
type Envelope struct {
	Type string `json:"type"`
}

// Credentials is the body of login and register.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
	Lastname string `json:"lastname,omitempty"`
	UserRole Role   `json:"user_role,omitempty"`
}

// AuthResult answers login and register.
type AuthResult struct {
	Result   string `json:"result"`
	UserRole Role   `json:"user_role,omitempty"`
	UserID   int64  `json:"user_id,omitempty"`
}

type AddHotel struct {
	Caller
	HotelName  string  `json:"hotelName"`
	NumPeople  int     `json:"numPeople"`
	Area       string  `json:"area"`
	Stars      float64 `json:"stars"`
	NumReviews int     `json:"numReviews"`
	HotelImage string  `json:"hotelImage"`
	Price      float64 `json:"price"`
}

type AddAvailableDates struct {
	Caller
	HotelName      string `json:"hotelName"`
	AvailableDates string `json:"availableDates"`
}

type ShowReservations struct {
	Caller
}

type ReservationsByArea struct {
	Caller
	Period string `json:"period"`
}

// Search filters are optional; nil means the filter is not applied.
type Search struct {
	Caller
	Area      *string  `json:"area,omitempty"`
	Dates     *string  `json:"dates,omitempty"`
	NumPeople *int     `json:"numPeople,omitempty"`
	Price     *float64 `json:"price,omitempty"`
	Stars     *float64 `json:"stars,omitempty"`
}

type ListHotels struct {
	Caller
}

type Reserve struct {
	Caller
	HotelName string `json:"hotelName"`
	Dates     string `json:"dates"`
}

type Rate struct {
	Caller
	HotelName string  `json:"hotelName"`
	NewRating *float64 `json:"newRating"`
}

type MyReservations struct {
	Caller
}

// BulkLoad is the first message a worker receives: its whole shard.
type BulkLoad struct {
	Hotels []entities.Hotel `json:"hotels"`
}

// Partial is the body a worker sends to the reducer. Result is either a JSON
// array of hotels or a JSON object of numeric aggregates.
type Partial struct {
	Result json.RawMessage `json:"result"`
}

// Merged is the body of an aggregated reducer response.
type Merged struct {
	Results json.RawMessage `json:"results"`
}

type DatesResult struct {
	AvailableDates []string `json:"availableDates"`
}

type ReserveResult struct {
	AvailableDates []string           `json:"availableDates"`
	Reservations   map[int64][]string `json:"reservations"`
}

type RateResult struct {
	UpdatedStars   float64 `json:"updatedStars"`
	UpdatedReviews int     `json:"updatedReviews"`
}

type ClientReservation struct {
	HotelName string   `json:"hotelName"`
	Dates     []string `json:"dates"`
}

type MyReservationsResult struct {
	Reservations []ClientReservation `json:"reservations"`
}
