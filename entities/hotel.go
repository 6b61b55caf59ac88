// Package entities holds the domain records shared by every tier: hotels,
// users and the date ranges that describe availability and reservations.
package entities

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// RatingPrecision is the number of decimals kept for the running average.
const RatingPrecision = 3

var (
	ErrOverlap       = errors.New("range overlaps existing availability or reservation")
	ErrInvalidRating = errors.New("rating must be between 0 and 5")
)

// Hotel is owned by exactly one worker, the one its name hashes to.
type Hotel struct {
	HotelName      string             `json:"hotelName"`
	NumPeople      int                `json:"numPeople"`
	Area           string             `json:"area"`
	Stars          float64            `json:"stars"`
	NumReviews     int                `json:"numReviews"`
	HotelImage     string             `json:"hotelImage"`
	Price          float64            `json:"price"`
	AvailableDates []string           `json:"availableDates"`
	Reservations   map[int64][]string `json:"reservations"`
	ManagerID      int64              `json:"manager_id"`
}

// Clone returns a deep copy so callers can serialize outside the shard lock.
func (h *Hotel) Clone() Hotel {
	c := *h
	c.AvailableDates = append([]string(nil), h.AvailableDates...)
	c.Reservations = make(map[int64][]string, len(h.Reservations))
	for id, dates := range h.Reservations {
		c.Reservations[id] = append([]string(nil), dates...)
	}
	return c
}

// Normalize fills nil collections so JSON output is stable.
func (h *Hotel) Normalize() {
	if h.AvailableDates == nil {
		h.AvailableDates = []string{}
	}
	if h.Reservations == nil {
		h.Reservations = map[int64][]string{}
	}
}

// HasReservations reports whether any client holds a reservation.
func (h *Hotel) HasReservations() bool {
	for _, dates := range h.Reservations {
		if len(dates) > 0 {
			return true
		}
	}
	return false
}

// AddAvailable appends ranges that do not collide with the current windows
// or reservations. Either all ranges are added or none.
func (h *Hotel) AddAvailable(ranges []DateRange) error {
	taken := h.ranges()
	for i, r := range ranges {
		for _, t := range taken {
			if r.Overlaps(t) {
				return errors.Wrapf(ErrOverlap, "%s", r)
			}
		}
		for _, prev := range ranges[:i] {
			if r.Overlaps(prev) {
				return errors.Wrapf(ErrOverlap, "%s", r)
			}
		}
	}
	for _, r := range ranges {
		h.AvailableDates = append(h.AvailableDates, r.String())
	}
	return nil
}

// Reserve books req for clientID inside the first available window that
// contains it. The window is replaced in place by what remains of it.
func (h *Hotel) Reserve(clientID int64, req DateRange) bool {
	for i, raw := range h.AvailableDates {
		window, err := ParseDateRange(raw)
		if err != nil || !window.Contains(req) {
			continue
		}
		var rest []string
		for _, r := range window.Carve(req) {
			rest = append(rest, r.String())
		}
		dates := make([]string, 0, len(h.AvailableDates)+1)
		dates = append(dates, h.AvailableDates[:i]...)
		dates = append(dates, rest...)
		dates = append(dates, h.AvailableDates[i+1:]...)
		h.AvailableDates = dates

		if h.Reservations == nil {
			h.Reservations = map[int64][]string{}
		}
		h.Reservations[clientID] = append(h.Reservations[clientID], req.String())
		return true
	}
	return false
}

// Rate folds rating into the running average.
func (h *Hotel) Rate(rating float64) error {
	if rating < 0 || rating > 5 {
		return ErrInvalidRating
	}
	total := decimal.NewFromFloat(h.Stars).
		Mul(decimal.NewFromInt(int64(h.NumReviews))).
		Add(decimal.NewFromFloat(rating))
	avg := total.DivRound(decimal.NewFromInt(int64(h.NumReviews+1)), RatingPrecision)
	h.Stars = avg.InexactFloat64()
	h.NumReviews++
	return nil
}

// CountReservationsWithin counts reserved ranges lying entirely inside
// period. Partial overlaps do not count.
func (h *Hotel) CountReservationsWithin(period DateRange) int {
	count := 0
	for _, dates := range h.Reservations {
		for _, raw := range dates {
			r, err := ParseDateRange(raw)
			if err != nil {
				continue
			}
			if period.Contains(r) {
				count++
			}
		}
	}
	return count
}

// HasWindowFor reports whether some available window contains req.
func (h *Hotel) HasWindowFor(req DateRange) bool {
	for _, raw := range h.AvailableDates {
		window, err := ParseDateRange(raw)
		if err == nil && window.Contains(req) {
			return true
		}
	}
	return false
}

// InArea compares areas case-insensitively.
func (h *Hotel) InArea(area string) bool {
	return strings.EqualFold(strings.TrimSpace(h.Area), strings.TrimSpace(area))
}

// ranges returns every window and reserved range of the hotel.
func (h *Hotel) ranges() []DateRange {
	var out []DateRange
	collect := func(raw string) {
		if r, err := ParseDateRange(raw); err == nil {
			out = append(out, r)
		}
	}
	for _, raw := range h.AvailableDates {
		collect(raw)
	}
	for _, dates := range h.Reservations {
		for _, raw := range dates {
			collect(raw)
		}
	}
	return out
}
