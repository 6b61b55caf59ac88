package worker

import (
	"sync"

	"github.com/pkg/errors"

	"booking/entities"
	"booking/protocol"
)

// Shard is the set of hotels one worker owns. Every operation holds mu for
// its whole read-modify-write.
type Shard struct {
	mu     sync.Mutex
	hotels []*entities.Hotel
	byName map[string]*entities.Hotel
}

func NewShard() *Shard {
	return &Shard{byName: map[string]*entities.Hotel{}}
}

// Load replaces the shard contents with hotels.
func (s *Shard) Load(hotels []entities.Hotel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hotels = make([]*entities.Hotel, 0, len(hotels))
	s.byName = make(map[string]*entities.Hotel, len(hotels))
	for i := range hotels {
		h := hotels[i].Clone()
		h.Normalize()
		s.hotels = append(s.hotels, &h)
		s.byName[h.HotelName] = &h
	}
}

func (s *Shard) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hotels)
}

// Get returns a copy of the named hotel.
func (s *Shard) Get(name string) (entities.Hotel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.byName[name]
	if !ok {
		return entities.Hotel{}, false
	}
	return h.Clone(), true
}

// result is what a shard operation produces before it is put on the wire.
type result struct {
	status  protocol.Status
	message string
	body    any
}

func failed(status protocol.Status, message string) result {
	return result{status: status, message: message}
}

func (s *Shard) AddHotel(p protocol.AddHotel) result {
	if p.HotelName == "" {
		return failed(protocol.StatusUnsuccessful, "Hotel name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[p.HotelName]; ok {
		return failed(protocol.StatusUnsuccessful, "Hotel already exists")
	}
	h := &entities.Hotel{
		HotelName:  p.HotelName,
		NumPeople:  p.NumPeople,
		Area:       p.Area,
		Stars:      p.Stars,
		NumReviews: p.NumReviews,
		HotelImage: p.HotelImage,
		Price:      p.Price,
		ManagerID:  p.UserID,
	}
	h.Normalize()
	s.hotels = append(s.hotels, h)
	s.byName[h.HotelName] = h
	return result{status: protocol.StatusSuccess, message: "Hotel added successfully"}
}

func (s *Shard) AddAvailableDates(p protocol.AddAvailableDates) result {
	ranges, err := entities.ParseDateRanges(p.AvailableDates)
	if err != nil {
		return failed(protocol.StatusUnsuccessful, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.byName[p.HotelName]
	if !ok {
		return failed(protocol.StatusNotFound, "Hotel not found")
	}
	if h.ManagerID != p.UserID {
		return failed(protocol.StatusUnsuccessful, "You are not authorized to add dates to this hotel")
	}
	if err := h.AddAvailable(ranges); err != nil {
		return failed(protocol.StatusUnsuccessful, err.Error())
	}
	return result{
		status:  protocol.StatusSuccess,
		message: "Date added successfully",
		body:    protocol.DatesResult{AvailableDates: append([]string(nil), h.AvailableDates...)},
	}
}

func (s *Shard) ShowReservations(p protocol.ShowReservations) []entities.Hotel {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []entities.Hotel{}
	for _, h := range s.hotels {
		if h.ManagerID == p.UserID && h.HasReservations() {
			out = append(out, h.Clone())
		}
	}
	return out
}

// ReservationsByArea counts, per area, the reservations lying entirely
// inside the period. Areas without any are left out.
func (s *Shard) ReservationsByArea(p protocol.ReservationsByArea) (map[string]int, error) {
	period, err := entities.ParseDateRange(p.Period)
	if err != nil {
		return nil, errors.Wrap(protocol.ErrMalformed, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := map[string]int{}
	for _, h := range s.hotels {
		if n := h.CountReservationsWithin(period); n > 0 {
			out[h.Area] += n
		}
	}
	return out, nil
}

// Search returns the hotels matching every filter that is set. The dates
// filter matches any available window that contains the requested range,
// not only a window equal to it.
func (s *Shard) Search(p protocol.Search) ([]entities.Hotel, error) {
	var dates *entities.DateRange
	if p.Dates != nil && *p.Dates != "" {
		r, err := entities.ParseDateRange(*p.Dates)
		if err != nil {
			return nil, errors.Wrap(protocol.ErrMalformed, err.Error())
		}
		dates = &r
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []entities.Hotel{}
	for _, h := range s.hotels {
		if p.Area != nil && *p.Area != "" && !h.InArea(*p.Area) {
			continue
		}
		if dates != nil && !h.HasWindowFor(*dates) {
			continue
		}
		if p.NumPeople != nil && h.NumPeople < *p.NumPeople {
			continue
		}
		if p.Price != nil && h.Price > *p.Price {
			continue
		}
		if p.Stars != nil && h.Stars < *p.Stars {
			continue
		}
		out = append(out, h.Clone())
	}
	return out, nil
}

func (s *Shard) ListAll() []entities.Hotel {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entities.Hotel, 0, len(s.hotels))
	for _, h := range s.hotels {
		out = append(out, h.Clone())
	}
	return out
}

func (s *Shard) Reserve(p protocol.Reserve) result {
	req, err := entities.ParseDateRange(p.Dates)
	if err != nil {
		return failed(protocol.StatusUnsuccessful, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.byName[p.HotelName]
	if !ok {
		return failed(protocol.StatusNotFound, "Hotel not found")
	}
	if !h.Reserve(p.UserID, req) {
		return failed(protocol.StatusUnsuccessful, "There are not available dates")
	}
	c := h.Clone()
	return result{
		status:  protocol.StatusSuccess,
		message: "The reservation was successful",
		body: protocol.ReserveResult{
			AvailableDates: c.AvailableDates,
			Reservations:   c.Reservations,
		},
	}
}

func (s *Shard) Rate(p protocol.Rate) result {
	if p.NewRating == nil {
		return failed(protocol.StatusUnsuccessful, "newRating is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.byName[p.HotelName]
	if !ok {
		return failed(protocol.StatusNotFound, "Hotel not found")
	}
	if err := h.Rate(*p.NewRating); err != nil {
		return failed(protocol.StatusUnsuccessful, err.Error())
	}
	return result{
		status:  protocol.StatusSuccess,
		message: "Rating updated successfully",
		body: protocol.RateResult{
			UpdatedStars:   h.Stars,
			UpdatedReviews: h.NumReviews,
		},
	}
}
