package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking/entities"
)

func TestLoadMissingIsEmpty(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "hotels.json"))
	hotels, err := f.Load()
	require.NoError(t, err)
	assert.Empty(t, hotels)
}

func TestLoadSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hotels.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"hotels":[
		{"hotelName":"Grand","area":"Athens","numPeople":2,"stars":4.5,"numReviews":10,
		 "price":90,"availableDates":["2025-06-01 - 2025-06-10"],"manager_id":1},
		{"hotelName":"Lotus","area":"Crete"}
	]}`), 0o600))

	hotels, err := New(path).Load()
	require.NoError(t, err)
	require.Len(t, hotels, 2)
	assert.Equal(t, "Grand", hotels[0].HotelName)
	assert.Equal(t, int64(1), hotels[0].ManagerID)
	assert.NotNil(t, hotels[1].Reservations)
	assert.NotNil(t, hotels[1].AvailableDates)
}

func TestAppendAndUpdate(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "hotels.json"))
	require.NoError(t, f.Append(entities.Hotel{HotelName: "Grand", Area: "Athens"}))
	require.NoError(t, f.Append(entities.Hotel{HotelName: "Lotus", Area: "Crete"}))

	require.NoError(t, f.Update("Lotus", func(h *entities.Hotel) {
		h.AvailableDates = []string{"2025-07-01 - 2025-07-05"}
		h.Reservations[4] = []string{"2025-07-06 - 2025-07-07"}
	}))

	hotels, err := f.Load()
	require.NoError(t, err)
	require.Len(t, hotels, 2)
	assert.Equal(t, []string{"2025-07-01 - 2025-07-05"}, hotels[1].AvailableDates)
	assert.Equal(t, []string{"2025-07-06 - 2025-07-07"}, hotels[1].Reservations[4])

	err = f.Update("Nowhere", func(*entities.Hotel) {})
	assert.True(t, errors.Is(err, ErrUnknownHotel))
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hotels.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err := New(path).Load()
	assert.Error(t, err)
}
