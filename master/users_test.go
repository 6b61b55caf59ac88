package master

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking/engine"
	"booking/entities"
	"booking/protocol"
)

func newRegistry(t *testing.T) (*Registry, *engine.Engine) {
	t.Helper()
	eng, err := engine.NewMemEngine()
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	r, err := NewRegistry(eng, nil)
	require.NoError(t, err)
	return r, eng
}

func TestRegistrySeedsDefaults(t *testing.T) {
	r, _ := newRegistry(t)
	assert.Equal(t, 5, r.Len())

	u, ok := r.Login("eleni", "1234")
	require.True(t, ok)
	assert.Equal(t, int64(2), u.ID)
	assert.Equal(t, string(protocol.RoleManager), u.Role)

	_, ok = r.Login("eleni", "4321")
	assert.False(t, ok)
}

func TestRegistryPersists(t *testing.T) {
	r, eng := newRegistry(t)

	u, err := r.Register(protocol.Credentials{Username: "kostas", Password: "pw", UserRole: protocol.RoleManager})
	require.NoError(t, err)
	assert.Equal(t, int64(6), u.ID)
	require.NoError(t, r.AddHotel(u.ID, "Olympia"))

	reloaded, err := NewRegistry(eng, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, reloaded.Len())

	got, ok := reloaded.Get(6)
	require.True(t, ok)
	assert.Equal(t, []string{"Olympia"}, got.Hotels)

	next, err := reloaded.Register(protocol.Credentials{Username: "anna", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), next.ID)
	assert.Equal(t, string(protocol.RoleClient), next.Role)
}

func TestRegistryConcurrentUpdatesPersist(t *testing.T) {
	r, eng := newRegistry(t)
	const n = 20

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dates := fmt.Sprintf("2025-08-%02d - 2025-08-%02d", i+1, i+1)
			assert.NoError(t, r.AddReservation(4, "Lotus", dates))
		}(i)
	}
	wg.Wait()

	reloaded, err := NewRegistry(eng, nil)
	require.NoError(t, err)
	got, ok := reloaded.Get(4)
	require.True(t, ok)
	assert.Len(t, got.Reservations["Lotus"], n)
}

func TestRegistryRejectsUnknownRole(t *testing.T) {
	r, _ := newRegistry(t)
	_, err := r.Register(protocol.Credentials{Username: "x", UserRole: "Admin"})
	assert.Error(t, err)
	assert.Equal(t, 5, r.Len())
}

func TestAssociateCatalog(t *testing.T) {
	r, _ := newRegistry(t)
	require.NoError(t, r.AssociateCatalog([]entities.Hotel{
		{HotelName: "Grand", ManagerID: 1, Reservations: map[int64][]string{4: {"2025-06-01 - 2025-06-02"}}},
		// manager id pointing at a client is ignored
		{HotelName: "Odd", ManagerID: 5},
	}))

	m, _ := r.Get(1)
	assert.Equal(t, []string{"Grand"}, m.Hotels)
	c, _ := r.Get(4)
	assert.Equal(t, []string{"2025-06-01 - 2025-06-02"}, c.Reservations["Grand"])
	odd, _ := r.Get(5)
	assert.Empty(t, odd.Hotels)
}
