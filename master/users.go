package master

import (
	"sync"

	"github.com/pkg/errors"

	"booking/entities"
	"booking/ids"
	"booking/protocol"
)

// UserStore persists users across restarts.
type UserStore interface {
	SaveUser(u *entities.User) error
	LoadUsers() ([]*entities.User, error)
}

var defaultUsers = []entities.User{
	{Role: string(protocol.RoleManager), Name: "maria", Lastname: "boubi", Username: "mariab", Password: "1111"},
	{Role: string(protocol.RoleManager), Name: "eleni", Lastname: "zanou", Username: "eleni", Password: "1234"},
	{Role: string(protocol.RoleManager), Name: "mariaSam", Lastname: "samara", Username: "samaraM", Password: "maria111"},
	{Role: string(protocol.RoleClient), Name: "georgos", Lastname: "tsibo", Username: "sambo", Password: "2003"},
	{Role: string(protocol.RoleClient), Name: "giannis", Lastname: "papadopoulos", Username: "giannis_p", Password: "giannis1"},
}

// Registry owns every known user. Users are only touched under mu; callers
// get copies.
type Registry struct {
	store UserStore
	ids   ids.Generator

	mu    sync.Mutex
	users []*entities.User
	byID  map[int64]*entities.User
}

// NewRegistry loads the stored users, seeding the default accounts into an
// empty store. A nil gen continues numbering after the highest stored id.
func NewRegistry(store UserStore, gen ids.Generator) (*Registry, error) {
	users, err := store.LoadUsers()
	if err != nil {
		return nil, errors.Wrap(err, "load users")
	}

	var maxID int64
	for _, u := range users {
		if u.ID > maxID {
			maxID = u.ID
		}
	}
	if gen == nil {
		gen = ids.NewSequence(maxID)
	}

	r := &Registry{store: store, ids: gen, byID: map[int64]*entities.User{}}
	for _, u := range users {
		r.users = append(r.users, u)
		r.byID[u.ID] = u
	}

	if len(users) == 0 {
		for _, seed := range defaultUsers {
			u := seed
			u.ID = r.ids.Next()
			if err := r.add(&u); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

func (r *Registry) add(u *entities.User) error {
	if err := r.store.SaveUser(u); err != nil {
		return errors.Wrapf(err, "save user %s", u.Username)
	}
	r.mu.Lock()
	r.users = append(r.users, u)
	r.byID[u.ID] = u
	r.mu.Unlock()
	return nil
}

func copyUser(u *entities.User) entities.User {
	c := *u
	c.Hotels = append([]string(nil), u.Hotels...)
	c.Reservations = make(map[string][]string, len(u.Reservations))
	for h, dates := range u.Reservations {
		c.Reservations[h] = append([]string(nil), dates...)
	}
	return c
}

// Login returns the first user whose credentials match exactly.
func (r *Registry) Login(username, password string) (entities.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.CheckPassword(username, password) {
			return copyUser(u), true
		}
	}
	return entities.User{}, false
}

// Register creates a user with the next id. Usernames are not required to
// be unique; login picks the oldest match.
func (r *Registry) Register(c protocol.Credentials) (entities.User, error) {
	role := c.UserRole
	if role == "" {
		role = protocol.RoleClient
	}
	if _, err := protocol.ParseRole(string(role)); err != nil {
		return entities.User{}, err
	}
	u := &entities.User{
		ID:       r.ids.Next(),
		Role:     string(role),
		Username: c.Username,
		Password: c.Password,
		Name:     c.Name,
		Lastname: c.Lastname,
	}
	if err := r.add(u); err != nil {
		return entities.User{}, err
	}
	return copyUser(u), nil
}

func (r *Registry) Get(id int64) (entities.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return entities.User{}, false
	}
	return copyUser(u), true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// update mutates the user and persists it, both under the lock, so saves
// land in the order the changes were made.
func (r *Registry) update(id int64, fn func(*entities.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return errors.Errorf("unknown user %d", id)
	}
	fn(u)
	c := copyUser(u)
	return r.store.SaveUser(&c)
}

func (r *Registry) AddHotel(managerID int64, hotel string) error {
	return r.update(managerID, func(u *entities.User) { u.AddHotel(hotel) })
}

func (r *Registry) AddReservation(clientID int64, hotel, dates string) error {
	return r.update(clientID, func(u *entities.User) { u.AddReservation(hotel, dates) })
}

// AssociateCatalog rebuilds the managers' hotel lists and the clients'
// reservation views from the catalog read at start-up.
func (r *Registry) AssociateCatalog(hotels []entities.Hotel) error {
	r.mu.Lock()
	touched := map[int64]*entities.User{}
	for _, h := range hotels {
		if m, ok := r.byID[h.ManagerID]; ok && m.Role == string(protocol.RoleManager) {
			m.AddHotel(h.HotelName)
			touched[m.ID] = m
		}
		for clientID, dates := range h.Reservations {
			c, ok := r.byID[clientID]
			if !ok {
				continue
			}
			for _, d := range dates {
				c.AddReservation(h.HotelName, d)
			}
			touched[c.ID] = c
		}
	}
	copies := make([]entities.User, 0, len(touched))
	for _, u := range touched {
		copies = append(copies, copyUser(u))
	}
	r.mu.Unlock()

	for i := range copies {
		if err := r.store.SaveUser(&copies[i]); err != nil {
			return errors.Wrapf(err, "save user %d", copies[i].ID)
		}
	}
	return nil
}
