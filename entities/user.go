package entities

// User is either a manager or a client. Role holds the protocol role name.
// Hotels and Reservations are reverse references rebuilt from shard
// responses; the workers remain authoritative.
type User struct {
	ID           int64
	Role         string
	Username     string
	Password     string
	Name         string
	Lastname     string
	Hotels       []string
	Reservations map[string][]string
}

// CheckPassword compares credentials by equality. Passwords are stored in
// clear text.
func (u *User) CheckPassword(username, password string) bool {
	return u.Username == username && u.Password == password
}

// AddHotel records a managed hotel once.
func (u *User) AddHotel(name string) {
	for _, h := range u.Hotels {
		if h == name {
			return
		}
	}
	u.Hotels = append(u.Hotels, name)
}

// AddReservation records a reserved range under hotel.
func (u *User) AddReservation(hotel, dates string) {
	if u.Reservations == nil {
		u.Reservations = map[string][]string{}
	}
	for _, d := range u.Reservations[hotel] {
		if d == dates {
			return
		}
	}
	u.Reservations[hotel] = append(u.Reservations[hotel], dates)
}
