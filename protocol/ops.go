package protocol

import "fmt"

// Op names a request type on the wire.
type Op string

const (
	OpLogin    Op = "login"
	OpRegister Op = "register"
	OpLogout   Op = "-1"

	// manager operations
	OpAddHotel           Op = "add_hotel"
	OpAddAvailableDates  Op = "add_available_dates"
	OpShowReservations   Op = "show_reservations"
	OpReservationsByArea Op = "reservations_by_area"

	// client operations
	OpSearch         Op = "search"
	OpListHotels     Op = "list_hotels"
	OpReserve        Op = "reserve"
	OpRate           Op = "rate"
	OpMyReservations Op = "my_reservations"
)

// Role is the authenticated role of the caller.
type Role string

const (
	RoleManager Role = "Manager"
	RoleClient  Role = "Client"
)

var managerOps = map[Op]bool{
	OpAddHotel:           true,
	OpAddAvailableDates:  true,
	OpShowReservations:   true,
	OpReservationsByArea: true,
}

var clientOps = map[Op]bool{
	OpSearch:         true,
	OpListHotels:     true,
	OpReserve:        true,
	OpRate:           true,
	OpMyReservations: true,
}

// Older consoles send role relative numeric codes.
var legacyCodes = map[Role]map[string]Op{
	RoleManager: {
		"1": OpAddHotel,
		"2": OpAddAvailableDates,
		"3": OpShowReservations,
		"4": OpReservationsByArea,
	},
	RoleClient: {
		"1": OpSearch,
		"2": OpReserve,
		"3": OpRate,
		"4": OpListHotels,
		"5": OpMyReservations,
	},
}

// UnknownOperationError is returned when a request type is not valid for
// the caller's role. It is fatal to the connection that produced it.
type UnknownOperationError struct {
	Type string
	Role Role
}

func (e *UnknownOperationError) Error() string {
	if e.Role == "" {
		return fmt.Sprintf("unknown operation %q", e.Type)
	}
	return fmt.Sprintf("unknown operation %q for role %s", e.Type, e.Role)
}

// ParseRole validates a role name.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleManager, RoleClient:
		return Role(raw), nil
	}
	return "", &UnknownOperationError{Type: raw}
}

// ParseOp resolves raw into an operation the role may perform. Logout is
// valid for every role.
func ParseOp(raw string, role Role) (Op, error) {
	op := Op(raw)
	if op == OpLogout {
		return op, nil
	}
	if mapped, ok := legacyCodes[role][raw]; ok {
		op = mapped
	}
	if !op.AllowedFor(role) {
		return "", &UnknownOperationError{Type: raw, Role: role}
	}
	return op, nil
}

// AllowedFor reports whether role may issue op.
func (o Op) AllowedFor(role Role) bool {
	switch role {
	case RoleManager:
		return managerOps[o]
	case RoleClient:
		return clientOps[o]
	}
	return false
}

// Scatter reports whether op is broadcast to every worker and answered by
// the reducer.
func (o Op) Scatter() bool {
	switch o {
	case OpShowReservations, OpReservationsByArea, OpSearch, OpListHotels:
		return true
	}
	return false
}

// Routed reports whether op is sent to the single worker owning the hotel.
func (o Op) Routed() bool {
	switch o {
	case OpAddHotel, OpAddAvailableDates, OpReserve, OpRate:
		return true
	}
	return false
}
