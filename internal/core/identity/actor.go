package identity

// Role is the kind of principal acting on an order.
type Role string

const (
	// RoleAdmin is a back-office operator.
	RoleAdmin Role = "admin"
	// RoleCustomer is the buyer who placed an order.
	RoleCustomer Role = "customer"
	// RoleSeller is a marketplace seller receiving payouts.
	RoleSeller Role = "seller"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCustomer, RoleSeller:
		return true
	}
	return false
}

// Actor is the authenticated principal behind a request.
type Actor struct {
	// ID is the subject identifier issued by the auth service.
	ID string `json:"id"`
	// Role is the principal's role.
	Role Role `json:"role"`
	// Name is a display name, used for audit notes and listings.
	Name string `json:"name,omitempty"`
}

// IsAdmin reports whether the actor is a back-office operator.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// System is the actor recorded for changes made by the service itself.
var System = Actor{ID: "system", Role: RoleAdmin, Name: "system"}
