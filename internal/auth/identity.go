package auth

// Identity is the authenticated actor passed explicitly into engine
// operations instead of being read from an ambient security context.
type Identity struct {
	UserID    int64  `json:"user_id"`
	CompanyID int64  `json:"company_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// Roles recognised by the API surface
const (
	RoleAdmin   = "admin"
	RoleCompany = "company"
	RoleOwner   = "owner"
)
