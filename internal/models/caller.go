package models

// Role is the account role forwarded by the authenticating gateway.
type Role string

const (
	RoleJobseeker Role = "jobseeker"
	RoleEmployer  Role = "employer"
	RoleAdmin     Role = "admin"
)

// Caller identifies who is making a request.
type Caller struct {
	UserID int64
	Role   Role
}

// IsAdmin reports whether the caller has the admin role.
func (c *Caller) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

// Is reports whether the caller is the given user.
func (c *Caller) Is(userID int64) bool {
	return c != nil && c.UserID == userID
}

// HasRole reports whether the caller has any of roles.
func (c *Caller) HasRole(roles ...Role) bool {
	if c == nil {
		return false
	}
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}

// SystemCaller is used by the CLI and MCP surfaces, which run with operator rights.
var SystemCaller = &Caller{Role: RoleAdmin}
