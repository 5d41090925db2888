package models

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// User is the caller identity resolved from Casdoor. Users are not stored locally.
type User struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	FullName       string   `json:"full_name"`
	Email          string   `json:"email"`
	OrganizationID string   `json:"organization_id"`
	Role           UserRole `json:"role"`
	AvatarURL      *string  `json:"avatar_url,omitempty"`
}

// Caller is the authenticated identity a pipeline operation runs for.
type Caller struct {
	UserID         string
	OrganizationID string
	Role           UserRole
}

// CanAccess reports whether the caller may act on data of the organization.
func (c Caller) CanAccess(organizationID string) bool {
	return c.Role == RoleAdmin || c.OrganizationID == organizationID
}
