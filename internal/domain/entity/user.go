package entity

import "time"

// Role is the authority tier a user holds. Roles form a total order:
// USER < COACH < COMMITTEE_LEAD < DIRECTOR < ADMIN.
type Role string

const (
	RoleUser          Role = "USER"
	RoleCoach         Role = "COACH"
	RoleCommitteeLead Role = "COMMITTEE_LEAD"
	RoleDirector      Role = "DIRECTOR"
	RoleAdmin         Role = "ADMIN"
)

var roleLevels = map[Role]int{
	RoleUser:          0,
	RoleCoach:         1,
	RoleCommitteeLead: 2,
	RoleDirector:      3,
	RoleAdmin:         4,
}

// Level returns the position of the role in the authority order.
// Unknown roles rank below USER.
func (r Role) Level() int {
	level, ok := roleLevels[r]
	if !ok {
		return -1
	}
	return level
}

// IsValid returns true if the role is a known role.
func (r Role) IsValid() bool {
	_, ok := roleLevels[r]
	return ok
}

// AtLeast reports whether the role has authority greater than or equal to other.
func (r Role) AtLeast(other Role) bool {
	return r.IsValid() && other.IsValid() && r.Level() >= other.Level()
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// User represents an account in the system. Each user holds exactly one role
// at any time; role changes are an ADMIN-only operation.
type User struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Verified  bool      `json:"verified"`
	Role      Role      `json:"role"`
	APIToken  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
