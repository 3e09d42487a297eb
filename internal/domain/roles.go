package domain

type Role string

const (
	// Administrator manages accounts: block, unblock, delete, change role.
	RoleAdministrator Role = "Administrator"
	// Moderator reviews verification requests.
	RoleModerator Role = "Moderator"
	// NewsEditor publishes site news.
	RoleNewsEditor Role = "NewsEditor"
	// VerifiedUser is a member approved by a moderator.
	RoleVerifiedUser Role = "VerifiedUser"
	// User is the role every account starts with.
	RoleUser Role = "User"
)

// AllRoles lists the closed set, highest privilege first.
var AllRoles = []Role{RoleAdministrator, RoleModerator, RoleNewsEditor, RoleVerifiedUser, RoleUser}

func (r Role) String() string { return string(r) }

func (r Role) Valid() bool {
	return RoleRank(r) > 0
}

func IsValidRole(r string) bool {
	return Role(r).Valid()
}

// ParseRole returns the enum value for s or ErrInvalidRole.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", ErrInvalidRole(s)
	}
	return r, nil
}

// RoleRank: bigger => higher privilege, 0 => unknown.
func RoleRank(r Role) int {
	switch r {
	case RoleAdministrator:
		return 5
	case RoleModerator:
		return 4
	case RoleNewsEditor:
		return 3
	case RoleVerifiedUser:
		return 2
	case RoleUser:
		return 1
	default:
		return 0
	}
}
