package rbac

// Role names. Keep these stable; they are part of auth contracts and are
// embedded in issued access tokens.
const (
	RoleParent        = "parent"
	RoleChild         = "child"
	RoleCircleContact = "circle_contact"
)

func IsParent(role string) bool { return role == RoleParent }

func IsKnownRole(role string) bool {
	switch role {
	case RoleParent, RoleChild, RoleCircleContact:
		return true
	default:
		return false
	}
}
