package domain

// Role is a member's role inside one organization.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleManager, RoleMember:
		return true
	}
	return false
}

// CanManageAll reports whether the role may act on rows owned by other members.
func CanManageAll(r Role) bool {
	return r == RoleOwner || r == RoleAdmin || r == RoleManager
}

// CanModifySettings reports whether the role may administer the organization.
func CanModifySettings(r Role) bool {
	return r == RoleOwner || r == RoleAdmin
}

// CanRollbackStage reports whether the role may move a deal to an earlier stage.
func CanRollbackStage(r Role) bool {
	return r == RoleOwner || r == RoleAdmin
}
