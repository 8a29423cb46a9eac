package models

import "github.com/google/uuid"

// GroupRole is a totally ordered rank. Comparisons between ranks use the
// numeric order directly: a caller may only act on targets of equal or
// lower rank.
type GroupRole uint8

const (
	GroupRoleBanned GroupRole = iota
	GroupRoleApplicant
	GroupRoleMember
	GroupRoleAdmin
	GroupRoleSuperAdmin
)

func (r GroupRole) Valid() bool {
	return r <= GroupRoleSuperAdmin
}

func (r GroupRole) String() string {
	switch r {
	case GroupRoleBanned:
		return "banned"
	case GroupRoleApplicant:
		return "applicant"
	case GroupRoleMember:
		return "member"
	case GroupRoleAdmin:
		return "admin"
	case GroupRoleSuperAdmin:
		return "super_admin"
	default:
		return "unknown"
	}
}

type GroupUser struct {
	BaseModel
	GroupID uint32    `json:"groupID" gorm:"not null;index;uniqueIndex:idx_group_user"`
	UserID  uuid.UUID `json:"userID" gorm:"type:uuid;not null;index;uniqueIndex:idx_group_user"`
	Role    GroupRole `json:"role" gorm:"type:smallint;not null;default:1"`
	User    User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Group   Group     `json:"group,omitempty" gorm:"foreignKey:GroupID"`
}
