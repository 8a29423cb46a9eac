package services

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/groupreg/backend/internal/models"
	"gorm.io/gorm"
)

// Business errors returned by GroupService. Handlers branch on these with
// errors.Is; anything else bubbling out of a method is a storage failure.
var (
	ErrInvalidName    = errors.New("group name can't be blank")
	ErrGroupNameTaken = errors.New("group name has already been taken")
	ErrGroupNotFound  = errors.New("group not found")
	ErrGroupDisabled  = errors.New("group is disabled")
	ErrAlreadyMember  = errors.New("group user has already been taken")
	ErrRecordNotFound = errors.New("group user not found")
	ErrInvalidRole    = errors.New("role must be between 0 and 4")
	ErrUnauthorized   = errors.New("caller lacks the required role")
	ErrLastSuperAdmin = errors.New("group would be left without a super admin")
)

// GroupService owns the group registry and the membership table. Every
// mutation runs inside a single transaction so a failed call leaves no
// partial state behind.
type GroupService struct {
	DB *gorm.DB
}

func NewGroupService(db *gorm.DB) *GroupService {
	return &GroupService{DB: db}
}

func formatGroupName(name string) string {
	return strings.TrimSpace(name)
}

// CreateGroup stores a new enabled group and atomically makes the caller its
// super admin. Names are trimmed and must be unique case-insensitively
// across the whole registry.
func (s *GroupService) CreateGroup(callerID uuid.UUID, name string) (*models.Group, error) {
	trimmed := formatGroupName(name)
	if trimmed == "" {
		return nil, ErrInvalidName
	}
	key := strings.ToLower(trimmed)

	group := models.Group{
		Name:    trimmed,
		NameKey: key,
		Enabled: true,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Group{}).Where("name_key = ?", key).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrGroupNameTaken
		}

		if err := tx.Create(&group).Error; err != nil {
			return err
		}

		membership := models.GroupUser{
			GroupID: group.ID,
			UserID:  callerID,
			Role:    models.GroupRoleSuperAdmin,
		}
		return tx.Create(&membership).Error
	})
	if err != nil {
		return nil, err
	}

	return &group, nil
}

// UpdateGroup overwrites both name and enabled. Only the group's super admin
// may call it; the group's own current name never collides with itself.
func (s *GroupService) UpdateGroup(callerID uuid.UUID, groupID uint32, name string, enabled bool) (*models.Group, error) {
	var group models.Group

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := findGroup(tx, groupID, &group); err != nil {
			return err
		}

		caller, err := findGroupUser(tx, groupID, callerID)
		if err != nil {
			return err
		}
		if caller.Role < models.GroupRoleSuperAdmin {
			return ErrUnauthorized
		}

		trimmed := formatGroupName(name)
		if trimmed == "" {
			return ErrInvalidName
		}
		key := strings.ToLower(trimmed)

		if key != group.NameKey {
			var count int64
			if err := tx.Model(&models.Group{}).Where("name_key = ? AND id <> ?", key, groupID).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return ErrGroupNameTaken
			}
		}

		group.Name = trimmed
		group.NameKey = key
		group.Enabled = enabled
		return tx.Save(&group).Error
	})
	if err != nil {
		return nil, err
	}

	return &group, nil
}

// Apply records the caller as an applicant of the group. Any existing record
// blocks re-application, including a banned one.
func (s *GroupService) Apply(callerID uuid.UUID, groupID uint32) (*models.GroupUser, error) {
	membership := models.GroupUser{
		GroupID: groupID,
		UserID:  callerID,
		Role:    models.GroupRoleApplicant,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := findGroup(tx, groupID, &group); err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.GroupUser{}).Where("group_id = ? AND user_id = ?", groupID, callerID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyMember
		}

		return tx.Create(&membership).Error
	})
	if err != nil {
		return nil, err
	}

	return &membership, nil
}

// Destroy removes a membership record entirely. Self-removal (leave) is open
// to every role except Banned and SuperAdmin; removing someone else (kick)
// requires at least Admin and a rank at or above the target's.
func (s *GroupService) Destroy(callerID uuid.UUID, groupID uint32, targetID uuid.UUID) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := findGroup(tx, groupID, &group); err != nil {
			return err
		}

		caller, err := findGroupUser(tx, groupID, callerID)
		if err != nil {
			return err
		}

		target := caller
		if callerID != targetID {
			target, err = findGroupUser(tx, groupID, targetID)
			if err != nil {
				return err
			}
		}

		if callerID == targetID {
			if caller.Role == models.GroupRoleSuperAdmin || caller.Role == models.GroupRoleBanned {
				return ErrUnauthorized
			}
		} else if caller.Role < models.GroupRoleAdmin || caller.Role < target.Role {
			return ErrUnauthorized
		}

		return tx.Delete(&models.GroupUser{}, "id = ?", target.ID).Error
	})
}

// UpdateRole overwrites the target's role. The caller must be at least Admin,
// must not be outranked by the target, and cannot grant a rank above their
// own. Demoting the group's sole super admin is refused outright, which also
// covers the sole super admin demoting themselves.
func (s *GroupService) UpdateRole(callerID uuid.UUID, groupID uint32, targetID uuid.UUID, role models.GroupRole) (*models.GroupUser, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	var target *models.GroupUser

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := findGroup(tx, groupID, &group); err != nil {
			return err
		}

		caller, err := findGroupUser(tx, groupID, callerID)
		if err != nil {
			return err
		}
		if caller.Role < models.GroupRoleAdmin {
			return ErrUnauthorized
		}

		target = caller
		if callerID != targetID {
			target, err = findGroupUser(tx, groupID, targetID)
			if err != nil {
				return err
			}
		}
		if caller.Role < target.Role {
			return ErrUnauthorized
		}
		if role > caller.Role {
			return ErrUnauthorized
		}

		if target.Role == models.GroupRoleSuperAdmin && role != models.GroupRoleSuperAdmin {
			var superAdmins int64
			if err := tx.Model(&models.GroupUser{}).
				Where("group_id = ? AND role = ?", groupID, models.GroupRoleSuperAdmin).
				Count(&superAdmins).Error; err != nil {
				return err
			}
			if superAdmins <= 1 {
				return ErrLastSuperAdmin
			}
		}

		target.Role = role
		return tx.Model(&models.GroupUser{}).Where("id = ?", target.ID).Update("role", role).Error
	})
	if err != nil {
		return nil, err
	}

	return target, nil
}

// ValidateMembership is the read-only query external systems call to check an
// account's standing in a group. It returns the stored role without judging
// it; disabled groups report no valid membership at all.
func (s *GroupService) ValidateMembership(groupID uint32, userID uuid.UUID) (models.GroupRole, error) {
	var group models.Group
	if err := findGroup(s.DB, groupID, &group); err != nil {
		return 0, err
	}
	if !group.Enabled {
		return 0, ErrGroupDisabled
	}

	membership, err := findGroupUser(s.DB, groupID, userID)
	if err != nil {
		return 0, err
	}

	return membership.Role, nil
}

func (s *GroupService) ShowGroup(groupID uint32) (*models.Group, error) {
	var group models.Group
	if err := findGroup(s.DB, groupID, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

func (s *GroupService) ShowGroupUser(groupID uint32, userID uuid.UUID) (*models.GroupUser, error) {
	return findGroupUser(s.DB, groupID, userID)
}

// ListGroupsFor returns the groups the user holds any record in, newest
// first.
func (s *GroupService) ListGroupsFor(userID uuid.UUID) ([]models.Group, error) {
	var groups []models.Group
	err := s.DB.
		Model(&models.Group{}).
		Joins("JOIN group_users ON group_users.group_id = groups.id").
		Where("group_users.user_id = ?", userID).
		Order("groups.created_at DESC").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func findGroup(tx *gorm.DB, groupID uint32, group *models.Group) error {
	if err := tx.First(group, "id = ?", groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGroupNotFound
		}
		return err
	}
	return nil
}

func findGroupUser(tx *gorm.DB, groupID uint32, userID uuid.UUID) (*models.GroupUser, error) {
	var membership models.GroupUser
	err := tx.First(&membership, "group_id = ? AND user_id = ?", groupID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &membership, nil
}
