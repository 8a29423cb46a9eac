package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/groupreg/backend/internal/middleware"
	"github.com/groupreg/backend/internal/models"
	"github.com/groupreg/backend/internal/services"
	"github.com/groupreg/backend/pkg/logger"
	"github.com/groupreg/backend/pkg/utils"
)

type GroupUsersHandler struct {
	Groups *services.GroupService
	Audit  *services.AuditService
}

func NewGroupUsersHandler(groups *services.GroupService, audit *services.AuditService) *GroupUsersHandler {
	return &GroupUsersHandler{Groups: groups, Audit: audit}
}

// Apply records the caller as an applicant of the group. There is no
// approval step here; raising an applicant to member is a role update
// performed by an admin.
func (h *GroupUsersHandler) Apply(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseGroupID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	membership, err := h.Groups.Apply(currentUser.ID, groupID)
	if err != nil {
		return groupServiceError(c, err, "failed applying to group")
	}

	logger.InfoWithUser(currentUser.ID.String(), "group_user_created", map[string]interface{}{
		"group_id": groupID,
		"role":     membership.Role.String(),
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "group_user.create",
		ResourceType: "group_user",
		ResourceID:   formatGroupID(groupID),
		Details: map[string]interface{}{
			"user_id": currentUser.ID.String(),
			"role":    uint8(membership.Role),
		},
		IPAddress: c.IP(),
	})

	return utils.Success(c, fiber.StatusCreated, membership)
}

func (h *GroupUsersHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseGroupID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}
	userID, err := parseUUID(c.Params("userId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	membership, err := h.Groups.ShowGroupUser(groupID, userID)
	if err != nil {
		return groupServiceError(c, err, "failed loading membership")
	}

	return utils.Success(c, fiber.StatusOK, membership)
}

type updateRoleRequest struct {
	Role uint8 `json:"role"`
}

func (h *GroupUsersHandler) UpdateRole(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseGroupID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}
	userID, err := parseUUID(c.Params("userId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var req updateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	membership, err := h.Groups.UpdateRole(currentUser.ID, groupID, userID, models.GroupRole(req.Role))
	if err != nil {
		return groupServiceError(c, err, "failed updating member role")
	}

	logger.InfoWithUser(currentUser.ID.String(), "group_user_updated", map[string]interface{}{
		"group_id": groupID,
		"user_id":  userID.String(),
		"role":     membership.Role.String(),
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "group_user.update",
		ResourceType: "group_user",
		ResourceID:   formatGroupID(groupID),
		Details: map[string]interface{}{
			"user_id": userID.String(),
			"role":    uint8(membership.Role),
		},
		IPAddress: c.IP(),
	})

	return utils.Success(c, fiber.StatusOK, membership)
}

// Destroy removes a membership record: the caller's own (leave) or another
// account's (kick), subject to the rank rules.
func (h *GroupUsersHandler) Destroy(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseGroupID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}
	userID, err := parseUUID(c.Params("userId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	if err := h.Groups.Destroy(currentUser.ID, groupID, userID); err != nil {
		return groupServiceError(c, err, "failed removing member")
	}

	action := "group_user.kick"
	if userID == currentUser.ID {
		action = "group_user.leave"
	}

	logger.InfoWithUser(currentUser.ID.String(), "group_user_destroyed", map[string]interface{}{
		"group_id": groupID,
		"user_id":  userID.String(),
		"action":   action,
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       action,
		ResourceType: "group_user",
		ResourceID:   formatGroupID(groupID),
		Details: map[string]interface{}{
			"user_id": userID.String(),
		},
		IPAddress: c.IP(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "member removed"})
}

// Validate is the read-only query external systems use to check an account's
// standing. It returns the stored role; callers treat role >= 2 (member) as
// valid membership.
func (h *GroupUsersHandler) Validate(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseGroupID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}
	userID, err := parseUUID(c.Params("userId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	role, err := h.Groups.ValidateMembership(groupID, userID)
	if err != nil {
		return groupServiceError(c, err, "failed validating membership")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"role": uint8(role)})
}
