package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/groupreg/backend/internal/middleware"
	"github.com/groupreg/backend/internal/services"
	"github.com/groupreg/backend/pkg/logger"
	"github.com/groupreg/backend/pkg/utils"
)

type GroupsHandler struct {
	Groups *services.GroupService
	Audit  *services.AuditService
}

func NewGroupsHandler(groups *services.GroupService, audit *services.AuditService) *GroupsHandler {
	return &GroupsHandler{Groups: groups, Audit: audit}
}

type createGroupRequest struct {
	Name string `json:"name"`
}

func (h *GroupsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	group, err := h.Groups.CreateGroup(currentUser.ID, req.Name)
	if err != nil {
		return groupServiceError(c, err, "failed creating group")
	}

	logger.InfoWithUser(currentUser.ID.String(), "group_created", map[string]interface{}{
		"group_id":   group.ID,
		"group_name": group.Name,
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "group.create",
		ResourceType: "group",
		ResourceID:   formatGroupID(group.ID),
		Details: map[string]interface{}{
			"group_name": group.Name,
		},
		IPAddress: c.IP(),
	})

	return utils.Success(c, fiber.StatusCreated, group)
}

func (h *GroupsHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groups, err := h.Groups.ListGroupsFor(currentUser.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing groups")
	}

	return utils.Success(c, fiber.StatusOK, groups)
}

func (h *GroupsHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseGroupID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	group, err := h.Groups.ShowGroup(groupID)
	if err != nil {
		return groupServiceError(c, err, "failed loading group")
	}

	return utils.Success(c, fiber.StatusOK, group)
}

type updateGroupRequest struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

func (h *GroupsHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseGroupID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	var req updateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	group, err := h.Groups.UpdateGroup(currentUser.ID, groupID, req.Name, req.Enabled)
	if err != nil {
		return groupServiceError(c, err, "failed updating group")
	}

	logger.InfoWithUser(currentUser.ID.String(), "group_updated", map[string]interface{}{
		"group_id":   group.ID,
		"group_name": group.Name,
		"enabled":    group.Enabled,
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "group.update",
		ResourceType: "group",
		ResourceID:   formatGroupID(group.ID),
		Details: map[string]interface{}{
			"group_name": group.Name,
			"enabled":    group.Enabled,
		},
		IPAddress: c.IP(),
	})

	return utils.Success(c, fiber.StatusOK, group)
}
