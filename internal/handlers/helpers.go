package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/groupreg/backend/internal/services"
	"github.com/groupreg/backend/pkg/utils"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

func parseGroupID(value string) (uint32, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(id), nil
}

func formatGroupID(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}

// groupServiceError translates the registry's business errors into envelope
// responses. The fallback message covers unexpected storage failures.
func groupServiceError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, services.ErrInvalidName):
		return utils.Error(c, fiber.StatusBadRequest, "name is required")
	case errors.Is(err, services.ErrInvalidRole):
		return utils.Error(c, fiber.StatusBadRequest, "invalid role")
	case errors.Is(err, services.ErrGroupNameTaken):
		return utils.Error(c, fiber.StatusConflict, "group name already taken")
	case errors.Is(err, services.ErrAlreadyMember):
		return utils.Error(c, fiber.StatusConflict, "user is already a member")
	case errors.Is(err, services.ErrLastSuperAdmin):
		return utils.Error(c, fiber.StatusConflict, "group must keep a super admin")
	case errors.Is(err, services.ErrGroupNotFound):
		return utils.Error(c, fiber.StatusNotFound, "group not found")
	case errors.Is(err, services.ErrRecordNotFound):
		return utils.Error(c, fiber.StatusNotFound, "membership not found")
	case errors.Is(err, services.ErrUnauthorized):
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	case errors.Is(err, services.ErrGroupDisabled):
		return utils.Error(c, fiber.StatusForbidden, "group is disabled")
	default:
		return utils.Error(c, fiber.StatusInternalServerError, fallback)
	}
}
