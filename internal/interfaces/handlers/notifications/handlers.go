package notifications

import (
	"fmt"

	notifsvc "ngoconnect-backend/internal/application/notifications"
	"ngoconnect-backend/internal/middleware"
	"ngoconnect-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Handlers struct {
	Service *notifsvc.Service
}

// GetMyNotifications GET /api/v1/notifications — newest first
func (h *Handlers) GetMyNotifications(c *fiber.Ctx) error {
	userID, err := sessionUserID(c)
	if err != nil {
		return response.Error(c, "Unauthorized", 401, nil)
	}
	list, err := h.Service.ListUserNotifications(c.Context(), userID)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Notifications fetched successfully", list, nil)
}

// MarkRead PATCH /api/v1/notifications/:notification_id/read
func (h *Handlers) MarkRead(c *fiber.Ctx) error {
	userID, err := sessionUserID(c)
	if err != nil {
		return response.Error(c, "Unauthorized", 401, nil)
	}
	notificationID, err := uuid.Parse(c.Params("notification_id"))
	if err != nil {
		return response.Error(c, "Invalid notification_id format", 400, nil)
	}
	if err := h.Service.MarkRead(c.Context(), userID, notificationID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.Error(c, "Notification not found", 404, nil)
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Notification marked as read", nil, nil)
}

func sessionUserID(c *fiber.Ctx) (uuid.UUID, error) {
	user := middleware.GetUser(c)
	m, ok := user.(map[string]interface{})
	if !ok {
		return uuid.Nil, fmt.Errorf("Not authenticated")
	}
	idStr, _ := m["user_id"].(string)
	return uuid.Parse(idStr)
}
