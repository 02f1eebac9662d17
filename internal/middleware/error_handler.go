package middleware

import (
	"ngoconnect-backend/internal/pkg/apperr"
	"ngoconnect-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is the global error handler. Returns the standard error format.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"
	var details interface{} = map[string]interface{}{}

	if e, ok := apperr.As(err); ok {
		code = apperr.HTTPStatus(err)
		message = e.Message
		details = apperr.Details(err)
	} else if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return response.Error(c, message, code, details)
}
