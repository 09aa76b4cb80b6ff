package utils

import "github.com/gofiber/fiber/v2"

// APIResponse is the envelope every assessment endpoint answers with.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
}

// SendSuccess writes a 200 envelope, defaulting the message to "success".
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return send(c, fiber.StatusOK, true, message, data)
}

// SendError writes a failed envelope without a payload.
func SendError(c *fiber.Ctx, status int, message string) error {
	return send(c, status, false, message, nil)
}

// SendErrorWithData writes a failed envelope that still carries a payload,
// such as an ingest outcome describing the stage that failed.
func SendErrorWithData(c *fiber.Ctx, status int, message string, data interface{}) error {
	return send(c, status, false, message, data)
}

func send(c *fiber.Ctx, status int, success bool, message string, data interface{}) error {
	if message == "" {
		message = "error"
		if success {
			message = "success"
		}
	}
	if status == 0 {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(APIResponse{
		Success: success,
		Data:    data,
		Message: message,
	})
}
