package middleware

import (
	"errors"

	"stocklot-backend/internal/pkg/apperrors"
	"stocklot-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is the global error handler. Engine errors are rendered with
// their kind and structured details; everything else gets the standard format.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var ae *apperrors.Error
	if errors.As(err, &ae) {
		return response.EngineError(c, ae.Message, statusForKind(ae.Kind), string(ae.Kind), ae.Retryable, ae.Details)
	}

	code := fiber.StatusInternalServerError
	message := "Internal Server Error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}
	return response.Error(c, message, code, nil)
}

func statusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindInvalidInput, apperrors.KindInvalidQuantity, apperrors.KindCharacterLimit:
		return fiber.StatusBadRequest
	case apperrors.KindNotFound:
		return fiber.StatusNotFound
	case apperrors.KindNameCollision, apperrors.KindHasActiveAllocations, apperrors.KindConcurrentModification:
		return fiber.StatusConflict
	case apperrors.KindInsufficientStock, apperrors.KindOverAllocation:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
