package api

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/Bellian/Godot-Translation-Tool/internal/export"
	"github.com/Bellian/Godot-Translation-Tool/internal/instrument"
	"github.com/Bellian/Godot-Translation-Tool/internal/repo"
	"github.com/Bellian/Godot-Translation-Tool/internal/store"
)

type AppError struct {
	Code    string        `json:"code"`
	Status  int           `json:"-"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

type ErrorResponse struct {
	Error *AppError `json:"error"`
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func NotFoundError(what, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Status:  404,
		Message: fmt.Sprintf("%s %s not found", what, id),
	}
}

func ValidationError(details []ErrorDetail) *AppError {
	return &AppError{
		Code:    "VALIDATION_FAILED",
		Status:  422,
		Message: "Validation failed",
		Details: details,
	}
}

func ConflictError(msg string) *AppError {
	return &AppError{Code: "CONFLICT", Status: 409, Message: msg}
}

func UnauthorizedError(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Status: 401, Message: msg}
}

func BadRequestError(msg string) *AppError {
	return &AppError{Code: "BAD_REQUEST", Status: 400, Message: msg}
}

// toAppError maps domain and store errors onto the HTTP taxonomy. Errors it
// does not recognise come back nil.
func toAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var verr *repo.ValidationError
	if errors.As(err, &verr) {
		return ValidationError([]ErrorDetail{{Field: verr.Field, Message: verr.Message}})
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return NewAppError("NOT_FOUND", 404, err.Error())
	case errors.Is(err, export.ErrNoDialogs):
		return NewAppError("NOT_FOUND", 404, "Project has no dialogs")
	case errors.Is(err, store.ErrUniqueViolation):
		return ConflictError("Resource already exists")
	case errors.Is(err, store.ErrForeignKey):
		return ValidationError([]ErrorDetail{{Message: "Referenced resource does not exist"}})
	case errors.Is(err, repo.ErrNothingToUpdate):
		return BadRequestError("Nothing to update")
	}
	return nil
}

// ErrorHandler renders every error as an ErrorResponse.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if appErr := toAppError(err); appErr != nil {
		return c.Status(appErr.Status).JSON(ErrorResponse{Error: appErr})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(ErrorResponse{
			Error: NewAppError("HTTP_ERROR", fiberErr.Code, fiberErr.Message),
		})
	}

	logger := instrument.LoggerFromContext(c.UserContext())
	logger.Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error: &AppError{
			Code:    "INTERNAL_ERROR",
			Message: "Internal server error",
		},
	})
}
