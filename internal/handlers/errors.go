package handlers

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"boutique/internal/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	if _, ok := apperror.Conflict(err); ok {
		return fiber.StatusConflict
	}
	if _, ok := apperror.Validation(err); ok {
		return fiber.StatusBadRequest
	}
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apperror.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, apperror.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

// userMessage is the text shown for err. Unexpected errors get a generic text.
func userMessage(err error, generic string) string {
	if ce, ok := apperror.Conflict(err); ok {
		return ce.Error()
	}
	if ve, ok := apperror.Validation(err); ok {
		return ve.Error()
	}
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return "not found"
	case errors.Is(err, apperror.ErrForbidden), errors.Is(err, apperror.ErrInvalidCredentials):
		return err.Error()
	}
	return generic
}

// apiError answers a JSON error. Unexpected errors are logged and hidden.
func apiError(c *fiber.Ctx, err error, message string) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg(message)
		return c.Status(status).JSON(fiber.Map{
			"message": message,
		})
	}
	body := fiber.Map{
		"message": message,
		"error":   userMessage(err, message),
	}
	if ce, ok := apperror.Conflict(err); ok {
		body["field"] = ce.Field
	}
	return c.Status(status).JSON(body)
}

// logUnexpected records errors that are not part of the domain taxonomy.
func logUnexpected(c *fiber.Ctx, err error, msg string) {
	if statusFor(err) == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg(msg)
	}
}

// validationErrors lists the failed fields of a validator error.
func validationErrors(err error) map[string]string {
	errorMessages := make(map[string]string)
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		errorMessages["_"] = err.Error()
		return errorMessages
	}
	for _, e := range validationErrs {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return errorMessages
}

// joined renders validation errors as one flash line.
func joined(errs map[string]string) string {
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, errs[field])
	}
	return strings.Join(parts, "; ")
}
