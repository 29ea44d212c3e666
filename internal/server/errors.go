package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"jot/internal/database/dto"
)

// errorCode is the stable machine code carried by every non-2xx body.
type errorCode string

const (
	codeNotFound   errorCode = "not_found"
	codeValidation errorCode = "validation_error"
	codeBadRequest errorCode = "bad_request"
	codeConflict   errorCode = "conflict"
	codeInternal   errorCode = "internal_error"
)

type apiError struct {
	status int
	code   errorCode
	detail string
}

func (e *apiError) Error() string {
	return e.detail
}

func notFoundErr() *apiError {
	return &apiError{status: fiber.StatusNotFound, code: codeNotFound, detail: "not found"}
}

func validationErr(detail string) *apiError {
	return &apiError{status: fiber.StatusUnprocessableEntity, code: codeValidation, detail: detail}
}

func badRequestErr(detail string) *apiError {
	return &apiError{status: fiber.StatusBadRequest, code: codeBadRequest, detail: detail}
}

// errorHandler turns any error escaping a handler into the {detail, code}
// body. Store and infrastructure failures collapse to internal_error so
// they are never mistaken for a business 404.
func (s *FiberServer) errorHandler(c *fiber.Ctx, err error) error {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return c.Status(apiErr.status).JSON(dto.ErrorResponse{Detail: apiErr.detail, Code: string(apiErr.code)})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code := codeInternal
		switch {
		case fiberErr.Code == fiber.StatusNotFound:
			code = codeNotFound
		case fiberErr.Code == fiber.StatusConflict:
			code = codeConflict
		case fiberErr.Code == fiber.StatusUnprocessableEntity:
			code = codeValidation
		case fiberErr.Code >= fiber.StatusBadRequest && fiberErr.Code < fiber.StatusInternalServerError:
			code = codeBadRequest
		}
		return c.Status(fiberErr.Code).JSON(dto.ErrorResponse{Detail: fiberErr.Message, Code: string(code)})
	}

	s.log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("unhandled error")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Detail: "internal error", Code: string(codeInternal)})
}
