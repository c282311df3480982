package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/lalith-99/lingomatch/internal/apperr"
)

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error string      `json:"error"`
	Code  apperr.Code `json:"code"`
}

func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeInvalidArgument:
		return http.StatusBadRequest
	case apperr.CodeUnauthenticated:
		return http.StatusUnauthorized
	case apperr.CodePermissionDenied:
		return http.StatusForbidden
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeAlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error", "code"}. Errors that are not
// *apperr.Error come out as a generic 500.
func respondError(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(code), errorResponse{
		Error: apperr.MessageOf(err),
		Code:  code,
	})
}

// bindJSON decodes the body into req and reports a 400 on failure.
// Unknown fields are rejected globally by the router.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, apperr.InvalidArg(bindMessage(err)))
		return false
	}
	return true
}

func bindMessage(err error) string {
	if errors.Is(err, io.EOF) {
		return "request body is required"
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		// Field() is the json name; the router registers a tag name func.
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			return field + " is required"
		case "language":
			return fmt.Sprintf("unsupported language: %v", fe.Value())
		default:
			return field + " is invalid"
		}
	}

	msg := err.Error()
	if strings.HasPrefix(msg, "json: unknown field") {
		return strings.TrimPrefix(msg, "json: ")
	}
	return "malformed request body"
}
