package utils

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ErrorHandler is a middleware to catch panics and return structured errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				GetLogger().Error("Unhandled panic", zap.Any("error", err), zap.String("path", c.Request.URL.Path))
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Error: "Internal Server Error",
					Kind:  KindInternal.String(),
				})
			}
		}()
		c.Next()
	}
}

// RespondError writes err as a JSON error response with the status its kind maps to.
func RespondError(c *gin.Context, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = Internal(err, "internal error")
	}
	status := appErr.Kind.Status()
	logger := GetLogger()
	if status >= http.StatusInternalServerError {
		logger.Error(appErr.Message, zap.String("path", c.Request.URL.Path), zap.Error(appErr.Err))
	} else {
		logger.Debug(appErr.Message, zap.String("path", c.Request.URL.Path), zap.String("kind", appErr.Kind.String()))
	}

	msg := appErr.Message
	if status == http.StatusInternalServerError {
		msg = "Internal Server Error"
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg, Kind: appErr.Kind.String(), Fields: appErr.Fields})
}

// BindError converts a gin binding failure into a validation error with
// field-level detail when the validator produced it.
func BindError(err error) *AppError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[lowerFirst(fe.Field())] = describeTag(fe)
		}
		return ValidationFields(fields)
	}
	return Validation("invalid request body: %v", err)
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "url":
		return "must be a valid URL"
	case "uuid", "uuid4":
		return "must be a valid id"
	case "oneof":
		return "must be one of " + fe.Param()
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	}
	return "is invalid"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
