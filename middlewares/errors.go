package middlewares

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"civictrack-be/apperr"
)

const internalErrorMessage = "An unexpected internal server error occurred."

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Timestamp string            `json:"timestamp"`
	Status    int               `json:"status"`
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}

func newErrorBody(status int, message string, fields map[string]string) ErrorBody {
	return ErrorBody{
		Timestamp: time.Now().Format(time.DateTime),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Errors:    fields,
	}
}

// AbortWithStatus writes an error body with an explicit status.
func AbortWithStatus(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, newErrorBody(status, message, nil))
}

// RespondError maps err to a status and aborts the request. Errors that are
// not apperr kinds or binding failures are logged and reported as 500.
func RespondError(c *gin.Context, log logrus.FieldLogger, err error) {
	var (
		verrs  validator.ValidationErrors
		fields *apperr.ValidationError
		syntax *json.SyntaxError
		typed  *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &verrs):
		c.AbortWithStatusJSON(http.StatusBadRequest,
			newErrorBody(http.StatusBadRequest, "Validation failed", fieldErrors(verrs)))
	case errors.As(err, &fields):
		c.AbortWithStatusJSON(http.StatusBadRequest,
			newErrorBody(http.StatusBadRequest, "Validation failed", fields.Fields))
	case errors.As(err, &syntax), errors.As(err, &typed), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		AbortWithStatus(c, http.StatusBadRequest, "Malformed request body")
	default:
		var e *apperr.Error
		if !errors.As(err, &e) || e.Kind == apperr.KindInternal {
			log.WithError(err).WithFields(logrus.Fields{
				"method": c.Request.Method,
				"path":   c.Request.URL.Path,
			}).Error("request failed")
			AbortWithStatus(c, http.StatusInternalServerError, internalErrorMessage)
			return
		}
		AbortWithStatus(c, statusFor(e.Kind), e.Message)
	}
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindBadRequest:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// fieldErrors renders validator failures keyed by the JSON field name.
func fieldErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[jsonField(fe)] = fieldMessage(fe)
	}
	return out
}

func jsonField(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return fe.Namespace()
	}
	return strings.ToLower(name[:1]) + name[1:]
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be blank"
	case "min":
		if fe.Kind() == reflect.String {
			return "size must be at least " + fe.Param()
		}
		return "must be greater than or equal to " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "size must be at most " + fe.Param()
		}
		return "must be less than or equal to " + fe.Param()
	default:
		return "is invalid"
	}
}
