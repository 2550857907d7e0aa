package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"lifebee/internal/apperror"
	"lifebee/internal/middleware"
	"lifebee/internal/service"
	"lifebee/pkg/logger"
	"lifebee/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// statusFor maps the error taxonomy onto HTTP status codes
func statusFor(err error) (int, string) {
	var (
		validationErr *apperror.ValidationError
		authnErr      *apperror.AuthenticationError
		authzErr      *apperror.AuthorizationError
		notFoundErr   *apperror.NotFoundError
		transitionErr *apperror.InvalidTransitionError
		assignedErr   *apperror.AlreadyAssignedError
		conflictErr   *apperror.ConflictError
		providerErr   *apperror.PaymentProviderError
		duplicateErr  *apperror.DuplicateWebhookError
		fieldErrs     validator.ValidationErrors
		syntaxErr     *json.SyntaxError
		typeErr       *json.UnmarshalTypeError
	)

	switch {
	case errors.As(err, &fieldErrs):
		return http.StatusBadRequest, validationMessage(fieldErrs)
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return http.StatusBadRequest, "invalid request payload: " + err.Error()
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Error()
	case errors.As(err, &authnErr):
		return http.StatusUnauthorized, authnErr.Error()
	case errors.As(err, &authzErr):
		return http.StatusForbidden, authzErr.Error()
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound, notFoundErr.Error()
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, "resource not found"
	case errors.As(err, &transitionErr):
		return http.StatusConflict, transitionErr.Error()
	case errors.As(err, &assignedErr):
		return http.StatusConflict, assignedErr.Error()
	case errors.As(err, &conflictErr):
		return http.StatusConflict, conflictErr.Error()
	case errors.As(err, &providerErr):
		return http.StatusBadGateway, "payment provider unavailable"
	case errors.As(err, &duplicateErr):
		return http.StatusOK, duplicateErr.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// respondError writes the error envelope. Server-side causes are logged, never returned.
func respondError(c *gin.Context, log logger.Logger, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError || status == http.StatusBadGateway {
		log.WithFields(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Errorf("request failed: %v", err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, response.Error(status, message))
}

func validationMessage(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s must have %s %s", field, fe.Tag(), fe.Param()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email", field))
		case "datetime":
			msgs = append(msgs, fmt.Sprintf("%s must match %s", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// actorFrom returns the caller set by Auth.RequireRole
func actorFrom(c *gin.Context) (service.Actor, bool) {
	userID, role, ok := middleware.Identity(c)
	if !ok {
		return service.Actor{}, false
	}
	return service.Actor{UserID: userID, Role: role}, true
}

// requireActor aborts with 401 when the route was mounted without auth
func requireActor(c *gin.Context) (service.Actor, bool) {
	actor, ok := actorFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "authentication required"))
	}
	return actor, ok
}

// uuidParam parses a path parameter, writing a 400 on failure
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid "+name+": must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}
