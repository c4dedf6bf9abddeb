package handler

import (
	"errors"
	"net/http"
	"reflect"

	"aquafarm/internal/apierror"
	"aquafarm/internal/middleware"
	"aquafarm/internal/repository"
	"aquafarm/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// actorFromClaims converts the JWT claims into the service-layer actor.
func actorFromClaims(c *gin.Context) service.Actor {
	claims := middleware.GetClaims(c)
	actor := service.Actor{Role: claims.Role}
	if id, err := uuid.Parse(claims.UserID); err == nil {
		actor.UserID = id
	}
	if claims.FarmID != nil {
		if id, err := uuid.Parse(*claims.FarmID); err == nil {
			actor.FarmID = &id
		}
	}
	return actor
}

// pathUUID parses a :param path segment as a UUID, writing the 400 itself.
func pathUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid "+param))
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps service errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var ve *apierror.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusUnprocessableEntity, ve)
	case errors.Is(err, service.ErrAccessDenied):
		c.JSON(http.StatusForbidden, apierror.New("Access denied"))
	case errors.Is(err, service.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, apierror.New("Not found"))
	case errors.Is(err, service.ErrInvalidMovement):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, apierror.New("Invalid credentials"))
	case errors.Is(err, repository.ErrStaleQuantity):
		c.JSON(http.StatusConflict, apierror.New("Concurrent update, retry the operation"))
	default:
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
	}
}
