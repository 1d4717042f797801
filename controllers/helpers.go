package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	apperrors "github.com/yashrajoria/storefront-service/common/errors"
	"github.com/yashrajoria/storefront-service/middleware"
	"github.com/yashrajoria/storefront-service/services"
)

const (
	catalogPath  = "/"
	viewCartPath = "/view_cart/"
)

// fail attaches err for the error middleware, translated to the matching
// HTTP status.
func fail(ctx *gin.Context, err error) {
	_ = ctx.Error(toAppError(err))
}

func toAppError(err error) *apperrors.Error {
	var stockErr *services.InsufficientStockError
	switch {
	case errors.Is(err, services.ErrNotFound):
		return apperrors.New(apperrors.ErrNotFound.Code, capitalize(err.Error()), err)
	case errors.Is(err, services.ErrEmptyCart):
		return apperrors.Wrap(apperrors.ErrEmptyCart, err)
	case errors.Is(err, services.ErrInvalidItem):
		return apperrors.New(apperrors.ErrInvalidInput.Code, capitalize(err.Error()), err)
	case errors.As(err, &stockErr):
		return apperrors.New(apperrors.ErrInsufficientStock.Code, stockErr.Error(), err)
	default:
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// pathID parses a uuid route parameter. Malformed ids are reported as
// missing resources.
func pathID(ctx *gin.Context, name string, notFound error) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param(name))
	if err != nil {
		fail(ctx, notFound)
		return uuid.Nil, false
	}
	return id, true
}

// currentUser returns the id AuthMiddleware stored on the context.
func currentUser(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := middleware.GetUserID(ctx)
	if err != nil {
		_ = ctx.Error(apperrors.ErrUnauthorized)
		return uuid.Nil, false
	}
	return id, true
}

// safeNext accepts only same-site absolute paths as redirect targets.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return fallback
	}
	return next
}

// badRequest answers a failed ShouldBindJSON. Validation failures are
// listed per field.
func badRequest(ctx *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		fields[strings.ToLower(fe.Field())] = "failed on " + rule
	}
	ctx.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": fields})
}
