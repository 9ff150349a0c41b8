package api

import (
	"errors"
	"net/http"

	"github.com/cuongthieu-itme/product-workflow-sub002/internal/repository"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/workflow"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// DomainError 将业务错误映射为 HTTP 响应
func DomainError(c *gin.Context, err error, operation string) {
	var (
		invalidTransition *workflow.InvalidTransitionError
		incompleteFields  *workflow.IncompleteFieldsError
		protectedStep     *workflow.ProtectedStepError
		protectedField    *workflow.ProtectedFieldError
		duplicateBinding  *workflow.DuplicateCategoryBindingError
		noInstance        *workflow.NoInstanceForCategoryError
		alreadyConverted  *workflow.AlreadyConvertedError
		staleDrift        *workflow.StaleDriftError
		unknownStep       *workflow.UnknownStepError
		typeMismatch      *workflow.FieldTypeMismatchError
	)

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		Error(c, http.StatusNotFound, operation+" not found", err.Error())
	case errors.As(err, &noInstance), errors.As(err, &unknownStep):
		Error(c, http.StatusNotFound, "failed to "+operation, err.Error())
	case errors.As(err, &invalidTransition),
		errors.As(err, &duplicateBinding),
		errors.As(err, &alreadyConverted),
		errors.As(err, &staleDrift),
		errors.Is(err, repository.ErrVersionConflict):
		Error(c, http.StatusConflict, "failed to "+operation, err.Error())
	case errors.As(err, &incompleteFields), errors.As(err, &typeMismatch):
		Error(c, http.StatusUnprocessableEntity, "failed to "+operation, err.Error())
	case errors.As(err, &protectedStep), errors.As(err, &protectedField):
		Error(c, http.StatusForbidden, "failed to "+operation, err.Error())
	default:
		Error(c, http.StatusInternalServerError, "failed to "+operation, err.Error())
	}
}
