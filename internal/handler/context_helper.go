package handler

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fvu-intake/internal/models"
	appErrors "github.com/noah-isme/fvu-intake/pkg/errors"
)

const (
	sessionHeader  = "X-Session-ID"
	defaultSession = "anonymous"
	maxSessionLen  = 128
)

// sessionScope keys drafts, identity and the in-flight guard.
func sessionScope(c *gin.Context) string {
	scope := strings.TrimSpace(c.GetHeader(sessionHeader))
	if scope == "" || len(scope) > maxSessionLen {
		return defaultSession
	}
	return scope
}

func formTypeParam(c *gin.Context) (models.FormType, error) {
	formType, err := models.ParseFormType(c.Param("type"))
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrUnknownFormType, err.Error())
	}
	return formType, nil
}

// bindFieldSet reads the JSON field capture of the form named in the path.
func bindFieldSet(c *gin.Context) (models.FieldSet, error) {
	formType, err := formTypeParam(c)
	if err != nil {
		return models.FieldSet{}, err
	}
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		return models.FieldSet{}, appErrors.Clone(appErrors.ErrValidation, "request body must be a JSON object of field values")
	}
	fs, err := models.CaptureFieldSet(formType, raw)
	if err != nil {
		var unknown *models.UnknownFieldsError
		if errors.As(err, &unknown) {
			return models.FieldSet{}, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, err.Error()), unknown.Names)
		}
		return models.FieldSet{}, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	return fs, nil
}
