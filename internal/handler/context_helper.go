package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/STS-Engineer/Skill-Matrix/internal/middleware"
	"github.com/STS-Engineer/Skill-Matrix/internal/models"
	appErrors "github.com/STS-Engineer/Skill-Matrix/pkg/errors"
	"github.com/STS-Engineer/Skill-Matrix/pkg/response"
)

// Translator renders catalog messages for a locale.
type Translator interface {
	T(locale, key string, args ...interface{}) string
}

type keyTranslator struct{}

func (keyTranslator) T(_ string, key string, _ ...interface{}) string { return key }

func principalFrom(c *gin.Context) *models.Principal {
	return middleware.PrincipalFrom(c)
}

func requestMeta(c *gin.Context) models.RequestMeta {
	return middleware.RequestMetaFrom(c)
}

func flash(c *gin.Context, tr Translator, level, key string, args ...interface{}) response.Flash {
	if tr == nil {
		tr = keyTranslator{}
	}
	return response.Flash{Level: level, Message: tr.T(middleware.LocaleFrom(c), key, args...)}
}

func intParam(c *gin.Context, name string) (int, error) {
	value, err := strconv.Atoi(c.Param(name))
	if err != nil || value <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid "+name)
	}
	return value, nil
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, size
}

// withMeta merges handler meta into the request's response meta.
func withMeta(c *gin.Context, extra map[string]interface{}) map[string]interface{} {
	meta := middleware.ResponseMeta(c)
	for k, v := range extra {
		meta[k] = v
	}
	return meta
}

func trimmedForm(c *gin.Context, key string) string {
	return strings.TrimSpace(c.PostForm(key))
}
