package api

import (
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Spok95/maos-da-obra/internal/apperr"
)

// useJSONFieldNames - в ошибках валидации имена полей как в JSON.
func useJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
}

// bind читает JSON и переводит ошибки validator в ValidationError.
func bind(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		return apperr.Invalid(fieldPath(fe), fieldMessage(fe))
	}
	return apperr.Invalid("", "Dados inválidos.")
}

// fieldPath: "CheckoutRequest.client.document" -> "client.document".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Campo obrigatório."
	case "max":
		return "Valor muito longo."
	case "url":
		return "URL inválida."
	case "email":
		return "E-mail inválido."
	default:
		return "Valor inválido."
	}
}

// fail отвечает структурированной ошибкой. 5xx пишутся в лог как ошибки,
// ConfigurationError - с именем секрета, которого клиент не видит.
func fail(c *gin.Context, log *slog.Logger, err error) {
	status, res := apperr.ToResult(err)
	attrs := []any{"method", c.Request.Method, "path", c.FullPath(), "status", status, "err", err}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", attrs...)
	} else {
		log.Debug("request rejected", attrs...)
	}
	c.AbortWithStatusJSON(status, res)
}

func abortWith(c *gin.Context, status int, res apperr.Result) {
	c.AbortWithStatusJSON(status, res)
}
