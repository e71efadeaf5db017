package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/geocoder89/eventparser/internal/domain/event"
	"github.com/geocoder89/eventparser/internal/security"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

var registerOnce sync.Once

// RegisterValidators installs the event format rules on gin's validator and
// makes validation errors report JSON field names. Safe to call repeatedly.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(func(sf reflect.StructField) string {
			name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return sf.Name
			}
			return name
		})

		_ = v.RegisterValidation("eventdate", func(fl validator.FieldLevel) bool {
			return event.ValidDate(fl.Field().String())
		})
		_ = v.RegisterValidation("eventtime", func(fl validator.FieldLevel) bool {
			return event.ValidTime(fl.Field().String())
		})
		_ = v.RegisterValidation("passwordbytes", func(fl validator.FieldLevel) bool {
			return len(fl.Field().String()) <= security.MaxPasswordBytes
		})
	})
}

// BindJSON decodes a JSON body into out and writes a validation error on failure.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	return bindWith(ctx, out, binding.JSON)
}

// Bind picks the decoder from Content-Type, so urlencoded and multipart forms
// are accepted alongside JSON.
func Bind(ctx *gin.Context, out interface{}) bool {
	return bindWith(ctx, out, binding.Default(ctx.Request.Method, ctx.ContentType()))
}

func bindWith(ctx *gin.Context, out interface{}, b binding.Binding) bool {
	RegisterValidators()

	if err := ctx.ShouldBindWith(out, b); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(ctx, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large", nil)
			return false
		}

		RespondValidation(ctx, "Invalid request body", parseBindError(err))
		return false
	}

	return true
}

func parseBindError(err error) interface{} {
	var validatorError validator.ValidationErrors
	if errors.As(err, &validatorError) {
		fields := make([]FieldError, 0, len(validatorError))

		for _, fe := range validatorError {
			fields = append(fields, FieldError{
				Field:   fe.Field(),
				Rule:    fe.Tag(),
				Param:   fe.Param(),
				Message: validationMessage(fe.Tag(), fe.Param()),
			})
		}
		return gin.H{"fields": fields}
	}

	if errors.Is(err, io.EOF) {
		return gin.H{"json": "empty_body"}
	}

	var syntaxError *json.SyntaxError
	if errors.As(err, &syntaxError) || errors.Is(err, io.ErrUnexpectedEOF) {
		return gin.H{"json": "invalid_json_syntax"}
	}

	var typeError *json.UnmarshalTypeError
	if errors.As(err, &typeError) {
		return gin.H{
			"json": "invalid_json_type",
			"fields": []FieldError{{
				Field:   typeError.Field,
				Rule:    "type",
				Message: fmt.Sprintf("must be of type %s", typeError.Type.String()),
			}},
		}
	}

	var numError *strconv.NumError
	if errors.As(err, &numError) {
		return gin.H{"form": "invalid_number", "value": numError.Num}
	}

	return gin.H{"json": "malformed_body"}
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "url":
		return "must be a valid URL"
	case "eventdate":
		return "must use the DD.MM.YYYY format"
	case "eventtime":
		return "must use the HH:MM 24-hour format"
	case "passwordbytes":
		return fmt.Sprintf("must be at most %d bytes", security.MaxPasswordBytes)
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
