package validation

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
)

// BindAndValidate binds the JSON body into `out` and runs validation.
// On failure it writes a 400 response and returns an error for the handler
// to short-circuit on.
func BindAndValidate(c *gin.Context, out interface{}, v *validatorv10.Validate) error {
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid_request_body",
			"message": err.Error(),
		})
		return err
	}

	if err := v.Struct(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "validation_failed",
			"fields":  fieldErrors(err),
		})
		return err
	}
	return nil
}

// fieldErrors maps each offending field to its failed rule, keyed by the
// json-tag name the client actually sent. Go struct paths never reach the
// response.
func fieldErrors(err error) map[string]string {
	out := map[string]string{}
	var ve validatorv10.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			msg := "failed " + fe.Tag() + " validation"
			if fe.Param() != "" {
				msg += " (" + fe.Param() + ")"
			}
			out[fe.Field()] = msg
		}
		return out
	}
	out["request"] = err.Error()
	return out
}
