package validator

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
)

// ginTrans translates errors of Gin's binding engine.
var ginTrans ut.Translator

// Setup registers JSON field names and English translations on Gin's
// binding engine. Call once during application startup.
func Setup() {
	if v, ok := binding.Validator.Engine().(*govalidator.Validate); ok {
		ginTrans = Configure(v)
	}
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst any) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return Translate(err, ginTrans)
	}
	return nil
}
