package httpx

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	// Report validation failures by json field name, not Go field name.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return strings.ToLower(fld.Name)
			}
			return name
		})
	}
}

// BindJSON decodes and validates the request body. On failure it writes
// the 422 envelope with a field→message map and returns false.
func BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		writeBindError(c, err)
		return false
	}
	return true
}

// BindQuery validates query-string parameters the same way.
func BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		writeBindError(c, err)
		return false
	}
	return true
}

func writeBindError(c *gin.Context, err error) {
	errs := map[string]string{}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			errs[fe.Field()] = fieldMessage(fe)
		}
	}
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"message": MsgInvalidBody,
		"errors":  errs,
	})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("El campo %s es obligatorio", fe.Field())
	case "max":
		return fmt.Sprintf("El campo %s no debe ser mayor que %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("El campo %s debe ser al menos %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("El campo %s debe ser uno de: %s", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("El campo %s debe ser un correo válido", fe.Field())
	case "uuid":
		return fmt.Sprintf("El campo %s debe ser un identificador válido", fe.Field())
	case "gt", "gte":
		return fmt.Sprintf("El campo %s está fuera de rango", fe.Field())
	default:
		return fmt.Sprintf("El campo %s no es válido", fe.Field())
	}
}
