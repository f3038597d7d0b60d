package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	MsgNotFound     = "Recurso no encontrado"
	MsgForbidden    = "No tienes permiso para realizar esta acción"
	MsgUnauthorized = "No autenticado"
	MsgInvalidBody  = "Los datos proporcionados no son válidos"
	MsgInternal     = "Error interno del servidor"
)

// Data writes the single-resource envelope.
func Data(c *gin.Context, status int, v any) {
	c.JSON(status, gin.H{"data": v})
}

// List writes the paginated collection envelope.
func List(c *gin.Context, items any, meta PageMeta) {
	c.JSON(http.StatusOK, gin.H{"data": items, "meta": meta})
}

// Message writes an error or informational body with just a message.
func Message(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"message": msg})
}

func NotFound(c *gin.Context) {
	Message(c, http.StatusNotFound, MsgNotFound)
}

func Forbidden(c *gin.Context) {
	Message(c, http.StatusForbidden, MsgForbidden)
}

func Internal(c *gin.Context) {
	Message(c, http.StatusInternalServerError, MsgInternal)
}

// NoContent is the uniform delete response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
