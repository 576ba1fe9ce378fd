package api

import (
	"net/http"

	"github.com/annel0/tileworld/internal/game"
	"github.com/gin-gonic/gin"
)

const mapKey = "map"

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// mapMiddleware находит карту по :name, неизвестное имя - 404
func (rs *RestServer) mapMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		m, ok := rs.session.Map(name)
		if !ok {
			c.AbortWithStatusJSON(http.StatusNotFound, GenericResponse{
				Success: false,
				Message: "Карта не найдена: " + name,
			})
			return
		}
		c.Set(mapKey, m)
		c.Next()
	}
}

func mapFrom(c *gin.Context) *game.Map {
	return c.MustGet(mapKey).(*game.Map)
}
