package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// reports service liveness
func Handler(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Status:  "ok",
		Service: "pagecraft-server",
	})
}

// lightweight ping for uptime monitors
func PingHandler(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}
