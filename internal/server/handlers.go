package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/fieldserve/internal/idgen"
)

func newRequestID() string {
	return idgen.WithPrefix("req_")
}

func (s *Server) handleLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleReadiness(c *gin.Context) {
	healthy, statuses := s.health.CheckAll(c.Request.Context())
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"healthy": healthy,
		"checks":  statuses,
	})
}
