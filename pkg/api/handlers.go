package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/bridge"
	"github.com/gin-gonic/gin"
)

const infoTimeout = 5 * time.Second

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// NodeInfoResponse is returned by GET /api/v1/node/info
type NodeInfoResponse struct {
	Success bool `json:"success"`
	bridge.Info
}

// handleHealth handles GET /health
func (s *Server) handleHealth(c *gin.Context) {
	select {
	case <-s.node.Done():
		resp := HealthResponse{Status: "stopped"}
		if err := s.node.Err(); err != nil {
			resp.Error = err.Error()
		}
		c.JSON(http.StatusServiceUnavailable, resp)
	default:
		c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
	}
}

// handleNodeInfo handles GET /api/v1/node/info
func (s *Server) handleNodeInfo(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), infoTimeout)
	defer cancel()

	info, err := s.node.Info(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "Node unavailable",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, NodeInfoResponse{Success: true, Info: info})
}
