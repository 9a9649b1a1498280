package server

import (
	"net/http"

	"github.com/labstack/echo"
	"go.uber.org/zap"
)

func (s *Server) handlePanels(c echo.Context) error {
	if term := c.QueryParam("q"); term != "" {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"panels": s.panels.SearchPanels(term),
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"panels": s.panels.ListPanels(),
	})
}

func (s *Server) handlePanelInfo(c echo.Context) error {
	info := s.panels.PanelInfo(c.Param("id"))
	if info == nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "panel not found"})
	}
	return c.JSON(http.StatusOK, info)
}

type refreshRequest struct {
	Force bool `json:"force"`
}

func (s *Server) handlePanelRefresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if err := s.panels.Refresh(req.Force); err != nil {
		s.logger.Error("panel refresh", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "panel refresh failed"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"refreshed": true,
		"panels":    len(s.panels.ListPanels()),
	})
}
