package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/brettboylen/reddit-wrapped/models"
	"github.com/brettboylen/reddit-wrapped/stats"
)

// handleAnalyze handles POST /api/analyze with a JSON body of {username, limit}
func (s *Server) handleAnalyze(c echo.Context) error {
	var req models.AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return s.writeError(c, &stats.Error{Code: models.ErrInvalidRequest, Message: "Request body must be {\"username\": string, \"limit\"?: number}", Err: err})
	}
	return s.analyze(c, req)
}

// handleWrapped handles GET /api/wrapped/:username?limit=N
func (s *Server) handleWrapped(c echo.Context) error {
	// the path names the user; only limit is read from the query
	req := models.AnalyzeRequest{Username: c.Param("username")}
	if err := echo.QueryParamsBinder(c).Int("limit", &req.Limit).BindError(); err != nil {
		return s.writeError(c, &stats.Error{Code: models.ErrInvalidRequest, Message: "limit must be an integer", Err: err})
	}
	return s.analyze(c, req)
}

func (s *Server) analyze(c echo.Context, req models.AnalyzeRequest) error {
	resp, err := s.analyzer.Analyze(c.Request().Context(), req)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// writeError maps an analysis error onto an HTTP status and error body
func (s *Server) writeError(c echo.Context, err error) error {
	var statsErr *stats.Error
	if !errors.As(err, &statsErr) {
		statsErr = &stats.Error{Code: models.ErrInternal, Message: "Failed to analyze user profile", Err: err}
	}

	status := statusForCode(statsErr.Code)

	entry := s.log.WithFields(logrus.Fields{
		"code":       statsErr.Code,
		"status":     status,
		"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
	})
	if status >= http.StatusInternalServerError {
		entry.WithError(err).Error("Error analyzing user")
	} else {
		entry.WithError(err).Warn("Rejected analysis request")
	}

	return c.JSON(status, models.ErrorResponse{
		Type:    models.ResponseTypeError,
		Message: statsErr.Message,
		Code:    statsErr.Code,
	})
}

func statusForCode(code models.ErrorCode) int {
	switch code {
	case models.ErrInvalidRequest, models.ErrInvalidUsername:
		return http.StatusBadRequest
	case models.ErrUserNotFound, models.ErrNoDataAvailable:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
