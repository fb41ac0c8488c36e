package server

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hiresight-ai/hiresight/internal/engine"
	"github.com/hiresight-ai/hiresight/internal/index"
	"github.com/hiresight-ai/hiresight/internal/structurer"
	"github.com/hiresight-ai/hiresight/session"
)

// SessionsHandler exposes the session lifecycle over HTTP: upload a resume,
// ask questions, read history and delete.
type SessionsHandler struct {
	Engine      *engine.Engine
	MaxUploadMB int
}

func (h *SessionsHandler) Register(g *echo.Group) {
	g.POST("", h.create)
	g.GET("/:id", h.describe)
	g.POST("/:id/turns", h.submitTurn)
	g.GET("/:id/turns", h.history)
	g.DELETE("/:id", h.delete)
}

func (h *SessionsHandler) create(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file required")
	}
	maxBytes := int64(h.MaxUploadMB)
	if maxBytes <= 0 {
		maxBytes = 10
	}
	maxBytes *= 1 << 20
	if fileHeader.Size > maxBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer f.Close()
	raw, err := io.ReadAll(io.LimitReader(f, maxBytes))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	format := structurer.Format(c.FormValue("format"))
	if format == "" {
		format = structurer.Format(strings.TrimPrefix(filepath.Ext(fileHeader.Filename), "."))
	}

	sess, err := h.Engine.Ingest(c.Request().Context(), raw, format, fileHeader.Filename)
	if err != nil {
		return mapError(err)
	}

	enr := sess.Enrichment()
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"session_id":     sess.ID(),
		"state":          sess.State(),
		"chunks":         sess.Index().Size(),
		"github_found":   enr.GitHubFound(),
		"linkedin_found": enr.LinkedInFound(),
	})
}

func (h *SessionsHandler) describe(c echo.Context) error {
	sess, err := h.Engine.Describe(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	resp := map[string]interface{}{
		"session_id": sess.ID(),
		"state":      sess.State(),
		"created_at": sess.CreatedAt(),
		"turns":      len(sess.Turns()),
	}
	if doc := sess.Doc(); doc != nil {
		resp["filename"] = doc.Filename
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *SessionsHandler) submitTurn(c echo.Context) error {
	var req struct {
		Question string `json:"question"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question required")
	}

	turn, err := h.Engine.SubmitTurn(c.Request().Context(), c.Param("id"), req.Question)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, turn)
}

func (h *SessionsHandler) history(c echo.Context) error {
	turns, err := h.Engine.History(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"turns": turns})
}

func (h *SessionsHandler) delete(c echo.Context) error {
	if err := h.Engine.Close(c.Request().Context(), c.Param("id")); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// mapError translates pipeline errors into HTTP status codes.
func mapError(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrNotReady), errors.Is(err, session.ErrAlreadyIngested):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, structurer.ErrUnsupportedFormat), errors.Is(err, structurer.ErrEmptyDocument):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, index.ErrIndexBuild):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
