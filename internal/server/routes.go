package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/danmuck/edgexchange/internal/auth"
	"github.com/danmuck/edgexchange/internal/protocol"
	"github.com/danmuck/edgexchange/internal/protocol/metadata"
	"github.com/danmuck/edgexchange/internal/render"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var errTooLarge = errors.New("server: request body too large")

type encodeRequest struct {
	Entries []metadata.Entry `json:"entries"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func (s *Server) RegisterRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.appeared).String(),
			"service": NodeName,
			"version": Version,
		})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/v1/meta")
	if s.cfg.Token != "" {
		v1.Use(auth.Middleware(auth.StaticToken{Token: s.cfg.Token}))
	}
	v1.POST("/encode", s.handleEncode)
	v1.POST("/decode", s.handleDecode)
}

func (s *Server) handleEncode(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBlobBytes)
	var req encodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(c, http.StatusRequestEntityTooLarge, errTooLarge)
			return
		}
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	blob, err := render.Encode(req.Entries)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	if blob == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.Header("X-Blake3", render.Digest(blob))
	c.Data(http.StatusOK, "application/octet-stream", blob)
}

func (s *Server) handleDecode(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxBlobBytes+1))
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	if len(body) > MaxBlobBytes {
		s.fail(c, http.StatusRequestEntityTooLarge, errTooLarge)
		return
	}
	report, err := render.Decode(body)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.JSON(status, errorResponse{
		Error: err.Error(),
		Code:  int(protocol.CodeOf(err)),
	})
}
