package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-cardgen/pkg/model"
	"github.com/goliatone/go-cardgen/pkg/options"
)

const (
	routeLiveness = "/"
	routeRender   = "/:user"
	routeSource   = "/.templates/:name"
	routeOpenAPI  = "/openapi.json"
	routeMetrics  = "/metrics"
)

func (s *Server) routes() (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(s.logger))
	if s.metrics != nil {
		r.Use(s.metrics.Middleware())
	}

	r.GET(routeLiveness, s.handleLiveness)
	r.GET(routeOpenAPI, s.handleOpenAPI)
	if s.source != nil {
		r.GET(routeSource, s.handleTemplateSource)
	}
	if s.metrics != nil && s.cfg.Metrics {
		r.GET(routeMetrics, gin.WrapH(promhttp.HandlerFor(s.metrics.Gatherer(), promhttp.HandlerOpts{})))
	}

	handlers := []gin.HandlerFunc{}
	if s.cfg.RateLimit != "" {
		limit, err := RateLimitMiddleware(s.cfg.RateLimit)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, limit)
	}
	r.GET(routeRender, append(handlers, s.handleRender)...)
	return r, nil
}

func (s *Server) handleLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.version})
}

func (s *Server) handleOpenAPI(c *gin.Context) {
	c.JSON(http.StatusOK, s.doc)
}

func (s *Server) handleTemplateSource(c *gin.Context) {
	data, err := s.source(c.Param("name"))
	if err != nil {
		c.String(http.StatusNotFound, err.Error())
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
}

func (s *Server) handleRender(c *gin.Context) {
	raw := QueryRaw(c.Request.URL.Query())
	raw[options.KeyUser] = c.Param("user")

	req, err := options.Normalize(options.Layer(raw, s.defaults))
	if err != nil {
		s.fail(c, err)
		return
	}
	if req.Avatar == "" {
		req.Avatar = fmt.Sprintf("https://github.com/%s.png", req.User)
	}
	if req.Version == "" {
		req.Version = s.version
	}

	result, err := s.engine.Render(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	for _, p := range result.Plugins {
		if p.Err != nil {
			loggerFrom(c, s.logger).Warn("plugin omitted", "plugin", p.Name, "attempts", p.Attempts, "error", p.Err)
		}
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, []byte(result.Artifact))
}

func (s *Server) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	_ = c.Error(err)
	c.String(status, err.Error())
}

// StatusFor maps a render or normalization error to an HTTP status.
func StatusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch model.KindOf(err) {
	case model.KindMalformedKey:
		return http.StatusBadRequest
	case model.KindUnknownPlugin, model.KindUnknownTemplate, model.KindIncompatiblePlugin:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// QueryRaw converts query parameters into raw inputs. Repeated parameters
// keep their first value.
func QueryRaw(values map[string][]string) options.Raw {
	raw := make(options.Raw, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			raw[key] = vals[0]
		}
	}
	return raw
}
