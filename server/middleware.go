package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/brettboylen/reddit-wrapped/metrics"
)

// prometheusMiddleware records request counts and durations per route
func prometheusMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// write the error response now so the status is known; echo skips
				// committed responses when err is handled again further out
				c.Error(err)
			}

			// route template, not the raw URL, to keep label cardinality bounded
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method

			metrics.HttpRequestsTotal.WithLabelValues(
				method,
				path,
				strconv.Itoa(c.Response().Status),
			).Inc()

			metrics.HttpRequestDuration.WithLabelValues(
				method,
				path,
			).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// requestLogger logs each request through logrus
func requestLogger(log *logrus.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := log.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
				"remote_ip":  v.RemoteIP,
				"request_id": v.RequestID,
			})
			if v.Error != nil {
				if v.Status >= http.StatusInternalServerError {
					entry.WithError(v.Error).Error("Request failed")
				} else {
					entry.WithError(v.Error).Warn("Request failed")
				}
				return nil
			}
			entry.Info("Request handled")
			return nil
		},
	})
}
