package middleware

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs completed HTTP requests. Paths listed in skip are not
// logged; the Prometheus scrape endpoint would otherwise dominate the output.
func RequestLogging(skip ...string) echo.MiddlewareFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			if _, ok := skipped[req.URL.Path]; ok {
				return err
			}

			res := c.Response()
			log.Printf("%s %s from %s - %d %dB (%s)",
				req.Method,
				req.RequestURI,
				c.RealIP(),
				res.Status,
				res.Size,
				time.Since(start),
			)

			return err
		}
	}
}
