package middleware

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// redactedParams never reach the access log.
var redactedParams = []string{"token"}

// AccessLog is gin's request logger with credentials stripped from the query.
func AccessLog() gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{Formatter: accessLogFormatter})
}

func accessLogFormatter(p gin.LogFormatterParams) string {
	if p.Latency > time.Minute {
		p.Latency = p.Latency.Truncate(time.Second)
	}
	return fmt.Sprintf("[GIN] %v | %3d | %13v | %15s | %-7s %#v\n%s",
		p.TimeStamp.Format("2006/01/02 - 15:04:05"),
		p.StatusCode,
		p.Latency,
		p.ClientIP,
		p.Method,
		RedactQuery(p.Path),
		p.ErrorMessage,
	)
}

// RedactQuery replaces the values of sensitive query parameters in a
// request URI with REDACTED.
func RedactQuery(uri string) string {
	path, raw, ok := strings.Cut(uri, "?")
	if !ok {
		return uri
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return path + "?REDACTED"
	}

	changed := false
	for _, name := range redactedParams {
		if _, present := q[name]; present {
			q.Set(name, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return uri
	}
	return path + "?" + q.Encode()
}
