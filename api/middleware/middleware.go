/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth/v7/limiter"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/withhook/hooksync/config"
)

const rateLimitedMessage = "too many diagnostics requests"

func passThrough(c *gin.Context) {
	c.Next()
}

// RateLimitMiddleware limits diagnostics requests per client. It passes everything through when
// the rate limit section is not configured.
func RateLimitMiddleware(conf config.RateLimitConfig) gin.HandlerFunc {
	if !conf.Enabled() {
		return passThrough
	}

	lmt := tollbooth.NewLimiter(*conf.RequestsPerSecond, &limiter.ExpirableOptions{
		DefaultExpirationTTL: conf.Expiry(),
	})
	lmt.SetBurst(*conf.Burst)
	lmt.SetMessage(rateLimitedMessage)

	return func(c *gin.Context) {
		if httpError := tollbooth.LimitByRequest(lmt, c.Writer, c.Request); httpError != nil {
			logrus.WithFields(logrus.Fields{
				"path":   c.Request.URL.Path,
				"client": c.ClientIP(),
			}).Warn("diagnostics request rate limited")
			c.AbortWithStatusJSON(httpError.StatusCode, gin.H{"error": httpError.Message})
			return
		}
		c.Next()
	}
}

// SecretKeyAuthMiddleware requires the server secret key in the configured header.
func SecretKeyAuthMiddleware(conf config.ServerConfig) gin.HandlerFunc {
	header := conf.KeyHeader()
	secret := []byte(conf.SecretKey)

	return func(c *gin.Context) {
		provided := c.GetHeader(header)
		switch {
		case len(secret) == 0:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "secret key is not configured"})
		case provided == "":
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + header + " header"})
		case subtle.ConstantTimeCompare(secret, []byte(provided)) != 1:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid secret key"})
		default:
			c.Next()
		}
	}
}
