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

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/withhook/hooksync"
	"github.com/withhook/hooksync/api/middleware"
	"github.com/withhook/hooksync/config"
	"github.com/withhook/hooksync/internal/apierror"
)

// Api is the local diagnostics surface over the offline queue.
type Api struct {
	sync   *hooksync.HookSync
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.GET("/status", a.GetStatus)

	router.GET("/queue", a.ListQueue)
	router.GET("/queue/size", a.GetQueueSize)
	router.POST("/queue", a.EnqueueMutation)
	router.POST("/queue/drain", a.DrainQueue)
	router.DELETE("/queue", a.ClearQueue)

	router.GET("/dead-letters", a.ListDeadLetters)
	router.POST("/dead-letters/:id/requeue", a.RequeueDeadLetter)
	router.DELETE("/dead-letters", a.PurgeDeadLetters)
	return a.router
}

func NewAPI(h *hooksync.HookSync, conf *config.Configuration) *Api {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(conf.ProjectName))
	r.Use(middleware.RateLimitMiddleware(conf.RateLimit))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})

	if conf.Server.SecretKey != "" {
		r.Use(middleware.SecretKeyAuthMiddleware(conf.Server))
	}

	return &Api{sync: h, router: r}
}

func (a Api) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, a.sync.Orchestrator.Status(c.Request.Context()))
}

// toAPIError classifies queue errors so they map onto a response status.
func toAPIError(err error) error {
	switch {
	case errors.Is(err, hooksync.ErrDeadLetterNotFound):
		return apierror.NewAPIError(apierror.ErrNotFound, err.Error(), nil)
	case errors.Is(err, hooksync.ErrInvalidPayload):
		return apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil)
	}
	return err
}

func respondWithError(c *gin.Context, err error) {
	c.JSON(apierror.MapErrorToHTTPStatus(toAPIError(err)), gin.H{"error": err.Error()})
}
