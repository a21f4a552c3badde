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
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a Api) ListDeadLetters(c *gin.Context) {
	c.JSON(http.StatusOK, a.sync.Queue.DeadLetters(c.Request.Context()))
}

func (a Api) RequeueDeadLetter(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	if err := a.sync.Queue.RequeueDeadLetter(c.Request.Context(), id); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "message": "mutation requeued"})
}

func (a Api) PurgeDeadLetters(c *gin.Context) {
	if !a.sync.Queue.PurgeDeadLetters(c.Request.Context()) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to purge dead letters"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "dead letters purged"})
}
