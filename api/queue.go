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

	model2 "github.com/withhook/hooksync/api/model"
	"github.com/withhook/hooksync/model"
)

func (a Api) ListQueue(c *gin.Context) {
	c.JSON(http.StatusOK, a.sync.Queue.ReadAll(c.Request.Context()))
}

func (a Api) GetQueueSize(c *gin.Context) {
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, model2.QueueSize{
		Pending:     a.sync.Queue.Size(ctx),
		DeadLetters: len(a.sync.Queue.DeadLetters(ctx)),
	})
}

func (a Api) EnqueueMutation(c *gin.Context) {
	var newMutation model2.EnqueueMutation
	if err := c.ShouldBindJSON(&newMutation); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := newMutation.ValidateEnqueueMutation(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	id, err := a.sync.Queue.EnqueueRaw(c.Request.Context(), model.MutationType(newMutation.Type), newMutation.Payload)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// DrainQueue runs a pass now. Skipped is set when another pass was running or the device is offline.
func (a Api) DrainQueue(c *gin.Context) {
	ctx := c.Request.Context()
	processed, err := a.sync.SyncNow(ctx)
	if err != nil {
		respondWithError(c, err)
		return
	}
	resp := model2.DrainResult{
		Processed: processed,
		Skipped:   processed == nil,
		Remaining: a.sync.Queue.Size(ctx),
	}
	if resp.Processed == nil {
		resp.Processed = []string{}
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) ClearQueue(c *gin.Context) {
	if !a.sync.Queue.Clear(c.Request.Context()) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear queue"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "queue cleared"})
}
