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

	model2 "github.com/Radrdotfun/radr-http-434-private-payment-proof/api/model"
)

func (a Api) PublishEpochRoots(c *gin.Context) {
	var req model2.PublishEpochRoots
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := req.ValidatePublishEpochRoots(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	epoch, err := a.shadowpay.PublishEpochRoots(c.Request.Context(), req.Epoch, req.Roots)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model2.PublishEpochRootsResponse{Epoch: epoch, Roots: len(req.Roots)})
}

func (a Api) GetEpochStatus(c *gin.Context) {
	size, open := a.shadowpay.AcceptedRoots()
	c.JSON(http.StatusOK, gin.H{"accepted_roots": size, "open": open})
}
