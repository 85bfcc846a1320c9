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

	model2 "github.com/Radrdotfun/radr-http-434-private-payment-proof/api/model"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/internal/apierror"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/model"
)

const demoInvoiceNote = "Use this invoice id when testing HTTP 434 with ShadowPay."

func (a Api) CreateInvoice(c *gin.Context) {
	var newInvoice model2.CreateInvoice
	if err := c.ShouldBindJSON(&newInvoice); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := newInvoice.ValidateCreateInvoice(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.shadowpay.CreateInvoice(c.Request.Context(), newInvoice.ToInvoice(a.shadowpay.Config().Gate.DefaultScheme))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (a Api) DeactivateInvoice(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	if err := a.shadowpay.DeactivateInvoice(c.Request.Context(), id); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoice_id": id, "active": false})
}

// GetInvoice returns public invoice metadata. Inactive invoices are
// reported as not found.
func (a Api) GetInvoice(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	invoice, err := a.activeInvoice(c, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, model2.ToPublicInvoice(invoice))
}

// DemoInvoice points self-serve clients at the example invoice the gate
// advertises in require-proof responses.
func (a Api) DemoInvoice(c *gin.Context) {
	invoice, err := a.activeInvoice(c, a.shadowpay.Gate().Options().ExampleInvoiceID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	resp := model2.ToPublicInvoice(invoice)
	if resp.Note == "" {
		resp.Note = demoInvoiceNote
	}
	c.JSON(http.StatusOK, resp)
}

func (a Api) activeInvoice(c *gin.Context, id string) (*model.Invoice, error) {
	invoice, err := a.shadowpay.GetInvoice(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrInvoiceNotFound) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "invoice not found", nil)
		}
		return nil, err
	}
	if !invoice.Active {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "invoice not found", nil)
	}
	return invoice, nil
}
