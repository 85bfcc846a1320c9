package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Radrdotfun/radr-http-434-private-payment-proof/api/middleware"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/internal/apierror"
)

func (a Api) Public(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": "public ok"})
}

// Protected is only reached after the gate admitted the request.
func (a Api) Protected(c *gin.Context) {
	pc, ok := middleware.PaymentContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, apierror.NewAPIError(apierror.ErrInternalServer, "payment context missing", "protected handler reached without a payment context"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      "protected ok",
		"shadowpay": pc,
	})
}
