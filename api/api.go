package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	shadowpay "github.com/Radrdotfun/radr-http-434-private-payment-proof"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/api/middleware"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/internal/apierror"
)

type Api struct {
	shadowpay *shadowpay.ShadowPay
	router    *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	cnf := a.shadowpay.Config()

	router.GET("/v1/public", a.Public)
	router.GET("/v1/demo-invoice", a.DemoInvoice)
	router.GET("/v1/invoices/:id", a.GetInvoice)

	protected := router.Group(cnf.Gate.ProtectedPrefix)
	protected.Use(middleware.RateLimitMiddleware(cnf), middleware.ShadowPay(a.shadowpay.Gate()))
	protected.GET("", a.Protected)
	protected.POST("", a.Protected)
	protected.GET("/*path", a.Protected)
	protected.POST("/*path", a.Protected)

	admin := router.Group("/admin")
	if cnf.Server.Secure {
		admin.Use(middleware.SecretKeyAuthMiddleware(cnf.Server.SecretKey))
	}
	admin.POST("/invoices", a.CreateInvoice)
	admin.PUT("/invoices/:id/deactivate", a.DeactivateInvoice)
	admin.POST("/epoch/roots", a.PublishEpochRoots)
	admin.GET("/epoch", a.GetEpochStatus)

	return a.router
}

func NewAPI(sp *shadowpay.ShadowPay) *Api {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()
	if sp.Config().EnableTelemetry {
		r.Use(otelgin.Middleware(sp.Config().Telemetry.ServiceName))
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})

	return &Api{shadowpay: sp, router: r}
}

func respondWithError(c *gin.Context, err error) {
	apiErr := apierror.FromError(err)
	c.JSON(apierror.MapErrorToHTTPStatus(apiErr), apiErr)
}
