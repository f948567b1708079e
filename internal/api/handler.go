package api

import (
	"net/http"
	"strconv"
	"time"

	"flow-platform/config"
	"flow-platform/internal/models"
	"flow-platform/internal/service"
	"flow-platform/internal/token"
	"flow-platform/internal/transport"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler is the gateway boundary: it translates HTTP into broker
// request/reply calls and returns the core's own result to the client, not
// the downstream results.
type Handler struct {
	bus   *transport.Client
	codec *token.Codec
	auth  config.AuthConfig
}

// NewHandler creates a new HTTP handler.
func NewHandler(bus *transport.Client, codec *token.Codec, auth config.AuthConfig) *Handler {
	return &Handler{bus: bus, codec: codec, auth: auth}
}

// ordersListRoles is the explicit allow-list for the order listing route.
// ADMIN is the role every registered profile starts with.
var ordersListRoles = []string{"ADMIN", "USER", "NORMAL", "PRO", "ENTERPRISE", "TRIAL"}

// SetupRoutes sets up HTTP routes. Health, readiness and metrics bypass the
// capability-token guard.
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := router.Group("/api")

	authGroup := apiGroup.Group("/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
		authGroup.POST("/logout", h.logout)
	}

	orders := apiGroup.Group("/orders")
	{
		orders.POST("", h.authGuard(), h.createOrder)
		orders.GET("", h.authGuard(ordersListRoles...), h.listOrders)
		orders.GET("/:id", h.authGuard(), h.getOrder)
		orders.PATCH("/:id", h.authGuard(), h.updateOrder)
		orders.POST("/checkout/:id", h.authGuard(), h.checkoutOrder)
	}

	apiGroup.GET("/users/profile", h.authGuard(), h.userProfile)

	billing := apiGroup.Group("/billing")
	{
		billing.POST("/create", h.createBilling)
		billing.GET("", h.getBilling)
	}

	apiGroup.POST("/pdfs/checkout", h.authGuard(), h.checkoutPDF)
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "Invalid request body")
		return
	}

	var reply service.AuthReply
	if err := h.bus.Request(c.Request.Context(), models.PatternRegister, &req, &reply); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reply)
}

func (h *Handler) login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "Invalid request body")
		return
	}
	req.IP = c.ClientIP()

	var reply service.AuthReply
	if err := h.bus.Request(c.Request.Context(), models.PatternLogin, &req, &reply); err != nil {
		writeError(c, err)
		return
	}

	c.SetCookie(h.auth.CookieName, reply.Token, int(h.auth.TokenTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, reply)
}

func (h *Handler) logout(c *gin.Context) {
	c.SetCookie(h.auth.CookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *Handler) createOrder(c *gin.Context) {
	claims := mustClaims(c)

	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "Invalid request body")
		return
	}
	req.CompanyID = claims.AccountID
	req.CreatedBy = claims.UserID

	var reply service.OrderReply
	if err := h.bus.Request(c.Request.Context(), models.PatternCreateOrder, &req, &reply); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reply)
}

func (h *Handler) listOrders(c *gin.Context) {
	claims := mustClaims(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	req := service.ListOrdersRequest{
		CompanyID: claims.AccountID,
		Limit:     limit,
		Page:      page,
		StartDate: c.Query("startDate"),
		EndDate:   c.Query("endDate"),
	}

	var reply []models.Order
	if err := h.bus.Request(c.Request.Context(), models.PatternGetOrders, &req, &reply); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (h *Handler) getOrder(c *gin.Context) {
	claims := mustClaims(c)
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	req := service.GetOrderRequest{OrderID: orderID, CompanyID: claims.AccountID}
	var reply service.OrderReply
	if err := h.bus.Request(c.Request.Context(), models.PatternGetOrder, &req, &reply); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (h *Handler) updateOrder(c *gin.Context) {
	claims := mustClaims(c)
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		writeBadRequest(c, "Invalid request body")
		return
	}

	req := service.UpdateStatusRequest{
		OrderID:   orderID,
		CompanyID: claims.AccountID,
		Status:    body.Status,
	}
	var reply models.Order
	if err := h.bus.Request(c.Request.Context(), models.PatternUpdateOrder, &req, &reply); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (h *Handler) checkoutOrder(c *gin.Context) {
	claims := mustClaims(c)
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		writeBadRequest(c, "Invalid request body")
		return
	}

	req := service.CheckoutRequest{
		OrderID:   orderID,
		CompanyID: claims.AccountID,
		Quantity:  body.Quantity,
	}
	var reply service.CheckoutReply
	if err := h.bus.Request(c.Request.Context(), models.PatternCheckoutOrder, &req, &reply); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (h *Handler) userProfile(c *gin.Context) {
	claims := mustClaims(c)

	var reply service.UserProfileReply
	if err := h.bus.Request(c.Request.Context(), models.PatternUserProfile,
		&service.GetUserRequest{AccountID: claims.AccountID}, &reply); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (h *Handler) createBilling(c *gin.Context) {
	var ev models.CreateBillingEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		writeBadRequest(c, "Invalid request body")
		return
	}

	var reply models.Billing
	if err := h.bus.Request(c.Request.Context(), models.PatternCreateBilling, &ev, &reply); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reply)
}

func (h *Handler) getBilling(c *gin.Context) {
	accountID, err := strconv.ParseInt(c.Query("accountId"), 10, 64)
	if err != nil {
		writeBadRequest(c, "Invalid accountId")
		return
	}

	var reply service.GetBillingReply
	if err := h.bus.Request(c.Request.Context(), models.PatternGetBilling,
		&service.GetBillingRequest{AccountID: accountID}, &reply); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (h *Handler) checkoutPDF(c *gin.Context) {
	claims := mustClaims(c)

	var ev models.CheckoutPaymentEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		writeBadRequest(c, "Invalid request body")
		return
	}
	ev.CompanyID = claims.AccountID

	var reply service.DocumentReply
	if err := h.bus.Request(c.Request.Context(), models.PatternCheckoutPDF, &ev, &reply); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeBadRequest(c, "Invalid order ID")
		return 0, false
	}
	return id, true
}
