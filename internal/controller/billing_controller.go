package controller

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"termivoxed-billing/internal/auth"
	"termivoxed-billing/internal/catalog"
	"termivoxed-billing/internal/service"
)

type BillingController struct {
	orderService        service.OrderService
	subscriptionService service.SubscriptionService
	verificationService service.VerificationService
}

func NewBillingController(
	orderService service.OrderService,
	subscriptionService service.SubscriptionService,
	verificationService service.VerificationService,
) *BillingController {
	return &BillingController{
		orderService:        orderService,
		subscriptionService: subscriptionService,
		verificationService: verificationService,
	}
}

func (bc *BillingController) RegisterRoutes(e *echo.Echo, authMiddleware echo.MiddlewareFunc) {
	billing := e.Group("/api/billing", authMiddleware)

	billing.POST("/orders", bc.CreateOrder)
	billing.POST("/subscriptions", bc.CreateSubscription)
	billing.GET("/subscriptions/status", bc.GetSubscriptionStatus)
	billing.POST("/payments/verify", bc.VerifyPayment)
}

type checkoutRequest struct {
	PlanID        string `json:"planId"`
	BillingPeriod string `json:"billingPeriod"`
}

func (bc *BillingController) CreateOrder(c echo.Context) error {
	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, "Invalid request body")
	}

	checkout, err := bc.orderService.CreateOrder(c.Request().Context(), auth.UID(c), req.PlanID, req.BillingPeriod)
	if err != nil {
		return billingError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":  true,
		"orderId":  checkout.OrderID,
		"amount":   checkout.Amount,
		"currency": checkout.Currency,
		"keyId":    checkout.KeyID,
	})
}

func (bc *BillingController) CreateSubscription(c echo.Context) error {
	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, "Invalid request body")
	}

	checkout, err := bc.subscriptionService.CreateSubscription(c.Request().Context(), auth.UID(c), req.PlanID, req.BillingPeriod)
	if err != nil {
		return billingError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":        true,
		"subscriptionId": checkout.SubscriptionID,
		"shortUrl":       checkout.ShortURL,
	})
}

func (bc *BillingController) GetSubscriptionStatus(c echo.Context) error {
	status, err := bc.subscriptionService.GetSubscriptionStatus(c.Request().Context(), auth.UID(c))
	if err != nil {
		return billingError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":       true,
		"plan":          status.Plan,
		"status":        status.Status,
		"expiresAt":     status.ExpiresAt,
		"billingPeriod": status.BillingPeriod,
	})
}

type verifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

func (bc *BillingController) VerifyPayment(c echo.Context) error {
	var req verifyPaymentRequest
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, "Invalid request body")
	}

	message, err := bc.verificationService.VerifyPayment(c.Request().Context(), auth.UID(c),
		req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature)
	if err != nil {
		return billingError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": message,
	})
}

// billingError maps the service sentinels onto HTTP statuses; anything
// unrecognized is an upstream/store failure surfaced as 500.
func billingError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, catalog.ErrInvalidPlan),
		errors.Is(err, catalog.ErrInvalidBillingPeriod),
		errors.Is(err, service.ErrCustomPricing),
		errors.Is(err, service.ErrNoRecurringPlan),
		errors.Is(err, service.ErrAlreadySubscribed),
		errors.Is(err, service.ErrMissingFields),
		errors.Is(err, service.ErrSignatureMismatch):
		return failure(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrOrderOwnership):
		return failure(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrOrderNotFound):
		return failure(c, http.StatusNotFound, err.Error())
	default:
		log.Printf("Billing request failed: %v", err)
		return failure(c, http.StatusInternalServerError, err.Error())
	}
}

func failure(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
