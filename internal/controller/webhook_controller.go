package controller

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"termivoxed-billing/internal/service"
)

type WebhookController struct {
	webhookService service.WebhookService
}

func NewWebhookController(webhookService service.WebhookService) *WebhookController {
	return &WebhookController{webhookService: webhookService}
}

func (wc *WebhookController) RegisterRoutes(e *echo.Echo) {
	e.POST("/webhooks/razorpay", wc.HandleRazorpayWebhook)
}

// HandleRazorpayWebhook reads the raw body (the signature covers the
// exact bytes on the wire) and hands it to the webhook service. Anything
// other than a signature failure is answered 500 so the gateway retries
// delivery; a bad signature gets 400 and no retry.
func (wc *WebhookController) HandleRazorpayWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.String(http.StatusBadRequest, "failed to read request body")
	}

	signature := c.Request().Header.Get("X-Razorpay-Signature")
	if signature == "" {
		return c.String(http.StatusBadRequest, "missing signature")
	}

	if err := wc.webhookService.HandleWebhook(c.Request().Context(), body, signature); err != nil {
		if errors.Is(err, service.ErrInvalidWebhookSignature) ||
			errors.Is(err, service.ErrMalformedWebhookPayload) {
			return c.String(http.StatusBadRequest, "invalid signature")
		}
		log.Printf("Webhook processing error: %v", err)
		return c.String(http.StatusInternalServerError, "webhook processing failed")
	}

	return c.String(http.StatusOK, "OK")
}
