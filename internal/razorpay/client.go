package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"

	"github.com/razorpay/razorpay-go"
)

var (
	ErrOrderCreationFailed        = errors.New("failed to create order")
	ErrSubscriptionCreationFailed = errors.New("failed to create subscription")
	ErrCustomerCreationFailed     = errors.New("failed to create customer")
)

// Client wraps the Razorpay SDK for the three remote operations this
// service needs, plus the two HMAC signature schemes. No retry policy
// lives here; gateway failures propagate to the caller.
type Client struct {
	client        *razorpay.Client
	keyID         string
	keySecret     string
	webhookSecret string
}

type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
}

func NewClient(config Config) *Client {
	if config.KeyID == "" {
		log.Println("WARNING: Razorpay Key ID is empty!")
	}
	if config.KeySecret == "" {
		log.Println("WARNING: Razorpay Key Secret is empty!")
	}
	if config.WebhookSecret == "" {
		log.Println("WARNING: Razorpay Webhook Secret is empty!")
	}

	return &Client{
		client:        razorpay.NewClient(config.KeyID, config.KeySecret),
		keyID:         config.KeyID,
		keySecret:     config.KeySecret,
		webhookSecret: config.WebhookSecret,
	}
}

// KeyID returns the public key the browser needs to open the embedded
// checkout. It carries no secret material.
func (c *Client) KeyID() string {
	return c.keyID
}

func (c *Client) CreateOrder(ctx context.Context, amount int64, currency string, receipt string, notes map[string]interface{}) (map[string]interface{}, error) {
	log.Printf("Creating Razorpay order: Amount %d %s, Receipt: %s", amount, currency, receipt)

	data := map[string]interface{}{
		"amount":   amount, // smallest currency unit (paise)
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	}

	order, err := c.client.Order.Create(data, nil)
	if err != nil {
		log.Printf("Failed to create Razorpay order: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrOrderCreationFailed, err)
	}

	log.Printf("Successfully created Razorpay order: ID %s", order["id"])
	return order, nil
}

func (c *Client) CreateSubscription(ctx context.Context, planID string, customerID string, totalCount int, customerNotify bool, notes map[string]interface{}) (map[string]interface{}, error) {
	log.Printf("Creating Razorpay subscription: Plan ID %s, Customer ID %s, Total count %d",
		planID, customerID, totalCount)

	notifyValue := 0
	if customerNotify {
		notifyValue = 1
	}

	data := map[string]interface{}{
		"plan_id":         planID,
		"customer_id":     customerID,
		"total_count":     totalCount,
		"customer_notify": notifyValue,
		"notes":           notes,
	}

	subscription, err := c.client.Subscription.Create(data, nil)
	if err != nil {
		log.Printf("Failed to create Razorpay subscription: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrSubscriptionCreationFailed, err)
	}

	log.Printf("Successfully created Razorpay subscription: ID %s", subscription["id"])
	return subscription, nil
}

func (c *Client) CreateCustomer(ctx context.Context, name, email string, notes map[string]interface{}) (map[string]interface{}, error) {
	log.Printf("Creating Razorpay customer: %s (%s)", name, email)

	data := map[string]interface{}{
		"name":  name,
		"email": email,
		"notes": notes,
	}

	customer, err := c.client.Customer.Create(data, nil)
	if err != nil {
		log.Printf("Failed to create Razorpay customer: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrCustomerCreationFailed, err)
	}

	log.Printf("Successfully created Razorpay customer: ID %s", customer["id"])
	return customer, nil
}

// VerifyPaymentSignature checks the checkout callback signature:
// hex(HMAC-SHA256(keySecret, "{orderID}|{paymentID}")).
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	expected := hmacHex(c.keySecret, []byte(orderID+"|"+paymentID))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks an inbound webhook against the raw
// request body: hex(HMAC-SHA256(webhookSecret, body)).
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected := hmacHex(c.webhookSecret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func hmacHex(secret string, message []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}
