package models

import "time"

// Message patterns. Each pattern is one broker topic; request/reply patterns
// are answered by a responder, fire-and-forget patterns are only consumed.
const (
	PatternRegister       = "register"
	PatternLogin          = "login"
	PatternAccountProfile = "account-profile"
	PatternCreateOrder    = "create-order"
	PatternUpdateOrder    = "update-order"
	PatternCheckoutOrder  = "checkout-order"
	PatternGetOrder       = "get-order"
	PatternGetOrders      = "get-orders"
	PatternCreateUser     = "create-user"
	PatternGetUser        = "get-user"
	PatternUserProfile    = "user-profile"
	PatternCreateBilling  = "create-billing"
	PatternGetBilling     = "get-billing"
	PatternCheckoutPDF    = "checkout_pdf"
	PatternCheckoutPaym   = "checkout-payment"

	PatternRegisterNotification       = "register-notification"
	PatternLoginNotification          = "login-notification"
	PatternLoginFailedNotification    = "login-failed-notification"
	PatternOrderConfirmedNotification = "order-confirmed-notification"
	PatternPaymentCreatedNotification = "payment-created-notification"
	PatternPaymentFailedNotification  = "payment-failed-notification"
)

// CheckoutPaymentEvent fans out from the checkout saga to the payments
// reactor and the notification consumer. OrderItemPrice carries the summed
// subtotals formatted with two decimals.
type CheckoutPaymentEvent struct {
	OrderItemPrice string    `json:"orderItemPrice"`
	CompanyID      int64     `json:"companyId"`
	OrderID        int64     `json:"orderId"`
	Quantity       int       `json:"quantity"`
	Status         string    `json:"status"`
	Date           time.Time `json:"date"`
}

// RegisterNotificationEvent mirrors the registration payload minus the
// password hash.
type RegisterNotificationEvent struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	CompanyName string `json:"company_name"`
}

// LoginNotificationEvent records a login attempt that passed credential
// verification.
type LoginNotificationEvent struct {
	AccountID int64  `json:"accountId"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	IP        string `json:"ip,omitempty"`
}

// LoginFailedNotificationEvent is emitted when the gate rejects a login
// after credentials already checked out.
type LoginFailedNotificationEvent struct {
	AccountID int64  `json:"accountId"`
	Username  string `json:"username"`
	Reason    string `json:"reason"`
}

// PaymentNotificationEvent is shared by payment-created and payment-failed
// notifications.
type PaymentNotificationEvent struct {
	OrderItemPrice string `json:"orderItemPrice"`
	CompanyID      int64  `json:"companyId"`
	OrderID        int64  `json:"orderId"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
	Provider       string `json:"provider"`
}

// CreateBillingEvent seeds the billing record alongside registration.
type CreateBillingEvent struct {
	AccountID   int64   `json:"accountId"`
	Amount      float64 `json:"amount,omitempty"`
	AccountType string  `json:"accountType,omitempty"`
}
