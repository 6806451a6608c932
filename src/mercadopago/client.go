package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"vip-gate/src/plan"
)

const defaultBaseURL = "https://api.mercadopago.com"

// Client calls the MercadoPago REST API with a bearer access token.
type Client struct {
	AccessToken string
	PublicURL   string // externally reachable base URL for callbacks
	BaseURL     string
	HTTPClient  *http.Client
}

func NewClient(accessToken, publicURL string) *Client {
	return &Client{
		AccessToken: accessToken,
		PublicURL:   publicURL,
		BaseURL:     defaultBaseURL,
		HTTPClient:  http.DefaultClient,
	}
}

// Metadata travels with the payment so the webhook can re-check what was
// sold without trusting the transaction amount alone.
type Metadata struct {
	PlanID         string  `json:"plan_id"`
	ExpectedAmount float64 `json:"expected_amount"`
	UserID         string  `json:"user_id"`
}

// Payment is the subset of MercadoPago's payment resource needed to decide
// an access grant.
type Payment struct {
	Status            string   `json:"status"`
	ExternalReference string   `json:"external_reference"`
	TransactionAmount float64  `json:"transaction_amount"`
	Metadata          Metadata `json:"metadata"`
}

type preferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	CurrencyID string  `json:"currency_id"`
	UnitPrice  float64 `json:"unit_price"`
}

type backURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type preferenceRequest struct {
	Items             []preferenceItem `json:"items"`
	ExternalReference string           `json:"external_reference"`
	NotificationURL   string           `json:"notification_url"`
	AutoReturn        string           `json:"auto_return"`
	BackURLs          backURLs         `json:"back_urls"`
	Metadata          Metadata         `json:"metadata"`
}

// CreatePreference registers a checkout preference for the plan on behalf of
// userID and returns the hosted payment page URL.
func (c *Client) CreatePreference(ctx context.Context, p plan.Plan, userID string) (string, error) {
	payload := preferenceRequest{
		Items: []preferenceItem{{
			Title:      p.Title,
			Quantity:   1,
			CurrencyID: "BRL",
			UnitPrice:  p.Price,
		}},
		ExternalReference: userID,
		NotificationURL:   c.PublicURL + "/mp/webhook",
		AutoReturn:        "approved",
		BackURLs: backURLs{
			Success: c.PublicURL + "/mp/success",
			Failure: c.PublicURL + "/mp/failure",
			Pending: c.PublicURL + "/mp/pending",
		},
		Metadata: Metadata{PlanID: p.ID, ExpectedAmount: p.Price, UserID: userID},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/checkout/preferences", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("creating preference: unexpected status code: %d", resp.StatusCode)
	}

	var pref struct {
		InitPoint string `json:"init_point"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&pref); err != nil {
		return "", fmt.Errorf("failed to decode preference response: %w", err)
	}
	return pref.InitPoint, nil
}

// GetPayment fetches the current state of a payment by id.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	url := fmt.Sprintf("%s/v1/payments/%s", c.BaseURL, paymentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching payment %s: unexpected status code: %d", paymentID, resp.StatusCode)
	}

	var payment Payment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, fmt.Errorf("failed to decode payment response: %w", err)
	}
	return &payment, nil
}
