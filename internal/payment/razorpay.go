package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/abgdnv/bathifarms/internal/config"
	carterrors "github.com/abgdnv/bathifarms/internal/errors"
	"github.com/abgdnv/bathifarms/pkg/retry"
)

var _ Gateway = (*Razorpay)(nil)

const ordersPath = "/v1/orders"

// Razorpay is a client of the Razorpay Orders API.
type Razorpay struct {
	baseURL   string
	keyID     string
	keySecret string
	client    *http.Client
	retry     retry.Policy
	logger    *slog.Logger
}

// NewRazorpay creates a client. client may carry its own transport (otelhttp in production);
// its Timeout is set from cfg when zero.
func NewRazorpay(cfg config.PaymentConfig, client *http.Client, logger *slog.Logger) *Razorpay {
	if client == nil {
		client = &http.Client{}
	}
	if client.Timeout == 0 {
		client.Timeout = cfg.Timeout
	}
	return &Razorpay{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		client:    client,
		retry:     retry.FromConfig(cfg.Resilience.Retry, isTemporary),
		logger:    logger.With("component", "razorpay"),
	}
}

func (r *Razorpay) KeyID() string {
	return r.keyID
}

func (r *Razorpay) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order request: %w", err)
	}

	order, err := retry.DoWithResult(ctx, r.retry, func() (*Order, error) {
		return r.createOrder(ctx, body)
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to create gateway order", "receipt", req.Receipt, "error", err)
		return nil, fmt.Errorf("%w: %w", carterrors.ErrPaymentGatewayUnavailable, err)
	}
	return order, nil
}

func (r *Razorpay) createOrder(ctx context.Context, body []byte) (*Order, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+ordersPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(r.keyID, r.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		return nil, decodeAPIError(resp)
	}
	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("gateway returned an order without id")
	}
	return &order, nil
}

func (r *Razorpay) VerifyPayment(_ context.Context, v Verification) error {
	if !verifySignature(v, r.keySecret) {
		return carterrors.ErrPaymentRejected
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload struct {
		Error struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &payload); err == nil {
		apiErr.Code = payload.Error.Code
		apiErr.Description = payload.Error.Description
	}
	if apiErr.Description == "" {
		apiErr.Description = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// isTemporary retries transport failures and 429/5xx responses but not client errors.
func isTemporary(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return !errors.Is(err, context.Canceled)
}
