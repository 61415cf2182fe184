package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/maos-da-obra/internal/apperr"
)

// Статусы счёта на стороне шлюза.
const (
	StatusPaid    = "paid"
	StatusPending = "pending"
	StatusFailed  = "failed"
)

type Customer struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Document string `json:"document"`
	Phone    string `json:"phone,omitempty"`
}

type Card struct {
	Number     string `json:"number"`
	HolderName string `json:"holder_name"`
	Expiry     string `json:"expiry"` // YYYY-MM
	CVV        string `json:"cvv"`
}

type Installment struct {
	Number int             `json:"number"`
	Amount decimal.Decimal `json:"amount"`
}

type Recurrence struct {
	PeriodicityMonths int `json:"periodicity_months"`
}

type CardRequest struct {
	TransactionID string          `json:"transaction_id"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Card          Card            `json:"card"`
	Customer      Customer        `json:"customer"`
	Installments  []Installment   `json:"installments,omitempty"`
	Recurrence    *Recurrence     `json:"recurrence,omitempty"`
}

type PixRequest struct {
	TransactionID    string          `json:"transaction_id"`
	Description      string          `json:"description"`
	Amount           decimal.Decimal `json:"amount"`
	Customer         Customer        `json:"customer"`
	ExpiresInMinutes int             `json:"expires_in_minutes"`
}

// Charge - ответ шлюза по счёту.
type Charge struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	Status        string          `json:"status"`
	QRCode        string          `json:"qr_code,omitempty"`
	QRCodeText    string          `json:"qr_code_text,omitempty"`
	Raw           json.RawMessage `json:"-"`
}

func (c *Charge) Paid() bool { return strings.EqualFold(c.Status, StatusPaid) }

// Service - клиент REST API платёжного шлюза (карта и PIX).
type Service struct {
	baseURL   string
	publicKey string
	secretKey string
	http      *http.Client
}

func NewService(baseURL, publicKey, secretKey string) *Service {
	return &Service{
		baseURL:   strings.TrimRight(baseURL, "/"),
		publicKey: publicKey,
		secretKey: secretKey,
		http:      &http.Client{Timeout: 20 * time.Second},
	}
}

// PublicKey нужен клиенту для токенизации карты.
func (s *Service) PublicKey() string { return s.publicKey }

func (s *Service) CreateCard(ctx context.Context, req CardRequest) (*Charge, error) {
	return s.create(ctx, "/charges/card", req)
}

func (s *Service) CreatePix(ctx context.Context, req PixRequest) (*Charge, error) {
	return s.create(ctx, "/charges/pix", req)
}

func (s *Service) GetCharge(ctx context.Context, gatewayID string) (*Charge, error) {
	status, body, err := s.do(ctx, http.MethodGet, "/charges/"+gatewayID, nil)
	if err != nil {
		return nil, err
	}
	return decodeCharge(status, body)
}

// Forward проксирует тело как есть и возвращает ответ шлюза без разбора.
// Ошибки: ConfigurationError, NetworkError; HTTP-статус шлюза отдаётся вызывающему.
func (s *Service) Forward(ctx context.Context, path string, body []byte) (int, []byte, error) {
	return s.do(ctx, http.MethodPost, path, body)
}

func (s *Service) create(ctx context.Context, path string, req any) (*Charge, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("payments: encode: %w", err)
	}
	status, body, err := s.do(ctx, http.MethodPost, path, raw)
	if err != nil {
		return nil, err
	}
	return decodeCharge(status, body)
}

func (s *Service) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	if s.secretKey == "" {
		return 0, nil, apperr.NotConfigured("PAYMENT_SECRET_KEY")
	}
	if s.baseURL == "" {
		return 0, nil, apperr.NotConfigured("PAYMENT_API_URL")
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, rd)
	if err != nil {
		return 0, nil, fmt.Errorf("payments: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return 0, nil, &apperr.NetworkError{Op: "payments " + path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	out, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, &apperr.NetworkError{Op: "payments read " + path, Err: err}
	}
	return resp.StatusCode, out, nil
}

func decodeCharge(status int, body []byte) (*Charge, error) {
	if status >= 400 {
		return nil, Rejection(status, body)
	}
	var c Charge
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, fmt.Errorf("payments: decode charge: %w", err)
	}
	if c.ID == "" {
		return nil, errors.New("payments: charge without id")
	}
	c.Raw = body
	return &c, nil
}

// Rejection строит GatewayRejection с человекочитаемым текстом шлюза.
func Rejection(status int, body []byte) *apperr.GatewayRejection {
	return &apperr.GatewayRejection{Status: status, Message: rejectionMessage(body), Body: body}
}

func rejectionMessage(body []byte) string {
	var e struct {
		Message  string `json:"message"`
		Mensagem string `json:"mensagem"`
		Error    any    `json:"error"`
		Errors   []struct {
			Description string `json:"description"`
			Message     string `json:"message"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &e) == nil {
		switch {
		case e.Mensagem != "":
			return e.Mensagem
		case e.Message != "":
			return e.Message
		case len(e.Errors) > 0 && e.Errors[0].Description != "":
			return e.Errors[0].Description
		case len(e.Errors) > 0 && e.Errors[0].Message != "":
			return e.Errors[0].Message
		}
		if s, ok := e.Error.(string); ok && s != "" {
			return s
		}
	}
	return "Pagamento recusado pela operadora."
}
