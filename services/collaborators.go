package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Asset codes credited by the engine.
const (
	AssetHOPIUM = "HOPIUM"
	AssetTON    = "TON"
)

// WalletCategoryTask tags ledger entries produced by task claims.
const WalletCategoryTask = 2001

// Notification template names.
const (
	NoticeTemplateStreakReward   = "STREAK_REWARD"
	NoticeTemplateSharePnlReward = "SHARE_PNL_REWARD"
	NoticeTemplateTaskReward     = "TASK_REWARD"
)

// ChangeBalanceRequest is the ledger credit call. The wallet service is not
// idempotent per call; the audit log is the local idempotency record.
type ChangeBalanceRequest struct {
	UserID            string  `json:"userId"`
	AssetID           string  `json:"assetId"`
	Category          int     `json:"category"`
	ValueChange       float64 `json:"valueChange"`
	LockedValueChange float64 `json:"lockedValueChange"`
	Note              string  `json:"note"`
}

// WalletService is the external ledger boundary.
type WalletService interface {
	ChangeBalance(ctx context.Context, req ChangeBalanceRequest) error
}

// PushCommissionRequest mirrors referral/commission bookkeeping input.
type PushCommissionRequest struct {
	Amount       float64 `json:"amount"`
	FromUserID   uint    `json:"fromUserId"`
	ToUserID     uint    `json:"toUserId"`
	ReferralCode string  `json:"referralCode"`
	Type         string  `json:"type"`
	AssetID      string  `json:"assetId"`
}

// CommissionService is the fire-and-forget commission boundary.
type CommissionService interface {
	PushCommission(ctx context.Context, req PushCommissionRequest) error
}

// NoticeRequest is a templated chat notification.
type NoticeRequest struct {
	TelegramID   int64                  `json:"telegramId"`
	TemplateName string                 `json:"templateName"`
	Params       map[string]interface{} `json:"params"`
}

// ChatbotService is the best-effort notification boundary.
type ChatbotService interface {
	SendNoticeTemplate(ctx context.Context, req NoticeRequest) error
}

// httpClient is shared by the HTTP collaborator implementations.
var httpClient = &http.Client{Timeout: 10 * time.Second}

func postJSON(ctx context.Context, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal payload")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "call %s", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("call %s: unexpected status %d", url, resp.StatusCode)
	}
	return nil
}

// HTTPWallet talks to the wallet service over its internal HTTP API.
type HTTPWallet struct {
	baseURL string
}

func NewHTTPWallet(baseURL string) *HTTPWallet {
	return &HTTPWallet{baseURL: baseURL}
}

func (w *HTTPWallet) ChangeBalance(ctx context.Context, req ChangeBalanceRequest) error {
	return postJSON(ctx, w.baseURL+"/internal/wallet/change-balance", req)
}

// HTTPCommission talks to the commission service.
type HTTPCommission struct {
	baseURL string
}

func NewHTTPCommission(baseURL string) *HTTPCommission {
	return &HTTPCommission{baseURL: baseURL}
}

func (c *HTTPCommission) PushCommission(ctx context.Context, req PushCommissionRequest) error {
	return postJSON(ctx, c.baseURL+"/internal/commission/push", req)
}

// HTTPChatbot talks to the chatbot notification service.
type HTTPChatbot struct {
	baseURL string
}

func NewHTTPChatbot(baseURL string) *HTTPChatbot {
	return &HTTPChatbot{baseURL: baseURL}
}

func (c *HTTPChatbot) SendNoticeTemplate(ctx context.Context, req NoticeRequest) error {
	return postJSON(ctx, c.baseURL+"/internal/chatbot/notice-template", req)
}
