package payments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MockProvider simulates a PSP for local development and tests. Tokens that
// start with "decline" are rejected so the declined path stays reachable
// without a live PSP account.
type MockProvider struct {
	clock func() time.Time
}

// NewMockProvider constructs a MockProvider. A nil clock defaults to time.Now.
func NewMockProvider(clock func() time.Time) *MockProvider {
	if clock == nil {
		clock = time.Now
	}
	return &MockProvider{clock: clock}
}

// Authorize accepts any token not marked as declining and returns a
// deterministic intent id derived from the session and token.
func (p *MockProvider) Authorize(_ context.Context, req AuthorizeRequest) (Authorization, error) {
	if p == nil {
		return Authorization{}, errors.New("mock: provider is nil")
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return Authorization{}, errors.New("mock: payment token is required")
	}
	if strings.HasPrefix(token, "decline") {
		return Authorization{}, fmt.Errorf("mock: token %s: %w", token, ErrDeclined)
	}

	sum := sha256.Sum256([]byte(req.SessionID + "|" + token))
	return Authorization{
		Provider:     "mock",
		IntentID:     "pi_mock_" + hex.EncodeToString(sum[:8]),
		Status:       StatusAuthorized,
		Amount:       req.Amount,
		Currency:     strings.ToLower(req.Currency),
		AuthorizedAt: p.clock().UTC(),
	}, nil
}
