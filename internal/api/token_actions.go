package api

import (
	"context"
	"encoding/json"

	"pos-ledger-api/internal/services"
)

// GenerateTokenRequest mints a token directly, outside the order flow
type GenerateTokenRequest struct {
	StoreName string `json:"storeName"`
	Duration  string `json:"duration"`
}

func (d *Dispatcher) adminGenerateToken(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req GenerateTokenRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	return d.svc.Tokens.Mint(ctx, req.StoreName, req.Duration)
}

func (d *Dispatcher) adminGetTokens(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return d.svc.Tokens.List(ctx)
}

// TargetTokenRequest names the token an operator action applies to
type TargetTokenRequest struct {
	TargetToken string `json:"targetToken"`
	IsActive    *bool  `json:"isActive"`
}

func (d *Dispatcher) adminResetDevice(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req TargetTokenRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if err := d.svc.Tokens.ResetDeviceLock(ctx, req.TargetToken); err != nil {
		return nil, err
	}
	return message("Device lock reset successfully"), nil
}

func (d *Dispatcher) adminSetTokenActive(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req TargetTokenRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if req.IsActive == nil {
		return nil, services.ErrMissingFields
	}
	if err := d.svc.Tokens.SetActive(ctx, req.TargetToken, *req.IsActive); err != nil {
		return nil, err
	}
	if *req.IsActive {
		return message("Token activated"), nil
	}
	return message("Token deactivated"), nil
}
