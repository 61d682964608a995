package api

import (
	"context"
	"encoding/json"
)

// LoginRequest represents a device unlocking a store workspace
type LoginRequest struct {
	Token    string `json:"token"`
	DeviceID string `json:"deviceId"`
}

func (d *Dispatcher) login(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req LoginRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	return d.svc.Tokens.AuthenticateDevice(ctx, req.Token, req.DeviceID)
}

// AdminLoginRequest represents an operator login
type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (d *Dispatcher) adminLogin(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req AdminLoginRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	return d.svc.Admin.Login(ctx, req.Username, req.Password)
}

// UpdateCredentialsRequest replaces the operator login
type UpdateCredentialsRequest struct {
	AdminSessionToken string `json:"adminSessionToken"`
	NewUsername       string `json:"newUsername"`
	NewPassword       string `json:"newPassword"`
}

func (d *Dispatcher) updateAdminCredentials(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req UpdateCredentialsRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if err := d.svc.Admin.ChangeCredentials(ctx, req.AdminSessionToken, req.NewUsername, req.NewPassword); err != nil {
		return nil, err
	}
	return message("Updated"), nil
}

type messageResult struct {
	Message string `json:"message"`
}

func message(msg string) messageResult {
	return messageResult{Message: msg}
}
