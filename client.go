package sessionkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Litwebs/sessionkit/internal/envelope"
	"github.com/rs/zerolog"
)

// Remote operation paths. The classifier in transport/ keys off these.
const (
	pathAuthenticated      = "/auth/authenticated"
	pathMe                 = "/auth/me"
	pathLogin              = "/auth/login"
	pathVerifyTwoFactor    = "/auth/2fa/verify"
	pathToggleTwoFactor    = "/auth/2fa/toggle"
	pathLogout             = "/auth/logout"
	pathRefresh            = "/auth/refresh"
	pathChangePassword     = "/auth/change-password"
	pathConfirmEmailChange = "/auth/confirm-email-change"
	pathForgotPassword     = "/auth/forgot-password"
	pathResetPassword      = "/auth/reset-password"
	pathVerifyResetToken   = "/auth/reset-password/verify"
)

// apiClient issues envelope-wrapped REST calls through the pipeline. The
// credential itself lives in the http.Client's cookie jar and is never
// touched here.
type apiClient struct {
	base *url.URL
	http *http.Client
	log  zerolog.Logger
}

func (c *apiClient) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *apiClient) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *apiClient) put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	ref, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("bad path %q: %w", path, err)
	}

	var payload *bytes.Reader
	if body != nil {
		raw, merr := json.Marshal(body)
		if merr != nil {
			return fmt.Errorf("encode %s body: %w", path, merr)
		}
		payload = bytes.NewReader(raw)
	}

	var req *http.Request
	if payload != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.base.ResolveReference(ref).String(), payload)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.base.ResolveReference(ref).String(), nil)
	}
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	env, decodeErr := envelope.Decode(resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{Status: resp.StatusCode, Path: ref.Path}
		if decodeErr == nil {
			apiErr.Message = env.Message
		}
		return apiErr
	}
	if decodeErr != nil {
		return decodeErr
	}
	if !env.Success {
		return &APIError{Status: resp.StatusCode, Path: ref.Path, Message: env.Message}
	}
	return env.Unwrap(out)
}

// Wire payloads.

type probePayload struct {
	Authenticated bool  `json:"authenticated"`
	User          *User `json:"user,omitempty"`
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

type loginPayload struct {
	User        *User  `json:"user,omitempty"`
	Requires2FA bool   `json:"requires2FA,omitempty"`
	TempToken   string `json:"tempToken,omitempty"`
	ExpiresAt   string `json:"expiresAt,omitempty"`
}

type verifyTwoFactorRequest struct {
	Code      string `json:"code"`
	TempToken string `json:"tempToken"`
}

type verifyTwoFactorPayload struct {
	User *User `json:"user,omitempty"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type confirmEmailChangeRequest struct {
	Token string `json:"token"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}
