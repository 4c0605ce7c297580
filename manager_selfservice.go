package sessionkit

import (
	"context"
	"net/url"
)

// SelfUpdate carries the fields a user may change on their own record.
// Zero-valued fields are omitted from the request.
type SelfUpdate struct {
	Name        string         `json:"name,omitempty"`
	Email       string         `json:"email,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

// UpdateSelf mutates the current user's record and re-hydrates it. A
// failure keeps the authenticated session and records the error message.
func (m *Manager) UpdateSelf(ctx context.Context, update SelfUpdate) (Probe, error) {
	gen := m.begin()

	if err := m.api.put(ctx, pathMe, update, nil); err != nil {
		m.commitError(gen, ErrorMessage(err, "profile update failed"), false, true)
		return m.probeFromState(), err
	}

	user := m.hydrateAfter(ctx, nil)
	if user == nil {
		m.commitError(gen, "profile updated but the session could not be hydrated", false, true)
		return m.probeFromState(), ErrNotAuthenticated
	}

	m.commitAuthenticated(gen, user)
	return Probe{State: StateAuthenticated, User: user}, nil
}

// ChangePassword rotates the password for the current session. Success
// re-hydrates the user; failure keeps the session and surfaces the
// server's message.
func (m *Manager) ChangePassword(ctx context.Context, currentPassword, newPassword string) (Probe, error) {
	gen := m.begin()

	err := m.api.post(ctx, pathChangePassword, changePasswordRequest{
		CurrentPassword: currentPassword,
		NewPassword:     newPassword,
	}, nil)
	if err != nil {
		m.commitError(gen, ErrorMessage(err, "password change failed"), false, true)
		return m.probeFromState(), err
	}

	user := m.hydrateAfter(ctx, nil)
	if user == nil {
		m.commitError(gen, "password changed but the session could not be hydrated", false, true)
		return m.probeFromState(), ErrNotAuthenticated
	}

	m.commitAuthenticated(gen, user)
	return Probe{State: StateAuthenticated, User: user}, nil
}

// ConfirmEmailChange confirms a pending email change. The server revokes
// every session as a side effect, so success always forces anonymous and
// the caller must log in again.
func (m *Manager) ConfirmEmailChange(ctx context.Context, token string) (Probe, error) {
	gen := m.begin()

	if err := m.api.post(ctx, pathConfirmEmailChange, confirmEmailChangeRequest{Token: token}, nil); err != nil {
		m.commitError(gen, ErrorMessage(err, "email change confirmation failed"), false, true)
		return m.probeFromState(), err
	}

	m.commitAnonymous(gen)
	m.clearMirror(ctx)
	return Probe{State: StateAnonymous}, nil
}

// ForgotPassword requests a password-reset email. The flow never touches
// session state; it exists for hosts driving a reset screen.
func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	return m.api.post(ctx, pathForgotPassword, forgotPasswordRequest{Email: email}, nil)
}

// ResetPassword completes a reset using the emailed token.
func (m *Manager) ResetPassword(ctx context.Context, token, newPassword string) error {
	return m.api.post(ctx, pathResetPassword, resetPasswordRequest{
		Token:       token,
		NewPassword: newPassword,
	}, nil)
}

// VerifyResetToken checks whether a reset token is still usable, so hosts
// can reject a dead link before asking for a new password.
func (m *Manager) VerifyResetToken(ctx context.Context, token string) error {
	return m.api.get(ctx, pathVerifyResetToken+"?token="+url.QueryEscape(token), nil)
}
