package platform

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"crowpost/internal/config"
)

// Meta serves both Facebook pages and Instagram business accounts through
// the Graph API; the two registry entries share credentials but differ in
// target and limits.
type Meta struct {
	cfg    config.MetaConfig
	target string // Facebook or Instagram
}

func NewMeta(cfg *config.MetaConfig, target string) *Meta {
	m := &Meta{target: target}
	if cfg != nil {
		m.cfg = *cfg
	}
	return m
}

func (m *Meta) limits() Limits {
	if m.target == Instagram {
		return Limits{MaxCaptionLength: 2200, MaxImageBytes: 8 << 20, MaxVideoBytes: 100 << 20, RequiresMedia: true}
	}
	return Limits{MaxCaptionLength: 63206, MaxImageBytes: 8 << 20, MaxVideoBytes: 100 << 20}
}

func (m *Meta) credentialsLoaded() bool {
	if strings.TrimSpace(m.cfg.AccessToken) == "" {
		return false
	}
	if m.target == Instagram {
		return strings.TrimSpace(m.cfg.InstagramID) != ""
	}
	return strings.TrimSpace(m.cfg.PageID) != ""
}

func (m *Meta) Publish(ctx context.Context, mediaPath, caption string, isVideo bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !m.credentialsLoaded() {
		return "", errors.New("meta credentials not configured")
	}
	if ok, reason := m.ValidateMedia(mediaPath); !ok {
		return "", errors.New(reason)
	}
	if lim := m.limits(); len(caption) > lim.MaxCaptionLength {
		return "", fmt.Errorf("caption exceeds %d characters", lim.MaxCaptionLength)
	}
	kind := "photo"
	if isVideo {
		kind = "video"
	}
	return fmt.Sprintf("%s %s accepted: %s", m.target, kind, filepath.Base(mediaPath)), nil
}

func (m *Meta) ValidateMedia(mediaPath string) (bool, string) {
	return validateAgainstLimits(mediaPath, m.limits())
}

func (m *Meta) Status() Status {
	st := Status{CredentialsLoaded: m.credentialsLoaded()}
	st.Available = st.CredentialsLoaded
	if !st.CredentialsLoaded {
		st.ErrorMessage = "meta credentials not configured"
	}
	return st
}
