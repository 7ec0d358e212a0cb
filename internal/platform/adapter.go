package platform

import (
	"context"
	"fmt"
	"os"

	"crowpost/internal/media"
)

// Known platform identifiers.
const (
	Facebook  = "facebook"
	Instagram = "instagram"
	X         = "x"
	LinkedIn  = "linkedin"
	WhatsApp  = "whatsapp"
	Telegram  = "telegram"
)

// Adapter is the narrow capability the publishing engine needs from each
// social platform. Concrete HTTP/OAuth plumbing lives behind this interface
// and is deliberately thin here; the engine only cares about the outcome.
//
// Publish returns a human-readable message on success, or an error whose
// message is recorded as the platform failure reason. Implementations must
// honor ctx cancellation for anything that blocks.
type Adapter interface {
	Publish(ctx context.Context, mediaPath, caption string, isVideo bool) (string, error)
	ValidateMedia(mediaPath string) (bool, string)
	Status() Status
}

// Status reports whether an adapter is usable.
type Status struct {
	CredentialsLoaded bool   `json:"credentials_loaded"`
	Available         bool   `json:"available"`
	ErrorMessage      string `json:"error_message,omitempty"`
}

// Limits describes per-platform posting constraints.
type Limits struct {
	MaxCaptionLength int
	MaxImageBytes    int64
	MaxVideoBytes    int64
	RequiresMedia    bool
}

// Registry maps platform id -> adapter. It is assembled explicitly at
// startup and passed to the dispatcher; there is no global registry.
type Registry map[string]Adapter

// Available aggregates adapter statuses, keyed by platform id.
func (r Registry) Available() map[string]Status {
	out := make(map[string]Status, len(r))
	for name, a := range r {
		out[name] = a.Status()
	}
	return out
}

// ValidateMedia runs per-platform media validation for the given platforms.
// Unknown platforms validate as (false, "unsupported platform").
func (r Registry) ValidateMedia(mediaPath string, platforms []string) map[string]string {
	out := make(map[string]string, len(platforms))
	for _, p := range platforms {
		a, ok := r[p]
		if !ok {
			out[p] = "unsupported platform: " + p
			continue
		}
		if ok, reason := a.ValidateMedia(mediaPath); !ok {
			out[p] = reason
		} else {
			out[p] = ""
		}
	}
	return out
}

// validateAgainstLimits is the shared media check: the file must exist, be a
// supported media type, and fit the platform's size limits.
func validateAgainstLimits(mediaPath string, lim Limits) (bool, string) {
	if mediaPath == "" {
		if lim.RequiresMedia {
			return false, "media file required"
		}
		return true, ""
	}
	fi, err := os.Stat(mediaPath)
	if err != nil {
		return false, fmt.Sprintf("media file not found: %s", mediaPath)
	}
	if media.IsVideo(mediaPath) {
		if lim.MaxVideoBytes > 0 && fi.Size() > lim.MaxVideoBytes {
			return false, fmt.Sprintf("video exceeds %d bytes", lim.MaxVideoBytes)
		}
		return true, ""
	}
	if lim.MaxImageBytes > 0 && fi.Size() > lim.MaxImageBytes {
		return false, fmt.Sprintf("image exceeds %d bytes", lim.MaxImageBytes)
	}
	return true, ""
}
