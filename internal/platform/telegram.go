package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"crowpost/internal/config"
)

// TelegramAdapter posts media to a Telegram chat or channel via the Bot API.
// Unlike the Graph-API platforms this one is fully wired: telebot does the
// upload from disk.
type TelegramAdapter struct {
	cfg config.TelegramConfig

	mu      sync.Mutex
	bot     *tele.Bot
	initErr string
}

func NewTelegram(cfg *config.TelegramConfig) *TelegramAdapter {
	a := &TelegramAdapter{}
	if cfg != nil {
		a.cfg = *cfg
	}
	return a
}

var telegramLimits = Limits{MaxCaptionLength: 1024, MaxImageBytes: 10 << 20, MaxVideoBytes: 50 << 20, RequiresMedia: true}

func (a *TelegramAdapter) credentialsLoaded() bool {
	return strings.TrimSpace(a.cfg.Token) != "" && a.cfg.ChatID != 0
}

// connect builds the bot lazily so a missing network at startup does not
// take the whole engine down; the first Publish pays the getMe round trip.
func (a *TelegramAdapter) connect() (*tele.Bot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bot != nil {
		return a.bot, nil
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  a.cfg.Token,
		Poller: nil, // send-only
		Client: nil,
	})
	if err != nil {
		a.initErr = err.Error()
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	a.initErr = ""
	a.bot = b
	return b, nil
}

func (a *TelegramAdapter) Publish(ctx context.Context, mediaPath, caption string, isVideo bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !a.credentialsLoaded() {
		return "", errors.New("telegram credentials not configured")
	}
	if ok, reason := a.ValidateMedia(mediaPath); !ok {
		return "", errors.New(reason)
	}
	if len(caption) > telegramLimits.MaxCaptionLength {
		return "", fmt.Errorf("caption exceeds %d characters", telegramLimits.MaxCaptionLength)
	}

	b, err := a.connect()
	if err != nil {
		return "", err
	}

	var payload any
	if isVideo {
		payload = &tele.Video{File: tele.FromDisk(mediaPath), Caption: caption}
	} else {
		payload = &tele.Photo{File: tele.FromDisk(mediaPath), Caption: caption}
	}

	type sendResult struct {
		msg *tele.Message
		err error
	}
	done := make(chan sendResult, 1)
	go func() {
		m, err := b.Send(tele.ChatID(a.cfg.ChatID), payload)
		done <- sendResult{m, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("telegram send: %w", res.err)
		}
		return fmt.Sprintf("telegram message %d sent at %s", res.msg.ID, res.msg.Time().Format(time.RFC3339)), nil
	}
}

func (a *TelegramAdapter) ValidateMedia(mediaPath string) (bool, string) {
	return validateAgainstLimits(mediaPath, telegramLimits)
}

func (a *TelegramAdapter) Status() Status {
	st := Status{CredentialsLoaded: a.credentialsLoaded()}
	a.mu.Lock()
	initErr := a.initErr
	a.mu.Unlock()
	st.Available = st.CredentialsLoaded && initErr == ""
	switch {
	case !st.CredentialsLoaded:
		st.ErrorMessage = "telegram credentials not configured"
	case initErr != "":
		st.ErrorMessage = initErr
	}
	return st
}
