package config

// Config is the full daemon configuration.
//
// Files may be JSON or YAML; YAML is coerced to JSON and decoded strictly
// (unknown fields are rejected). All durations are Go duration strings
// (e.g. "500ms", "30s", "1m").
type Config struct {
	Logging    LoggingConfig    `json:"logging"`
	Storage    StorageConfig    `json:"storage"`
	Scheduler  SchedulerConfig  `json:"scheduler"`
	Dispatcher DispatcherConfig `json:"dispatcher,omitempty"`
	Media      MediaConfig      `json:"media"`
	Platforms  PlatformsConfig  `json:"platforms"`
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console bool          `json:"console"`
	File    LogFileConfig `json:"file,omitempty"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// StorageConfig controls the persistence layer.
//
// Driver values:
//   - "file": flat JSON documents (default)
//   - "sqlite": SQLite database file (requires the sqlite build tag)
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

// SchedulerConfig controls the timer-driven control loop.
//
// Spec is a cron expression or "@every <duration>"; the default is
// "@every 60s", one pass per minute.
type SchedulerConfig struct {
	Enabled  bool   `json:"enabled"`
	Spec     string `json:"spec,omitempty"`
	Timezone string `json:"timezone,omitempty"` // IANA TZ, e.g. "Europe/Paris"
}

// DispatcherConfig controls job execution.
//
// Defaults (when fields are omitted/zero):
//   - workers: 3
//   - queue_size: 64
//   - platform_delay: "1s"
//   - adapter_timeout: "30s"
type DispatcherConfig struct {
	Workers        int    `json:"workers,omitempty"`
	QueueSize      int    `json:"queue_size,omitempty"`
	PlatformDelay  string `json:"platform_delay,omitempty"`
	AdapterTimeout string `json:"adapter_timeout,omitempty"`
}

type MediaConfig struct {
	LibraryDir string   `json:"library_dir"`
	Formats    []string `json:"formats,omitempty"`
}

// PlatformsConfig carries per-platform adapter credentials. A platform
// whose section is omitted is registered with empty credentials and will
// report itself unavailable rather than fail at startup.
type PlatformsConfig struct {
	// Default is the platform set applied to schedule-derived posts whose
	// schedule does not name platforms itself.
	Default []string `json:"default,omitempty"`

	Meta     *MetaConfig     `json:"meta,omitempty"`
	X        *XConfig        `json:"x,omitempty"`
	LinkedIn *LinkedInConfig `json:"linkedin,omitempty"`
	WhatsApp *WhatsAppConfig `json:"whatsapp,omitempty"`
	Telegram *TelegramConfig `json:"telegram,omitempty"`
}

type MetaConfig struct {
	AccessToken string `json:"access_token"`
	PageID      string `json:"page_id,omitempty"`
	InstagramID string `json:"instagram_id,omitempty"`
}

type XConfig struct {
	APIKey       string `json:"api_key"`
	APISecret    string `json:"api_secret"`
	AccessToken  string `json:"access_token"`
	AccessSecret string `json:"access_secret"`
}

type LinkedInConfig struct {
	AccessToken    string `json:"access_token"`
	OrganizationID string `json:"organization_id,omitempty"`
}

type WhatsAppConfig struct {
	AccessToken   string `json:"access_token"`
	PhoneNumberID string `json:"phone_number_id"`
}

type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
}
