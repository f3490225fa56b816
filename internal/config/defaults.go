package config

const (
	defaultBackendURL            = "http://localhost:5000"
	defaultBackendTimeoutSeconds = 0
	defaultBackendRetryAttempts  = 1
	defaultStateDir              = "~/.local/share/saasywrap"
	defaultSessionName           = "default"
	defaultUserID                = "default-user"
	defaultLogDir                = "~/.local/share/saasywrap/logs"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultNotifyRequestTimeout  = 10
	maxBackendRetryAttempts      = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Backend: Backend{
			BaseURL:        defaultBackendURL,
			TimeoutSeconds: defaultBackendTimeoutSeconds,
			RetryAttempts:  defaultBackendRetryAttempts,
		},
		Session: Session{
			StateDir: defaultStateDir,
			Name:     defaultSessionName,
			UserID:   defaultUserID,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			Dir:    defaultLogDir,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Batch:          true,
			Errors:         true,
		},
	}
}
