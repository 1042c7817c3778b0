package internal

import (
	"fmt"
	"time"

	"messenger/notification"

	"github.com/Netflix/go-env"
)

type Config struct {
	LogLevel               string        `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath         string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath          string        `env:"BLUGE_FILEPATH,required=true"`
	TrashRetention         time.Duration `env:"TRASH_RETENTION,default=720h"`
	LimitMessages          *int          `env:"LIMIT_MESSAGES"`
	NotificationBufferSize int           `env:"NOTIFICATION_BUFFER_SIZE,default=100"`
	DeliveryTimeout        time.Duration `env:"DELIVERY_TIMEOUT,default=10s"`
	RestartInterval        time.Duration `env:"RESTART_INTERVAL,default=1s"`
	SMTPAddr               string        `env:"SMTP_ADDR"`
	SMTPUsername           string        `env:"SMTP_USERNAME"`
	SMTPPassword           string        `env:"SMTP_PASSWORD"`
	SMTPFrom               string        `env:"SMTP_FROM,default=noreply@messenger.local"`
	SMTPStartTLS           bool          `env:"SMTP_STARTTLS,default=true"`
	MetricsAddr            string        `env:"METRICS_ADDR"`
	DebugAddr              string        `env:"DEBUG_ADDR,default=localhost:8081"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	return config, config.Validate()
}

func (c Config) Validate() error {
	if c.TrashRetention <= 0 {
		return fmt.Errorf("TRASH_RETENTION must be positive, got %s", c.TrashRetention)
	}
	if c.LimitMessages != nil && *c.LimitMessages <= 0 {
		return fmt.Errorf("LIMIT_MESSAGES must be positive, got %d", *c.LimitMessages)
	}
	if c.NotificationBufferSize <= 0 {
		return fmt.Errorf("NOTIFICATION_BUFFER_SIZE must be positive, got %d", c.NotificationBufferSize)
	}
	if c.DeliveryTimeout <= 0 {
		return fmt.Errorf("DELIVERY_TIMEOUT must be positive, got %s", c.DeliveryTimeout)
	}
	return nil
}

func (c Config) SMTP() notification.SMTPConfig {
	return notification.SMTPConfig{
		Addr:     c.SMTPAddr,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,
		From:     c.SMTPFrom,
		StartTLS: c.SMTPStartTLS,
	}
}
