package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validatePreview(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateQueue() error {
	if c.Queue.MaxPerRun <= 0 {
		return errors.New("queue.max_per_run must be positive")
	}
	if c.Queue.ReapAfterMinutes < 0 {
		return errors.New("queue.reap_after_minutes must not be negative")
	}
	return nil
}

func (c *Config) validatePreview() error {
	if !c.Preview.Enabled {
		return nil
	}
	if c.Preview.Seconds <= 0 {
		return errors.New("preview.seconds must be positive")
	}
	if c.Preview.FPS <= 0 {
		return errors.New("preview.fps must be positive")
	}
	if c.Preview.Width < 240 {
		return errors.New("preview.width must be at least 240")
	}
	if c.Preview.MaxBytes <= 0 {
		return errors.New("preview.max_bytes must be positive")
	}
	return nil
}

func (c *Config) validateDownload() error {
	if c.Download.TimeoutSeconds <= 0 {
		return errors.New("download.timeout must be positive")
	}
	return nil
}

func (c *Config) validateWatch() error {
	if c.Watch.PollIntervalSeconds <= 0 {
		return errors.New("watch.poll_interval must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
