package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/embedstyle/stylehost/adapter"
	"github.com/embedstyle/stylehost/adapter/redis"
	"github.com/embedstyle/stylehost/adapter/webhook"
	"github.com/embedstyle/stylehost/archive"
	"github.com/embedstyle/stylehost/config"
	"github.com/embedstyle/stylehost/telemetry"
)

// buildTelemetry constructs the telemetry policy named by --telemetry-policy
// (falling back to the config file), or nil if telemetry is disabled.
func buildTelemetry(cfg *config.Config, c *cli.Context) (telemetry.Policy, error) {
	name := c.String("telemetry-policy")
	if name == "" {
		name = cfg.Telemetry.Policy
	}

	sink, err := buildTelemetrySink(cfg)
	if err != nil {
		return nil, err
	}

	switch name {
	case "", "none":
		return nil, nil

	case "strict":
		return telemetry.NewStrictPolicy(sink), nil

	case "buffered":
		bufCfg := telemetry.BufferedConfig{
			MaxBufferEvents: cfg.Telemetry.BufferEvents,
			MaxBufferBytes:  cfg.Telemetry.BufferBytes,
		}
		if bufCfg.MaxBufferEvents <= 0 && bufCfg.MaxBufferBytes <= 0 {
			bufCfg = telemetry.DefaultBufferedConfig()
		}
		return telemetry.NewBufferedPolicy(sink, bufCfg)

	default:
		return nil, fmt.Errorf("unknown telemetry policy: %s (must be strict, buffered, or none)", name)
	}
}

func buildTelemetrySink(cfg *config.Config) (telemetry.Sink, error) {
	switch cfg.Telemetry.Output {
	case "", "stdout":
		return telemetry.NewWriterSink(os.Stdout), nil
	case "stderr":
		return telemetry.NewWriterSink(os.Stderr), nil
	default:
		f, err := os.OpenFile(cfg.Telemetry.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open telemetry output %q: %w", cfg.Telemetry.Output, err)
		}
		return telemetry.NewWriterSink(f), nil
	}
}

// buildArchive constructs the archive store named by --archive-backend
// (falling back to the config file), or nil if archiving is disabled.
func buildArchive(cfg *config.Config, c *cli.Context) (archive.Store, error) {
	backend := c.String("archive-backend")
	if backend == "" {
		backend = cfg.Archive.Backend
	}

	switch backend {
	case "", "none":
		return nil, nil

	case "fs":
		root := c.String("archive-root")
		if root == "" {
			root = cfg.Archive.Root
		}
		if root == "" {
			return nil, fmt.Errorf("archive backend fs requires --archive-root or archive.root in config")
		}
		return archive.NewFSStore(root), nil

	case "s3":
		s3cfg := archive.S3Config{
			Bucket:       cfg.Archive.Bucket,
			Prefix:       cfg.Archive.Prefix,
			Region:       cfg.Archive.Region,
			Endpoint:     cfg.Archive.Endpoint,
			UsePathStyle: cfg.Archive.PathStyle,
		}
		return archive.NewS3Store(context.Background(), s3cfg)

	default:
		return nil, fmt.Errorf("unknown archive backend: %s (must be fs, s3, or none)", backend)
	}
}

// buildAdapters constructs the completion adapters named by --adapter-type
// (falling back to the config file), or an empty slice if none are
// configured.
func buildAdapters(cfg *config.Config, c *cli.Context) ([]adapter.Adapter, error) {
	kind := c.String("adapter-type")
	if kind == "" {
		kind = cfg.Adapter.Type
	}

	switch kind {
	case "", "none":
		return nil, nil

	case "webhook":
		url := c.String("adapter-url")
		if url == "" {
			url = cfg.Adapter.URL
		}
		a, err := webhook.New(webhook.Config{
			URL:     url,
			Headers: cfg.Adapter.Headers,
			Timeout: cfg.Adapter.Timeout.Duration,
			Retries: retriesOrDefault(cfg.Adapter.Retries, webhook.DefaultRetries),
		})
		if err != nil {
			return nil, err
		}
		return []adapter.Adapter{a}, nil

	case "redis":
		url := c.String("adapter-url")
		if url == "" {
			url = cfg.Adapter.URL
		}
		a, err := redis.New(redis.Config{
			URL:     url,
			Channel: cfg.Adapter.Channel,
			Timeout: cfg.Adapter.Timeout.Duration,
			Retries: retriesOrDefault(cfg.Adapter.Retries, redis.DefaultRetries),
		})
		if err != nil {
			return nil, err
		}
		return []adapter.Adapter{a}, nil

	default:
		return nil, fmt.Errorf("unknown adapter type: %s (must be webhook, redis, or none)", kind)
	}
}

func retriesOrDefault(retries *int, fallback int) int {
	if retries == nil {
		return fallback
	}
	return *retries
}
