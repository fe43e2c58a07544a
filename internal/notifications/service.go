package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"snag/internal/config"
	"snag/internal/services"
	"snag/internal/services/discord"
)

const (
	colorSuccess = 0x2ECC71
	colorWarning = 0xE67E22
	colorFailure = 0xE74C3C
)

// Outcome describes a finished download for announcement purposes.
type Outcome struct {
	Title        string
	Channel      string
	URL          string
	FinalPath    string
	UsedFallback bool
	// PreviewPath, when set, is attached as a GIF. PreviewError notes a
	// preview that could not be rendered; the job itself still succeeded.
	PreviewPath  string
	PreviewError string
}

// Service defines the notification surface exposed to the engine.
type Service interface {
	NotifyPlaced(ctx context.Context, outcome Outcome) error
	NotifyFailed(ctx context.Context, jobID, url string, err error) error
	NotifyRejected(ctx context.Context, jobID, reason string) error
	TestNotification(ctx context.Context) error
}

type webhookSender interface {
	Send(ctx context.Context, msg discord.Message) error
}

// NewService builds a notification service backed by Discord when a webhook
// URL is configured. Without one, a noop implementation is returned.
func NewService(cfg *config.Config) (Service, error) {
	webhookURL := strings.TrimSpace(cfg.Discord.WebhookURL)
	if webhookURL == "" {
		return noopService{}, nil
	}

	timeout := time.Duration(cfg.Discord.RequestTimeout) * time.Second
	client, err := discord.New(webhookURL, timeout, discord.WithIdentity(cfg.Discord.Username, cfg.Discord.AvatarURL))
	if err != nil {
		return nil, fmt.Errorf("build discord client: %w", err)
	}
	return &discordService{sender: client}, nil
}

type discordService struct {
	sender webhookSender
}

func (d *discordService) NotifyPlaced(ctx context.Context, outcome Outcome) error {
	title := strings.TrimSpace(outcome.Title)
	if title == "" {
		title = "Download complete"
	}

	embed := &discord.Embed{
		Title: title,
		URL:   strings.TrimSpace(outcome.URL),
		Color: colorSuccess,
	}
	if channel := strings.TrimSpace(outcome.Channel); channel != "" {
		embed.Fields = append(embed.Fields, discord.Field{Name: "Channel", Value: channel, Inline: true})
	}
	if path := strings.TrimSpace(outcome.FinalPath); path != "" {
		embed.Fields = append(embed.Fields, discord.Field{Name: "Saved to", Value: path})
	}
	if outcome.UsedFallback {
		embed.Color = colorWarning
		embed.Fields = append(embed.Fields, discord.Field{
			Name:  "Warning",
			Value: "Primary library unreachable; placed in fallback",
		})
	}
	if previewErr := strings.TrimSpace(outcome.PreviewError); previewErr != "" {
		embed.Fields = append(embed.Fields, discord.Field{Name: "Preview", Value: "unavailable: " + previewErr})
	}

	return wrapSend("send placed message", d.sender.Send(ctx, discord.Message{
		Embed:          embed,
		AttachmentPath: outcome.PreviewPath,
	}))
}

func (d *discordService) NotifyFailed(ctx context.Context, jobID, url string, err error) error {
	detail := "unknown error"
	if err != nil {
		detail = strings.TrimSpace(err.Error())
	}
	embed := &discord.Embed{
		Title:       "Download failed",
		Description: detail,
		URL:         strings.TrimSpace(url),
		Color:       colorFailure,
		Fields:      []discord.Field{{Name: "Job", Value: jobID, Inline: true}},
	}
	return wrapSend("send failed message", d.sender.Send(ctx, discord.Message{Embed: embed}))
}

func (d *discordService) NotifyRejected(ctx context.Context, jobID, reason string) error {
	embed := &discord.Embed{
		Title:       "Job rejected",
		Description: strings.TrimSpace(reason),
		Color:       colorFailure,
		Fields:      []discord.Field{{Name: "Job", Value: jobID, Inline: true}},
	}
	return wrapSend("send rejected message", d.sender.Send(ctx, discord.Message{Embed: embed}))
}

func (d *discordService) TestNotification(ctx context.Context) error {
	return wrapSend("send test message", d.sender.Send(ctx, discord.Message{Content: "snag notification test"}))
}

// wrapSend tags delivery failures with the notification marker so the engine
// classifies them as observational.
func wrapSend(operation string, err error) error {
	if err == nil {
		return nil
	}
	return services.Wrap(services.ErrNotification, "notify", operation, "", err)
}

type noopService struct{}

func (noopService) NotifyPlaced(context.Context, Outcome) error               { return nil }
func (noopService) NotifyFailed(context.Context, string, string, error) error { return nil }
func (noopService) NotifyRejected(context.Context, string, string) error      { return nil }
func (noopService) TestNotification(context.Context) error                    { return nil }
