package dispatch

import (
	"context"
	"time"

	"github.com/goliatone/go-webhooks/core"
)

const TypeDiscord = "discord"

// DiscordConnector posts an embed to a Discord webhook URL. Configuration
// fields: webhook_url (required), content, title, description, url, author,
// thumbnail, footer. Template placeholders are resolved before delivery.
type DiscordConnector struct {
	Transport core.TransportAdapter
	Timeout   time.Duration
}

func NewDiscordConnector(transport core.TransportAdapter) *DiscordConnector {
	return &DiscordConnector{Transport: transport}
}

func (*DiscordConnector) Type() string {
	return TypeDiscord
}

type discordEmbed struct {
	Title       string             `json:"title,omitempty"`
	Description string             `json:"description,omitempty"`
	URL         string             `json:"url,omitempty"`
	Author      *discordAuthor     `json:"author,omitempty"`
	Thumbnail   *discordImageRef   `json:"thumbnail,omitempty"`
	Footer      *discordEmbedLabel `json:"footer,omitempty"`
}

type discordAuthor struct {
	Name string `json:"name"`
}

type discordImageRef struct {
	URL string `json:"url"`
}

type discordEmbedLabel struct {
	Text string `json:"text"`
}

type discordPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

func (c *DiscordConnector) Deliver(
	ctx context.Context,
	webhook core.WebhookConfig,
	rendered map[string]string,
	_ core.DispatchEvent,
	limits DeliveryLimits,
) error {
	if c.Timeout > 0 {
		limits.Timeout = c.Timeout
	}
	if err := webhook.RequireFields("webhook_url"); err != nil {
		return err
	}
	destination, _ := webhook.Field("webhook_url")

	embed := discordEmbed{
		Title:       rendered["title"],
		Description: rendered["description"],
		URL:         rendered["url"],
	}
	if author := rendered["author"]; author != "" {
		embed.Author = &discordAuthor{Name: author}
	}
	if thumbnail := rendered["thumbnail"]; thumbnail != "" {
		embed.Thumbnail = &discordImageRef{URL: thumbnail}
	}
	if footer := rendered["footer"]; footer != "" {
		embed.Footer = &discordEmbedLabel{Text: footer}
	}

	payload := discordPayload{Content: rendered["content"]}
	if embed != (discordEmbed{}) {
		payload.Embeds = []discordEmbed{embed}
	}
	return postJSON(ctx, c.Transport, webhook, destination, payload, limits)
}

var _ Connector = (*DiscordConnector)(nil)
