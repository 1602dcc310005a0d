package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/forest-guardian/rainfall-cli/internal/properties"
	"github.com/sirupsen/logrus"
)

type DiscordMessage struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

type DiscordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

var httpClient = &http.Client{Timeout: 15 * time.Second}

func SendDiscordErrorNotification(errorMessage string) error {
	return sendDiscord(properties.DiscordErrorNotificationUrl(), DiscordEmbed{
		Title:       "🚨 Rainfall analysis failed",
		Description: fmt.Sprintf("An error occurred: %s", errorMessage),
		Color:       16711680, // Red color
	})
}

func SendDiscordSuccessNotification(successMessage string) error {
	return sendDiscord(properties.DiscordSuccessNotificationUrl(), DiscordEmbed{
		Title:       "✅ Rainfall analysis finished",
		Description: successMessage,
		Color:       65280, // Green color
	})
}

// sendDiscord does nothing when no webhook is configured.
func sendDiscord(webhookURL string, embed DiscordEmbed) error {
	if webhookURL == "" {
		logrus.Debug("discord webhook not configured, skipping notification")
		return nil
	}

	payload, err := json.Marshal(DiscordMessage{Embeds: []DiscordEmbed{embed}})
	if err != nil {
		return err
	}

	resp, err := httpClient.Post(webhookURL, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send Discord notification, status code: %d", resp.StatusCode)
	}

	return nil
}
