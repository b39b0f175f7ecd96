package telegram

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tefi/server/internal/models"
)

type Config struct {
	BotToken string
	ChatID   string
	APIURL   string

	// Prefix for the bidder links in notifications
	PublicBaseURL string
}

type Service struct {
	logger *logrus.Logger
	client *http.Client
	config Config
}

func NewService(logger *logrus.Logger, config Config) *Service {
	if config.APIURL == "" {
		config.APIURL = "https://api.telegram.org"
	}
	return &Service{
		logger: logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		config: config,
	}
}

// SendMessage sends an HTML formatted message to the configured chat.
func (s *Service) SendMessage(message string) error {
	if s.config.BotToken == "" {
		return errors.New("telegram bot token is not configured")
	}
	if s.config.ChatID == "" {
		return errors.New("telegram chat ID is not configured")
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(s.config.APIURL, "/"), s.config.BotToken)
	payload := map[string]interface{}{
		"chat_id":    s.config.ChatID,
		"text":       message,
		"parse_mode": "HTML",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %w", err)
	}

	resp, err := s.client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send message to Telegram API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return errors.New("invalid bot token")
		case http.StatusBadRequest:
			return fmt.Errorf("invalid chat ID or message format: %s", string(body))
		case http.StatusForbidden:
			return errors.New("bot was blocked by the user or chat")
		case http.StatusNotFound:
			return errors.New("bot not found")
		default:
			return fmt.Errorf("telegram API error (status %d): %s", resp.StatusCode, string(body))
		}
	}

	return nil
}

// NotifyNewProperty announces a new listing with its shareable bidder link.
func (s *Service) NotifyNewProperty(property *models.Property) error {
	link := strings.TrimRight(s.config.PublicBaseURL, "/") + property.BidderPath()

	message := fmt.Sprintf(
		"<b>Ny bolig registrert!</b>\n\n"+
			"🏠 %s\n"+
			"💰 Prisantydning: %s\n"+
			"🔑 Kode: <code>%s</code>\n\n"+
			"🔗 <a href=\"%s\">Åpne budsiden</a>",
		html.EscapeString(property.Address),
		models.FormatPriceGuide(property.PriceGuide),
		property.UniqueCode,
		html.EscapeString(link),
	)

	if err := s.SendMessage(message); err != nil {
		return err
	}

	s.logger.WithField("code", property.UniqueCode).Info("Sent new property notification")
	return nil
}
