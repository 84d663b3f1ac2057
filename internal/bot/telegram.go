package bot

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Client is the production Sender, backed by the Bot API.
type Client struct {
	api *tgbotapi.BotAPI
}

// NewClient authenticates token against the Bot API.
func NewClient(token string) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "connect to telegram")
	}
	log.WithField("bot", api.Self.UserName).Info("telegram bot authorized")
	return &Client{api: api}, nil
}

func (c *Client) Send(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return errors.Wrapf(err, "send message to chat %d", chatID)
	}
	return nil
}

// SetWebhook points the bot at url and drops updates queued while it was unset.
// A non-empty secret is echoed by Telegram in the X-Telegram-Bot-Api-Secret-Token header.
func (c *Client) SetWebhook(url, secret string) (string, error) {
	params := tgbotapi.Params{}
	params["url"] = url
	params.AddBool("drop_pending_updates", true)
	params.AddNonEmpty("secret_token", secret)

	resp, err := c.api.MakeRequest("setWebhook", params)
	if err != nil {
		return "", errors.Wrap(err, "set webhook")
	}
	return resp.Description, nil
}

// WebhookInfo reports the currently registered webhook.
func (c *Client) WebhookInfo() (tgbotapi.WebhookInfo, error) {
	info, err := c.api.GetWebhookInfo()
	if err != nil {
		return info, errors.Wrap(err, "get webhook info")
	}
	return info, nil
}

// ParseChatID accepts the numeric chat identifiers used by the admin endpoints.
func ParseChatID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid chat id %q", s)
	}
	return id, nil
}
