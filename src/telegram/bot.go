package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"vip-gate/src/access"
	"vip-gate/src/plan"
)

// PaymentLinker creates hosted checkout links for a plan on behalf of a user.
type PaymentLinker interface {
	CreatePreference(ctx context.Context, p plan.Plan, userID string) (string, error)
}

// Claimer exchanges a user's authorization for a single-use invite link.
type Claimer interface {
	Claim(ctx context.Context, userID string) (string, error)
}

// Bot is the Telegram transport: it routes incoming commands and sends the
// sales media, payment links and invite links back to users.
type Bot struct {
	// Claimer is set after construction; the access issuer needs the bot as
	// its inviter, so the two are wired to each other in main.
	Claimer Claimer

	api          *tgbotapi.BotAPI
	gateway      PaymentLinker
	vipChatID    int64
	previewsLink string
	videoPath    string
	logger       zerolog.Logger
}

func NewBot(token string, vipChatID int64, previewsLink, videoPath string, gateway PaymentLinker, logger zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("username", api.Self.UserName).Msg("telegram bot ready")

	return &Bot{
		api:          api,
		gateway:      gateway,
		vipChatID:    vipChatID,
		previewsLink: previewsLink,
		videoPath:    videoPath,
		logger:       logger,
	}, nil
}

// SetWebhook registers url as the bot's update-delivery endpoint.
func (b *Bot) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return err
	}
	_, err = b.api.Request(wh)
	return err
}

// HandleUpdate routes one Telegram update. Anything that is not a known
// command is ignored.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	switch update.Message.Command() {
	case "start":
		b.handleStart(ctx, chatID)
	case "vip":
		b.handleVIP(ctx, chatID)
	}
}

func (b *Bot) handleStart(ctx context.Context, chatID int64) {
	b.sendStartVideo(chatID)

	userID := strconv.FormatInt(chatID, 10)
	rows := [][]tgbotapi.InlineKeyboardButton{
		{tgbotapi.NewInlineKeyboardButtonURL("🎬🔥 PRÉVIAS 🔥🎬", b.previewsLink)},
	}

	for _, p := range plan.All() {
		url, err := b.gateway.CreatePreference(ctx, p, userID)
		if err != nil {
			b.logger.Error().Err(err).Str("plan", p.ID).Msg("creating payment preference")
			b.send(chatID, "⚠️ Erro ao gerar pagamento. Tente novamente.")
			return
		}
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonURL(p.Button, url),
		})
	}

	msg := tgbotapi.NewMessage(chatID, "👇 Escolha uma opção abaixo:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("sending sales message")
	}
}

func (b *Bot) handleVIP(ctx context.Context, chatID int64) {
	userID := strconv.FormatInt(chatID, 10)

	link, err := b.Claimer.Claim(ctx, userID)
	switch {
	case errors.Is(err, access.ErrNotAuthorized):
		b.send(chatID, "⚠️ Você ainda não está liberado.\n\n1) Envie /start\n2) Faça o pagamento\n3) Depois envie /vip")
	case err != nil:
		b.logger.Error().Err(err).Str("user_id", userID).Msg("issuing vip invite")
		b.send(chatID, "⚠️ Erro ao gerar link VIP. Confirme se o bot é ADMIN no VIP e tem permissão de convidar via link.")
	default:
		b.sendMarkdown(chatID, fmt.Sprintf("✅ *Acesso liberado!*\n\n🔓 Link VIP (1 uso):\n%s", link))
	}
}

// CreateInviteLink creates a single-use invite link into the VIP group,
// labeled with the user id and timestamp for audit.
func (b *Bot) CreateInviteLink(_ context.Context, userID string) (string, error) {
	cfg := tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig:  tgbotapi.ChatConfig{ChatID: b.vipChatID},
		Name:        fmt.Sprintf("VIP-%s-%d", userID, time.Now().UnixMilli()),
		MemberLimit: 1,
	}

	resp, err := b.api.Request(cfg)
	if err != nil {
		return "", err
	}

	var link tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("failed to decode invite link response: %w", err)
	}
	return link.InviteLink, nil
}

// sendStartVideo sends the sales video when the file exists; a missing file
// only logs.
func (b *Bot) sendStartVideo(chatID int64) {
	if _, err := os.Stat(b.videoPath); err != nil {
		b.logger.Warn().Str("path", b.videoPath).Msg("start video not found, skipping")
		return
	}

	video := tgbotapi.NewVideo(chatID, tgbotapi.FilePath(b.videoPath))
	video.Caption = "🔥 O queridinho do momento! 🔥"
	if _, err := b.api.Send(video); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("sending start video")
	}
}

func (b *Bot) send(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("sending message")
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("sending message")
	}
}
