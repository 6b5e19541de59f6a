package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/ad/insight-quest/internal/db"
	"github.com/ad/insight-quest/internal/fsm"
	"github.com/ad/insight-quest/internal/models"
	"github.com/ad/insight-quest/internal/services"
	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
)

type BotHandler struct {
	adminID         int64
	errorManager    *services.ErrorManager
	msgManager      *services.MessageManager
	userRepo        *db.UserRepository
	chatStateRepo   *db.ChatStateRepository
	progression     *services.ProgressionService
	leaderboardSize int
	log             *logrus.Entry
}

func NewBotHandler(
	adminID int64,
	errorManager *services.ErrorManager,
	msgManager *services.MessageManager,
	userRepo *db.UserRepository,
	chatStateRepo *db.ChatStateRepository,
	progression *services.ProgressionService,
	leaderboardSize int,
) *BotHandler {
	return &BotHandler{
		adminID:         adminID,
		errorManager:    errorManager,
		msgManager:      msgManager,
		userRepo:        userRepo,
		chatStateRepo:   chatStateRepo,
		progression:     progression,
		leaderboardSize: leaderboardSize,
		log:             logrus.WithField("component", "bot"),
	}
}

func (h *BotHandler) HandleUpdate(ctx context.Context, _ *bot.Bot, update *tgmodels.Update) {
	defer h.recoverPanic(ctx, update)

	if update.Message != nil {
		h.handleMessage(ctx, update.Message)
	}
}

func (h *BotHandler) recoverPanic(ctx context.Context, update *tgmodels.Update) {
	if r := recover(); r != nil {
		h.errorManager.NotifyAdmin(ctx, r, update)
	}
}

func (h *BotHandler) handleMessage(ctx context.Context, msg *tgmodels.Message) {
	if msg.From == nil {
		return
	}
	chatID := msg.Chat.ID

	user := &models.User{
		ID:        msg.From.ID,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
		Username:  msg.From.Username,
	}
	if err := h.userRepo.CreateOrUpdate(user); err != nil {
		h.log.WithError(err).WithField("user", user.DisplayName()).Error("[BOT] failed to save user")
		h.reply(ctx, chatID, "⚠️ Something went wrong, please try again later.")
		return
	}
	user, err := h.userRepo.GetByID(msg.From.ID)
	if err != nil {
		h.log.WithError(err).Error("[BOT] failed to load user")
		return
	}

	cmd, args := parseCommand(msg.Text)

	if cmd == "" {
		state, err := h.chatStateRepo.Get(user.ID)
		if err == nil && state.State == fsm.StateAwaitingWallet {
			h.connectWallet(ctx, chatID, user, msg.Text)
			return
		}
	}

	if user.HasSession() && cmd != CommandDisconnect {
		h.checkDailyLogin(ctx, user)
	}

	switch cmd {
	case CommandStart:
		h.handleStart(ctx, chatID, user)
	case CommandHelp:
		h.reply(ctx, chatID, helpText)
	case CommandConnect:
		h.handleConnect(ctx, chatID, user, args)
	case CommandDisconnect:
		h.handleDisconnect(ctx, chatID, user)
	case CommandMe:
		h.handleMe(ctx, chatID, user)
	case CommandName:
		h.handleName(ctx, chatID, user, args)
	case CommandTop:
		h.handleTop(ctx, chatID)
	case CommandAward:
		if user.ID != h.adminID {
			h.reply(ctx, chatID, "⛔ This command is for admins only.")
			return
		}
		h.handleAward(ctx, chatID, args)
	case "":
		if !user.HasSession() {
			h.reply(ctx, chatID, "Connect your wallet with /connect to start earning XP.")
		}
	default:
		h.reply(ctx, chatID, "Unknown command. "+helpText)
	}
}

// checkDailyLogin evaluates the daily reward; the notification sink tells
// the user about anything that was granted.
func (h *BotHandler) checkDailyLogin(ctx context.Context, user *models.User) {
	if _, err := h.progression.DailyLogin(ctx, user.WalletAddress); err != nil {
		h.log.WithError(err).WithField("user", user.DisplayName()).Error("[BOT] daily login failed")
	}
}

func (h *BotHandler) handleStart(ctx context.Context, chatID int64, user *models.User) {
	if user.HasSession() {
		p, err := h.progression.Get(ctx, user.WalletAddress)
		if err != nil {
			h.log.WithError(err).Error("[BOT] failed to load progression")
		} else if p.Level > 1 {
			h.reply(ctx, chatID, services.FormatWelcomeBack(p.Stage))
			return
		}
	}
	h.reply(ctx, chatID, "👋 Welcome to InsightQuest!\n\n"+helpText)
}

func (h *BotHandler) handleConnect(ctx context.Context, chatID int64, user *models.User, args []string) {
	if len(args) == 0 {
		err := h.chatStateRepo.Save(&models.ChatState{UserID: user.ID, State: fsm.StateAwaitingWallet})
		if err != nil {
			h.log.WithError(err).Error("[BOT] failed to save chat state")
		}
		h.reply(ctx, chatID, "Send me your Solana wallet address.")
		return
	}
	h.connectWallet(ctx, chatID, user, args[0])
}

func (h *BotHandler) connectWallet(ctx context.Context, chatID int64, user *models.User, address string) {
	wallet, err := services.ValidateWalletAddress(address)
	if err != nil {
		h.reply(ctx, chatID, "❌ That does not look like a Solana wallet address. Try again or send /help.")
		return
	}
	if err := h.userRepo.LinkWallet(user.ID, wallet); err != nil {
		h.log.WithError(err).WithField("user", user.DisplayName()).Error("[BOT] failed to link wallet")
		h.reply(ctx, chatID, "⚠️ Could not connect the wallet, please try again later.")
		return
	}
	if err := h.chatStateRepo.Save(&models.ChatState{UserID: user.ID, State: fsm.StateIdle}); err != nil {
		h.log.WithError(err).Error("[BOT] failed to reset chat state")
	}
	h.log.WithFields(logrus.Fields{"user": user.DisplayName(), "wallet": wallet}).Info("[BOT] wallet connected")

	connected := fmt.Sprintf("✅ Wallet %s connected.", services.FormatCode(models.ShortenAddress(wallet, 4)))
	out, err := h.progression.DailyLogin(ctx, wallet)
	if err != nil {
		h.log.WithError(err).WithField("user", user.DisplayName()).Error("[BOT] daily login failed")
		h.reply(ctx, chatID, connected)
		return
	}
	if !out.Created && out.Progression.Level > 1 {
		h.reply(ctx, chatID, connected+"\n\n"+services.FormatWelcomeBack(out.Progression.Stage))
		return
	}
	h.reply(ctx, chatID, connected)
}

func (h *BotHandler) handleDisconnect(ctx context.Context, chatID int64, user *models.User) {
	if !user.HasSession() {
		h.reply(ctx, chatID, "No wallet is connected.")
		return
	}
	if err := h.userRepo.Disconnect(user.ID); err != nil {
		h.log.WithError(err).Error("[BOT] failed to disconnect")
		h.reply(ctx, chatID, "⚠️ Could not disconnect, please try again later.")
		return
	}
	h.reply(ctx, chatID, "👋 Wallet disconnected. Use /connect to come back.")
}

func (h *BotHandler) handleMe(ctx context.Context, chatID int64, user *models.User) {
	if !user.HasSession() {
		h.reply(ctx, chatID, "Connect your wallet with /connect first.")
		return
	}
	p, err := h.progression.Get(ctx, user.WalletAddress)
	if err != nil {
		h.log.WithError(err).Error("[BOT] failed to load progression")
		h.reply(ctx, chatID, "⚠️ Could not load your progress, please try again later.")
		return
	}
	rank, err := h.progression.Rank(ctx, user.WalletAddress)
	if err != nil && !errors.Is(err, services.ErrNotRanked) {
		h.log.WithError(err).Warn("[BOT] rank lookup failed")
	}
	h.reply(ctx, chatID, services.FormatProfile(*p, rank))
}

func (h *BotHandler) handleName(ctx context.Context, chatID int64, user *models.User, args []string) {
	if !user.HasSession() {
		h.reply(ctx, chatID, "Connect your wallet with /connect first.")
		return
	}
	if len(args) == 0 {
		h.reply(ctx, chatID, "Usage: /name &lt;username&gt;")
		return
	}
	p, err := h.progression.SetUsername(ctx, user.WalletAddress, strings.Join(args, " "))
	if errors.Is(err, models.ErrInvalidUsername) {
		h.reply(ctx, chatID, fmt.Sprintf("❌ Names must be 1-%d printable characters.", models.MaxUsernameLength))
		return
	}
	if err != nil {
		h.log.WithError(err).Error("[BOT] failed to set username")
		h.reply(ctx, chatID, "⚠️ Could not update your name, please try again later.")
		return
	}
	h.reply(ctx, chatID, "✅ Username updated: "+services.FormatBold(p.Username))
}

func (h *BotHandler) handleTop(ctx context.Context, chatID int64) {
	entries, err := h.progression.Leaderboard(ctx, h.leaderboardSize)
	if err != nil {
		h.log.WithError(err).Error("[BOT] failed to load leaderboard")
		h.reply(ctx, chatID, "⚠️ Could not load the leaderboard, please try again later.")
		return
	}
	h.reply(ctx, chatID, services.FormatLeaderboard(entries))
}

func (h *BotHandler) handleAward(ctx context.Context, chatID int64, args []string) {
	parsed, err := parseAwardArgs(args)
	if err != nil {
		h.reply(ctx, chatID, html.EscapeString(err.Error()))
		return
	}
	wallet, err := services.ValidateWalletAddress(parsed.Address)
	if err != nil {
		h.reply(ctx, chatID, "❌ Invalid wallet address.")
		return
	}
	out, err := h.progression.AwardXP(ctx, wallet, parsed.Amount, parsed.Source)
	if err != nil {
		h.log.WithError(err).Error("[BOT] award failed")
		h.reply(ctx, chatID, "⚠️ Award failed: "+html.EscapeString(err.Error()))
		return
	}
	p := out.Progression
	h.reply(ctx, chatID, fmt.Sprintf("✅ %+d XP → %s\nNow level %d (%s), %d XP.",
		parsed.Amount, services.FormatCode(models.ShortenAddress(wallet, 4)), p.Level, services.FormatStage(p.Stage), p.ExperiencePoints))
}

func (h *BotHandler) reply(ctx context.Context, chatID int64, text string) {
	_ = h.msgManager.SendHTML(ctx, chatID, text)
}
