package bot

import (
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"tgmon/entity"
	"tgmon/internal/database"
	"tgmon/lib/sl"
)

const onboardingText = "*🤖 Telegram Monitor*\n\n" +
	"This bot serves registered organizations\\.\n" +
	"Sign in on the dashboard with your Telegram account first, " +
	"then come back and run /start\\."

func (t *TgBot) handleCommand(msg *tgbotapi.Message) {
	text := msg.GetText()
	parts := strings.SplitN(text, " ", 2)
	command := strings.TrimSuffix(parts[0], "@"+t.api.Username)
	args := ""
	if len(parts) > 1 {
		args = parts[1]
	}

	user := t.resolveTenant(msg.From.Id)
	t.audit(user, msg, command, args)
	if user == nil {
		t.plainResponse(msg.Chat.Id, onboardingText)
		return
	}

	switch command {
	case "/start":
		t.start(msg.Chat.Id, user)
	case "/help":
		t.help(msg.Chat.Id)
	case "/menu":
		t.menu(msg.Chat.Id, user)
	case "/status":
		t.status(msg.Chat.Id, user)
	case "/groups":
		t.groups(msg.Chat.Id, user)
	case "/watchlist":
		t.watchlist(msg.Chat.Id, user)
	case "/messages":
		t.messages(msg.Chat.Id, user)
	default:
		t.plainResponse(msg.Chat.Id, "Unknown command\\. Use /help to see available commands\\.")
	}
}

func (t *TgBot) start(chatId int64, user *entity.User) {
	text := fmt.Sprintf(
		"*🤖 Telegram Monitor*\n\n"+
			"Welcome back, %s\\!\n\n"+
			"*Available Commands:*\n"+
			"/menu \\- Interactive menu\n"+
			"/status \\- Monitoring status\n"+
			"/groups \\- Monitored groups\n"+
			"/watchlist \\- Watchlist users\n"+
			"/messages \\- Recent matches\n"+
			"/help \\- All commands\n\n"+
			"For full management, use the web dashboard\\.",
		Sanitize(user.FirstName),
	)
	t.plainResponse(chatId, text)
}

func (t *TgBot) help(chatId int64) {
	text := "*📋 Available Commands:*\n\n" +
		"*Information:*\n" +
		"/status \\- Current monitoring status\n" +
		"/groups \\- List all monitored groups\n" +
		"/watchlist \\- Show users being monitored\n" +
		"/messages \\- Recent matched messages\n\n" +
		"*Navigation:*\n" +
		"/menu \\- Interactive inline menu\n\n" +
		"Use the web dashboard for advanced management\\."
	t.plainResponse(chatId, text)
}

func (t *TgBot) status(chatId int64, user *entity.User) {
	stats, err := t.db.GetStats(user.TenantId)
	if err != nil {
		t.reportError(chatId, "/status", err)
		return
	}
	text := fmt.Sprintf(
		"*📊 Monitoring Status*\n\n"+
			"*Active Monitoring:*\n"+
			"• Groups: %d\n"+
			"• Watchlist Users: %d\n"+
			"• Destinations: %d\n"+
			"• Messages Logged: %d\n"+
			"• Forwarded: %d\n\n"+
			"*System Status:* ✅ Online\n\n"+
			"_Last updated: %s_",
		stats.TotalGroups,
		stats.TotalWatchlistUsers,
		stats.TotalDestinations,
		stats.TotalMessages,
		stats.TotalForwarded,
		Sanitize(stats.LastUpdated.Format("2006-01-02 15:04 UTC")),
	)
	t.plainResponse(chatId, text)
}

func (t *TgBot) groups(chatId int64, user *entity.User) {
	groups, err := t.db.ListGroups(user.TenantId, false)
	if err != nil {
		t.reportError(chatId, "/groups", err)
		return
	}
	if len(groups) == 0 {
		t.plainResponse(chatId, "*📁 Monitored Groups*\n\nNo groups are currently being monitored\\.")
		return
	}
	var lines []string
	for _, group := range groups {
		lines = append(lines, fmt.Sprintf("• %s \\(`%s`\\)", Sanitize(group.GroupName), group.GroupId))
	}
	text := fmt.Sprintf("*📁 Monitored Groups* \\(%d\\)\n\n%s", len(groups), strings.Join(lines, "\n"))
	t.plainResponse(chatId, text)
}

func (t *TgBot) watchlist(chatId int64, user *entity.User) {
	users, err := t.db.ListWatchUsers(user.TenantId, false)
	if err != nil {
		t.reportError(chatId, "/watchlist", err)
		return
	}
	if len(users) == 0 {
		t.plainResponse(chatId, "*👥 Watchlist Users*\n\nNo users are currently being monitored\\.")
		return
	}
	var lines []string
	for _, watch := range users {
		scope := "Global"
		if len(watch.GroupIds) > 0 {
			scope = fmt.Sprintf("%d groups", len(watch.GroupIds))
		}
		lines = append(lines, fmt.Sprintf("• @%s \\(%s\\)", Sanitize(watch.Username), Sanitize(scope)))
	}
	text := fmt.Sprintf("*👥 Watchlist Users* \\(%d\\)\n\n%s", len(users), strings.Join(lines, "\n"))
	t.plainResponse(chatId, text)
}

func (t *TgBot) messages(chatId int64, user *entity.User) {
	messages, err := t.db.ListMessages(user.TenantId, database.MessageFilter{Limit: 10})
	if err != nil {
		t.reportError(chatId, "/messages", err)
		return
	}
	if len(messages) == 0 {
		t.plainResponse(chatId, "*💬 Recent Matches*\n\nNothing matched yet\\.")
		return
	}
	var lines []string
	for _, msg := range messages {
		preview := truncate(msg.MessageText, 60)
		if preview == "" {
			preview = fmt.Sprintf("[%s]", msg.MessageType)
		}
		lines = append(lines, fmt.Sprintf("• *@%s* in %s: %s",
			Sanitize(msg.Username), Sanitize(msg.GroupName), Sanitize(preview)))
	}
	text := fmt.Sprintf("*💬 Recent Matches* \\(%d\\)\n\n%s", len(messages), strings.Join(lines, "\n"))
	t.plainResponse(chatId, text)
}

func (t *TgBot) reportError(chatId int64, command string, err error) {
	t.log.With(
		slog.String("command", command),
		slog.Int64("chat_id", chatId),
	).Error("bot command failed", sl.Err(err))
	t.plainResponse(chatId, "Something went wrong\\. Please try again later\\.")
}
