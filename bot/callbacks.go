package bot

import (
	"log/slog"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"tgmon/entity"
	"tgmon/lib/sl"
)

// Callback data values for inline keyboard buttons. Telegram limits
// callback data to 64 bytes, so these stay short.
const (
	cbStatus    = "status"
	cbGroups    = "groups"
	cbWatchlist = "watchlist"
	cbMessages  = "messages"
	cbSettings  = "settings"
	cbHelp      = "help"
	cbMainMenu  = "main_menu"
	cbAdminMenu = "admin_menu"
)

func (t *TgBot) menu(chatId int64, user *entity.User) {
	t.sendWithKeyboard(chatId, "*📱 Main Menu*\n\nPick a section:", t.mainMenuKeyboard(user))
}

func (t *TgBot) mainMenuKeyboard(user *entity.User) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		{
			{Text: "📊 Status", CallbackData: cbStatus},
			{Text: "📁 Groups", CallbackData: cbGroups},
		},
		{
			{Text: "👥 Watchlist", CallbackData: cbWatchlist},
			{Text: "💬 Messages", CallbackData: cbMessages},
		},
		{
			{Text: "❓ Help", CallbackData: cbHelp},
		},
	}
	if user != nil && user.CanMutate() {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			{Text: "⚙️ Admin", CallbackData: cbAdminMenu},
		})
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (t *TgBot) adminMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{
		{
			{Text: "🔧 Settings", CallbackData: cbSettings},
		},
		{
			{Text: "⬅️ Back", CallbackData: cbMainMenu},
		},
	}}
}

func (t *TgBot) handleCallback(query *tgbotapi.CallbackQuery) {
	if query.Message == nil {
		return
	}
	chatId := query.Message.GetChat().Id
	user := t.resolveTenant(query.From.Id)

	// Always answer so the client stops the spinner.
	defer func() {
		if _, err := t.api.AnswerCallbackQuery(query.Id, nil); err != nil {
			t.log.Debug("answering callback", sl.Err(err))
		}
	}()

	if user == nil {
		t.plainResponse(chatId, onboardingText)
		return
	}

	switch query.Data {
	case cbStatus:
		t.status(chatId, user)
	case cbGroups:
		t.groups(chatId, user)
	case cbWatchlist:
		t.watchlist(chatId, user)
	case cbMessages:
		t.messages(chatId, user)
	case cbHelp:
		t.help(chatId)
	case cbMainMenu:
		t.menu(chatId, user)
	case cbAdminMenu:
		if !user.CanMutate() {
			t.plainResponse(chatId, "Admin access required\\.")
			return
		}
		t.sendWithKeyboard(chatId, "*⚙️ Admin Menu*", t.adminMenuKeyboard())
	case cbSettings:
		t.plainResponse(chatId, "*🔧 Settings*\n\nAccount, group and destination settings live on the web dashboard\\.")
	default:
		t.log.With(slog.String("data", query.Data)).Debug("unknown callback")
	}
}
