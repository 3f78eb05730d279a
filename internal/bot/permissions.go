package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/kozaktomas/facebot/internal/database"
)

// roleRank orders roles; unknown roles rank below user.
func roleRank(role string) int {
	switch role {
	case database.RoleUser:
		return 1
	case database.RoleAdmin:
		return 2
	case database.RoleRootAdmin:
		return 3
	}
	return 0
}

// ImportRootAdmins registers the configured root admins. Existing rows keep
// their role, so a demoted username has to be removed first.
func ImportRootAdmins(ctx context.Context, users database.UserStore, admins []string) error {
	for _, admin := range admins {
		if err := users.AddUser(ctx, admin, database.RoleRootAdmin); err != nil {
			return err
		}
	}
	return nil
}

// roleFor resolves the sender's role. Empty string means ignore silently.
func (b *Bot) roleFor(ctx context.Context, from *tgbotapi.User) string {
	publicRole := ""
	if b.public {
		publicRole = database.RoleUser
	}
	if from == nil || from.UserName == "" {
		return publicRole
	}

	username := database.NormalizeUsername(from.UserName)
	user, err := b.users.FindUser(ctx, username)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("failed to look up user")
		return ""
	}
	if user == nil {
		return publicRole
	}
	return user.Type
}

// allow enforces the minimum role for a handler. Registered users below the
// bar get a denial reply; unregistered senders stay silent.
func (b *Bot) allow(role, required string, msg *tgbotapi.Message) bool {
	if role == "" {
		return false
	}
	if roleRank(role) >= roleRank(required) {
		return true
	}
	b.reply(msg, "Permission denied.")
	return false
}

// handleAddUser serves /adduser and /addadmin. Adding an admin takes the
// root admin role, adding a user takes admin.
func (b *Bot) handleAddUser(ctx context.Context, role string, msg *tgbotapi.Message, targetRole string) {
	required := database.RoleAdmin
	if targetRole == database.RoleAdmin {
		required = database.RoleRootAdmin
	}
	if !b.allow(role, required, msg) {
		return
	}
	b.sendAction(msg.Chat.ID, tgbotapi.ChatTyping)

	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		if targetRole == database.RoleAdmin {
			b.reply(msg, "Example: /addadmin @test1")
		} else {
			b.reply(msg, "Example: /adduser @test1")
		}
		return
	}

	username := database.NormalizeUsername(arg)
	if err := b.users.AddUser(ctx, username, targetRole); err != nil {
		log.Error().Err(err).Str("username", username).Msg("failed to add user")
		b.reply(msg, "Database error")
		return
	}
	if targetRole == database.RoleAdmin {
		b.reply(msg, "Added admin "+username)
	} else {
		b.reply(msg, "Added user "+username)
	}
}

// handleListUsers serves /user and /admin: a list of inline buttons, one per
// account, starting the tap-to-remove flow.
func (b *Bot) handleListUsers(ctx context.Context, role string, msg *tgbotapi.Message, targetRole string) {
	required := database.RoleAdmin
	if targetRole == database.RoleAdmin {
		required = database.RoleRootAdmin
	}
	if !b.allow(role, required, msg) {
		return
	}
	b.sendAction(msg.Chat.ID, tgbotapi.ChatTyping)

	markup, err := b.listMarkup(ctx, targetRole)
	if err != nil {
		log.Error().Err(err).Str("role", targetRole).Msg("failed to list users")
		b.reply(msg, "Database error")
		return
	}

	title := "List of users:"
	if targetRole == database.RoleAdmin {
		title = "List of admins:"
	}
	out := tgbotapi.NewMessage(msg.Chat.ID, title)
	out.ReplyMarkup = markup
	if _, err := b.api.Send(out); err != nil {
		log.Warn().Err(err).Msg("failed to send user list")
	}
}

// listMarkup builds one button per account; tapping it asks for removal.
func (b *Bot) listMarkup(ctx context.Context, targetRole string) (tgbotapi.InlineKeyboardMarkup, error) {
	users, err := b.users.ListUsers(ctx, targetRole)
	if err != nil {
		return tgbotapi.InlineKeyboardMarkup{}, err
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(users))
	for _, u := range users {
		data := "/" + u.Type + " " + u.Username
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(u.Username, data)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), nil
}

// handleCallback drives the removal flow behind the /user and /admin lists.
// Admins manage users; root admins manage admins and users.
func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.From == nil || query.Message == nil {
		return
	}
	role := b.roleFor(ctx, query.From)
	if roleRank(role) < roleRank(database.RoleAdmin) {
		return
	}

	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Debug().Err(err).Msg("failed to answer callback query")
	}

	switch role {
	case database.RoleAdmin:
		b.handleRoleCallback(ctx, query, database.RoleUser)
	case database.RoleRootAdmin:
		if !b.handleRoleCallback(ctx, query, database.RoleAdmin) {
			b.handleRoleCallback(ctx, query, database.RoleUser)
		}
	}
}

// handleRoleCallback processes one scope of the removal flow and reports
// whether the callback data belonged to it.
func (b *Bot) handleRoleCallback(ctx context.Context, query *tgbotapi.CallbackQuery, targetRole string) bool {
	data := query.Data
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID

	// Tap on a name: offer remove or cancel.
	if username, ok := strings.CutPrefix(data, "/"+targetRole+" "); ok && username != "" {
		markup := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Remove "+username, "/r"+targetRole+" "+username)),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Cancel", "/list"+targetRole)),
		)
		b.editMarkup(chatID, messageID, markup)
		return true
	}

	// Confirmed removal: delete and show the refreshed list.
	if username, ok := strings.CutPrefix(data, "/r"+targetRole+" "); ok && username != "" {
		if err := b.users.RemoveUser(ctx, username, targetRole); err != nil {
			log.Error().Err(err).Str("username", username).Msg("failed to remove user")
		}
		b.refreshList(ctx, chatID, messageID, targetRole)
		return true
	}

	// Cancel: back to the list.
	if data == "/list"+targetRole {
		b.refreshList(ctx, chatID, messageID, targetRole)
		return true
	}
	return false
}

func (b *Bot) refreshList(ctx context.Context, chatID int64, messageID int, targetRole string) {
	markup, err := b.listMarkup(ctx, targetRole)
	if err != nil {
		log.Error().Err(err).Str("role", targetRole).Msg("failed to rebuild user list")
		return
	}
	b.editMarkup(chatID, messageID, markup)
}

func (b *Bot) editMarkup(chatID int64, messageID int, markup tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, markup)
	if _, err := b.api.Request(edit); err != nil {
		log.Warn().Err(err).Msg("failed to edit reply markup")
	}
}
