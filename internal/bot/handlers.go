package bot

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/kozaktomas/facebot/internal/annotate"
	"github.com/kozaktomas/facebot/internal/botstate"
	"github.com/kozaktomas/facebot/internal/database"
	"github.com/kozaktomas/facebot/internal/encoder"
	"github.com/kozaktomas/facebot/internal/service"
)

func (b *Bot) handleCommand(ctx context.Context, role string, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help":
		b.handleStart(ctx, role, msg)
	case "train":
		b.handleTrain(ctx, role, msg)
	case "done":
		b.handleDone(ctx, role, msg)
	case "note":
		b.handleNote(ctx, role, msg)
	case "suggestnote":
		b.handleSuggestNote(ctx, role, msg)
	case "retrain":
		b.handleRetrain(ctx, role, msg)
	case "adduser":
		b.handleAddUser(ctx, role, msg, database.RoleUser)
	case "addadmin":
		b.handleAddUser(ctx, role, msg, database.RoleAdmin)
	case "user":
		b.handleListUsers(ctx, role, msg, database.RoleUser)
	case "admin":
		b.handleListUsers(ctx, role, msg, database.RoleAdmin)
	}
}

func (b *Bot) handleStart(ctx context.Context, role string, msg *tgbotapi.Message) {
	if !b.allow(role, database.RoleUser, msg) {
		return
	}
	b.sendAction(msg.Chat.ID, tgbotapi.ChatTyping)
	if err := b.states.Clear(ctx, stateKey(msg.From)); err != nil {
		log.Warn().Err(err).Msg("failed to clear command state")
	}
	b.reply(msg, b.helpText(role))
}

func (b *Bot) helpText(role string) string {
	var sb strings.Builder
	sb.WriteString("Lookup command: /help or /start\n")
	if role == database.RoleAdmin || role == database.RoleRootAdmin {
		sb.WriteString("Train the model: /train <label name>\n")
		sb.WriteString("    then send photos with one face for the label\n")
		sb.WriteString("Stop training the model: /done\n")
		sb.WriteString("Add note to training label: /note <label name>\n")
		sb.WriteString("    then send text containing @" + b.username + "\n")
		sb.WriteString("Draft a note from the reference photo: /suggestnote <label name>\n")
	}
	sb.WriteString("Send me any photo with one face for prediction.\n")
	if role == database.RoleAdmin || role == database.RoleRootAdmin {
		sb.WriteString("Get list of users: /user\n")
		sb.WriteString("    click on name to remove/cancel\n")
		sb.WriteString("Add a user: /adduser @userid\n")
	}
	if role == database.RoleRootAdmin {
		sb.WriteString("Get list of admins: /admin\n")
		sb.WriteString("    click on name to remove/cancel\n")
		sb.WriteString("Add an admin: /addadmin @adminid\n")
		sb.WriteString("Re-extract and retrain: /retrain\n")
		sb.WriteString("    use after DNN model update")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bot) handleTrain(ctx context.Context, role string, msg *tgbotapi.Message) {
	if !b.allow(role, database.RoleAdmin, msg) {
		return
	}
	b.sendAction(msg.Chat.ID, tgbotapi.ChatTyping)

	label := database.NormalizeLabel(msg.CommandArguments())
	if label == "" {
		b.reply(msg, "Example: /train test1")
		return
	}
	if err := b.states.Set(ctx, stateKey(msg.From), botstate.StateTrain, label); err != nil {
		log.Error().Err(err).Msg("failed to set command state")
		b.reply(msg, "Database error")
		return
	}
	b.reply(msg, "Train is turned on with tag **"+label+"**, please send the photo")
}

func (b *Bot) handleDone(ctx context.Context, role string, msg *tgbotapi.Message) {
	if !b.allow(role, database.RoleAdmin, msg) {
		return
	}
	b.sendAction(msg.Chat.ID, tgbotapi.ChatTyping)

	key := stateKey(msg.From)
	entry, err := b.states.Get(ctx, key)
	if err != nil {
		log.Error().Err(err).Msg("failed to read command state")
		b.reply(msg, "Database error")
		return
	}
	if err := b.states.Clear(ctx, key); err != nil {
		log.Warn().Err(err).Msg("failed to clear command state")
	}
	if entry.Label == "" {
		b.reply(msg, "No current tag")
		return
	}
	b.reply(msg, "Done with tag **"+entry.Label+"**")
}

func (b *Bot) handleNote(ctx context.Context, role string, msg *tgbotapi.Message) {
	if !b.allow(role, database.RoleAdmin, msg) {
		return
	}
	b.sendAction(msg.Chat.ID, tgbotapi.ChatTyping)

	label := database.NormalizeLabel(msg.CommandArguments())
	if label == "" {
		b.reply(msg, "Example: /note label1")
		return
	}
	exists, err := b.svc.LabelExists(ctx, label)
	if err != nil {
		log.Error().Err(err).Msg("failed to look up label")
		b.reply(msg, "Database error")
		return
	}
	if !exists {
		b.reply(msg, "Label does not exist.\nUse this to train a label first: /train label1")
		return
	}
	if err := b.states.Set(ctx, stateKey(msg.From), botstate.StateNote, label); err != nil {
		log.Error().Err(err).Msg("failed to set command state")
		b.reply(msg, "Database error")
		return
	}
	b.reply(msg, "Note is turned on with tag **"+label+"**, please send the description\n"+
		"it must contain @"+b.username)
}

// handleMention consumes note text sent while the user is in the note state.
func (b *Bot) handleMention(ctx context.Context, role string, msg *tgbotapi.Message) {
	if !b.allow(role, database.RoleAdmin, msg) {
		return
	}
	b.sendAction(msg.Chat.ID, tgbotapi.ChatTyping)

	key := stateKey(msg.From)
	entry, err := b.states.Get(ctx, key)
	if err != nil {
		log.Error().Err(err).Msg("failed to read command state")
		b.reply(msg, "Database error")
		return
	}
	if entry.State != botstate.StateNote {
		b.reply(msg, "Not in note state.\nUse this first: /note label1")
		return
	}

	note := strings.TrimSpace(strings.ReplaceAll(msg.Text, "@"+b.username, ""))
	if err := b.states.Clear(ctx, key); err != nil {
		log.Warn().Err(err).Msg("failed to clear command state")
	}
	if err := b.svc.AttachNote(ctx, entry.Label, note); err != nil {
		if errors.Is(err, service.ErrLabelNotFound) {
			b.reply(msg, "Label does not exist.\nUse this to train a label first: /train label1")
			return
		}
		log.Error().Err(err).Str("label", entry.Label).Msg("failed to store note")
		b.reply(msg, "Database error")
		return
	}
	b.reply(msg, "Note updated for **"+entry.Label+"**")
}

func (b *Bot) handleSuggestNote(ctx context.Context, role string, msg *tgbotapi.Message) {
	if !b.allow(role, database.RoleAdmin, msg) {
		return
	}
	b.sendAction(msg.Chat.ID, tgbotapi.ChatTyping)

	label := database.NormalizeLabel(msg.CommandArguments())
	if label == "" {
		b.reply(msg, "Example: /suggestnote label1")
		return
	}

	draft, err := b.svc.SuggestNote(ctx, label)
	switch {
	case errors.Is(err, service.ErrNoVision):
		b.reply(msg, "Note suggestions are not configured")
		return
	case errors.Is(err, service.ErrLabelNotFound):
		b.reply(msg, "Label does not exist.\nUse this to train a label first: /train label1")
		return
	case err != nil:
		log.Error().Err(err).Str("label", label).Msg("failed to suggest note")
		b.reply(msg, "Model error")
		return
	}

	if err := b.svc.AttachNote(ctx, label, draft); err != nil {
		log.Error().Err(err).Str("label", label).Msg("failed to store suggested note")
		b.reply(msg, "Database error")
		return
	}
	b.reply(msg, "Note updated for **"+label+"**:\n"+draft)
}

func (b *Bot) handleRetrain(ctx context.Context, role string, msg *tgbotapi.Message) {
	if !b.allow(role, database.RoleRootAdmin, msg) {
		return
	}
	b.sendAction(msg.Chat.ID, tgbotapi.ChatTyping)

	if err := b.svc.Retrain(ctx, nil); err != nil {
		log.Error().Err(err).Msg("retrain failed")
		b.reply(msg, "Model error")
		return
	}
	b.reply(msg, "Model extracted and retrained")
}

// handlePhoto routes a photo to the train flow when the sender is mid
// training, predict otherwise. Plain users never train.
func (b *Bot) handlePhoto(ctx context.Context, role string, msg *tgbotapi.Message) {
	if !b.allow(role, database.RoleUser, msg) {
		return
	}

	entry := botstate.Entry{}
	if role != database.RoleUser {
		var err error
		entry, err = b.states.Get(ctx, stateKey(msg.From))
		if err != nil {
			log.Error().Err(err).Msg("failed to read command state")
			b.reply(msg, "Database error")
			return
		}
	}

	if entry.State == botstate.StateTrain {
		b.trainPhoto(ctx, msg, entry.Label)
		return
	}
	b.predictPhoto(ctx, msg)
}

// largestPhoto returns the highest-resolution rendition Telegram offers.
func largestPhoto(msg *tgbotapi.Message) *tgbotapi.PhotoSize {
	if len(msg.Photo) == 0 {
		return nil
	}
	return &msg.Photo[len(msg.Photo)-1]
}

func (b *Bot) downloadPhoto(ctx context.Context, msg *tgbotapi.Message) ([]byte, bool) {
	photo := largestPhoto(msg)
	if photo == nil {
		b.reply(msg, "Cannot download image")
		return nil, false
	}
	if photo.FileSize > encoder.MaxImageBytes {
		b.reply(msg, "Image file size too large")
		return nil, false
	}

	data, err := b.fetch(ctx, photo.FileID)
	if err != nil {
		if errors.Is(err, encoder.ErrImageTooLarge) {
			b.reply(msg, "Image file size too large")
			return nil, false
		}
		log.Warn().Err(err).Msg("photo download failed")
		b.reply(msg, "Cannot download image")
		return nil, false
	}
	return data, true
}

func (b *Bot) trainPhoto(ctx context.Context, msg *tgbotapi.Message, label string) {
	b.sendAction(msg.Chat.ID, tgbotapi.ChatTyping)

	if label == "" {
		b.reply(msg, "No label found, use /train")
		return
	}
	data, ok := b.downloadPhoto(ctx, msg)
	if !ok {
		return
	}

	if err := b.svc.TrainImage(ctx, data, label); err != nil {
		switch {
		case errors.Is(err, encoder.ErrNoFace):
			b.reply(msg, "No face found")
		case errors.Is(err, encoder.ErrTooManyFaces):
			b.reply(msg, "More than one face found")
		case errors.Is(err, encoder.ErrUnsupportedImage):
			b.reply(msg, "Unsupported image format")
		default:
			log.Error().Err(err).Str("label", label).Msg("train failed")
			b.reply(msg, "Model error")
		}
		return
	}
	b.reply(msg, "Model trained for **"+label+"**, use /done or send more")
}

func (b *Bot) predictPhoto(ctx context.Context, msg *tgbotapi.Message) {
	b.sendAction(msg.Chat.ID, tgbotapi.ChatUploadPhoto)

	data, ok := b.downloadPhoto(ctx, msg)
	if !ok {
		return
	}

	result, err := b.svc.PredictImage(ctx, data)
	if err != nil {
		switch {
		case errors.Is(err, encoder.ErrNoFace):
			b.reply(msg, "No face found")
		case errors.Is(err, service.ErrNoModel):
			b.reply(msg, "No model trained for prediction")
		case errors.Is(err, encoder.ErrUnsupportedImage):
			b.reply(msg, "Unsupported image format")
		default:
			log.Error().Err(err).Msg("predict failed")
			b.reply(msg, "Model error")
		}
		return
	}

	b.sendPhoto(msg.Chat.ID, "prediction.png", result.Image, result.Caption)
	if text := annotate.NotesText(result.Notes); text != "" {
		b.reply(msg, text)
	}
	for _, ref := range result.References {
		b.sendPhoto(msg.Chat.ID, ref.Label+".jpg", ref.Image, "references: "+ref.Label)
	}
}

// mentioned reports whether the text addresses the bot.
func (b *Bot) mentioned(text string) bool {
	return b.username != "" && strings.Contains(text, "@"+b.username)
}
