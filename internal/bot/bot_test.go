package bot

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kozaktomas/facebot/internal/botstate"
	"github.com/kozaktomas/facebot/internal/database"
	"github.com/kozaktomas/facebot/internal/database/mock"
	"github.com/kozaktomas/facebot/internal/encoder"
	"github.com/kozaktomas/facebot/internal/recognizer"
	"github.com/kozaktomas/facebot/internal/service"
)

type fakeAPI struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetFileDirectURL(fileID string) (string, error) {
	return "https://files.invalid/" + fileID, nil
}

func (f *fakeAPI) texts() []string {
	var out []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeAPI) lastText(t *testing.T) string {
	t.Helper()
	texts := f.texts()
	if len(texts) == 0 {
		t.Fatal("expected a text reply, got none")
	}
	return texts[len(texts)-1]
}

func (f *fakeAPI) photoCount() int {
	n := 0
	for _, c := range f.sent {
		if _, ok := c.(tgbotapi.PhotoConfig); ok {
			n++
		}
	}
	return n
}

type stubEncoder struct {
	faces []encoder.Face
}

func (s *stubEncoder) Encode(_ context.Context, _ []byte) ([]encoder.Face, error) {
	if len(s.faces) == 0 {
		return nil, encoder.ErrNoFace
	}
	return s.faces, nil
}

func (s *stubEncoder) EncodeSingle(ctx context.Context, imageData []byte) (*encoder.Face, error) {
	faces, err := s.Encode(ctx, imageData)
	if err != nil {
		return nil, err
	}
	if len(faces) > 1 {
		return nil, encoder.ErrTooManyFaces
	}
	return &faces[0], nil
}

func testPhotoBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.Gray{Y: 100})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

// newTestBot builds a bot against the in-memory store with three accounts:
// @root (root_admin), @adm (admin) and @joe (user).
func newTestBot(t *testing.T, public bool) (*Bot, *fakeAPI, *mock.Store) {
	t.Helper()
	store := mock.NewStore()
	ctx := context.Background()
	for username, role := range map[string]string{
		"@root": database.RoleRootAdmin,
		"@adm":  database.RoleAdmin,
		"@joe":  database.RoleUser,
	} {
		if err := store.AddUser(ctx, username, role); err != nil {
			t.Fatalf("AddUser failed: %v", err)
		}
	}

	api := &fakeAPI{}
	enc := &stubEncoder{faces: []encoder.Face{{
		Encoding: []float32{1, 0, 0, 0},
		Box:      []int{8, 40, 32, 8},
		Score:    0.99,
	}}}
	photo := testPhotoBytes(t)
	b := &Bot{
		api:      api,
		username: "facebot",
		svc:      service.New(store, enc, nil, recognizer.DefaultOptions(), time.UTC),
		states:   botstate.NewMemoryStore(30 * time.Minute),
		users:    store,
		public:   public,
	}
	b.fetch = func(_ context.Context, _ string) ([]byte, error) {
		return photo, nil
	}
	return b, api, store
}

func command(username string, id int64, text string) tgbotapi.Update {
	cmd := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: id, UserName: strings.TrimPrefix(username, "@")},
		Chat:      &tgbotapi.Chat{ID: id},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func textMessage(username string, id int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: id, UserName: strings.TrimPrefix(username, "@")},
		Chat:      &tgbotapi.Chat{ID: id},
		Text:      text,
	}}
}

func photoMessage(username string, id int64, fileSize int) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: id, UserName: strings.TrimPrefix(username, "@")},
		Chat:      &tgbotapi.Chat{ID: id},
		Photo:     []tgbotapi.PhotoSize{{FileID: "photo1", FileSize: fileSize}},
	}}
}

func TestTrainFlow(t *testing.T) {
	b, api, _ := newTestBot(t, false)
	ctx := context.Background()

	b.handleUpdate(ctx, command("@root", 10, "/train Alice"))
	if got := api.lastText(t); !strings.Contains(got, "Train is turned on with tag **alice**") {
		t.Errorf("unexpected train reply: %q", got)
	}

	b.handleUpdate(ctx, photoMessage("@root", 10, 1000))
	if got := api.lastText(t); !strings.Contains(got, "Model trained for **alice**") {
		t.Errorf("unexpected photo reply: %q", got)
	}

	b.handleUpdate(ctx, command("@root", 10, "/done"))
	if got := api.lastText(t); got != "Done with tag **alice**" {
		t.Errorf("unexpected done reply: %q", got)
	}

	b.handleUpdate(ctx, command("@root", 10, "/done"))
	if got := api.lastText(t); got != "No current tag" {
		t.Errorf("expected no current tag, got %q", got)
	}
}

func TestTrainRequiresLabel(t *testing.T) {
	b, api, _ := newTestBot(t, false)

	b.handleUpdate(context.Background(), command("@adm", 11, "/train"))
	if got := api.lastText(t); got != "Example: /train test1" {
		t.Errorf("unexpected reply: %q", got)
	}
}

func TestTrainPermissionDenied(t *testing.T) {
	b, api, _ := newTestBot(t, false)

	b.handleUpdate(context.Background(), command("@joe", 12, "/train alice"))
	if got := api.lastText(t); got != "Permission denied." {
		t.Errorf("expected permission denied, got %q", got)
	}
}

func TestUnregisteredSenderIsSilent(t *testing.T) {
	b, api, _ := newTestBot(t, false)

	b.handleUpdate(context.Background(), command("@ghost", 13, "/start"))
	if len(api.sent) != 0 || len(api.requests) != 0 {
		t.Errorf("expected silence, got %d sends and %d requests", len(api.sent), len(api.requests))
	}
}

func TestPublicUserCanPredict(t *testing.T) {
	b, api, _ := newTestBot(t, true)

	// No model trained yet, but the unregistered sender gets a real reply.
	b.handleUpdate(context.Background(), photoMessage("@ghost", 13, 1000))
	if got := api.lastText(t); got != "No model trained for prediction" {
		t.Errorf("unexpected reply: %q", got)
	}
}

func TestPredictFlow(t *testing.T) {
	b, api, _ := newTestBot(t, false)
	ctx := context.Background()

	b.handleUpdate(ctx, command("@root", 10, "/train alice"))
	b.handleUpdate(ctx, photoMessage("@root", 10, 1000))
	b.handleUpdate(ctx, command("@root", 10, "/done"))

	// Plain user photo goes to prediction.
	b.handleUpdate(ctx, photoMessage("@joe", 12, 1000))

	// Annotated prediction plus one reference photo.
	if n := api.photoCount(); n != 2 {
		t.Errorf("expected 2 photos sent, got %d", n)
	}
	if got := api.lastText(t); !strings.Contains(got, "alice: No note") {
		t.Errorf("expected notes reply, got %q", got)
	}
}

func TestPlainUserPhotoIgnoresTrainState(t *testing.T) {
	b, api, _ := newTestBot(t, false)
	ctx := context.Background()

	// Force a train state for the plain user; the photo path must still
	// predict.
	if err := b.states.Set(ctx, "12", botstate.StateTrain, "alice"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	b.handleUpdate(ctx, photoMessage("@joe", 12, 1000))
	if got := api.lastText(t); got != "No model trained for prediction" {
		t.Errorf("expected predict path, got %q", got)
	}
}

func TestPhotoTooLarge(t *testing.T) {
	b, api, _ := newTestBot(t, false)
	ctx := context.Background()

	b.handleUpdate(ctx, command("@root", 10, "/train alice"))
	b.handleUpdate(ctx, photoMessage("@root", 10, encoder.MaxImageBytes+1))
	if got := api.lastText(t); got != "Image file size too large" {
		t.Errorf("unexpected reply: %q", got)
	}
}

func TestNoteFlow(t *testing.T) {
	b, api, store := newTestBot(t, false)
	ctx := context.Background()

	b.handleUpdate(ctx, command("@root", 10, "/train alice"))
	b.handleUpdate(ctx, photoMessage("@root", 10, 1000))

	b.handleUpdate(ctx, command("@root", 10, "/note alice"))
	if got := api.lastText(t); !strings.Contains(got, "Note is turned on with tag **alice**") {
		t.Errorf("unexpected note reply: %q", got)
	}

	b.handleUpdate(ctx, textMessage("@root", 10, "@facebot likes tea"))
	if got := api.lastText(t); got != "Note updated for **alice**" {
		t.Errorf("unexpected mention reply: %q", got)
	}

	note, err := store.GetNote(ctx, "alice")
	if err != nil {
		t.Fatalf("GetNote failed: %v", err)
	}
	if note == nil || note.Note != "likes tea" {
		t.Errorf("expected stored note without mention, got %+v", note)
	}
}

func TestNoteUnknownLabel(t *testing.T) {
	b, api, _ := newTestBot(t, false)

	b.handleUpdate(context.Background(), command("@adm", 11, "/note nobody"))
	if got := api.lastText(t); !strings.Contains(got, "Label does not exist.") {
		t.Errorf("unexpected reply: %q", got)
	}
}

func TestMentionOutsideNoteState(t *testing.T) {
	b, api, _ := newTestBot(t, false)

	b.handleUpdate(context.Background(), textMessage("@adm", 11, "@facebot hello"))
	if got := api.lastText(t); !strings.Contains(got, "Not in note state.") {
		t.Errorf("unexpected reply: %q", got)
	}
}

func TestRetrainRequiresRootAdmin(t *testing.T) {
	b, api, _ := newTestBot(t, false)
	ctx := context.Background()

	b.handleUpdate(ctx, command("@adm", 11, "/retrain"))
	if got := api.lastText(t); got != "Permission denied." {
		t.Errorf("expected permission denied, got %q", got)
	}

	b.handleUpdate(ctx, command("@root", 10, "/retrain"))
	if got := api.lastText(t); got != "Model extracted and retrained" {
		t.Errorf("unexpected retrain reply: %q", got)
	}
}

func TestAddUser(t *testing.T) {
	b, api, store := newTestBot(t, false)
	ctx := context.Background()

	b.handleUpdate(ctx, command("@adm", 11, "/adduser NewGuy"))
	if got := api.lastText(t); got != "Added user @newguy" {
		t.Errorf("unexpected reply: %q", got)
	}

	user, err := store.FindUser(ctx, "@newguy")
	if err != nil {
		t.Fatalf("FindUser failed: %v", err)
	}
	if user == nil || user.Type != database.RoleUser {
		t.Errorf("unexpected stored user: %+v", user)
	}

	// Admins cannot mint admins.
	b.handleUpdate(ctx, command("@adm", 11, "/addadmin @other"))
	if got := api.lastText(t); got != "Permission denied." {
		t.Errorf("expected permission denied, got %q", got)
	}
}

func TestListUsersMarkup(t *testing.T) {
	b, api, _ := newTestBot(t, false)

	b.handleUpdate(context.Background(), command("@adm", 11, "/user"))

	var found bool
	for _, c := range api.sent {
		m, ok := c.(tgbotapi.MessageConfig)
		if !ok || m.Text != "List of users:" {
			continue
		}
		markup, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
		if !ok {
			t.Fatal("expected inline keyboard markup")
		}
		if len(markup.InlineKeyboard) != 1 {
			t.Fatalf("expected 1 button row, got %d", len(markup.InlineKeyboard))
		}
		found = true
	}
	if !found {
		t.Error("expected user list message")
	}
}

func callbackUpdate(username string, id int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb1",
		From: &tgbotapi.User{ID: id, UserName: strings.TrimPrefix(username, "@")},
		Message: &tgbotapi.Message{
			MessageID: 5,
			Chat:      &tgbotapi.Chat{ID: id},
		},
		Data: data,
	}}
}

func TestCallbackRemoveFlow(t *testing.T) {
	b, api, store := newTestBot(t, false)
	ctx := context.Background()

	// Tap on the name: confirm markup with remove and cancel.
	b.handleUpdate(ctx, callbackUpdate("@root", 10, "/user @joe"))
	var confirm *tgbotapi.EditMessageReplyMarkupConfig
	for _, c := range api.requests {
		if e, ok := c.(tgbotapi.EditMessageReplyMarkupConfig); ok {
			confirm = &e
		}
	}
	if confirm == nil {
		t.Fatal("expected reply markup edit")
	}
	rows := confirm.ReplyMarkup.InlineKeyboard
	if len(rows) != 2 || rows[0][0].Text != "Remove @joe" || rows[1][0].Text != "Cancel" {
		t.Fatalf("unexpected confirm markup: %+v", rows)
	}

	// Confirm removal.
	b.handleUpdate(ctx, callbackUpdate("@root", 10, "/ruser @joe"))
	user, err := store.FindUser(ctx, "@joe")
	if err != nil {
		t.Fatalf("FindUser failed: %v", err)
	}
	if user != nil {
		t.Errorf("expected @joe removed, got %+v", user)
	}
}

func TestCallbackIgnoredForPlainUser(t *testing.T) {
	b, api, store := newTestBot(t, false)
	ctx := context.Background()

	b.handleUpdate(ctx, callbackUpdate("@joe", 12, "/ruser @joe"))
	if len(api.requests) != 0 {
		t.Errorf("expected no requests, got %d", len(api.requests))
	}
	user, err := store.FindUser(ctx, "@joe")
	if err != nil {
		t.Fatalf("FindUser failed: %v", err)
	}
	if user == nil {
		t.Error("expected @joe untouched")
	}
}

func TestHelpTextPerRole(t *testing.T) {
	b, _, _ := newTestBot(t, false)

	userHelp := b.helpText(database.RoleUser)
	if strings.Contains(userHelp, "/train") {
		t.Errorf("user help should not mention /train: %q", userHelp)
	}
	adminHelp := b.helpText(database.RoleAdmin)
	if !strings.Contains(adminHelp, "/train") || strings.Contains(adminHelp, "/retrain") {
		t.Errorf("unexpected admin help: %q", adminHelp)
	}
	rootHelp := b.helpText(database.RoleRootAdmin)
	if !strings.Contains(rootHelp, "/retrain") || !strings.Contains(rootHelp, "/addadmin") {
		t.Errorf("unexpected root admin help: %q", rootHelp)
	}
}

func TestImportRootAdmins(t *testing.T) {
	store := mock.NewStore()
	ctx := context.Background()

	if err := ImportRootAdmins(ctx, store, []string{"@alice", "@bob"}); err != nil {
		t.Fatalf("ImportRootAdmins failed: %v", err)
	}
	user, err := store.FindUser(ctx, "@alice")
	if err != nil {
		t.Fatalf("FindUser failed: %v", err)
	}
	if user == nil || user.Type != database.RoleRootAdmin {
		t.Errorf("unexpected imported user: %+v", user)
	}
}
