package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jeeves-bot/internal/core/services"
	"jeeves-bot/internal/domain"
	"jeeves-bot/internal/pkg/config"
	"jeeves-bot/internal/storage/sqlite"
)

const (
	ownerID    = int64(1)
	adminID    = int64(2)
	strangerID = int64(3)
	creatorID  = int64(4)
	groupID    = int64(-100200)
)

// stubAI - заглушка распознавания речи и подбора тегов.
type stubAI struct {
	mu         sync.Mutex
	transcript string
	err        error
	calls      int
	tags       string
}

func (s *stubAI) Transcribe(_ context.Context, _ string, audio io.Reader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	_, _ = io.Copy(io.Discard, audio)
	return s.transcript, s.err
}

func (s *stubAI) SuggestTags(context.Context, string) (string, error) { return s.tags, nil }

func (s *stubAI) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// stubSystem записывает вызовы системных команд.
type stubSystem struct {
	restarted []string
	torch     []bool
	spoken    []string
}

func (s *stubSystem) FullReport(context.Context) string  { return "🔋 <b>Батарея:</b> 80%" }
func (s *stubSystem) StorageInfo(context.Context) string { return "used 10G" }
func (s *stubSystem) Uptime(context.Context) string      { return "up 3 days" }
func (s *stubSystem) RestartService(_ context.Context, name string) bool {
	s.restarted = append(s.restarted, name)
	return name != "ssh-server"
}
func (s *stubSystem) Torch(_ context.Context, on bool)     { s.torch = append(s.torch, on) }
func (s *stubSystem) Speak(_ context.Context, text string) { s.spoken = append(s.spoken, text) }

// testBot - бот с настоящей SQLite во временном каталоге и
// перехваченными вызовами Telegram API.
type testBot struct {
	*Bot
	store  *sqlite.Store
	system *stubSystem

	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	statuses map[int64]domain.MemberStatus
}

func newTestBot(t *testing.T, ai *stubAI) *testBot {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "jeeves.db"), sqlite.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	now := func() time.Time { return time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC) }
	access := services.NewAccessService(ownerID, []int64{adminID}, store.Trust, logger)
	calendar := services.NewCalendarService(store.Events, services.WithClock(now))
	var enrich *services.EnrichmentService
	if ai != nil {
		enrich = services.NewEnrichmentService(ai, nil, ai)
	}
	system := &stubSystem{}

	tb := &testBot{
		store:    store,
		system:   system,
		statuses: map[int64]domain.MemberStatus{creatorID: domain.MemberCreator},
	}
	tb.Bot = newBot(config.Bot{}, Deps{
		Access:   access,
		Calendar: calendar,
		Notes:    services.NewNotesService(store.Notes, access, enrich, logger),
		Briefing: services.NewBriefingService(calendar, nil, nil, logger),
		System:   system,
		Backup: func(context.Context) (string, error) {
			return "/backups/jeeves_backup_2025-02-10_09-00-00.db", nil
		},
	}, NewSessionStore(time.Minute), logger)
	tb.now = now

	// Поля-функции заменяют обращения к Telegram.
	tb.sendMessageFunc = func(c tgbotapi.Chattable) (tgbotapi.Message, error) {
		tb.mu.Lock()
		defer tb.mu.Unlock()
		tb.sent = append(tb.sent, c)
		return tgbotapi.Message{MessageID: len(tb.sent)}, nil
	}
	tb.requestFunc = func(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
		tb.mu.Lock()
		defer tb.mu.Unlock()
		tb.requests = append(tb.requests, c)
		return &tgbotapi.APIResponse{Ok: true}, nil
	}
	tb.getFileDirectURLFunc = func(fileID string) (string, error) { return "", errors.New("no files in this test") }
	tb.memberStatusFunc = func(_, userID int64) (domain.MemberStatus, error) {
		if s, ok := tb.statuses[userID]; ok {
			return s, nil
		}
		return domain.MemberMember, nil
	}
	tb.chatAdminsFunc = func(int64) ([]int64, error) { return []int64{creatorID, 31, 32}, nil }
	return tb
}

// texts возвращает тексты всех отправленных сообщений и правок.
func (tb *testBot) texts() []string {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	out := make([]string, 0, len(tb.sent))
	for _, c := range tb.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		case tgbotapi.PhotoConfig:
			out = append(out, m.Caption)
		case tgbotapi.DocumentConfig:
			out = append(out, m.Caption)
		}
	}
	return out
}

func (tb *testBot) last() string {
	texts := tb.texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

func (tb *testBot) reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.sent, tb.requests = nil, nil
}

func chat(id int64) *tgbotapi.Chat {
	if id > 0 {
		return &tgbotapi.Chat{ID: id, Type: "private"}
	}
	return &tgbotapi.Chat{ID: id, Type: "supergroup"}
}

func newMessage(chatID, userID int64, text string) *tgbotapi.Message {
	msg := &tgbotapi.Message{
		MessageID: 100,
		From:      &tgbotapi.User{ID: userID, FirstName: "Бертрам"},
		Chat:      chat(chatID),
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return msg
}

func (tb *testBot) say(chatID, userID int64, text string) {
	tb.handleUpdate(context.Background(), tgbotapi.Update{Message: newMessage(chatID, userID, text)})
}

func (tb *testBot) press(chatID, userID int64, data string) {
	tb.handleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{MessageID: 50, Chat: chat(chatID)},
		Data:    data,
	}})
}

func TestBot_Start(t *testing.T) {
	tb := newTestBot(t, nil)

	t.Run("владелец получает полное меню", func(t *testing.T) {
		tb.reset()
		tb.say(ownerID, ownerID, "/start")
		require.Len(t, tb.sent, 1)
		msg := tb.sent[0].(tgbotapi.MessageConfig)
		assert.Contains(t, msg.Text, "Шеф <b>Бертрам</b>")
		kb, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
		require.True(t, ok)
		assert.Len(t, kb.Keyboard, 3)
		assert.True(t, kb.ResizeKeyboard)
	})

	t.Run("админ получает только lifestyle-ряд", func(t *testing.T) {
		tb.reset()
		tb.say(adminID, adminID, "/start")
		kb := tb.sent[0].(tgbotapi.MessageConfig).ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
		require.Len(t, kb.Keyboard, 1)
		assert.Equal(t, btnCalendar, kb.Keyboard[0][0].Text)
	})

	t.Run("чужой получает вежливый отказ без меню", func(t *testing.T) {
		tb.reset()
		tb.say(strangerID, strangerID, "/start")
		msg := tb.sent[0].(tgbotapi.MessageConfig)
		assert.Contains(t, msg.Text, "приватний асистент Jeeves")
		assert.Nil(t, msg.ReplyMarkup)
	})

	t.Run("id и cancel доступны всем", func(t *testing.T) {
		tb.reset()
		tb.say(strangerID, strangerID, "/id")
		assert.Equal(t, "🆔 Твій Telegram ID: <code>3</code>", tb.last())
		tb.say(strangerID, strangerID, "/cancel")
		assert.Equal(t, "🤷‍♂️ Немає чого скасовувати.", tb.last())
	})
}

func TestBot_OwnerCommands(t *testing.T) {
	tb := newTestBot(t, nil)

	t.Run("чужой не получает ответа", func(t *testing.T) {
		tb.reset()
		tb.say(adminID, adminID, "/status")
		tb.say(strangerID, strangerID, "/light_on")
		assert.Empty(t, tb.texts())
		assert.Empty(t, tb.system.torch)
	})

	t.Run("статус и кнопки меню", func(t *testing.T) {
		tb.reset()
		tb.say(ownerID, ownerID, btnStatus)
		assert.Equal(t, []string{"🔍 Збираю дані про систему...", "🔋 <b>Батарея:</b> 80%"}, tb.texts())

		tb.say(ownerID, ownerID, btnTorchOff)
		assert.Equal(t, []bool{false}, tb.system.torch)
		assert.Equal(t, "🌑 Ліхтар вимкнено.", tb.last())
	})

	t.Run("перезапуск сервисов", func(t *testing.T) {
		tb.reset()
		tb.say(ownerID, ownerID, "/r_cat")
		assert.Equal(t, "✅ Кота: Успішно!", tb.last())
		tb.say(ownerID, ownerID, "/r_ssh")
		assert.Equal(t, "❌ SSH: Помилка PM2.", tb.last())
		assert.Equal(t, []string{"misanthrope_cat", "ssh-server"}, tb.system.restarted)
	})

	t.Run("say экранирует текст", func(t *testing.T) {
		tb.reset()
		tb.say(ownerID, ownerID, "/say <b>Привіт</b>")
		assert.Equal(t, []string{"<b>Привіт</b>"}, tb.system.spoken)
		assert.Equal(t, "🗣 Промовляю: <i>&lt;b&gt;Привіт&lt;/b&gt;</i>", tb.last())
	})

	t.Run("ручной бэкап показывает только имя файла", func(t *testing.T) {
		tb.reset()
		tb.say(ownerID, ownerID, "/backup")
		assert.Equal(t, "💾 Резервну копію збережено: <code>jeeves_backup_2025-02-10_09-00-00.db</code>", tb.last())
	})
}

func TestBot_AddEventWizard(t *testing.T) {
	tb := newTestBot(t, nil)
	ctx := context.Background()

	tb.say(ownerID, ownerID, "/add")
	assert.Contains(t, tb.last(), "Крок 1/3")

	tb.say(ownerID, ownerID, "31.13")
	assert.Equal(t, invalidDateText, tb.last(), "неверная дата не двигает мастер")

	tb.say(ownerID, ownerID, "14.2")
	assert.Contains(t, tb.last(), "Крок 2/3")
	tb.say(ownerID, ownerID, "День <Валентина>")
	assert.Contains(t, tb.last(), "Крок 3/3")
	tb.say(ownerID, ownerID, "@cupid")

	assert.Equal(t, "✅ <b>Збережено!</b>\n📅 14.02: <a href='https://t.me/cupid'>День &lt;Валентина&gt;</a> ✈️", tb.last())
	assert.Equal(t, StateIdle, tb.sessions.Get(ownerID, ownerID).State)

	events, err := tb.deps.Calendar.ListEvents(ctx, ownerID, domain.FilterAll)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "День <Валентина>", events[0].Text, "текст хранится без экранирования")

	t.Run("чужой не может начать мастер", func(t *testing.T) {
		tb.reset()
		tb.say(strangerID, strangerID, "/add")
		assert.Empty(t, tb.texts())
		assert.Equal(t, StateIdle, tb.sessions.Get(strangerID, strangerID).State)
	})

	t.Run("cancel прерывает мастер", func(t *testing.T) {
		tb.say(ownerID, ownerID, "/add")
		tb.say(ownerID, ownerID, "/cancel")
		assert.Equal(t, "👌 Скасовано.", tb.last())
		tb.say(ownerID, ownerID, "01.01")
		assert.NotContains(t, tb.last(), "Крок 2/3")
	})
}

func TestBot_CalendarCallbacks(t *testing.T) {
	tb := newTestBot(t, nil)
	ctx := context.Background()
	_, err := tb.deps.Calendar.MassImport(ctx, ownerID, "10.02 Сьогодні\n14.02 Валентин\n01.09 Школа")
	require.NoError(t, err)

	t.Run("неделя выводит события и меню", func(t *testing.T) {
		tb.reset()
		tb.press(ownerID, ownerID, "cal_week")
		assert.Equal(t, []string{"<b>10.02</b>: Сьогодні", "<b>14.02</b>: Валентин", "🔽 Меню:"}, tb.texts())
	})

	t.Run("пустой период правит исходное сообщение", func(t *testing.T) {
		tb.reset()
		tb.press(ownerID, ownerID, "cal_summer")
		require.Len(t, tb.sent, 1)
		edit, ok := tb.sent[0].(tgbotapi.EditMessageTextConfig)
		require.True(t, ok)
		assert.Equal(t, emptyCalendarText, edit.Text)
	})

	t.Run("редактирование текста события", func(t *testing.T) {
		tb.reset()
		tb.press(ownerID, ownerID, "edit_evt_2")
		assert.Contains(t, tb.last(), "Поточний текст: <code>Валентин</code>")
		tb.say(ownerID, ownerID, "День закоханих")
		assert.Equal(t, "✅ Зміни збережено.", tb.last())

		e, err := tb.deps.Calendar.GetEvent(ctx, ownerID, 2)
		require.NoError(t, err)
		assert.Equal(t, "День закоханих", e.Text)
	})

	t.Run("удаление по дате", func(t *testing.T) {
		tb.reset()
		tb.say(ownerID, ownerID, "/del 01.09")
		assert.Equal(t, "🗑 Видалено подій: 1\n❌ 01.09: Школа", tb.last())
		tb.say(ownerID, ownerID, "/del 01.09")
		assert.Equal(t, services.NothingFound, tb.last())
	})
}

func TestBot_NoteFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("без доверия в группе отказ", func(t *testing.T) {
		tb := newTestBot(t, nil)
		tb.say(groupID, strangerID, "/note купити хліба")
		assert.Equal(t, notesRefusalText, tb.last())
		all, err := tb.deps.Notes.ListAll(ctx, groupID)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("незнакомец в личке получает отказ", func(t *testing.T) {
		tb := newTestBot(t, nil)
		tb.say(strangerID, strangerID, "/note стороння нотатка")
		assert.Equal(t, notesRefusalText, tb.last())
		all, err := tb.deps.Notes.ListAll(ctx, strangerID)
		require.NoError(t, err)
		assert.Empty(t, all)

		tb.say(strangerID, strangerID, "/notes")
		assert.Equal(t, notesRefusalText, tb.last())
	})

	t.Run("доверенный в личке может писать", func(t *testing.T) {
		tb := newTestBot(t, nil)
		require.NoError(t, tb.deps.Access.Grant(ctx, ownerID, domain.MemberMember, strangerID, strangerID))
		tb.say(strangerID, strangerID, "/note своя нотатка")
		assert.Equal(t, "✅ Записав: <b>своя нотатка</b>", tb.last())
	})

	t.Run("быстрая заметка с тегами из текста", func(t *testing.T) {
		tb := newTestBot(t, nil)
		tb.say(groupID, creatorID, "/note купити хліба #дім")
		assert.Equal(t, "✅ Записав: <b>купити хліба #дім</b>", tb.last())
		notes, err := tb.deps.Notes.ListNotesByTag(ctx, groupID, "дім")
		require.NoError(t, err)
		assert.Len(t, notes, 1)
	})

	t.Run("черновик сохраняется с тегами AI", func(t *testing.T) {
		tb := newTestBot(t, &stubAI{tags: "покупки, дім"})
		tb.say(ownerID, ownerID, "/note")
		tb.say(ownerID, ownerID, "купити молоко і хліб")
		assert.Equal(t, "📝 <b>Перевір:</b>\nкупити молоко і хліб\n\n🏷 <i>AI Теги: #покупки #дім</i>", tb.last())
		assert.Equal(t, StateNoteDraft, tb.sessions.Get(ownerID, ownerID).State)

		tb.press(ownerID, ownerID, cbSaveNote)
		assert.Equal(t, "✅ Збережено в категорію: #покупки #дім", tb.last())
		assert.Equal(t, StateIdle, tb.sessions.Get(ownerID, ownerID).State)
	})

	t.Run("свои теги вместо предложенных", func(t *testing.T) {
		tb := newTestBot(t, &stubAI{tags: "покупки"})
		tb.say(ownerID, ownerID, "/note")
		tb.say(ownerID, ownerID, "подзвонити бухгалтеру")
		tb.press(ownerID, ownerID, cbAddTags)
		tb.say(ownerID, ownerID, "робота, дзвінки")
		assert.Equal(t, "✅ Збережено з тегами: #робота #дзвінки", tb.last())
	})

	t.Run("устаревший черновик", func(t *testing.T) {
		tb := newTestBot(t, nil)
		tb.press(ownerID, ownerID, cbSaveNote)
		require.Len(t, tb.requests, 1)
		cb := tb.requests[0].(tgbotapi.CallbackConfig)
		assert.Equal(t, draftExpiredText, cb.Text)
		assert.True(t, cb.ShowAlert)
	})

	t.Run("фото без подписи", func(t *testing.T) {
		tb := newTestBot(t, nil)
		tb.say(ownerID, ownerID, "/note")
		msg := newMessage(ownerID, ownerID, "")
		msg.Photo = []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}}
		tb.handleUpdate(ctx, tgbotapi.Update{Message: msg})

		photo, ok := tb.sent[len(tb.sent)-1].(tgbotapi.PhotoConfig)
		require.True(t, ok)
		assert.Equal(t, tgbotapi.FileID("large"), photo.File)
		assert.Contains(t, photo.Caption, services.PhotoPlaceholder)
	})
}

func TestBot_PassiveVoice(t *testing.T) {
	ctx := context.Background()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OggS fake voice"))
	}))
	defer ts.Close()

	voiceFrom := func(chatID, userID int64) tgbotapi.Update {
		msg := newMessage(chatID, userID, "")
		msg.Voice = &tgbotapi.Voice{FileID: "voice-1", Duration: 3}
		return tgbotapi.Update{Message: msg}
	}

	t.Run("без прав голос молча пропускается", func(t *testing.T) {
		ai := &stubAI{transcript: "секрет"}
		tb := newTestBot(t, ai)
		tb.httpClient = ts.Client()
		tb.getFileDirectURLFunc = func(string) (string, error) { return ts.URL + "/voice", nil }

		tb.handleUpdate(ctx, voiceFrom(groupID, strangerID))
		assert.Empty(t, tb.sent)
		assert.Zero(t, ai.Calls())
	})

	t.Run("голос незнакомца в личке не расшифровывается", func(t *testing.T) {
		ai := &stubAI{transcript: "секрет"}
		tb := newTestBot(t, ai)
		tb.httpClient = ts.Client()
		tb.getFileDirectURLFunc = func(string) (string, error) { return ts.URL + "/voice", nil }

		tb.handleUpdate(ctx, voiceFrom(strangerID, strangerID))
		assert.Empty(t, tb.sent)
		assert.Zero(t, ai.Calls())
		all, err := tb.deps.Notes.ListAll(ctx, strangerID)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("короткая расшифровка сохраняется дословно", func(t *testing.T) {
		ai := &stubAI{transcript: "купити молоко завтра"}
		tb := newTestBot(t, ai)
		tb.httpClient = ts.Client()
		tb.getFileDirectURLFunc = func(string) (string, error) { return ts.URL + "/voice", nil }

		tb.handleUpdate(ctx, voiceFrom(ownerID, ownerID))
		assert.Contains(t, tb.last(), "🎙 Записав голосову нотатку")

		notes, err := tb.deps.Notes.ListAll(ctx, ownerID)
		require.NoError(t, err)
		require.Len(t, notes, 1)
		assert.Equal(t, "купити молоко завтра", notes[0].Content)
		assert.Equal(t, domain.MediaVoice, notes[0].MediaType)
		assert.Equal(t, "voice-1", notes[0].FileID)
	})

	t.Run("ошибка распознавания сообщается пользователю", func(t *testing.T) {
		ai := &stubAI{err: errors.New("502")}
		tb := newTestBot(t, ai)
		tb.httpClient = ts.Client()
		tb.getFileDirectURLFunc = func(string) (string, error) { return ts.URL + "/voice", nil }

		tb.handleUpdate(ctx, voiceFrom(ownerID, ownerID))
		assert.Equal(t, transcribeErrorText, tb.last())
	})
}

func TestBot_NotesBrowsing(t *testing.T) {
	ctx := context.Background()
	tb := newTestBot(t, nil)
	n, err := tb.deps.Notes.AddNote(ctx, groupID, "список покупок", "дім", "", domain.MediaNone)
	require.NoError(t, err)
	require.NoError(t, tb.deps.Access.Grant(ctx, ownerID, domain.MemberMember, groupID, 50))

	t.Run("категории видит доверенный", func(t *testing.T) {
		tb.reset()
		tb.say(groupID, 50, "/notes")
		msg := tb.sent[0].(tgbotapi.MessageConfig)
		kb := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
		assert.Equal(t, "📂 дім", kb.InlineKeyboard[0][0].Text)
		assert.Equal(t, "list_notes:дім", *kb.InlineKeyboard[0][0].CallbackData)
	})

	t.Run("чужой не может удалить", func(t *testing.T) {
		tb.reset()
		tb.press(groupID, strangerID, callbackData(cbDeleteNote, strconv.FormatInt(n.ID, 10), "дім"))
		cb := tb.requests[0].(tgbotapi.CallbackConfig)
		assert.Equal(t, noRightsText, cb.Text)
		_, err := tb.deps.Notes.GetNote(ctx, groupID, n.ID)
		assert.NoError(t, err)
	})

	t.Run("удаление последней заметки возвращает к пустой базе", func(t *testing.T) {
		tb.reset()
		tb.press(groupID, 50, callbackData(cbDeleteNote, strconv.FormatInt(n.ID, 10), "дім"))
		assert.Equal(t, "📭 База порожня.", tb.last())
		_, err := tb.deps.Notes.GetNote(ctx, groupID, n.ID)
		assert.True(t, services.IsNotFound(err))
	})
}

func TestBot_Trust(t *testing.T) {
	ctx := context.Background()
	tb := newTestBot(t, nil)

	replyTo := func(userID int64, text string, target int64) tgbotapi.Update {
		msg := newMessage(groupID, userID, text)
		msg.ReplyToMessage = &tgbotapi.Message{From: &tgbotapi.User{ID: target}}
		return tgbotapi.Update{Message: msg}
	}

	t.Run("создатель доверяет ответом на сообщение", func(t *testing.T) {
		tb.handleUpdate(ctx, replyTo(creatorID, "/trust", 77))
		assert.Equal(t, "🤝 Користувач <code>77</code> тепер довірений у цьому чаті.", tb.last())
		ok, err := tb.deps.Access.CheckPermission(ctx, 77, groupID, domain.MemberMember)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("доверенный участник не управляет доверием", func(t *testing.T) {
		tb.say(groupID, 77, "/trust 78")
		assert.Equal(t, "⛔️ Керувати довірою може лише власник або творець чату.", tb.last())
	})

	t.Run("владельца отозвать нельзя", func(t *testing.T) {
		tb.say(groupID, creatorID, "/untrust 1")
		assert.Equal(t, "🎩 Власника неможливо позбавити довіри.", tb.last())
	})

	t.Run("доверие всем администраторам", func(t *testing.T) {
		tb.say(groupID, creatorID, "/trust_admins")
		assert.Equal(t, "🤝 Довірено адміністраторів: 3", tb.last())
	})

	t.Run("без цели выводится список", func(t *testing.T) {
		tb.say(groupID, creatorID, "/trust")
		assert.Contains(t, tb.last(), "<code>77</code>")
		assert.Contains(t, tb.last(), "<code>31</code>")
	})
}

func TestBot_Export(t *testing.T) {
	ctx := context.Background()
	tb := newTestBot(t, nil)

	tb.say(ownerID, ownerID, "/export")
	assert.Equal(t, "📭 Немає що експортувати.", tb.last())

	_, err := tb.deps.Calendar.AddEvent(ctx, ownerID, "14.02", "Валентин", "")
	require.NoError(t, err)
	tb.say(ownerID, ownerID, "/export")
	doc, ok := tb.sent[len(tb.sent)-1].(tgbotapi.DocumentConfig)
	require.True(t, ok)
	assert.Equal(t, "📤 Експорт: подій 1, нотаток 0.", doc.Caption)
	file := doc.File.(tgbotapi.FileBytes)
	assert.Equal(t, "jeeves_export_2025-02-10_09-00-00.xlsx", file.Name)
	assert.NotEmpty(t, file.Bytes)
}

func TestBot_PanicRecovery(t *testing.T) {
	tb := newTestBot(t, nil)
	tb.sendMessageFunc = func(tgbotapi.Chattable) (tgbotapi.Message, error) { panic("telegram exploded") }

	assert.NotPanics(t, func() { tb.say(ownerID, ownerID, "/id") })
}

func TestBot_Notify(t *testing.T) {
	tb := newTestBot(t, nil)
	require.NoError(t, tb.Notify(context.Background(), ownerID, strings.Repeat("я", 5000)))
	msg := tb.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.LessOrEqual(t, len([]rune(msg.Text)), maxMessageLength)
	assert.True(t, strings.HasSuffix(msg.Text, "..."))
}
