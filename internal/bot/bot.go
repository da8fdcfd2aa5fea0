package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"jeeves-bot/internal/core/services"
	"jeeves-bot/internal/domain"
	"jeeves-bot/internal/metrics"
	"jeeves-bot/internal/pkg/config"
	"jeeves-bot/internal/ports"
)

// BackupFunc делает резервную копию базы и возвращает путь к файлу.
type BackupFunc func(ctx context.Context) (string, error)

// Deps - сервисы и клиенты, которыми пользуется бот.
// Weather, News, Prices, System и Backup могут быть nil: соответствующие
// команды тогда отвечают, что функция не настроена.
type Deps struct {
	Access   *services.AccessService
	Calendar *services.CalendarService
	Notes    *services.NotesService
	Briefing *services.BriefingService
	Weather  ports.WeatherProvider
	News     ports.NewsProvider
	Prices   ports.PriceSearcher
	System   ports.SystemReporter
	Backup   BackupFunc
}

// Bot представляет собой основной объект Telegram-бота.
type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      config.Bot
	deps     Deps
	sessions *SessionStore
	limiter  *rate.Limiter
	logger   *slog.Logger

	httpClient *http.Client
	now        func() time.Time

	// Поля-функции подменяются в тестах.
	sendMessageFunc      func(c tgbotapi.Chattable) (tgbotapi.Message, error)
	requestFunc          func(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	getFileDirectURLFunc func(fileID string) (string, error)
	memberStatusFunc     func(chatID, userID int64) (domain.MemberStatus, error)
	chatAdminsFunc       func(chatID int64) ([]int64, error)
}

// NewBot создает и инициализирует новый экземпляр бота.
func NewBot(cfg config.Bot, deps Deps, sessions *SessionStore, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api: %w", err)
	}
	api.Debug = cfg.Debug

	logger.Info("Authorized on account", slog.String("username", api.Self.UserName))

	b := newBot(cfg, deps, sessions, logger)
	b.api = api
	b.sendMessageFunc = api.Send
	b.requestFunc = api.Request
	b.getFileDirectURLFunc = api.GetFileDirectURL
	b.memberStatusFunc = func(chatID, userID int64) (domain.MemberStatus, error) {
		m, err := api.GetChatMember(tgbotapi.GetChatMemberConfig{
			ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
		})
		if err != nil {
			return "", err
		}
		return domain.MemberStatus(m.Status), nil
	}
	b.chatAdminsFunc = func(chatID int64) ([]int64, error) {
		admins, err := api.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
			ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
		})
		if err != nil {
			return nil, err
		}
		ids := make([]int64, 0, len(admins))
		for _, a := range admins {
			if a.User != nil && !a.User.IsBot {
				ids = append(ids, a.User.ID)
			}
		}
		return ids, nil
	}
	return b, nil
}

// newBot собирает бота без подключения к Telegram.
func newBot(cfg config.Bot, deps Deps, sessions *SessionStore, logger *slog.Logger) *Bot {
	limit := rate.Inf
	if cfg.SendRatePerSecond > 0 {
		limit = rate.Limit(cfg.SendRatePerSecond)
	}
	burst := cfg.SendBurst
	if burst <= 0 {
		burst = 1
	}
	return &Bot{
		cfg:        cfg,
		deps:       deps,
		sessions:   sessions,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		now:        time.Now,
	}
}

// Start запускает основной цикл обработки обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.PollTimeoutSeconds
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Context cancelled, stopping bot...")
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// handleUpdate обрабатывает одно обновление. Паника в обработчике
// логируется и не останавливает цикл.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	logger := b.logger.With(slog.String("trace_id", uuid.NewString()), slog.Int("update_id", update.UpdateID))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in update handler",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	switch {
	case update.Message != nil && update.Message.Chat != nil && update.Message.From != nil:
		b.handleMessage(ctx, b.newRequest(update.Message, logger))
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		b.handleCallback(ctx, update.CallbackQuery, logger)
	}
}

// request - входящее сообщение вместе с тем, что о нем уже известно.
type request struct {
	msg     *tgbotapi.Message
	chatID  int64
	userID  int64
	private bool
	logger  *slog.Logger
}

func (b *Bot) newRequest(msg *tgbotapi.Message, logger *slog.Logger) *request {
	return &request{
		msg:     msg,
		chatID:  msg.Chat.ID,
		userID:  msg.From.ID,
		private: msg.Chat.IsPrivate(),
		logger:  logger.With(slog.Int64("chat_id", msg.Chat.ID), slog.Int64("user_id", msg.From.ID)),
	}
}

// handleMessage обрабатывает входящее сообщение.
func (b *Bot) handleMessage(ctx context.Context, r *request) {
	if r.msg.IsCommand() {
		b.handleCommand(ctx, r)
		return
	}

	if r.msg.Text != "" {
		if h, ok := b.buttons()[r.msg.Text]; ok {
			b.sessions.Reset(r.chatID, r.userID)
			metrics.IncCommand("button:" + r.msg.Text)
			h(ctx, r)
			return
		}
	}

	if sess := b.sessions.Get(r.chatID, r.userID); sess.State != StateIdle {
		b.handleState(ctx, r, sess)
		return
	}

	if r.msg.Voice != nil {
		b.handlePassiveVoice(ctx, r)
	}
}

type handlerFunc func(ctx context.Context, r *request)

func (b *Bot) commands() map[string]handlerFunc {
	return map[string]handlerFunc{
		"start":        b.cmdStart,
		"help":         b.cmdHelp,
		"id":           b.cmdID,
		"cancel":       b.cmdCancel,
		"status":       b.ownerOnly(b.cmdStatus),
		"storage":      b.ownerOnly(b.cmdStorage),
		"ping":         b.ownerOnly(b.cmdPing),
		"say":          b.ownerOnly(b.cmdSay),
		"light_on":     b.ownerOnly(b.cmdLightOn),
		"light_off":    b.ownerOnly(b.cmdLightOff),
		"r_cat":        b.ownerOnly(b.cmdRestartCat),
		"r_ssh":        b.ownerOnly(b.cmdRestartSSH),
		"r_status":     b.ownerOnly(b.cmdRestartSelf),
		"reboot":       b.ownerOnly(b.cmdRestartSelf),
		"backup":       b.ownerOnly(b.cmdBackup),
		"weather":      b.authorizedOnly(b.cmdWeather),
		"set_city":     b.authorizedOnly(b.cmdSetCity),
		"news":         b.authorizedOnly(b.cmdNews),
		"price":        b.authorizedOnly(b.cmdPrice),
		"events":       b.authorizedOnly(b.cmdEvents),
		"import":       b.authorizedOnly(b.cmdImport),
		"add":          b.authorizedOnly(b.cmdAdd),
		"del":          b.authorizedOnly(b.cmdDel),
		"briefing":     b.authorizedOnly(b.cmdBriefing),
		"export":       b.authorizedOnly(b.cmdExport),
		"note":         b.cmdNote,
		"notes":        b.cmdNotes,
		"trust":        b.cmdTrust,
		"untrust":      b.cmdUntrust,
		"trust_admins": b.cmdTrustAdmins,
	}
}

func (b *Bot) buttons() map[string]handlerFunc {
	return map[string]handlerFunc{
		btnCalendar:    b.authorizedOnly(b.cmdEvents),
		btnWeather:     b.authorizedOnly(b.cmdWeather),
		btnNews:        b.authorizedOnly(b.cmdNews),
		btnTorchOn:     b.ownerOnly(b.cmdLightOn),
		btnTorchOff:    b.ownerOnly(b.cmdLightOff),
		btnStatus:      b.ownerOnly(b.cmdStatus),
		btnRestartCat:  b.ownerOnly(b.cmdRestartCat),
		btnRestartSSH:  b.ownerOnly(b.cmdRestartSSH),
		btnRestartSelf: b.ownerOnly(b.cmdRestartSelf),
	}
}

// handleCommand обрабатывает команды.
func (b *Bot) handleCommand(ctx context.Context, r *request) {
	cmd := r.msg.Command()
	h, ok := b.commands()[cmd]
	if !ok {
		if r.private {
			b.reply(ctx, r.chatID, "🤷‍♂️ Я не знаю такої команди. Список команд: /help")
		}
		return
	}
	// Любая команда прерывает начатый диалог.
	if cmd != "cancel" {
		b.sessions.Reset(r.chatID, r.userID)
	}
	metrics.IncCommand(cmd)
	r.logger.Info("command received", slog.String("command", cmd))
	h(ctx, r)
}

// ownerOnly молча игнорирует всех, кроме владельца.
func (b *Bot) ownerOnly(h handlerFunc) handlerFunc {
	return func(ctx context.Context, r *request) {
		if !b.deps.Access.IsOwner(r.userID) {
			r.logger.Debug("owner command ignored")
			return
		}
		h(ctx, r)
	}
}

// authorizedOnly пропускает владельца и глобальных администраторов.
func (b *Bot) authorizedOnly(h handlerFunc) handlerFunc {
	return func(ctx context.Context, r *request) {
		if !b.deps.Access.IsAuthorized(r.userID) {
			r.logger.Debug("admin command ignored")
			return
		}
		h(ctx, r)
	}
}

// handleState продолжает начатый диалог.
func (b *Bot) handleState(ctx context.Context, r *request, sess Session) {
	switch sess.State {
	case StateNoteContent:
		b.processNoteContent(ctx, r)
	case StateNoteDraft:
		// Черновик ждет нажатия кнопки; текст считаем своими тегами.
		if r.msg.Text == "" {
			b.reply(ctx, r.chatID, "👆 Обери дію під чернеткою або /cancel.")
			return
		}
		b.processNoteTags(ctx, r, sess)
	case StateNoteTags:
		b.processNoteTags(ctx, r, sess)
	case StateAddDate:
		b.processAddDate(ctx, r, sess)
	case StateAddName:
		b.processAddName(ctx, r, sess)
	case StateAddLink:
		b.processAddLink(ctx, r, sess)
	case StateImport:
		b.processImport(ctx, r)
	case StateEditText:
		b.processEditText(ctx, r, sess)
	case StateCity:
		b.sessions.Reset(r.chatID, r.userID)
		b.findAndSaveCity(ctx, r.chatID, r.msg.Text)
	default:
		b.sessions.Reset(r.chatID, r.userID)
	}
}

// handleCallback обрабатывает нажатия inline-кнопок.
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, logger *slog.Logger) {
	data := cb.Data
	chatID := cb.Message.Chat.ID
	logger = logger.With(slog.Int64("chat_id", chatID), slog.Int64("user_id", cb.From.ID), slog.String("data", data))
	action, _, _ := strings.Cut(data, ":")
	metrics.IncCommand("callback:" + callbackName(action))

	switch {
	case strings.HasPrefix(data, cbCalendarPrefix):
		b.onCalendarFilter(ctx, cb, logger)
	case strings.HasPrefix(data, cbEditEventPrefix):
		b.onEditEvent(ctx, cb, logger)
	case data == cbSaveNote:
		b.onSaveNote(ctx, cb, logger)
	case data == cbAddTags:
		b.onAddTags(ctx, cb)
	case action == cbListNotes:
		b.onListNotes(ctx, cb, logger)
	case action == cbViewNote:
		b.onViewNote(ctx, cb, logger)
	case action == cbDeleteNote:
		b.onDeleteNote(ctx, cb, logger)
	case data == cbBackToTags:
		b.deleteMessage(ctx, chatID, cb.Message.MessageID)
		b.showTags(ctx, chatID, logger)
		b.answer(ctx, cb, "")
	case data == cbDeleteMsg:
		b.deleteMessage(ctx, chatID, cb.Message.MessageID)
		b.answer(ctx, cb, "")
	default:
		logger.Warn("unknown callback")
		b.answer(ctx, cb, "")
	}
}

// callbackName сводит callback data к метке без идентификаторов.
func callbackName(action string) string {
	switch {
	case strings.HasPrefix(action, cbCalendarPrefix):
		return "cal"
	case strings.HasPrefix(action, cbEditEventPrefix):
		return "edit_evt"
	}
	return action
}

// memberStatus возвращает роль пользователя в чате. В личке собеседник
// остается участником: доступ к заметкам там есть только у владельца и
// доверенных. Ошибка API понижает роль до участника.
func (b *Bot) memberStatus(ctx context.Context, chatID, userID int64, private bool) domain.MemberStatus {
	if private {
		return domain.MemberMember
	}
	status, err := b.memberStatusFunc(chatID, userID)
	if err != nil {
		b.logger.WarnContext(ctx, "failed to get chat member",
			slog.Int64("chat_id", chatID), slog.Int64("user_id", userID), slog.String("error", err.Error()))
		return domain.MemberMember
	}
	return status
}

// canUseNotes проверяет доступ к базе знаний чата.
func (b *Bot) canUseNotes(ctx context.Context, chatID, userID int64, private bool) (domain.MemberStatus, bool) {
	status := b.memberStatus(ctx, chatID, userID, private)
	ok, err := b.deps.Access.CheckPermission(ctx, userID, chatID, status)
	if err != nil {
		b.logger.ErrorContext(ctx, "permission check failed",
			slog.Int64("chat_id", chatID), slog.Int64("user_id", userID), slog.String("error", err.Error()))
		return status, false
	}
	return status, ok
}

// Notify отправляет сообщение в чат вне контекста входящего обновления.
func (b *Bot) Notify(ctx context.Context, chatID int64, text string) error {
	_, err := b.send(ctx, newHTMLMessage(chatID, text))
	return err
}
