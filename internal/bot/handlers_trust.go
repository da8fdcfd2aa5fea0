package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"jeeves-bot/internal/core/services"
)

const trustUsageText = "👥 Дай відповідь на повідомлення користувача командою або вкажи ID: <code>/trust 123456</code>"

// trustTarget определяет, кому выдается доверие: автору сообщения,
// на которое ответили, или пользователю с ID из аргумента.
func trustTarget(r *request) (int64, bool) {
	if reply := r.msg.ReplyToMessage; reply != nil && reply.From != nil && !reply.From.IsBot {
		return reply.From.ID, true
	}
	id, err := strconv.ParseInt(strings.TrimSpace(r.msg.CommandArguments()), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// trustErrorText переводит ошибку управления доверием в ответ пользователю.
func (b *Bot) trustErrorText(r *request, err error) string {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return "⛔️ Керувати довірою може лише власник або творець чату."
	case errors.Is(err, services.ErrOwnerProtected):
		return "🎩 Власника неможливо позбавити довіри."
	case errors.Is(err, services.ErrSelfRevoke):
		return "🙅 Творець чату не може відкликати довіру в себе."
	default:
		r.logger.Error("trust operation failed", slog.String("error", err.Error()))
		return storageErrorText
	}
}

func (b *Bot) cmdTrust(ctx context.Context, r *request) {
	status := b.memberStatus(ctx, r.chatID, r.userID, r.private)
	if !b.deps.Access.CanManageTrust(r.userID, status) {
		b.reply(ctx, r.chatID, b.trustErrorText(r, services.ErrForbidden))
		return
	}

	target, ok := trustTarget(r)
	if !ok {
		b.listTrusted(ctx, r)
		return
	}
	if err := b.deps.Access.Grant(ctx, r.userID, status, r.chatID, target); err != nil {
		b.reply(ctx, r.chatID, b.trustErrorText(r, err))
		return
	}
	b.reply(ctx, r.chatID, fmt.Sprintf("🤝 Користувач <code>%d</code> тепер довірений у цьому чаті.", target))
}

// listTrusted показывает текущий список доверенных и подсказку.
func (b *Bot) listTrusted(ctx context.Context, r *request) {
	grants, err := b.deps.Access.ListTrusted(ctx, r.chatID)
	if err != nil {
		b.reply(ctx, r.chatID, b.trustErrorText(r, err))
		return
	}
	var sb strings.Builder
	if len(grants) == 0 {
		sb.WriteString("👥 Список довірених порожній.")
	} else {
		sb.WriteString("👥 <b>Довірені в цьому чаті:</b>\n")
		for _, g := range grants {
			fmt.Fprintf(&sb, "• <code>%d</code>\n", g.UserID)
		}
	}
	sb.WriteString("\n\n")
	sb.WriteString(trustUsageText)
	b.reply(ctx, r.chatID, sb.String())
}

func (b *Bot) cmdUntrust(ctx context.Context, r *request) {
	status := b.memberStatus(ctx, r.chatID, r.userID, r.private)
	target, ok := trustTarget(r)
	if !ok {
		b.reply(ctx, r.chatID, strings.Replace(trustUsageText, "/trust", "/untrust", 1))
		return
	}
	if err := b.deps.Access.Revoke(ctx, r.userID, status, r.chatID, target); err != nil {
		b.reply(ctx, r.chatID, b.trustErrorText(r, err))
		return
	}
	b.reply(ctx, r.chatID, fmt.Sprintf("🚫 Довіру для <code>%d</code> відкликано.", target))
}

func (b *Bot) cmdTrustAdmins(ctx context.Context, r *request) {
	if r.private {
		b.reply(ctx, r.chatID, "ℹ️ Команда працює лише в групах.")
		return
	}
	status := b.memberStatus(ctx, r.chatID, r.userID, r.private)
	if !b.deps.Access.CanManageTrust(r.userID, status) {
		b.reply(ctx, r.chatID, b.trustErrorText(r, services.ErrForbidden))
		return
	}

	admins, err := b.chatAdminsFunc(r.chatID)
	if err != nil {
		r.logger.Warn("failed to get chat administrators", slog.String("error", err.Error()))
		b.reply(ctx, r.chatID, "❌ Не вдалося отримати список адміністраторів.")
		return
	}
	n, err := b.deps.Access.TrustAdmins(ctx, r.userID, status, r.chatID, admins)
	if err != nil {
		b.reply(ctx, r.chatID, b.trustErrorText(r, err))
		return
	}
	b.reply(ctx, r.chatID, fmt.Sprintf("🤝 Довірено адміністраторів: %d", n))
}
