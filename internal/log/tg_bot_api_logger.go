package log

import (
	"fmt"
	"log/slog"
	"strings"
)

// TGBotAPIAdapter направляет логи go-telegram-bot-api/v5 в slog.
// Сообщения проходят через маскировщик, так как библиотека печатает
// URL запросов вместе с токеном.
type TGBotAPIAdapter struct {
	Logger *slog.Logger
}

// Println реализует tgbotapi.BotLogger.
func (a *TGBotAPIAdapter) Println(v ...any) {
	a.log(strings.TrimSpace(fmt.Sprintln(v...)))
}

// Printf реализует tgbotapi.BotLogger.
func (a *TGBotAPIAdapter) Printf(format string, v ...any) {
	a.log(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// log поднимает уровень до Warn для сообщений библиотеки об ошибках
// (например, сбой long polling).
func (a *TGBotAPIAdapter) log(msg string) {
	if strings.Contains(strings.ToLower(msg), "error") || strings.Contains(msg, "Failed") {
		a.Logger.Warn(msg, slog.String("source", "tgbotapi"))
		return
	}
	a.Logger.Info(msg, slog.String("source", "tgbotapi"))
}
