// Package system собирает сведения о телефоне под Termux и управляет
// процессами pm2, фонариком и синтезом речи.
package system

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"jeeves-bot/internal/metrics"
	"jeeves-bot/internal/ports"
)

// Termux реализует ports.SystemReporter поверх утилит Termux.
type Termux struct {
	runner         Runner
	expectedOnline int
	logger         *slog.Logger
}

var _ ports.SystemReporter = (*Termux)(nil)

// NewTermux создает репортер. expectedOnline - число процессов pm2,
// которые должны быть в статусе online; 0 отключает эту строку отчета.
func NewTermux(runner Runner, expectedOnline int, logger *slog.Logger) *Termux {
	if runner == nil {
		runner = ExecRunner{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Termux{
		runner:         runner,
		expectedOnline: expectedOnline,
		logger:         logger.With(slog.String("component", "system")),
	}
}

func (t *Termux) run(ctx context.Context, name string, args ...string) (string, error) {
	start := time.Now()
	out, err := t.runner.Run(ctx, name, args...)
	metrics.ObserveExternal("cmd_"+name, start, err)
	if err != nil {
		t.logger.Warn("command failed",
			slog.String("cmd", name), slog.Any("error", err))
	}
	return strings.TrimSpace(string(out)), err
}

// Battery возвращает заряд и статус батареи.
func (t *Termux) Battery(ctx context.Context) string {
	out, err := t.run(ctx, "termux-battery-status")
	if err != nil {
		return "🔋 Невідомо (Termux API error)"
	}
	var data struct {
		Percentage int    `json:"percentage"`
		Status     string `json:"status"`
	}
	if err := json.Unmarshal([]byte(out), &data); err != nil {
		return "🔋 Невідомо (Termux API error)"
	}
	if data.Status == "" {
		data.Status = "Unknown"
	}
	icon := "🔋"
	if data.Status == "Charging" {
		icon = "⚡️"
	}
	return fmt.Sprintf("%s %d%% (%s)", icon, data.Percentage, data.Status)
}

// StorageInfo возвращает строку df для корневого раздела.
func (t *Termux) StorageInfo(ctx context.Context) string {
	out, err := t.run(ctx, "df", "-h", "/")
	if err != nil {
		return "Не вдалося отримати дані диска."
	}
	lines := strings.Split(out, "\n")
	if len(lines) >= 2 {
		return strings.TrimSpace(lines[1])
	}
	return out
}

// Uptime возвращает время работы устройства без префикса "up".
func (t *Termux) Uptime(ctx context.Context) string {
	out, err := t.run(ctx, "uptime", "-p")
	if err != nil {
		return "n/a"
	}
	return strings.TrimPrefix(out, "up ")
}

// Memory возвращает использованную и общую память из free -h.
func (t *Termux) Memory(ctx context.Context) string {
	out, err := t.run(ctx, "free", "-h")
	if err != nil {
		return "n/a"
	}
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "Mem:") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 3 {
			break
		}
		return fmt.Sprintf("%s/%s (Used/Total)", parts[2], parts[1])
	}
	return "RAM data error"
}

// pm2Process - запись из pm2 jlist.
type pm2Process struct {
	Name   string `json:"name"`
	PM2Env struct {
		Status string `json:"status"`
	} `json:"pm2_env"`
}

// Processes возвращает строку вида "online 3/4" и имена упавших процессов.
func (t *Termux) Processes(ctx context.Context) string {
	out, err := t.run(ctx, "pm2", "jlist")
	if err != nil {
		return "pm2 недоступний"
	}
	var list []pm2Process
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		return "pm2 недоступний"
	}

	online := 0
	var down []string
	for _, p := range list {
		if p.PM2Env.Status == "online" {
			online++
			continue
		}
		down = append(down, p.Name)
	}

	icon := "✅"
	if online < t.expectedOnline {
		icon = "⚠️"
	}
	s := fmt.Sprintf("%s online %d/%d", icon, online, t.expectedOnline)
	if len(down) > 0 {
		s += " (" + strings.Join(down, ", ") + ")"
	}
	return s
}

// FullReport собирает сводку для кнопки "Статус" и планового отчета.
func (t *Termux) FullReport(ctx context.Context) string {
	var sb strings.Builder
	sb.WriteString("🤖 <b>System Report</b>\n")
	fmt.Fprintf(&sb, "⏱ <b>Uptime:</b> %s\n", t.Uptime(ctx))
	fmt.Fprintf(&sb, "🔋 <b>Battery:</b> %s\n", t.Battery(ctx))
	fmt.Fprintf(&sb, "🧠 <b>RAM:</b> %s\n", t.Memory(ctx))
	fmt.Fprintf(&sb, "💾 <b>Disk (/):</b> %s", t.StorageInfo(ctx))
	if t.expectedOnline > 0 {
		fmt.Fprintf(&sb, "\n⚙️ <b>PM2:</b> %s", t.Processes(ctx))
	}
	return sb.String()
}

// RestartService перезапускает процесс pm2 с обновлением окружения.
func (t *Termux) RestartService(ctx context.Context, name string) bool {
	_, err := t.run(ctx, "pm2", "restart", name, "--update-env")
	if err == nil {
		t.logger.Info("service restarted", slog.String("service", name))
	}
	return err == nil
}

// Torch включает или выключает фонарик.
func (t *Termux) Torch(ctx context.Context, on bool) {
	state := "off"
	if on {
		state = "on"
	}
	_, _ = t.run(ctx, "termux-torch", state)
}

// Speak озвучивает текст через TTS Android.
func (t *Termux) Speak(ctx context.Context, text string) {
	_, _ = t.run(ctx, "termux-tts-speak", text)
}
