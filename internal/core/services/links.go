package services

import (
	"regexp"
	"strings"
)

var (
	phoneRe    = regexp.MustCompile(`^\+?[\d\s\-()]{7,}$`)
	usernameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{4,31}$`)
)

// NormalizeLink превращает сокращенную запись контакта в полный URL.
//
//	@user            → https://t.me/user
//	+380 50 111 2233 → https://t.me/+380501112233
//	viber 0501112233 → https://viber.click/0501112233
//	wa.me/380501112  → https://wa.me/380501112
//	example.com      → https://example.com
//	-, ні, no, ""    → без ссылки
func NormalizeLink(raw string) string {
	link := strings.TrimSpace(raw)
	switch strings.ToLower(link) {
	case "", "-", "ні", "no":
		return ""
	}

	lower := strings.ToLower(link)
	digits := onlyDigits(link)

	switch {
	case strings.Contains(lower, "viber"):
		if digits == "" {
			return ""
		}
		return "https://viber.click/" + digits
	case strings.Contains(lower, "wa.me"):
		if digits == "" {
			return ""
		}
		return "https://wa.me/" + digits
	case strings.HasPrefix(link, "@"):
		name := strings.TrimPrefix(link, "@")
		if name == "" {
			return ""
		}
		return "https://t.me/" + name
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return link
	case phoneRe.MatchString(link):
		return "https://t.me/+" + digits
	case strings.Contains(link, ".") && !strings.ContainsAny(link, " \t"):
		return "https://" + link
	case usernameRe.MatchString(link):
		return "https://t.me/" + link
	}
	return ""
}

// linkIcon подбирает значок по адресу ссылки.
func linkIcon(url string) string {
	switch {
	case strings.Contains(url, "t.me"):
		return "✈️"
	case strings.Contains(url, "viber"):
		return "🟣"
	default:
		return "🌐"
	}
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
