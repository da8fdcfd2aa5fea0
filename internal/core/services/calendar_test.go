package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jeeves-bot/internal/domain"
)

var fixedNow = time.Date(2025, time.February, 14, 10, 0, 0, 0, time.UTC)

func newTestCalendar() (*CalendarService, *memEvents) {
	repo := newMemEvents()
	return NewCalendarService(repo, WithClock(func() time.Time { return fixedNow })), repo
}

func dates(events []domain.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Date.String())
	}
	return out
}

func TestCalendarService_ListEvents(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestCalendar()
	// Порядок добавления намеренно перемешан.
	for _, d := range []string{"18.03", "22.02", "14.02", "01.01", "17.03", "15.02", "10.03", "21.02", "13.02", "20.02"} {
		_, err := s.AddEvent(ctx, chatID, d, "event "+d, "")
		require.NoError(t, err)
	}

	tests := []struct {
		filter domain.EventFilter
		want   []string
	}{
		{domain.FilterToday, []string{"14.02"}},
		{domain.FilterWeek, []string{"14.02", "15.02", "20.02", "21.02"}},
		{domain.FilterMonth, []string{"14.02", "15.02", "20.02", "21.02", "22.02", "10.03", "17.03"}},
		{domain.FilterWinter, []string{"01.01", "13.02", "14.02", "15.02", "20.02", "21.02", "22.02"}},
		{domain.FilterSpring, []string{"10.03", "17.03", "18.03"}},
		{domain.FilterSummer, []string{}},
		{domain.FilterAll, []string{"01.01", "13.02", "14.02", "15.02", "20.02", "21.02", "22.02", "10.03", "17.03", "18.03"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			got, err := s.ListEvents(ctx, chatID, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, dates(got))
		})
	}

	t.Run("неизвестный фильтр", func(t *testing.T) {
		_, err := s.ListEvents(ctx, chatID, domain.EventFilter("year"))
		assert.Error(t, err)
	})

	t.Run("события других чатов не видны", func(t *testing.T) {
		got, err := s.ListEvents(ctx, 777, domain.FilterAll)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestCalendarService_WeekAcrossNewYear(t *testing.T) {
	ctx := context.Background()
	repo := newMemEvents()
	s := NewCalendarService(repo, WithClock(func() time.Time {
		return time.Date(2024, time.December, 29, 9, 0, 0, 0, time.UTC)
	}))
	for _, d := range []string{"02.01", "30.12", "06.01"} {
		_, err := s.AddEvent(ctx, chatID, d, "x", "")
		require.NoError(t, err)
	}

	got, err := s.ListEvents(ctx, chatID, domain.FilterWeek)
	require.NoError(t, err)
	assert.Equal(t, []string{"30.12", "02.01"}, dates(got))
}

func TestCalendarService_AddEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("текст сохраняется без изменений", func(t *testing.T) {
		s, _ := newTestCalendar()
		for day := 1; day <= 31; day += 5 {
			for month := 1; month <= 12; month += 3 {
				_, err := s.AddEvent(ctx, chatID, fmt.Sprintf("%d.%d", day, month), "Tom & <Jerry>", "")
				require.NoError(t, err)
			}
		}
		all, err := s.ListEvents(ctx, chatID, domain.FilterAll)
		require.NoError(t, err)
		require.NotEmpty(t, all)
		for _, e := range all {
			assert.Equal(t, "Tom & <Jerry>", e.Text)
			assert.Len(t, e.Date.String(), 5)
		}
	})

	t.Run("некорректная дата ничего не меняет", func(t *testing.T) {
		s, repo := newTestCalendar()
		for _, d := range []string{"1402", "aa.bb", "32.01", "10.13", "0.5", "", "14.02.2025"} {
			_, err := s.AddEvent(ctx, chatID, d, "x", "")
			assert.ErrorIs(t, err, ErrInvalidDate, d)
		}
		events, err := repo.List(ctx, chatID)
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("пустой текст", func(t *testing.T) {
		s, _ := newTestCalendar()
		_, err := s.AddEvent(ctx, chatID, "14.02", "   ", "")
		assert.ErrorIs(t, err, ErrEmptyText)
	})

	t.Run("ссылка @user и отображение", func(t *testing.T) {
		s, _ := newTestCalendar()
		e, err := s.AddEvent(ctx, chatID, "14.02", "Gift", "@alice")
		require.NoError(t, err)
		assert.Equal(t, "https://t.me/alice", e.Link)
		assert.Equal(t, "<a href='https://t.me/alice'>Gift</a> ✈️", RenderEvent(e))
	})
}

func TestNormalizeLink(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"@alice", "https://t.me/alice"},
		{"+380 50 111-22-33", "https://t.me/+380501112233"},
		{"viber 0501112233", "https://viber.click/0501112233"},
		{"wa.me/380501112233", "https://wa.me/380501112233"},
		{"example.com/page", "https://example.com/page"},
		{"https://example.com", "https://example.com"},
		{"durov_channel", "https://t.me/durov_channel"},
		{"-", ""},
		{"Ні", ""},
		{"no", ""},
		{"", ""},
		{"просто текст", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeLink(tt.in))
		})
	}
}

func TestRenderEvent(t *testing.T) {
	assert.Equal(t, "a &lt;b&gt; &amp; c", RenderEvent(domain.Event{Text: "a <b> & c"}))
	assert.Equal(t, "<a href='https://viber.click/123'>x</a> 🟣", RenderEvent(domain.Event{Text: "x", Link: "https://viber.click/123"}))
	assert.Equal(t, "<a href='https://example.com'>x</a> 🌐", RenderEvent(domain.Event{Text: "x", Link: "https://example.com"}))
	assert.Equal(t, "<a href='https://e.com/?a=&#39;1&#39;'>x</a> 🌐", RenderEvent(domain.Event{Text: "x", Link: "https://e.com/?a='1'"}))
}

func TestCalendarService_MassImport(t *testing.T) {
	ctx := context.Background()

	t.Run("импорт двух событий", func(t *testing.T) {
		s, _ := newTestCalendar()
		n, err := s.MassImport(ctx, chatID, "14.02 Valentine\n08.03 Women's day")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		all, err := s.ListEvents(ctx, chatID, domain.FilterAll)
		require.NoError(t, err)
		assert.Equal(t, []string{"14.02", "08.03"}, dates(all))
		assert.Equal(t, "Women's day", all[1].Text)
	})

	t.Run("некорректные строки пропускаются", func(t *testing.T) {
		s, _ := newTestCalendar()
		block := "14.02 Valentine\nбез дати\n1402 no dot\n32.01 bad day\n\n  1.3\tВесна  \r\n25.12"
		n, err := s.MassImport(ctx, chatID, block)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("параллельные импорты не дублируют ID", func(t *testing.T) {
		s, repo := newTestCalendar()
		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.MassImport(ctx, chatID, "01.01 a\n02.01 b\n03.01 c")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		events, err := repo.List(ctx, chatID)
		require.NoError(t, err)
		require.Len(t, events, 15)
		seen := map[int64]bool{}
		for _, e := range events {
			assert.False(t, seen[e.ID])
			seen[e.ID] = true
		}
	})
}

func TestCalendarService_DeleteEvents(t *testing.T) {
	ctx := context.Background()
	setup := func(t *testing.T) *CalendarService {
		s, _ := newTestCalendar()
		_, err := s.MassImport(ctx, chatID, "14.02 Valentine\n14.02 Buy GIFT\n08.03 gift for mom\n01.05 Travail")
		require.NoError(t, err)
		return s
	}

	t.Run("по дате", func(t *testing.T) {
		s := setup(t)
		removed, err := s.DeleteEvents(ctx, chatID, "14.02")
		require.NoError(t, err)
		assert.Equal(t, []string{"14.02", "14.02"}, dates(removed))

		left, err := s.ListEvents(ctx, chatID, domain.FilterAll)
		require.NoError(t, err)
		assert.Equal(t, []string{"08.03", "01.05"}, dates(left))
	})

	t.Run("дата в тексте другого события не задевает его", func(t *testing.T) {
		s := setup(t)
		_, err := s.AddEvent(ctx, chatID, "01.03", "pay invoice from 14.02", "")
		require.NoError(t, err)

		removed, err := s.DeleteEvents(ctx, chatID, "14.02")
		require.NoError(t, err)
		assert.Equal(t, []string{"14.02", "14.02"}, dates(removed))

		left, err := s.ListEvents(ctx, chatID, domain.FilterAll)
		require.NoError(t, err)
		assert.Equal(t, []string{"01.03", "08.03", "01.05"}, dates(left))
	})

	t.Run("по подстроке без учета регистра", func(t *testing.T) {
		s := setup(t)
		removed, err := s.DeleteEvents(ctx, chatID, "gift")
		require.NoError(t, err)
		assert.Equal(t, []string{"14.02", "08.03"}, dates(removed))

		report := FormatDeleteReport(removed)
		assert.Contains(t, report, "Видалено подій: 2")
		assert.Contains(t, report, "Buy GIFT")
	})

	t.Run("кириллица без учета регистра", func(t *testing.T) {
		s, _ := newTestCalendar()
		_, err := s.AddEvent(ctx, chatID, "07.01", "РІЗДВО", "")
		require.NoError(t, err)
		removed, err := s.DeleteEvents(ctx, chatID, "різдво")
		require.NoError(t, err)
		assert.Len(t, removed, 1)
	})

	t.Run("ничего не найдено", func(t *testing.T) {
		s := setup(t)
		removed, err := s.DeleteEvents(ctx, chatID, "nothing")
		require.NoError(t, err)
		assert.Empty(t, removed)
		assert.Equal(t, NothingFound, FormatDeleteReport(removed))
	})
}

func TestCalendarService_UpdateEventText(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestCalendar()
	e, err := s.AddEvent(ctx, chatID, "14.02", "old", "")
	require.NoError(t, err)

	ok, err := s.UpdateEventText(ctx, chatID, e.ID, "new")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.GetEvent(ctx, chatID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Text)

	ok, err = s.UpdateEventText(ctx, 777, e.ID, "hack")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.UpdateEventText(ctx, chatID, e.ID, " ")
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = s.GetEvent(ctx, chatID, 999)
	assert.True(t, IsNotFound(err))
}

func TestCalendarService_UpcomingDigest(t *testing.T) {
	ctx := context.Background()

	t.Run("пустой календарь", func(t *testing.T) {
		s, _ := newTestCalendar()
		text, ok, err := s.UpcomingDigest(ctx, chatID)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, text)
	})

	t.Run("нет событий на неделе", func(t *testing.T) {
		s, _ := newTestCalendar()
		_, err := s.AddEvent(ctx, chatID, "01.06", "літо", "")
		require.NoError(t, err)
		_, ok, err := s.UpcomingDigest(ctx, chatID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("три раздела", func(t *testing.T) {
		s, _ := newTestCalendar()
		_, err := s.MassImport(ctx, chatID, "14.02 Valentine\n15.02 Tomorrow\n19.02 Soon\n01.06 Far")
		require.NoError(t, err)

		text, ok, err := s.UpcomingDigest(ctx, chatID)
		require.NoError(t, err)
		require.True(t, ok)

		today := strings.Index(text, "Сьогодні")
		tomorrow := strings.Index(text, "Завтра")
		soon := strings.Index(text, "Найближчий тиждень")
		assert.True(t, today >= 0 && tomorrow > today && soon > tomorrow)
		assert.Contains(t, text, "• 19.02 (через 5 дн.): Soon")
		assert.NotContains(t, text, "Far")
	})
}
