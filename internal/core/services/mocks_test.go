package services

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"

	"jeeves-bot/internal/domain"
)

// memTrust - потокобезопасная реализация TrustRepository в памяти.
type memTrust struct {
	mu     sync.Mutex
	grants map[[2]int64]domain.TrustGrant
	err    error
}

func newMemTrust() *memTrust {
	return &memTrust{grants: make(map[[2]int64]domain.TrustGrant)}
}

func (m *memTrust) Grant(_ context.Context, g domain.TrustGrant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	key := [2]int64{g.ChatID, g.UserID}
	if _, ok := m.grants[key]; !ok {
		m.grants[key] = g
	}
	return nil
}

func (m *memTrust) Revoke(_ context.Context, chatID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.grants, [2]int64{chatID, userID})
	return m.err
}

func (m *memTrust) Exists(_ context.Context, chatID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.grants[[2]int64{chatID, userID}]
	return ok, nil
}

func (m *memTrust) List(_ context.Context, chatID int64) ([]domain.TrustGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TrustGrant
	for k, g := range m.grants {
		if k[0] == chatID {
			out = append(out, g)
		}
	}
	return out, m.err
}

// memEvents хранит события в памяти и выдает ID как max+1 в пределах чата.
type memEvents struct {
	mu     sync.Mutex
	events map[int64][]domain.Event
}

func newMemEvents() *memEvents {
	return &memEvents{events: make(map[int64][]domain.Event)}
}

func (m *memEvents) nextID(chatID int64) int64 {
	var max int64
	for _, e := range m.events[chatID] {
		if e.ID > max {
			max = e.ID
		}
	}
	return max + 1
}

func (m *memEvents) Create(_ context.Context, e domain.Event) (domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.nextID(e.ChatID)
	m.events[e.ChatID] = append(m.events[e.ChatID], e)
	return e, nil
}

func (m *memEvents) CreateBatch(_ context.Context, chatID int64, events []domain.Event) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range events {
		e.ChatID = chatID
		e.ID = m.nextID(chatID)
		m.events[chatID] = append(m.events[chatID], e)
	}
	return len(events), nil
}

func (m *memEvents) List(_ context.Context, chatID int64) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Event, len(m.events[chatID]))
	copy(out, m.events[chatID])
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memEvents) Get(_ context.Context, chatID, id int64) (domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events[chatID] {
		if e.ID == id {
			return e, nil
		}
	}
	return domain.Event{}, domain.ErrNotFound
}

func (m *memEvents) UpdateText(_ context.Context, chatID, id int64, text string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.events[chatID] {
		if e.ID == id {
			m.events[chatID][i].Text = text
			return true, nil
		}
	}
	return false, nil
}

func (m *memEvents) Delete(_ context.Context, chatID int64, ids []int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop := make(map[int64]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := m.events[chatID][:0]
	removed := 0
	for _, e := range m.events[chatID] {
		if drop[e.ID] {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.events[chatID] = kept
	return removed, nil
}

// memNotes хранит заметки в памяти с глобальным ID.
type memNotes struct {
	mu     sync.Mutex
	lastID int64
	notes  []domain.Note
}

func (m *memNotes) Create(_ context.Context, n domain.Note) (domain.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastID++
	n.ID = m.lastID
	m.notes = append(m.notes, n)
	return n, nil
}

func (m *memNotes) filter(chatID int64, keep func(domain.Note) bool) []domain.Note {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Note
	for _, n := range m.notes {
		if n.ChatID == chatID && keep(n) {
			out = append(out, n)
		}
	}
	return out
}

func (m *memNotes) TagStrings(_ context.Context, chatID int64) ([]string, error) {
	var out []string
	for _, n := range m.filter(chatID, func(n domain.Note) bool { return n.Tags != "" }) {
		out = append(out, n.Tags)
	}
	return out, nil
}

func (m *memNotes) ListByTag(_ context.Context, chatID int64, tag string) ([]domain.Note, error) {
	return m.filter(chatID, func(n domain.Note) bool { return strings.Contains(n.Tags, tag) }), nil
}

func (m *memNotes) ListUntagged(_ context.Context, chatID int64) ([]domain.Note, error) {
	return m.filter(chatID, func(n domain.Note) bool { return n.Tags == "" }), nil
}

func (m *memNotes) ListAll(_ context.Context, chatID int64) ([]domain.Note, error) {
	return m.filter(chatID, func(domain.Note) bool { return true }), nil
}

func (m *memNotes) Get(_ context.Context, chatID, id int64) (domain.Note, error) {
	found := m.filter(chatID, func(n domain.Note) bool { return n.ID == id })
	if len(found) == 0 {
		return domain.Note{}, domain.ErrNotFound
	}
	return found[0], nil
}

func (m *memNotes) Delete(_ context.Context, chatID, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.notes {
		if n.ChatID == chatID && n.ID == id {
			m.notes = append(m.notes[:i], m.notes[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// MockAI - testify-мок для Transcriber, Summarizer и TagSuggester.
type MockAI struct {
	mock.Mock
}

func (m *MockAI) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	args := m.Called(ctx, filename, audio)
	return args.String(0), args.Error(1)
}

func (m *MockAI) Summarize(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}

func (m *MockAI) SuggestTags(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}

// stubWeather и stubNews отдают заранее заданный ответ.
type stubWeather struct {
	text string
	err  error
}

func (s stubWeather) Forecast(context.Context) (string, error) { return s.text, s.err }
func (s stubWeather) SearchCity(context.Context, string) (*domain.City, error) {
	return nil, nil
}
func (s stubWeather) SetCity(context.Context, domain.City) error { return nil }

type stubNews struct {
	text string
	err  error
}

func (s stubNews) FreshNews(context.Context) (string, error) { return s.text, s.err }
