package history

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one exchange turn kept in the conversation history.
type ChatMessage struct {
	ID   string    `json:"id"`
	Role string    `json:"role"` // "user" or "assistant"
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

// State mirrors the daemon toggles for live listeners.
type State struct {
	VoiceEnabled   bool `json:"voice_enabled"`
	TTSEnabled     bool `json:"tts_enabled"`
	DiscordEnabled bool `json:"discord_enabled"`
}

// Event is pushed to the notify hook on every store mutation and toggle
// change so live listeners (the websocket hub) can mirror the UI state.
type Event struct {
	Kind    string       `json:"kind"` // "chat", "log", "state" or "clear"
	Message *ChatMessage `json:"message,omitempty"`
	Line    string       `json:"line,omitempty"`
	State   *State       `json:"state,omitempty"`
}

// Store keeps the capped chat history and log ring for the web UI.
// Both buffers evict oldest-first when they outgrow their cap.
type Store struct {
	mu      sync.RWMutex
	chat    []ChatMessage
	logs    []string
	maxChat int
	maxLogs int

	notify func(Event)
}

func NewStore(maxChat, maxLogs int) *Store {
	if maxChat <= 0 {
		maxChat = 500
	}
	if maxLogs <= 0 {
		maxLogs = 200
	}
	return &Store{
		chat:    make([]ChatMessage, 0, maxChat),
		logs:    make([]string, 0, maxLogs),
		maxChat: maxChat,
		maxLogs: maxLogs,
	}
}

// SetNotify installs the event hook. Must be set before the store is
// shared; the hook runs on the caller's goroutine and must not block.
func (s *Store) SetNotify(fn func(Event)) {
	s.mu.Lock()
	s.notify = fn
	s.mu.Unlock()
}

func (s *Store) AppendMessage(role, text string) ChatMessage {
	msg := ChatMessage{
		ID:   uuid.NewString(),
		Role: role,
		Text: text,
		Time: time.Now(),
	}

	s.mu.Lock()
	s.chat = append(s.chat, msg)
	if len(s.chat) > s.maxChat {
		s.chat = s.chat[s.evictCount(len(s.chat), s.maxChat):]
	}
	notify := s.notify
	s.mu.Unlock()

	if notify != nil {
		notify(Event{Kind: "chat", Message: &msg})
	}
	return msg
}

func (s *Store) AppendLog(line string) {
	s.mu.Lock()
	s.logs = append(s.logs, line)
	if len(s.logs) > s.maxLogs {
		s.logs = s.logs[s.evictCount(len(s.logs), s.maxLogs):]
	}
	notify := s.notify
	s.mu.Unlock()

	if notify != nil {
		notify(Event{Kind: "log", Line: line})
	}
}

// Chat returns a snapshot of the conversation history.
func (s *Store) Chat() []ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ChatMessage, len(s.chat))
	copy(out, s.chat)
	return out
}

// Logs returns a snapshot of the log ring.
func (s *Store) Logs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.logs))
	copy(out, s.logs)
	return out
}

// RecentLogs returns up to n of the newest log lines.
func (s *Store) RecentLogs(n int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := len(s.logs) - n
	if start < 0 {
		start = 0
	}
	out := make([]string, len(s.logs)-start)
	copy(out, s.logs[start:])
	return out
}

func (s *Store) ClearChat() {
	s.mu.Lock()
	s.chat = s.chat[:0]
	notify := s.notify
	s.mu.Unlock()

	if notify != nil {
		notify(Event{Kind: "clear", Line: "chat"})
	}
}

func (s *Store) ClearLogs() {
	s.mu.Lock()
	s.logs = s.logs[:0]
	notify := s.notify
	s.mu.Unlock()

	if notify != nil {
		notify(Event{Kind: "clear", Line: "logs"})
	}
}

// NotifyState pushes a toggle snapshot to live listeners. Nothing is
// stored; the frame only keeps websocket clients in sync.
func (s *Store) NotifyState(st State) {
	s.mu.RLock()
	notify := s.notify
	s.mu.RUnlock()

	if notify != nil {
		notify(Event{Kind: "state", State: &st})
	}
}

// Counts reports (chat length, log length).
func (s *Store) Counts() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chat), len(s.logs)
}

// evictCount drops 20% of capacity in one go so appends stay amortized
// instead of shifting the slice on every overflow.
func (s *Store) evictCount(length, max int) int {
	n := max / 5
	if n < 1 {
		n = 1
	}
	if over := length - max; over > n {
		n = over
	}
	return n
}
