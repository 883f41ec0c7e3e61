// Package web serves the browser UI and the JSON control API.
package web

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"auron/internal/assistant"
	"auron/internal/history"

	_ "embed"
)

//go:embed index.html
var indexPage []byte

// Assistant is the slice of the controller the API needs.
type Assistant interface {
	HandleCommand(ctx context.Context, source, text string) (string, error)
	TranscribeFile(ctx context.Context, path string) (string, error)
	StartVoice() error
	StopVoice()
	VoiceEnabled() bool
	TTSEnabled() bool
	SetTTS(enabled bool)
	RestartTTS() error
	RestartLLM() error
	StartDiscord() error
	StopDiscord()
	DiscordEnabled() bool
	Status() assistant.Status
}

type Server struct {
	asst     Assistant
	store    *history.Store
	hub      *Hub
	shutdown func()
	http     *http.Server
}

// NewServer builds the HTTP server. shutdown is invoked (once, on its own
// goroutine) when the UI asks the daemon to exit.
func NewServer(addr string, asst Assistant, store *history.Store, hub *Hub, shutdown func()) *Server {
	s := &Server{
		asst:     asst,
		store:    store,
		hub:      hub,
		shutdown: shutdown,
	}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/ws", hub.ServeWS).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/message", s.handleMessage).Methods(http.MethodPost)
	api.HandleFunc("/chat", s.handleChat).Methods(http.MethodGet)
	api.HandleFunc("/logs", s.handleLogs).Methods(http.MethodGet)
	api.HandleFunc("/logs/download", s.handleLogsDownload).Methods(http.MethodGet)
	api.HandleFunc("/clear_chat", s.handleClearChat).Methods(http.MethodPost)
	api.HandleFunc("/clear_logs", s.handleClearLogs).Methods(http.MethodPost)
	api.HandleFunc("/voice/toggle", s.handleVoiceToggle).Methods(http.MethodPost)
	api.HandleFunc("/tts/toggle", s.handleTTSToggle).Methods(http.MethodPost)
	api.HandleFunc("/tts/restart", s.handleTTSRestart).Methods(http.MethodPost)
	api.HandleFunc("/llm/restart", s.handleLLMRestart).Methods(http.MethodPost)
	api.HandleFunc("/discord/toggle", s.handleDiscordToggle).Methods(http.MethodPost)
	api.HandleFunc("/transcribe", s.handleTranscribe).Methods(http.MethodPost)
	api.HandleFunc("/shutdown", s.handleShutdown).Methods(http.MethodPost)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) ListenAndServe() error {
	slog.Info("Web UI listening", "addr", s.http.Addr)
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// ---- handlers ----

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexPage)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.asst.Status())
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := readJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	text := strings.TrimSpace(body.Text)
	if text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "empty message"})
		return
	}

	reply, err := s.asst.HandleCommand(r.Context(), "web", text)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (s *Server) handleChat(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"history": s.store.Chat()})
}

func (s *Server) handleLogs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"logs": s.store.Logs()})
}

func (s *Server) handleLogsDownload(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("Content-Disposition", "attachment; filename=auron_logs.txt")
	w.Write([]byte(strings.Join(s.store.Logs(), "\n")))
}

func (s *Server) handleClearChat(w http.ResponseWriter, _ *http.Request) {
	s.store.ClearChat()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleClearLogs(w http.ResponseWriter, _ *http.Request) {
	s.store.ClearLogs()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleVoiceToggle(w http.ResponseWriter, _ *http.Request) {
	if s.asst.VoiceEnabled() {
		s.asst.StopVoice()
	} else if err := s.asst.StartVoice(); err != nil {
		slog.Error("Failed to enable voice", "err", err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"voice_enabled": s.asst.VoiceEnabled()})
}

func (s *Server) handleTTSToggle(w http.ResponseWriter, _ *http.Request) {
	s.asst.SetTTS(!s.asst.TTSEnabled())
	writeJSON(w, http.StatusOK, map[string]bool{"tts_enabled": s.asst.TTSEnabled()})
}

func (s *Server) handleTTSRestart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": s.asst.RestartTTS() == nil})
}

func (s *Server) handleLLMRestart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": s.asst.RestartLLM() == nil})
}

func (s *Server) handleDiscordToggle(w http.ResponseWriter, _ *http.Request) {
	if s.asst.DiscordEnabled() {
		s.asst.StopDiscord()
	} else if err := s.asst.StartDiscord(); err != nil {
		slog.Error("Failed to start Discord bridge", "err", err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"discord_enabled": s.asst.DiscordEnabled()})
}

// handleTranscribe accepts a multipart "audio" file, transcribes it and
// routes the text through the assistant.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing audio file"})
		return
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "auron-upload-*"+sanitizeExt(header.Filename))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "temp file"})
		return
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, file); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store upload"})
		return
	}

	text, err := s.asst.TranscribeFile(r.Context(), tmp.Name())
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	reply, err := s.asst.HandleCommand(r.Context(), "upload", text)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text, "reply": reply})
}

func (s *Server) handleShutdown(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Assistant shutting down"})
	if s.shutdown != nil {
		go s.shutdown()
	}
}

// sanitizeExt keeps the extension so the decoder can pick a codec, but
// nothing else from the client-supplied name.
func sanitizeExt(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		ext := name[i:]
		if len(ext) <= 5 && !strings.ContainsAny(ext, "/\\") {
			return ext
		}
	}
	return ""
}
