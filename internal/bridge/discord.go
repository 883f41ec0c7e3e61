// Package bridge relays chat between Discord and the assistant. Text
// messages are routed directly; audio attachments are downloaded and
// transcribed first.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Assistant is the slice of the controller the bridge needs.
type Assistant interface {
	HandleCommand(ctx context.Context, source, text string) (string, error)
	TranscribeFile(ctx context.Context, path string) (string, error)
}

const (
	requestTimeout = 60 * time.Second
	maxAttachment  = 25 << 20
)

var audioExts = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".ogg":  true,
	".opus": true,
}

type Bridge struct {
	session *discordgo.Session
	asst    Assistant
	http    *http.Client
}

func New(token string, asst Assistant) (*Bridge, error) {
	if token == "" {
		return nil, errors.New("discord token is not set")
	}
	if asst == nil {
		return nil, errors.New("assistant is required")
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	b := &Bridge{
		session: session,
		asst:    asst,
		http:    &http.Client{Timeout: requestTimeout},
	}
	session.AddHandler(b.onMessage)
	return b, nil
}

// Start opens the gateway connection. It returns once the session is
// connected; events are delivered on discordgo's own goroutines.
func (b *Bridge) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	slog.Info("Discord bridge connected", "user", b.session.State.User.Username)
	return nil
}

func (b *Bridge) Stop() error {
	return b.session.Close()
}

func (b *Bridge) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	text := strings.TrimSpace(m.Content)
	if text == "" {
		text = b.transcribeAttachments(ctx, m)
	}
	if text == "" {
		return
	}

	reply, err := b.asst.HandleCommand(ctx, "discord", text)
	if err != nil {
		slog.Error("Discord command failed", "err", err)
		reply = "Sorry, something went wrong."
	}
	if _, err := s.ChannelMessageSend(m.ChannelID, reply); err != nil {
		slog.Error("Failed to send Discord reply", "err", err)
	}
}

// transcribeAttachments returns the transcript of the first audio
// attachment, or "" when the message carries none.
func (b *Bridge) transcribeAttachments(ctx context.Context, m *discordgo.MessageCreate) string {
	for _, att := range m.Attachments {
		ext := strings.ToLower(filepath.Ext(att.Filename))
		if !audioExts[ext] {
			continue
		}
		text, err := b.transcribeURL(ctx, att.URL, ext)
		if err != nil {
			slog.Error("Failed to transcribe Discord attachment", "file", att.Filename, "err", err)
			continue
		}
		return text
	}
	return ""
}

func (b *Bridge) transcribeURL(ctx context.Context, url, ext string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download attachment: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download attachment: status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "auron-discord-*"+ext)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, io.LimitReader(resp.Body, maxAttachment))
	tmp.Close()
	if err != nil {
		return "", fmt.Errorf("store attachment: %w", err)
	}

	return b.asst.TranscribeFile(ctx, tmp.Name())
}
