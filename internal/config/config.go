package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every tunable of the daemon. Values come from the
// environment (a .env file is loaded by main before Load runs).
type Config struct {
	HTTPAddr   string
	SocketPath string
	BeepPath   string

	Wake    Wake
	STT     STT
	LLM     LLM
	TTS     TTS
	Discord Discord
	History History
}

type Wake struct {
	AccessKey   string // Picovoice AccessKey, required for voice
	KeywordPath string // .ppn keyword file
	ModelPath   string // .pv base model file
	Sensitivity float32
	Cooldown    time.Duration
}

type STT struct {
	ModelPath string
	Language  string
	Threads   int
	BeamSize  int
}

type LLM struct {
	Provider     string // "ollama" or "openai"
	Model        string
	OllamaURL    string
	OpenAIKey    string
	SystemPrompt string
	Timeout      time.Duration
	SocksProxy   string // optional egress proxy, host:port
}

type TTS struct {
	Voice   string
	Enabled bool
}

type Discord struct {
	Token     string
	AutoStart bool
}

type History struct {
	MaxChat int
	MaxLogs int
}

const defaultSystemPrompt = "You are Auron, an AI assistant that helps with everyday tasks. " +
	"Always respond in English, be clear and concise, and never hallucinate. " +
	"If you do not know the answer, say 'I don't know.'"

func Load() *Config {
	return &Config{
		HTTPAddr:   getEnv("HTTP_ADDR", "127.0.0.1:8090"),
		SocketPath: getEnv("SOCKET_PATH", "/tmp/aurond.sock"),
		BeepPath:   getEnv("BEEP_PATH", "beep.mp3"),
		Wake: Wake{
			AccessKey:   os.Getenv("ACCESS_KEY"),
			KeywordPath: os.Getenv("WAKEWORD_PATH"),
			ModelPath:   os.Getenv("PORC_MODEL"),
			Sensitivity: float32(getFloat("PORC_SENSITIVITY", 0.6)),
			Cooldown:    getDuration("WAKE_COOLDOWN", time.Second),
		},
		STT: STT{
			ModelPath: getEnv("STT_MODEL_PATH", "models/ggml-medium.bin"),
			Language:  getEnv("STT_LANGUAGE", "auto"),
			Threads:   getInt("STT_THREADS", 0),
			BeamSize:  getInt("STT_BEAM_SIZE", 0),
		},
		LLM: LLM{
			Provider:     getEnv("LLM_PROVIDER", "ollama"),
			Model:        os.Getenv("LLM_MODEL"), // provider picks its default
			OllamaURL:    getEnv("OLLAMA_URL", "http://localhost:11434/api/generate"),
			OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
			SystemPrompt: getEnv("SYSTEM_PROMPT", defaultSystemPrompt),
			Timeout:      getDuration("LLM_TIMEOUT", 120*time.Second),
			SocksProxy:   os.Getenv("SOCKS_PROXY"),
		},
		TTS: TTS{
			Voice:   getEnv("TTS_VOICE", "en"),
			Enabled: getBool("TTS_ENABLED", true),
		},
		Discord: Discord{
			Token:     os.Getenv("DISCORD_TOKEN"),
			AutoStart: getBool("DISCORD_AUTOSTART", false),
		},
		History: History{
			MaxChat: getInt("MAX_CHAT", 500),
			MaxLogs: getInt("MAX_LOGS", 200),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return def
	}
	return v
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
