package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"auron/internal/assistant"
	"auron/internal/audio"
	"auron/internal/bridge"
	"auron/internal/commands"
	"auron/internal/config"
	"auron/internal/history"
	"auron/internal/ipc"
	"auron/internal/llm"
	"auron/internal/notify"
	"auron/internal/tts"
	"auron/internal/wakeword"
	"auron/internal/web"
	"auron/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	httpAddr := cli.StringP("http", "a", "", "Web UI address (overrides HTTP_ADDR)")
	headless := cli.Bool("headless", false, "Run without the web UI")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	level := logLevelMap[*logLevel]
	tintHandler := tint.NewHandler(os.Stdout, &tint.Options{Level: level})
	log.SetDefault(log.New(tintHandler))

	log.Info("Booting up")

	godotenv.Load(*envFile)
	cfg := config.Load()
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}

	store := history.NewStore(cfg.History.MaxChat, cfg.History.MaxLogs)
	hub := web.NewHub()
	store.SetNotify(hub.Broadcast)

	// From here on every log line also lands in the web log pane.
	log.SetDefault(log.New(history.Tee(tintHandler, history.NewLogHandler(store, level))))

	router := commands.NewRouter()
	if err := commands.RegisterBuiltins(router); err != nil {
		log.Error("Failed to register builtin commands", "err", err)
		os.Exit(1)
	}

	log.Debug("Loaded command router", "commands", router.Len())

	deps := assistant.Deps{
		Store:  store,
		Router: router,
		NewGenerator: func() (llm.Generator, error) {
			return llm.FromConfig(cfg.LLM)
		},
		NewSpeaker: func() (tts.Speaker, error) {
			return tts.NewESpeak(cfg.TTS.Voice), nil
		},
		STTOptions: stt.Options{
			Language: cfg.STT.Language,
			Threads:  cfg.STT.Threads,
			BeamSize: cfg.STT.BeamSize,
		},
		SystemPrompt: cfg.LLM.SystemPrompt,
		TTSEnabled:   cfg.TTS.Enabled,
		Chime: func() error {
			return notify.Chime(cfg.BeepPath)
		},
		Ducker: audio.NewDucker([]string{"aurond", "espeak", "beep"}, 10),
	}

	voiceReady := true

	rec := audio.NewRecorder(audio.DefaultRecordConfig())
	if err := rec.Init(); err != nil {
		log.Warn("Audio capture unavailable, running text-only", "err", err)
		voiceReady = false
	} else {
		defer rec.Close()
		deps.Recorder = rec
		log.Debug("Loaded recorder")
	}

	whisper, err := stt.NewTranscriber(cfg.STT.ModelPath)
	if err != nil {
		log.Warn("Whisper unavailable, running text-only", "model", cfg.STT.ModelPath, "err", err)
		voiceReady = false
	} else {
		defer whisper.Close()
		deps.Transcriber = whisper
		log.Debug("Loaded whisper", "model", cfg.STT.ModelPath)
	}

	// The engine fires before the controller exists only if Start is
	// called, and Start happens after construction via StartVoice.
	var ctrl *assistant.Controller
	if voiceReady {
		engine, err := wakeword.New(cfg.Wake, func() { ctrl.OnWake() })
		if err != nil {
			log.Warn("Wake word unavailable, running text-only", "err", err)
			voiceReady = false
		} else {
			deps.Wake = engine
			log.Debug("Loaded wake word engine")
		}
	}

	ctrl, err = assistant.New(deps)
	if err != nil {
		log.Error("Failed to build assistant", "err", err)
		os.Exit(1)
	}
	defer ctrl.Close()

	ctrl.SetBridgeFactory(func() (assistant.Bridge, error) {
		return bridge.New(cfg.Discord.Token, ctrl)
	})

	if voiceReady {
		if err := ctrl.StartVoice(); err != nil {
			log.Error("Failed to start voice pipeline", "err", err)
		}
	}

	if cfg.Discord.AutoStart {
		if err := ctrl.StartDiscord(); err != nil {
			log.Error("Failed to start Discord bridge", "err", err)
		}
	}

	ipcSrv, err := ipc.Serve(cfg.SocketPath, controlHandler(ctrl))
	if err != nil {
		log.Error("Failed ipc server", "socket", cfg.SocketPath, "err", err)
		os.Exit(1)
	}
	defer ipcSrv.Close()

	log.Debug("Loaded ipc", "socket", cfg.SocketPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *web.Server
	if !*headless {
		srv = web.NewServer(cfg.HTTPAddr, ctrl, store, hub, stop)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Web server failed", "err", err)
				stop()
			}
		}()
	}

	log.Info("Boot up - successful", "voice", voiceReady)

	<-ctx.Done()
	log.Info("Shutting down")

	if srv != nil {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			log.Warn("Web server shutdown", "err", err)
		}
	}
}

// controlHandler maps unix-socket control commands onto the controller.
func controlHandler(ctrl *assistant.Controller) ipc.HandlerFunc {
	return func(req ipc.Request) ipc.Response {
		switch req.Cmd {
		case "trigger":
			ctrl.OnWake()
			return ipc.Ok(nil)

		case "say":
			if len(req.Args) == 0 {
				return ipc.Fail("say needs text")
			}
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()
			reply, err := ctrl.HandleCommand(ctx, "ipc", req.Args[0])
			if err != nil {
				return ipc.Fail("%v", err)
			}
			return ipc.Ok(map[string]any{"reply": reply})

		case "status":
			st := ctrl.Status()
			return ipc.Ok(map[string]any{
				"voice_enabled":   st.VoiceEnabled,
				"tts_enabled":     st.TTSEnabled,
				"discord_enabled": st.DiscordEnabled,
				"chat_length":     st.ChatLength,
				"log_length":      st.LogLength,
			})

		case "voice":
			switch arg(req) {
			case "on":
				if err := ctrl.StartVoice(); err != nil {
					return ipc.Fail("%v", err)
				}
			case "off":
				ctrl.StopVoice()
			default:
				return ipc.Fail("voice needs on|off")
			}
			return ipc.Ok(map[string]any{"voice_enabled": ctrl.VoiceEnabled()})

		case "tts":
			switch arg(req) {
			case "on":
				ctrl.SetTTS(true)
			case "off":
				ctrl.SetTTS(false)
			default:
				return ipc.Fail("tts needs on|off")
			}
			return ipc.Ok(map[string]any{"tts_enabled": ctrl.TTSEnabled()})

		case "discord":
			switch arg(req) {
			case "on":
				if err := ctrl.StartDiscord(); err != nil {
					return ipc.Fail("%v", err)
				}
			case "off":
				ctrl.StopDiscord()
			default:
				return ipc.Fail("discord needs on|off")
			}
			return ipc.Ok(map[string]any{"discord_enabled": ctrl.DiscordEnabled()})

		default:
			return ipc.Fail("unknown command %q", req.Cmd)
		}
	}
}

func arg(req ipc.Request) string {
	if len(req.Args) == 0 {
		return ""
	}
	return req.Args[0]
}
