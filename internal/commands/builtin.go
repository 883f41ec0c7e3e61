package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// RegisterBuiltins installs the stock commands the assistant ships with.
func RegisterBuiltins(r *Router) error {
	builtins := []struct {
		pattern string
		fn      Handler
	}{
		{`\bcreate\s+folder\s+structure\b`, createFolders},
		{`\bopen\s+youtube\b`, openYouTube},
		{`\bplay\s+spotify\S*\s+song\b`, playSpotify},
		{`\bwhat\s+can\s+you\s+do\b`, listFunctions},
		{`\blist\s+(?:your\s+)?(?:functions|capabilities)\b`, listFunctions},
	}
	for _, b := range builtins {
		if err := r.Register(b.pattern, b.fn); err != nil {
			return err
		}
	}
	return nil
}

func createFolders(string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Error("Failed to resolve home dir", "err", err)
		return "An error occurred while creating folders."
	}
	base := filepath.Join(home, "auron_folders")
	for _, name := range []string{"Documents", "Music", "Videos"} {
		if err := os.MkdirAll(filepath.Join(base, name), 0o755); err != nil {
			slog.Error("Failed to create folders", "err", err)
			return "An error occurred while creating folders."
		}
	}
	slog.Info("Created folder structure", "base", base)
	return fmt.Sprintf("Created folder structure under %s", base)
}

func openYouTube(string) string {
	if err := openURL("https://www.youtube.com"); err != nil {
		slog.Error("Failed to open YouTube", "err", err)
		return "An error occurred while opening YouTube."
	}
	slog.Info("Opening YouTube in the default browser")
	return "Opening YouTube."
}

func playSpotify(string) string {
	slog.Info("Received request to play a Spotify song (stub)")
	return "Playing Spotify song (not implemented yet)."
}

func listFunctions(string) string {
	return "I can run a few internal commands: create a folder structure " +
		"(\"create folder structure\"), open YouTube in the browser " +
		"(\"open youtube\") and play a Spotify song (\"play spotify song\"). " +
		"Everything else goes to the language model."
}

func openURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
