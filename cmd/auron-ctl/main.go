package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	cli "github.com/spf13/pflag"

	"auron/internal/ipc"
	"auron/pkg/wsclient"
)

const usage = `usage: auron-ctl [flags] <command>

commands:
  trigger            act as if the wake word fired
  say <text>         send a text command and print the reply
  status             print daemon state
  voice on|off       toggle the wake word listener
  tts on|off         toggle speech output
  discord on|off     toggle the Discord bridge
  watch              stream live chat and log events from the web hub
`

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Daemon control socket")
	wsURL := cli.StringP("ws", "w", "ws://127.0.0.1:8090/ws", "Event stream address for watch")
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if args[0] == "watch" {
		watch(*wsURL)
		return
	}

	req := ipc.Request{Cmd: args[0], Args: args[1:]}
	if req.Cmd == "say" {
		req.Args = []string{strings.Join(args[1:], " ")}
	}

	resp, err := ipc.Send(*socket, req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "aurond not running:", err)
		os.Exit(1)
	}
	if !resp.OK {
		fmt.Fprintln(os.Stderr, "error:", resp.Error)
		os.Exit(1)
	}

	keys := make([]string, 0, len(resp.Data))
	for k := range resp.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s: %v\n", k, resp.Data[k])
	}
	if len(resp.Data) == 0 {
		fmt.Println("ok")
	}
}

// watch prints hub events until interrupted.
func watch(url string) {
	client, err := wsclient.Dial(url, 2*time.Second)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect:", err)
		os.Exit(1)
	}
	defer client.Close()

	var ev struct {
		Kind    string `json:"kind"`
		Line    string `json:"line"`
		Message *struct {
			Role string `json:"role"`
			Text string `json:"text"`
		} `json:"message"`
		State *struct {
			VoiceEnabled   bool `json:"voice_enabled"`
			TTSEnabled     bool `json:"tts_enabled"`
			DiscordEnabled bool `json:"discord_enabled"`
		} `json:"state"`
	}

	for {
		raw, err := client.Next()
		if err != nil {
			fmt.Fprintln(os.Stderr, "stream:", err)
			os.Exit(1)
		}
		if err := json.Unmarshal(raw, &ev); err != nil {
			continue
		}
		switch ev.Kind {
		case "chat":
			if ev.Message != nil {
				fmt.Printf("[%s] %s\n", ev.Message.Role, ev.Message.Text)
			}
		case "log":
			fmt.Println(ev.Line)
		case "state":
			if ev.State != nil {
				fmt.Printf("-- voice=%v tts=%v discord=%v --\n",
					ev.State.VoiceEnabled, ev.State.TTSEnabled, ev.State.DiscordEnabled)
			}
		case "clear":
			fmt.Println("-- history cleared --")
		}
		ev.Message = nil
		ev.State = nil
	}
}
