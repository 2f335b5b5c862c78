// Command wsprobe is a small operational tool: it connects to a running
// relay, joins under a probe name and prints the resulting online-user
// snapshot as a table. Handy to check a deployment without opening the
// browser client.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"

	"peerdrop/domain/event"
)

type Config struct {
	Addr    string        `envconfig:"PROBE_ADDR" default:"ws://localhost:5000/ws"`
	Name    string        `envconfig:"PROBE_NAME" default:"wsprobe"`
	Timeout time.Duration `envconfig:"PROBE_TIMEOUT" default:"5s"`
	Colours bool          `envconfig:"PROBE_COLOURS" default:"true"`
}

func main() {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(cfg.Addr, nil)
	if err != nil {
		log.Fatalf("Failed to reach relay at %s: %v", cfg.Addr, err)
	}
	defer conn.Close()

	join, err := event.NewEnvelope(event.Join, cfg.Name)
	if err != nil {
		log.Fatalf("Failed to encode join: %v", err)
	}
	if err := conn.WriteJSON(join); err != nil {
		log.Fatalf("Failed to join: %v", err)
	}

	users, err := awaitSnapshot(conn, cfg.Timeout)
	if err != nil {
		log.Fatalf("No presence snapshot within %s: %v", cfg.Timeout, err)
	}

	header := fmt.Sprintf(" Online users @ %s ", cfg.Addr)
	if cfg.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	fmt.Println(header)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Username"})
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for i, user := range users {
		table.Append([]string{strconv.Itoa(i + 1), user})
	}
	table.Render()
}

// awaitSnapshot reads frames until the relay broadcasts online-users.
func awaitSnapshot(conn *websocket.Conn, timeout time.Duration) ([]string, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		var env event.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		if env.Event != event.OnlineUsers {
			continue
		}
		var users []string
		if err := json.Unmarshal(env.Data, &users); err != nil {
			return nil, err
		}
		return users, nil
	}
}
