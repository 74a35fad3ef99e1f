// Command bken is a thin interactive CLI driving a Session, replacing the
// teacher's Wails-bound desktop frontend (the UI host is out of scope per
// the core spec; this is the minimal terminal-driven substitute).
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	icewire "github.com/icewire-project/icewire"
	"github.com/icewire-project/icewire/internal/config"
)

func main() {
	addr := flag.String("server", "", "bootstrap server address (host:port)")
	username := flag.String("user", "", "account username")
	password := flag.String("pass", "", "account password")
	flag.Parse()

	if *addr == "" || *username == "" {
		fmt.Fprintln(os.Stderr, "usage: bken -server host:port -user NAME [-pass PASSWORD]")
		os.Exit(2)
	}

	normalizedAddr, err := normalizeServerAddr(*addr)
	if err != nil {
		log.Fatalf("[bken] %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[bken] load config: %v", err)
	}

	cb := &icewire.Callbacks{
		OnStateChange: func(st icewire.ConnState) {
			fmt.Printf("* connection state: %s\n", st)
		},
		OnIM: func(from uint32, body string) {
			fmt.Printf("[im %d] %s\n", from, body)
		},
		OnRoomMessage: func(roomID uint32, nick, body string) {
			fmt.Printf("[room %d] %s: %s\n", roomID, nick, body)
		},
		OnSystemMessage: func(roomID uint32, text string) {
			fmt.Printf("[room %d, system] %s\n", roomID, text)
		},
		OnSpeakerChanged: func(roomID uint32, nick string, started bool) {
			verb := "started speaking"
			if !started {
				verb = "stopped speaking"
			}
			fmt.Printf("[room %d] %s %s\n", roomID, nick, verb)
		},
		OnBuddyPresence: func(b icewire.Buddy) {
			fmt.Printf("* %s (%d) is now presence=%d\n", b.Nickname, b.UID, b.Presence)
		},
		OnError: func(err error) {
			fmt.Fprintf(os.Stderr, "! %v\n", err)
		},
	}

	session := icewire.NewSession(cfg, cb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := session.Run(ctx, normalizedAddr, *username, *password); err != nil {
			log.Printf("[bken] session ended: %v", err)
		}
	}()

	runREPL(session)
}

// runREPL reads lines of the form "<room-id> <text or /command>" from
// stdin, driving slash commands and room chat directly against the
// Session's capability surface (spec.md §6).
func runREPL(session *icewire.Session) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("bken> (type \"<room-id> <message or /command>\", Ctrl-D to quit)")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 2)
		roomID, err := strconv.ParseUint(parts[0], 10, 32)
		if err != nil || len(parts) < 2 {
			fmt.Println("usage: <room-id> <message or /command>")
			continue
		}
		if err := session.ExecuteSlashCommand(uint32(roomID), parts[1], nil); err != nil {
			fmt.Fprintf(os.Stderr, "! %v\n", err)
		}
	}
	_ = session.Close()
}
