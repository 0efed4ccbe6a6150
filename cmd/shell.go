package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/go-hax-metrics/internal/model"
	"github.com/pable/go-hax-metrics/internal/storage"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive REPL session",
	Long:  "Open a persistent session against the database. Type 'help' for available commands.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func runShell(_ *cobra.Command, _ []string) error {
	db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	cGreeting.Println("haxmetrics shell")
	cMuted.Println("type 'help' or 'exit'")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		cPrompt.Print("haxmetrics")
		cMuted.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		tokens := strings.Fields(line)
		cmd, args := tokens[0], tokens[1:]
		if err := shellDispatch(db, cmd, args); err != nil {
			if errors.Is(err, errShellExit) {
				return nil
			}
			cError.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
	return nil
}

var errShellExit = errors.New("exit")

func shellDispatch(db *storage.DB, cmd string, args []string) error {
	prefix, player := splitPlayerFlag(args)
	switch cmd {
	case "exit", "quit":
		return errShellExit
	case "help":
		shellHelp()
	case "list":
		return listMatches(os.Stdout, db)
	case "show", "kicks", "possession":
		if prefix == "" {
			cError.Fprintf(os.Stderr, "usage: %s <id-prefix> [--player <name>]\n", cmd)
			return nil
		}
		switch cmd {
		case "show":
			return showMatch(os.Stdout, db, prefix, player)
		case "kicks":
			return showKicks(os.Stdout, db, prefix, player, model.KickType(""))
		default:
			return showPossession(os.Stdout, db, prefix, 0)
		}
	case "players":
		return showPlayers(os.Stdout, db, args)
	case "sql":
		if len(args) == 0 {
			cError.Fprintln(os.Stderr, "usage: sql <query>")
			return nil
		}
		return runQuery(os.Stdout, db, strings.Join(args, " "))
	default:
		cWarn.Fprintf(os.Stderr, "unknown command %q — type 'help'\n", cmd)
	}
	return nil
}

// splitPlayerFlag returns the first positional argument and the value of --player.
func splitPlayerFlag(args []string) (first, player string) {
	for i := 0; i < len(args); i++ {
		if args[i] == "--player" && i+1 < len(args) {
			player = args[i+1]
			i++
			continue
		}
		if first == "" {
			first = args[i]
		}
	}
	return first, player
}

func shellHelp() {
	fmt.Println()
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"list", "list all stored matches"},
		{"show <id-prefix>", "show a match's stats"},
		{"show <id-prefix> --player <name>", "same, highlighting one player"},
		{"kicks <id-prefix> [--player <name>]", "kick-by-kick log"},
		{"possession <id-prefix>", "possession shares and drives"},
		{"players [name...]", "cross-match stats"},
		{"sql <query>", "raw query against the database"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Print("  ")
		cCmd.Printf("%-38s", r.cmd)
		fmt.Println(r.desc)
	}
	fmt.Println()
}
