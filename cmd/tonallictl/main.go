// tonallictl is a terminal client for the Tonalli API. It signs in, keeps the
// bearer token under the user's home directory, and drives the dashboard
// manager for reminder and activity commands.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tonalli/internal/api"
	"tonalli/internal/dashboard"
	"tonalli/internal/session"
	"tonalli/internal/syncclient"
	"tonalli/internal/timeparse"
)

const tokenFileName = ".tonalli-token"

func usage() {
	fmt.Fprintln(os.Stderr, `usage: tonallictl <command> [flags]

commands:
  register   -email -password
  login      -email -password
  logout
  summary
  reminders
  remind     -text -date YYYY-MM-DD -time "H:MM am/pm"
  react      -id -status (pending|completed|snoozed|ignored)
  rm         -id
  agenda
  log        -type [-desc] [-at RFC3339] [-reminder id]
  rm-activity -id

environment:
  TONALLI_API  base URL (default http://localhost:8080)`)
	os.Exit(2)
}

func tokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return tokenFileName
	}
	return filepath.Join(home, tokenFileName)
}

func loadToken() string {
	if t := strings.TrimSpace(os.Getenv("TONALLI_TOKEN")); t != "" {
		return t
	}
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func saveToken(token string) error {
	return os.WriteFile(tokenPath(), []byte(token+"\n"), 0o600)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	cmd, args := os.Args[1], os.Args[2:]

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	baseURL := os.Getenv("TONALLI_API")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	store := session.NewTokenStore(loadToken())
	client := syncclient.New(baseURL, nil, store, logger)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cmd {
	case "register", "login":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "account password")
		_ = fs.Parse(args)
		if *email == "" || *password == "" {
			usage()
		}

		var token string
		var err error
		if cmd == "register" {
			token, err = client.Register(ctx, *email, *password)
		} else {
			token, err = client.Login(ctx, *email, *password)
		}
		if err != nil {
			fatal(err)
		}
		if err := saveToken(token); err != nil {
			fatal(err)
		}
		fmt.Println("signed in")
		return

	case "logout":
		if err := os.Remove(tokenPath()); err != nil && !os.IsNotExist(err) {
			fatal(err)
		}
		fmt.Println("signed out")
		return
	}

	// Everything below needs an authenticated user.
	me, err := client.Me(ctx)
	if err != nil {
		fatal(fmt.Errorf("not signed in: %w", err))
	}
	mgr := dashboard.NewManager(client, me.ID, time.Local, logger)

	switch cmd {
	case "summary":
		if err := mgr.Refresh(ctx); err != nil {
			fatal(err)
		}
		printSummary(mgr.Summary())

	case "reminders":
		rs, err := client.ListReminders(ctx, me.ID)
		if err != nil {
			fatal(err)
		}
		for _, r := range rs {
			printReminder(r)
		}

	case "remind":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		text := fs.String("text", "", "reminder text")
		date := fs.String("date", time.Now().Format("2006-01-02"), "date (YYYY-MM-DD)")
		tod := fs.String("time", "", `time of day, e.g. "7:30 pm" or "19:30"`)
		_ = fs.Parse(args)

		mgr.SetInput(dashboard.Input{Text: *text, Date: *date, TimeOfDay: *tod})
		if err := mgr.CreateReminder(ctx); err != nil {
			if errors.Is(err, timeparse.ErrInvalidTimeInput) {
				fatal(fmt.Errorf("unrecognized date/time %q %q", *date, *tod))
			}
			fatal(err)
		}
		fmt.Println("reminder created")

	case "react":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.Uint64("id", 0, "reminder id")
		status := fs.String("status", "", "reaction status")
		_ = fs.Parse(args)
		if *id == 0 || *status == "" {
			usage()
		}
		if err := mgr.React(ctx, *id, api.ReactionStatus(*status)); err != nil {
			fatal(err)
		}
		fmt.Println("reaction recorded")

	case "rm":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.Uint64("id", 0, "reminder id")
		_ = fs.Parse(args)
		if *id == 0 {
			usage()
		}
		if err := mgr.DeleteReminder(ctx, *id); err != nil {
			fatal(err)
		}
		fmt.Println("reminder deleted")

	case "agenda":
		as, err := client.ListActivities(ctx, me.ID)
		if err != nil {
			fatal(err)
		}
		for _, a := range as {
			printActivity(a)
		}

	case "log":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		typ := fs.String("type", "", "activity type")
		desc := fs.String("desc", "", "description")
		at := fs.String("at", "", "activity instant (RFC3339, default now)")
		reminder := fs.Uint64("reminder", 0, "originating reminder id")
		_ = fs.Parse(args)

		instant := time.Now()
		if *at != "" {
			instant, err = time.Parse(time.RFC3339, *at)
			if err != nil {
				fatal(fmt.Errorf("bad -at value: %w", err))
			}
		}
		var rid *uint64
		if *reminder != 0 {
			rid = reminder
		}
		if err := mgr.LogActivity(ctx, *typ, *desc, instant, rid); err != nil {
			fatal(err)
		}
		fmt.Println("activity logged")

	case "rm-activity":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.Uint64("id", 0, "activity id")
		_ = fs.Parse(args)
		if *id == 0 {
			usage()
		}
		if err := mgr.DeleteActivity(ctx, *id); err != nil {
			fatal(err)
		}
		fmt.Println("activity deleted")

	default:
		usage()
	}
}

func printSummary(s *api.Summary) {
	if s == nil {
		return
	}
	fmt.Printf("reminders: %d total, %d completed, %d pending\n",
		s.TotalReminders, s.CompletedReminders, s.PendingReminders)
	fmt.Printf("activities: %d total\n", s.TotalActivities)
	if len(s.RecentReminders) > 0 {
		fmt.Println("recent reminders:")
		for _, r := range s.RecentReminders {
			printReminder(r)
		}
	}
	if len(s.RecentActivities) > 0 {
		fmt.Println("recent activities:")
		for _, a := range s.RecentActivities {
			printActivity(a)
		}
	}
}

func printReminder(r api.Reminder) {
	mark := " "
	if r.Completed {
		mark = "x"
	}
	fmt.Printf("  [%s] #%d %s  %s  (%s)\n",
		mark, r.ID, r.ReminderTime.Local().Format("2006-01-02 15:04"), r.Text, r.LastReactionStatus)
}

func printActivity(a api.Activity) {
	desc := ""
	if a.Description != nil {
		desc = " " + *a.Description
	}
	fmt.Printf("  #%d %s %s%s\n",
		a.ID, a.ActivityDate.Local().Format("2006-01-02 15:04"), a.ActivityType, desc)
}
