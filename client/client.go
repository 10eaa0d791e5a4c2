package main

import (
	"chat-api/domain"
	chaterrors "chat-api/errors"
	"chat-api/infrastructure/http/client"
	"chat-api/projection"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const usage = `usage: client <command>
  list [count]          most recent messages, newest first, deleted ones hidden
  watch                 poll and print new messages (Ctrl+C to quit)
  post <message>        post as CHAT_USERNAME
  update <key> <text>   replace the content of a message
  delete <key>          flag a message as deleted
  purge <key>           remove a message permanently`

type Config struct {
	ServerURL    string        `env:"CHAT_SERVER_URL,default=http://localhost:1337"`
	Username     string        `env:"CHAT_USERNAME,default=anonymous"`
	PollInterval time.Duration `env:"POLL_INTERVAL,default=2s"`
	Timeout      time.Duration `env:"CLIENT_TIMEOUT,default=10s"`
	LogLevel     string        `env:"LOG_LEVEL,default=INFO"`
}

func main() {
	code, err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run(args []string) (int, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if len(args) == 0 {
		return exitConfig, errors.New(usage)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chat := client.NewChatClient(config.ServerURL, &http.Client{Timeout: config.Timeout})

	var err error
	switch cmd, rest := args[0], args[1:]; {
	case cmd == "list":
		count := 0
		if len(rest) > 0 {
			if count, err = strconv.Atoi(rest[0]); err != nil {
				return exitConfig, fmt.Errorf("count must be a number: %w", err)
			}
		}
		err = list(ctx, chat, count)
	case cmd == "watch":
		err = watch(ctx, chat, log, config.PollInterval)
	case cmd == "post" && len(rest) == 1:
		var record domain.ChatRecord
		if record, err = chat.PostMessage(ctx, config.Username, rest[0]); err == nil {
			fmt.Println(record.StorageKey)
		}
	case cmd == "update" && len(rest) == 2:
		_, err = chat.UpdateMessage(ctx, rest[0], rest[1])
	case cmd == "delete" && len(rest) == 1:
		_, err = chat.DeleteMessage(ctx, rest[0])
	case cmd == "purge" && len(rest) == 1:
		_, err = chat.PurgeMessage(ctx, rest[0])
	default:
		return exitConfig, errors.New(usage)
	}
	if err != nil {
		return exitRuntime, err
	}
	return exitOK, nil
}

func list(ctx context.Context, chat *client.ChatClient, count int) error {
	records, err := chat.GetMessages(ctx, count, domain.NewestFirst)
	if err != nil {
		return err
	}

	renderTable(os.Stdout, records)
	return nil
}

// renderTable writes the records not flagged as deleted, newest first.
func renderTable(w io.Writer, records []domain.ChatRecord) {
	timeline := projection.NewTimeline()
	timeline.Consume(records...)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Key", "At", "Who", "Content"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, record := range timeline.Visible() {
		table.Append([]string{
			record.StorageKey,
			record.CreatedAt().Local().Format(time.DateTime),
			record.Author,
			record.Content,
		})
	}
	table.Render()
}

// watch prints the latest page, then polls for records newer than the newest
// one already shown.
func watch(ctx context.Context, chat *client.ChatClient, log *slog.Logger, interval time.Duration) error {
	timeline := projection.NewTimeline()
	records, err := chat.GetMessages(ctx, 0, domain.OldestFirst)
	if err != nil {
		return err
	}
	timeline.Consume(records...)
	for _, record := range records {
		printRecord(record)
	}
	log.Info(">>> Watching for new messages (Ctrl+C to quit)...")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping client...")
			return nil
		case <-ticker.C:
		}

		fresh, err := poll(ctx, chat, timeline.Newest())
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("Polling failed", "error", err)
			continue
		}
		timeline.Consume(fresh...)
		for _, record := range fresh {
			printRecord(record)
		}
	}
}

// poll returns the records newer than the newest key, oldest first.
// When the cursor record is gone it falls back to the latest page. A server in
// legacy status mode reports that as a plain 400, hence the two error kinds.
func poll(ctx context.Context, chat *client.ChatClient, newest string) ([]domain.ChatRecord, error) {
	if newest == "" {
		return chat.GetMessages(ctx, 0, domain.OldestFirst)
	}
	fresh, err := chat.GetMessagesAfter(ctx, newest, domain.OldestFirst)
	if !errors.Is(err, chaterrors.ErrNotFound) && !errors.Is(err, chaterrors.ErrInvalidArgument) {
		return fresh, err
	}
	fresh, err = chat.GetMessages(ctx, 0, domain.OldestFirst)
	if err != nil {
		return nil, err
	}
	return lo.Filter(fresh, func(record domain.ChatRecord, _ int) bool {
		return record.StorageKey < newest
	}), nil
}

func printRecord(record domain.ChatRecord) {
	if record.Deleted {
		color.Gray.Printf("[%s] %s: (deleted)\n", record.CreatedAt().Local().Format(time.TimeOnly), record.Author)
		return
	}
	fmt.Printf("%s %s: %s\n",
		color.Cyan.Sprintf("[%s]", record.CreatedAt().Local().Format(time.TimeOnly)),
		color.Green.Sprint(record.Author),
		record.Content,
	)
}
