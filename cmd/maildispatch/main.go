// Command maildispatch composes one message and dispatches it with the
// mailer described by a configuration file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	mailer "github.com/lattiq/maildispatch"
	"github.com/lattiq/maildispatch/internal/config"
)

type headerFlags []string

func (h *headerFlags) String() string { return strings.Join(*h, ", ") }

func (h *headerFlags) Set(v string) error {
	*h = append(*h, v)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "maildispatch:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("maildispatch", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		configPath = fs.String("config", "maildispatch.yaml", "configuration file")
		from       = fs.String("from", "", "sender address")
		to         = fs.String("to", "", "comma-separated recipients; empty uses the configured defaults")
		subject    = fs.String("subject", "", "message subject")
		body       = fs.String("body", "", "message body; \"-\" reads stdin")
		priority   = fs.Int("priority", int(mailer.PriorityNormal), "priority, 1 (highest) to 5 (lowest)")
		version    = fs.Bool("version", false, "print version information and exit")
		headers    headerFlags
	)
	fs.Var(&headers, "header", "extra header \"Name: value\" (repeatable)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *version {
		fmt.Fprintln(stdout, mailer.GetVersionInfo().String())
		return nil
	}

	vc, err := config.NewViper(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := config.NewLogger(config.LoadLogging(vc), stderr)
	slog.SetDefault(logger)

	settings, err := config.LoadMailer(ctx, vc)
	if err != nil {
		return fmt.Errorf("load mailer settings: %w", err)
	}

	m, err := mailer.Create(settings.Driver, settings.Protocol, settings.Config, mailer.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create mailer: %w", err)
	}

	text := *body
	if text == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		text = string(b)
	}

	draft := mailer.Draft{
		Body:     text,
		Subject:  *subject,
		From:     *from,
		Priority: mailer.Priority(*priority),
	}
	if *to != "" {
		for _, rcpt := range strings.Split(*to, ",") {
			if rcpt = strings.TrimSpace(rcpt); rcpt != "" {
				draft.To = append(draft.To, rcpt)
			}
		}
	}
	for _, line := range headers {
		h, err := mailer.ParseHeader(line)
		if err != nil {
			return err
		}
		draft.Headers = append(draft.Headers, h)
	}

	msg, err := m.Compose(draft)
	if err != nil {
		return fmt.Errorf("compose: %w", err)
	}

	res, err := m.Dispatch(ctx, msg)
	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}

	fmt.Fprintf(stdout, "sent=%d failed=%d\n", res.Sent, len(res.Failed))
	for _, rcpt := range res.Failed {
		fmt.Fprintf(stdout, "failed: %s\n", rcpt)
	}
	if len(res.Failed) > 0 && res.Sent == 0 {
		return errors.New("no recipient accepted the message")
	}

	return nil
}
