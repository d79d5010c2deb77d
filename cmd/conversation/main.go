// Command conversation is a terminal client of a conversationd server.
//
//	conversation [flags] <command> [args]
//
// The server and the token are read from -server and -token, or from
// CONVERSATION_SERVER and CONVERSATION_TOKEN. The user is the subject of
// the token unless -user is set.
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
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/text/language"

	"github.com/rbaliyan/conversation"
	"github.com/rbaliyan/conversation/client"
	"github.com/rbaliyan/conversation/retry"
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "conversation:", err)
		os.Exit(1)
	}
}

// app is one invocation of the command.
type app struct {
	client *client.Client
	conv   *conversation.Conversation
	ctl    *conversation.Controller
	out    io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("conversation", flag.ContinueOnError)
	fs.SetOutput(stderr)
	serverURL := fs.String("server", envOr("CONVERSATION_SERVER", "http://localhost:8080"), "base URL of the server")
	token := fs.String("token", os.Getenv("CONVERSATION_TOKEN"), "bearer token")
	user := fs.String("user", "", "user id, defaults to the token subject")
	lang := fs.String("lang", envOr("CONVERSATION_LANG", "fr"), "language of messages")
	retries := fs.Int("retries", 2, "retries of idempotent requests")
	verbose := fs.Bool("v", false, "log requests")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: conversation [flags] <command> [args]")
		fmt.Fprintln(stderr)
		for _, c := range commands {
			fmt.Fprintf(stderr, "  %-8s %s\n", c.name, c.help)
		}
		fmt.Fprintln(stderr)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}
	cmd, ok := lookup(fs.Arg(0))
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", fs.Arg(0))
		fs.Usage()
		return errUsage
	}

	me := *user
	if me == "" {
		var err error
		if me, err = tokenSubject(*token); err != nil {
			return fmt.Errorf("no -user and %w", err)
		}
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	tag, err := language.Parse(*lang)
	if err != nil {
		return fmt.Errorf("-lang: %w", err)
	}

	cl := client.New(*serverURL,
		client.WithToken(*token),
		client.WithLogger(logger),
		client.WithRetry(retry.Config{MaxRetries: *retries, InitialBackoff: 200 * time.Millisecond}),
	)
	conv, err := conversation.New(cl,
		conversation.WithMe(me),
		conversation.WithLogger(logger),
		conversation.WithNotifier(notifier{w: stderr}),
		conversation.WithTranslator(conversation.NewCatalog(tag)),
	)
	if err != nil {
		return err
	}
	if err := conv.Sync(ctx); err != nil {
		return err
	}

	a := &app{client: cl, conv: conv, ctl: conversation.NewController(conv), out: stdout}
	return cmd.run(a, ctx, fs.Args()[1:])
}

// tokenSubject reads the user id out of a token. The server verifies the
// signature; the client only needs the subject.
func tokenSubject(token string) (string, error) {
	if token == "" {
		return "", errors.New("no token")
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// notifier prints notifications on stderr.
type notifier struct {
	w io.Writer
}

func (n notifier) Info(msg string)  { fmt.Fprintln(n.w, msg) }
func (n notifier) Error(msg string) { fmt.Fprintln(n.w, "error:", msg) }
