package sendmail

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/lattiq/maildispatch/internal/core"
)

// Transport implements core.Transport by piping the rendered message to a
// local sendmail-compatible binary. The binary is always invoked with
// "-oi -t", so recipients are taken from the message headers.
type Transport struct {
	path string
	args []string
}

// New creates a sendmail transport from a command line such as
// "/usr/sbin/sendmail -f bounce@example.com". An empty command selects
// the default sendmail path.
func New(command string) (*Transport, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return &Transport{path: mail.SendmailPath}, nil
	}
	if strings.ContainsAny(fields[0], "|;&`$") {
		return nil, core.NewValidationErrorWithValue("transport", "invalid sendmail command", command)
	}

	return &Transport{path: fields[0], args: fields[1:]}, nil
}

// Send writes the message to the sendmail binary. Output on stderr or a
// failure to run the binary is a transport error; a silent non-zero exit
// status is reported as all recipients failed.
func (t *Transport) Send(ctx context.Context, msg *core.RichMessage) (core.Result, error) {
	rcpts, err := msg.Msg().GetRecipients()
	if err != nil {
		return core.Result{}, core.WrapProviderError(t.Name(), "no_recipients", 0, err)
	}

	var raw bytes.Buffer
	if _, err := msg.WriteTo(&raw); err != nil {
		return core.Result{}, core.WrapProviderError(t.Name(), "render_error", 0, err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.path, append([]string{"-oi", "-t"}, t.args...)...)
	cmd.Stdin = &raw
	cmd.Stderr = &stderr

	err = cmd.Run()
	if out := strings.TrimSpace(stderr.String()); out != "" {
		return core.Result{}, core.NewProviderError(t.Name(), "send_error", "sendmail command failed: "+out)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return core.Result{Failed: rcpts}, nil
		}
		return core.Result{}, core.WrapProviderError(t.Name(), "send_error", 0, err)
	}

	return core.Result{Sent: len(rcpts)}, nil
}

// Command returns the binary path and arguments.
func (t *Transport) Command() (string, []string) {
	return t.path, append([]string(nil), t.args...)
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "sendmail"
}
