package mailer

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/lattiq/maildispatch/internal/core"
)

// SendmailSubmitter submits one message per call to a local
// sendmail-compatible binary invoked with "-t -i".
type SendmailSubmitter struct {
	// Path is the binary path (default: the go-mail sendmail path).
	Path string
}

// Submit writes To, Subject, the header block and the body to the binary.
// Control characters in the recipient and subject are replaced with spaces.
// The additional parameters are split on whitespace and appended to the
// argument list.
func (s SendmailSubmitter) Submit(ctx context.Context, recipient, subject, body, headers, params string) error {
	path := s.Path
	if path == "" {
		path = mail.SendmailPath
	}

	args := append([]string{"-t", "-i"}, strings.Fields(params)...)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "To: %s\r\nSubject: %s\r\n", core.SingleLine(recipient), core.SingleLine(subject))
	if headers != "" {
		buf.WriteString(headers)
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")
	buf.WriteString(body)

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = &buf
	if out, err := cmd.CombinedOutput(); err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("sendmail %s: %w: %s", recipient, err, msg)
		}
		return fmt.Errorf("sendmail %s: %w", recipient, err)
	}
	return nil
}
