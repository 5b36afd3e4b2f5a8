package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrymomot/fittrack/pkg/logger"
)

// DevSender writes each message as an .html body plus a .json envelope into
// a directory and logs where it went.
type DevSender struct {
	dir string
	log *slog.Logger
	now func() time.Time
}

func NewDevSender(dir string, log *slog.Logger) *DevSender {
	return &DevSender{dir: dir, log: logger.OrDefault(log), now: time.Now}
}

func (d *DevSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToSendEmail, err)
	}

	now := d.now()
	name := params.Tag
	if name == "" {
		name = params.Subject
	}
	base := filepath.Join(d.dir, now.Format("2006_01_02_150405")+"_"+safeName(name))

	if err := os.WriteFile(base+".html", []byte(params.BodyHTML), 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToSendEmail, err)
	}
	meta, _ := json.MarshalIndent(map[string]string{
		"timestamp": now.Format(time.RFC3339),
		"send_to":   params.SendTo,
		"subject":   params.Subject,
		"tag":       params.Tag,
	}, "", "  ")
	if err := os.WriteFile(base+".json", meta, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToSendEmail, err)
	}

	d.log.InfoContext(ctx, "email written to disk",
		slog.String("to", params.SendTo),
		slog.String("file", base+".html"),
	)
	return nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

func safeName(s string) string {
	s = unsafeChars.ReplaceAllString(strings.ReplaceAll(s, " ", "_"), "")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		return "email"
	}
	return strings.ToLower(s)
}
