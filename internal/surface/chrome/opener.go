package chrome

import (
	"fmt"
	"io"
	"net/url"

	"github.com/pkg/browser"
	"go.uber.org/zap"
)

// SystemOpener hands URIs to the desktop's default handler
type SystemOpener struct {
	logger *zap.Logger
	open   func(string) error
}

// NewSystemOpener creates an opener that launches the default browser
func NewSystemOpener(logger *zap.Logger) *SystemOpener {
	if logger == nil {
		logger = zap.NewNop()
	}
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return &SystemOpener{logger: logger, open: browser.OpenURL}
}

// Open launches u outside the shell
func (o *SystemOpener) Open(u *url.URL) error {
	if u == nil {
		return fmt.Errorf("no url to open")
	}
	o.logger.Info("opening externally", zap.String("url", u.String()))
	if err := o.open(u.String()); err != nil {
		return fmt.Errorf("failed to open %s: %w", u.Redacted(), err)
	}
	return nil
}
