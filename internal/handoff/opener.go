package handoff

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrNoHandler means the host has no app registered for the link's scheme.
var ErrNoHandler = errors.New("no handler registered for link")

// Opener asks the host platform to launch the app behind a URI.
type Opener interface {
	Open(ctx context.Context, uri string) error
}

const recordLimit = 100

// RecordingOpener keeps the links it was asked to open. Schemes can be marked as failing.
type RecordingOpener struct {
	mu      sync.Mutex
	opened  []string
	failing map[string]error
	logger  *zap.Logger
}

// NewRecordingOpener builds an opener that logs each link when logger is non-nil.
func NewRecordingOpener(logger *zap.Logger) *RecordingOpener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordingOpener{failing: make(map[string]error), logger: logger}
}

// FailScheme makes every link with scheme fail with err. A nil err clears it.
func (o *RecordingOpener) FailScheme(scheme string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err == nil {
		delete(o.failing, scheme)
		return
	}
	o.failing[scheme] = err
}

// Open records uri unless its scheme is marked as failing.
func (o *RecordingOpener) Open(ctx context.Context, uri string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("parse link: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if ferr, ok := o.failing[u.Scheme]; ok {
		o.logger.Warn("link rejected", zap.String("scheme", u.Scheme), zap.Error(ferr))
		return ferr
	}
	o.opened = append(o.opened, uri)
	if len(o.opened) > recordLimit {
		o.opened = o.opened[len(o.opened)-recordLimit:]
	}
	o.logger.Info("link opened", zap.String("scheme", u.Scheme), zap.String("uri", uri))
	return nil
}

// Opened returns the recorded links, oldest first.
func (o *RecordingOpener) Opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}

// CommandOpener runs a host command such as xdg-open with the link as last argument.
type CommandOpener struct {
	name string
	args []string
}

// NewCommandOpener builds an opener for name args... <uri>.
func NewCommandOpener(name string, args ...string) *CommandOpener {
	return &CommandOpener{name: name, args: args}
}

// Open runs the command and waits for it.
func (o *CommandOpener) Open(ctx context.Context, uri string) error {
	args := append(append([]string(nil), o.args...), uri)
	cmd := exec.CommandContext(ctx, o.name, args...)
	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return fmt.Errorf("%w: %v", ErrNoHandler, err)
	}
	var exitErr *exec.ExitError
	// xdg-open: 3 = no tool found for the scheme, 4 = the launch failed.
	if errors.As(err, &exitErr) && (exitErr.ExitCode() == 3 || exitErr.ExitCode() == 4) {
		return fmt.Errorf("%w: %v", ErrNoHandler, err)
	}
	return fmt.Errorf("open link: %w", err)
}

type relayRequest struct {
	URI string `json:"uri"`
}

// RelayOpener forwards links to a device relay over HTTP.
type RelayOpener struct {
	url     string
	timeout time.Duration
}

// NewRelayOpener builds an opener posting {"uri": ...} to relayURL.
func NewRelayOpener(relayURL string, timeout time.Duration) *RelayOpener {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RelayOpener{url: relayURL, timeout: timeout}
}

// Open posts the link. 404 and 410 mean the device cannot handle it.
func (o *RelayOpener) Open(ctx context.Context, uri string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := o.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	agent := fiber.Post(o.url)
	agent.JSON(relayRequest{URI: uri})
	agent.Timeout(timeout)
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("relay: %w", errors.Join(errs...))
	}
	switch {
	case code == fiber.StatusNotFound || code == fiber.StatusGone:
		return ErrNoHandler
	case code >= 300:
		return fmt.Errorf("relay: status %d: %s", code, body)
	}
	return nil
}
