// Package report streams validation outcomes to a dashboard over socket.io.
// Reporting is best effort: a reporter that cannot connect is never created,
// and a nil *Reporter accepts every call as a no-op.
package report

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/pipecheck/internal/ctxlog"
	"github.com/specialistvlad/pipecheck/internal/validate"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Event names emitted to the dashboard.
const (
	EventCheck   = "check_result"
	EventUnit    = "unit_result"
	EventSummary = "run_summary"
)

// connectTimeout bounds the wait for the initial handshake.
const connectTimeout = 15 * time.Second

// Options configures the dashboard connection.
type Options struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
}

// Reporter is a validate.Observer that emits outcomes as socket.io events.
type Reporter struct {
	client *socket.Socket
}

var _ validate.Observer = (*Reporter)(nil)

// Dial connects to the dashboard and waits for the handshake.
func Dial(ctx context.Context, opts Options) (*Reporter, error) {
	logger := ctxlog.FromContext(ctx).With("reporter", "socketio", "url", opts.URL)

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse report URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("report URL %q must include a scheme and host", opts.URL)
	}

	sockOpts := socket.DefaultOptions()
	sockOpts.SetPath(parsedURL.Path)
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sockOpts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sockOpts.SetTransports(types.NewSet(transports.WebSocket))

	namespace := opts.Namespace
	if namespace == "" {
		namespace = "/"
	}

	connectChan := make(chan error, 1)
	signal := func(err error) {
		select {
		case connectChan <- err:
		default:
		}
	}
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sockOpts)
	io := manager.Socket(namespace, sockOpts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Debug("Reporter connected", "sid", io.Id())
		signal(nil)
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			} else {
				err = fmt.Errorf("connect_error: %v", errs[0])
			}
		}
		signal(err)
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &Reporter{client: io}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(connectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", connectTimeout)
	}
}

// CheckCompleted emits a check_result event.
func (r *Reporter) CheckCompleted(_ context.Context, c validate.Check) {
	if r == nil {
		return
	}
	r.client.Emit(EventCheck, CheckPayload(c))
}

// UnitCompleted emits a unit_result event.
func (r *Reporter) UnitCompleted(_ context.Context, u validate.Unit) {
	if r == nil {
		return
	}
	r.client.Emit(EventUnit, UnitPayload(u))
}

// Summary emits the run_summary event.
func (r *Reporter) Summary(task string, s validate.Summary) {
	if r == nil {
		return
	}
	r.client.Emit(EventSummary, SummaryPayload(task, s))
}

// Close disconnects from the dashboard.
func (r *Reporter) Close() {
	if r == nil {
		return
	}
	r.client.Disconnect()
}

// CheckPayload is the body of a check_result event.
func CheckPayload(c validate.Check) map[string]any {
	return map[string]any{
		"task":    c.Task,
		"data_id": c.DataID,
		"check":   c.Description,
		"ok":      c.OK,
	}
}

// UnitPayload is the body of a unit_result event.
func UnitPayload(u validate.Unit) map[string]any {
	p := map[string]any{
		"task":        u.Task,
		"data_id":     u.DataID,
		"failures":    u.Failures,
		"duration_ms": u.Duration.Milliseconds(),
	}
	if u.Err != nil {
		p["error"] = u.Err.Error()
	}
	return p
}

// SummaryPayload is the body of a run_summary event.
func SummaryPayload(task string, s validate.Summary) map[string]any {
	return map[string]any{
		"task":         task,
		"units":        s.Units,
		"failed_units": s.FailedUnits,
		"errors":       s.Errors,
		"failures":     s.Failures,
	}
}
