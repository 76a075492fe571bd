package extract

import (
	"context"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/firmanjml/cs3-ext-flixhq/internal/httputil"
	"github.com/firmanjml/cs3-ext-flixhq/internal/media"
	"github.com/firmanjml/cs3-ext-flixhq/internal/socketio"
)

const (
	DefaultDeadline     = 30 * time.Second
	DefaultPollInterval = time.Second
)

// RabbitStream asks the resolver socket for the sources of an embed page.
type RabbitStream struct {
	Endpoint     string
	Secret       []byte // overrides the session id as decryption key
	Deadline     time.Duration
	PollInterval time.Duration

	Dialer   Dialer
	Selector *Selector
	Logger   *log.Logger
}

// NewRabbitStream returns a client for endpoint with default timings.
func NewRabbitStream(endpoint string, sel *Selector, logger *log.Logger) *RabbitStream {
	if endpoint == "" {
		endpoint = DefaultSocketEndpoint
	}
	var origin string
	if sel != nil {
		origin = originOf(sel.BaseURL)
	}
	return &RabbitStream{
		Endpoint:     endpoint,
		Deadline:     DefaultDeadline,
		PollInterval: DefaultPollInterval,
		Dialer:       &WSDialer{Origin: origin},
		Selector:     sel,
		Logger:       logger,
	}
}

func (r *RabbitStream) Name() string { return "rabbitstream" }

// CanExtract accepts any embed URL ending in a well-formed page id; the
// socket is the last resort.
func (r *RabbitStream) CanExtract(embedURL string) bool {
	return httputil.ValidatePageID(PageID(embedURL)) == nil
}

// Extract resolves embedURL via Resolve.
func (r *RabbitStream) Extract(ctx context.Context, embedURL string) (*media.Resolution, error) {
	id := PageID(embedURL)
	if err := httputil.ValidatePageID(id); err != nil {
		return nil, &ParseError{Fragment: "embed url", Err: errors.Wrapf(err, "embed %q", embedURL)}
	}
	links, subs := r.Resolve(ctx, id)
	return &media.Resolution{Links: links, Subtitles: subs, Extractor: r.Name()}, nil
}

// Resolve runs one handshake for pageID. It never fails: every problem is
// logged and yields empty output.
func (r *RabbitStream) Resolve(ctx context.Context, pageID string) ([]media.ResolvedLink, []media.SubtitleTrack) {
	logger := r.logger().With("page", pageID)

	conn, err := r.Dialer.Dial(ctx, r.Endpoint)
	if err != nil {
		logger.Warn("resolver unreachable", "err", &ConnectionError{Endpoint: r.Endpoint, Err: err})
		return nil, nil
	}

	ex := &exchange{
		conn:     conn,
		session:  socketio.NewSession(pageID),
		finished: make(chan struct{}),
	}
	go ex.run()

	if !r.await(ctx, ex) {
		_ = conn.Close(closeAbandoned, "")
		<-ex.finished
		switch {
		case ctx.Err() != nil:
			logger.Warn("resolution cancelled", "err", ctx.Err())
		case ex.timedOut.Load():
			logger.Warn("resolution abandoned", "err", ErrTimeout, "deadline", r.Deadline)
		default:
			logger.Warn("resolver closed early", "err", &ConnectionError{Endpoint: r.Endpoint, Err: ex.err})
		}
		return nil, nil
	}

	secret := r.Secret
	if len(secret) == 0 {
		secret = []byte(ex.sid)
	}

	d, err := DecodeSources([]byte(ex.result), secret)
	if err != nil {
		logger.Warn("result not decoded", "err", err)
		return nil, nil
	}
	for _, e := range d.Dropped {
		logger.Warn("candidate list dropped", "err", e)
	}

	var links []media.ResolvedLink
	if r.Selector != nil {
		links = r.Selector.Select(ctx, d.Group)
	}
	logger.Debug("resolved", "candidates", d.Group.Len(), "links", len(links), "subtitles", len(d.Subtitles))
	return links, d.Subtitles
}

// await blocks until the exchange completes, the deadline passes or ctx is
// done, checking the done flag every poll interval. It reports whether a
// result arrived.
func (r *RabbitStream) await(ctx context.Context, ex *exchange) bool {
	deadline := r.Deadline
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	poll := r.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	timer := time.NewTimer(deadline)
	defer timer.Stop()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		if ex.done.Load() {
			return true
		}
		select {
		case <-ex.finished:
			return ex.done.Load()
		case <-ticker.C:
		case <-timer.C:
			if ex.done.Load() {
				return true
			}
			ex.timedOut.Store(true)
			return false
		case <-ctx.Done():
			return false
		}
	}
}

func (r *RabbitStream) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}

// exchange is the state shared by the reader goroutine and the governor.
// result and sid are written before done is set.
type exchange struct {
	conn     Conn
	session  *socketio.Session
	done     atomic.Bool
	timedOut atomic.Bool
	finished chan struct{}

	result string
	sid    string
	err    error
}

func (ex *exchange) run() {
	defer close(ex.finished)
	for {
		raw, err := ex.conn.Read()
		if err != nil {
			ex.session.Abort()
			ex.err = err
			return
		}

		f, err := socketio.Decode(raw)
		if err != nil {
			continue
		}

		st := ex.session.Step(f)
		for _, out := range st.Send {
			if err := ex.conn.Write(out); err != nil {
				ex.err = err
				return
			}
		}
		if st.Terminal {
			ex.result = st.Result
			ex.sid = ex.session.SID()
			ex.done.Store(true)
			if st.Close {
				_ = ex.conn.Close(closeNoStatus, socketio.CloseReason)
			}
			return
		}
	}
}

// originOf reduces a site URL to its scheme and host.
func originOf(base string) string {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// PageID returns the last path segment of an embed URL, without query.
func PageID(embedURL string) string {
	s := strings.TrimSpace(embedURL)
	if u, err := url.Parse(s); err == nil && u.Path != "" {
		s = u.Path
	} else if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	return s
}
