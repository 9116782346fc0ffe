package docconv

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Option configures a Pipeline.
type Option func(*settings)

type settings struct {
	logger       zerolog.Logger
	scratchDir   string
	table        Table
	backends     []Backend
	noDefaults   bool
	maxInput     int64
	options      Options
	attribution  string
	httpClient   *http.Client
	gotenbergURL string
	soffice      bool
	sofficeBin   string
	chromium     bool
	chromiumURL  string
	timeouts     map[BackendKind]time.Duration
}

func defaultSettings() *settings {
	return &settings{
		logger:   zerolog.Nop(),
		table:    DefaultTable,
		maxInput: 50 << 20,
		timeouts: map[BackendKind]time.Duration{
			KindRemote:   15 * time.Second,
			KindLocal:    60 * time.Second,
			KindFallback: 30 * time.Second,
		},
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithScratchDir sets the root directory for request scratch files
// (default: $TMPDIR/docconv).
func WithScratchDir(dir string) Option {
	return func(s *settings) {
		s.scratchDir = dir
	}
}

// WithTable replaces the capability table.
func WithTable(t Table) Option {
	return func(s *settings) {
		s.table = t
	}
}

// WithBackend registers a backend under its Name, replacing any built-in
// backend of the same name.
func WithBackend(b Backend) Option {
	return func(s *settings) {
		s.backends = append(s.backends, b)
	}
}

// WithoutDefaultBackends leaves out the built-in local backends, so only
// those added with WithBackend (and the configured services) are used.
func WithoutDefaultBackends() Option {
	return func(s *settings) {
		s.noDefaults = true
	}
}

// WithGotenberg enables the Gotenberg backends against the service at url.
func WithGotenberg(url string) Option {
	return func(s *settings) {
		s.gotenbergURL = url
	}
}

// WithHTTPClient sets the client used for remote services.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) {
		s.httpClient = c
	}
}

// WithSoffice enables the LibreOffice backend. An empty binary searches PATH.
func WithSoffice(binary string) Option {
	return func(s *settings) {
		s.soffice = true
		s.sofficeBin = binary
	}
}

// WithChromium enables the Chromium backends. An empty controlURL launches
// a local headless browser on first use.
func WithChromium(controlURL string) Option {
	return func(s *settings) {
		s.chromium = true
		s.chromiumURL = controlURL
	}
}

// WithRemoteTimeout bounds each attempt of a remote backend (default 15s).
func WithRemoteTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.timeouts[KindRemote] = d
	}
}

// WithLocalTimeout bounds each attempt of a local backend (default 60s).
func WithLocalTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.timeouts[KindLocal] = d
	}
}

// WithFallbackTimeout bounds each attempt of a fallback backend (default 30s).
func WithFallbackTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.timeouts[KindFallback] = d
	}
}

// WithImageEncoding sets the encoding of image outputs. Without it, drawn
// images are png and images passed through keep their own encoding.
func WithImageEncoding(e ImageEncoding) Option {
	return func(s *settings) {
		s.options.ImageEncoding = e
	}
}

// WithDPI sets the default page rasterization resolution.
func WithDPI(dpi float64) Option {
	return func(s *settings) {
		s.options.DPI = dpi
	}
}

// WithMaxInputSize caps accepted input size in bytes (default 50 MiB).
func WithMaxInputSize(n int64) Option {
	return func(s *settings) {
		s.maxInput = n
	}
}

// WithAttribution sets the footer text of rendered previews.
func WithAttribution(text string) Option {
	return func(s *settings) {
		s.attribution = text
	}
}
