package netcdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"

	"github.com/couchcryptid/buoy-ingest-service/internal/domain"
)

// Opener implements domain.Opener for local paths, file:// URIs and
// http(s):// URIs. Remote files are downloaded to a temporary file that is
// removed when the returned file is closed. THREDDS OPeNDAP (dodsC) URLs are
// read through the server's fileServer endpoint; other OPeNDAP servers are
// rejected with domain.ErrUnsupportedURI.
type Opener struct {
	httpClient *http.Client
	tempDir    string
	logger     *slog.Logger
}

// NewOpener creates an Opener. tempDir may be empty to use the system default.
func NewOpener(timeout time.Duration, tempDir string, logger *slog.Logger) *Opener {
	return &Opener{
		httpClient: &http.Client{Timeout: timeout},
		tempDir:    tempDir,
		logger:     logger,
	}
}

// Open opens the file at uri. Every failure is wrapped with domain.ErrOpen.
func (o *Opener) Open(ctx context.Context, uri string) (domain.File, error) {
	switch {
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return o.openRemote(ctx, uri)
	case strings.HasPrefix(uri, "file://"):
		u, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrOpen, uri, err)
		}
		return openLocal(u.Path, nil)
	default:
		return openLocal(stripModeFlags(uri), nil)
	}
}

// readerModeFlags are URI fragments that select a reader mode rather than
// name part of a path. The native reader has no such modes.
var readerModeFlags = map[string]bool{"fillmismatch": true}

func stripModeFlags(path string) string {
	for {
		i := strings.LastIndex(path, "#")
		if i < 0 || !readerModeFlags[path[i+1:]] {
			return path
		}
		path = path[:i]
	}
}

func openLocal(path string, onClose func() error) (domain.File, error) {
	g, err := netcdf.Open(path)
	if err != nil {
		if onClose != nil {
			_ = onClose()
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrOpen, path, err)
	}
	return newGroupFile(g, onClose), nil
}

// THREDDS service paths for OPeNDAP access and plain download of the same
// dataset.
const (
	threddsDAPPath  = "/dodsC/"
	threddsFilePath = "/fileServer/"
)

// dapSuffixes select an OPeNDAP response form and are not part of the file
// name.
var dapSuffixes = []string{".html", ".dds", ".das", ".dods", ".ascii", ".info"}

// fileServerURL rewrites a THREDDS OPeNDAP URL to the download URL of the same
// file. ok is false when raw is not an OPeNDAP URL.
func fileServerURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || !strings.Contains(u.Path, threddsDAPPath) {
		return raw, false
	}
	u.Path = strings.Replace(u.Path, threddsDAPPath, threddsFilePath, 1)
	for _, s := range dapSuffixes {
		if strings.HasSuffix(u.Path, s) {
			u.Path = strings.TrimSuffix(u.Path, s)
			break
		}
	}
	// Constraint expressions and reader mode flags do not apply to a download.
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), true
}

// isDAPResponse reports whether a response came from an OPeNDAP server.
func isDAPResponse(resp *http.Response) bool {
	return resp.Header.Get("XDODS-Server") != "" || resp.Header.Get("XOPeNDAP-Server") != ""
}

func (o *Opener) openRemote(ctx context.Context, uri string) (domain.File, error) {
	target := uri
	if rewritten, ok := fileServerURL(uri); ok {
		o.logger.Debug("reading opendap url through file server", "uri", uri, "download", rewritten)
		target = rewritten
	}

	path, err := o.download(ctx, target)
	if errors.Is(err, domain.ErrUnsupportedURI) {
		return nil, fmt.Errorf("%s: %w", uri, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrOpen, uri, err)
	}
	return openLocal(path, func() error { return os.Remove(path) })
}

func (o *Opener) download(ctx context.Context, uri string) (string, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if isDAPResponse(resp) {
		return "", fmt.Errorf("%w: opendap endpoint without a file server", domain.ErrUnsupportedURI)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("download: status %d: %s", resp.StatusCode, body)
	}

	tmp, err := os.CreateTemp(o.tempDir, "buoy-*.nc")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}

	o.logger.Debug("downloaded netcdf file", "uri", uri, "bytes", n, "duration", time.Since(start))
	return tmp.Name(), nil
}
