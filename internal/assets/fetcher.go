// Package assets downloads, verifies, extracts, and caches the binary
// assets murmur needs (banner font, speech models). Assets are addressed
// by a stable destination path inside the cache directory and treated as
// immutable once cached.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/murmurvoice/murmur-setup/internal/execx"
	"github.com/murmurvoice/murmur-setup/internal/output"
)

// maxRedirects bounds a redirect chain. Exceeding it is a fetch failure.
const maxRedirects = 5

// ErrTooManyRedirects is returned when a redirect chain exceeds maxRedirects.
var ErrTooManyRedirects = errors.New("too many redirects")

// Asset describes one cacheable binary artifact.
type Asset struct {
	Name string
	URL  string

	// Archive marks assets that arrive packed; the payload is located in
	// the extracted tree by Marker and Extensions.
	Archive    bool
	Marker     string
	Extensions []string

	// FileName is the stable name under the cache directory.
	FileName string
}

// Fetcher implements the download-verify-extract-cache primitive.
type Fetcher struct {
	CacheDir string
	Client   *http.Client
	Runner   execx.Runner
	Out      io.Writer
}

// New returns a Fetcher caching into cacheDir and extracting archives
// through runner. The HTTP client does not follow redirects itself;
// Fetch follows them manually so the chain can be bounded.
func New(cacheDir string, runner execx.Runner) *Fetcher {
	return &Fetcher{
		CacheDir: cacheDir,
		Runner:   runner,
		Client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		Out: os.Stdout,
	}
}

// DestPath returns the stable cache location for the asset.
func (f *Fetcher) DestPath(a Asset) string {
	name := a.FileName
	if name == "" {
		name = a.Name
	}
	return filepath.Join(f.CacheDir, name)
}

// Fetch ensures the asset is present in the cache and returns its path.
// If the destination already exists no network access happens at all.
func (f *Fetcher) Fetch(ctx context.Context, a Asset) (string, error) {
	dest := f.DestPath(a)
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	if err := os.MkdirAll(f.CacheDir, 0755); err != nil {
		return "", fmt.Errorf("cannot create cache directory: %w", err)
	}

	tmpPath, err := f.download(ctx, a)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmpPath)

	if !a.Archive {
		if err := os.Rename(tmpPath, dest); err != nil {
			return "", fmt.Errorf("cannot place %s in cache: %w", a.Name, err)
		}
		return dest, nil
	}

	if err := f.materialize(ctx, a, tmpPath, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// download streams the asset to a temp file in the cache directory,
// following redirects up to maxRedirects hops. The partial temp file is
// removed on any failure.
func (f *Fetcher) download(ctx context.Context, a Asset) (string, error) {
	target := a.URL

	for hop := 0; hop <= maxRedirects; hop++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return "", fmt.Errorf("invalid URL for %s: %w", a.Name, err)
		}

		resp, err := f.Client.Do(req)
		if err != nil {
			return "", fmt.Errorf("fetch %s: %w", a.Name, err)
		}

		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			loc := resp.Header.Get("Location")
			resp.Body.Close()
			if loc == "" {
				return "", fmt.Errorf("fetch %s: redirect without Location (status %d)", a.Name, resp.StatusCode)
			}
			next, err := resolveRedirect(target, loc)
			if err != nil {
				return "", fmt.Errorf("fetch %s: bad redirect target: %w", a.Name, err)
			}
			target = next
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return "", fmt.Errorf("fetch %s: unexpected status %d", a.Name, resp.StatusCode)
		}

		path, err := f.streamToTemp(a, resp)
		resp.Body.Close()
		return path, err
	}

	return "", fmt.Errorf("fetch %s: %w (max %d)", a.Name, ErrTooManyRedirects, maxRedirects)
}

func (f *Fetcher) streamToTemp(a Asset, resp *http.Response) (string, error) {
	tmp, err := os.CreateTemp(f.CacheDir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("cannot create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	var src io.Reader = resp.Body
	if resp.ContentLength > 0 {
		bar := output.NewByteProgress(resp.ContentLength, "Downloading "+a.Name)
		if f.Out != nil {
			bar.SetWriter(f.Out)
		}
		defer bar.Finish()
		src = io.TeeReader(resp.Body, progressWriter{bar})
	}

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("download of %s interrupted: %w", a.Name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("cannot finish download of %s: %w", a.Name, err)
	}
	return tmpPath, nil
}

type progressWriter struct {
	bar *output.ProgressBar
}

func (w progressWriter) Write(p []byte) (int, error) {
	w.bar.Add(int64(len(p)))
	return len(p), nil
}

// materialize extracts the archive into a scratch directory, locates the
// payload by marker and extension, and copies the first match to dest.
// The scratch directory is removed on every exit path.
func (f *Fetcher) materialize(ctx context.Context, a Asset, archivePath, dest string) error {
	scratch, err := os.MkdirTemp(f.CacheDir, ".extract-*")
	if err != nil {
		return fmt.Errorf("cannot create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	if err := f.extract(ctx, a, archivePath, scratch); err != nil {
		return err
	}

	match, err := findMarkerFile(scratch, a.Marker, a.Extensions)
	if err != nil {
		return fmt.Errorf("asset %s: %w", a.Name, err)
	}

	if err := copyFile(match, dest); err != nil {
		return fmt.Errorf("cannot cache %s: %w", a.Name, err)
	}
	return nil
}

// extract runs the platform extraction command for the archive type.
func (f *Fetcher) extract(ctx context.Context, a Asset, archivePath, scratch string) error {
	var spec execx.Spec
	switch {
	case strings.HasSuffix(urlPath(a.URL), ".tar.gz"), strings.HasSuffix(urlPath(a.URL), ".tgz"):
		spec = execx.Spec{Program: "tar", Args: []string{"-xzf", archivePath, "-C", scratch}}
	default:
		spec = execx.Spec{Program: "unzip", Args: []string{"-o", "-q", archivePath, "-d", scratch}}
	}

	res, err := f.Runner.Run(ctx, spec)
	if err != nil {
		return fmt.Errorf("extraction of %s failed: %w", a.Name, err)
	}
	if !res.Ok() {
		return fmt.Errorf("extraction of %s exited %d: %s", a.Name, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// findMarkerFile walks the extracted tree for the first file whose name
// contains marker (case-insensitively) and carries one of the allowed
// extensions.
func findMarkerFile(root, marker string, exts []string) (string, error) {
	marker = strings.ToLower(marker)

	var match string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || match != "" {
			return err
		}
		name := strings.ToLower(d.Name())
		if !strings.Contains(name, marker) {
			return nil
		}
		for _, ext := range exts {
			if strings.HasSuffix(name, strings.ToLower(ext)) {
				match = path
				return fs.SkipAll
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("cannot search extracted files: %w", err)
	}
	if match == "" {
		return "", fmt.Errorf("no file matching %q with extensions %v in archive", marker, exts)
	}
	return match, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// resolveRedirect resolves a possibly-relative Location header against
// the current request URL.
func resolveRedirect(current, location string) (string, error) {
	base, err := url.Parse(current)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}
