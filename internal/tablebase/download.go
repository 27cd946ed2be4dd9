package tablebase

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Syzygy file suffixes.
const (
	wdlSuffix = ".rtbw"
	dtzSuffix = ".rtbz"
)

// SyzygyDownloader downloads Syzygy tablebase files and reports which ones
// are present in a directory.
type SyzygyDownloader struct {
	Dir     string // Directory holding .rtbw/.rtbz files
	BaseURL string // e.g. https://tablebase.lichess.ovh/tables/standard/
	Client  *http.Client
	Log     zerolog.Logger
}

// NewSyzygyDownloader creates a downloader for dir with default settings.
func NewSyzygyDownloader(dir string, log zerolog.Logger) *SyzygyDownloader {
	return &SyzygyDownloader{
		Dir:     dir,
		BaseURL: "https://tablebase.lichess.ovh/tables/standard/",
		Client:  &http.Client{Timeout: 5 * time.Minute},
		Log:     log.With().Str("component", "syzygy-download").Logger(),
	}
}

// DefaultSyzygyDir returns the default directory for Syzygy files.
func DefaultSyzygyDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./syzygy"
	}
	return filepath.Join(home, ".tbprobe", "syzygy")
}

// DownloadProgress reports progress for one file.
type DownloadProgress struct {
	File          string
	BytesReceived int64
	TotalBytes    int64
	Done          bool
	Error         error
}

// pieceOrder is the Syzygy naming order, strongest first.
const pieceOrder = "QRBNP"

// MaterialNames lists the canonical Syzygy material keys ("KQvKR") for every
// table with at most maxPieces pieces, kings included. The stronger side is
// written first; equal piece counts are ordered by piece strength.
func MaterialNames(maxPieces int) []string {
	var names []string
	for total := 1; total <= maxPieces-2; total++ {
		for strong := total; strong*2 >= total; strong-- {
			for _, a := range multisets(strong) {
				for _, b := range multisets(total - strong) {
					if strong == total-strong && a > b {
						continue
					}
					names = append(names, "K"+materialString(a)+"vK"+materialString(b))
				}
			}
		}
	}
	return names
}

// multisets returns every combination of n pieces as pieceOrder indexes in
// ascending order, so byte-wise comparison orders them strongest first.
func multisets(n int) []string {
	var out []string
	var rec func(prefix []byte, start, left int)
	rec = func(prefix []byte, start, left int) {
		if left == 0 {
			out = append(out, string(prefix))
			return
		}
		for i := start; i < len(pieceOrder); i++ {
			rec(append(prefix, byte(i)), i, left-1)
		}
	}
	rec(nil, 0, n)
	return out
}

func materialString(idx string) string {
	b := make([]byte, len(idx))
	for i := 0; i < len(idx); i++ {
		b[i] = pieceOrder[idx[i]]
	}
	return string(b)
}

// HasFile reports whether both the WDL and DTZ files of a table are present.
func (d *SyzygyDownloader) HasFile(name string) bool {
	_, wdlErr := os.Stat(filepath.Join(d.Dir, name+wdlSuffix))
	_, dtzErr := os.Stat(filepath.Join(d.Dir, name+dtzSuffix))
	return wdlErr == nil && dtzErr == nil
}

// DownloadFile downloads one table (WDL and DTZ).
func (d *SyzygyDownloader) DownloadFile(ctx context.Context, name string, progress chan<- DownloadProgress) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("create tablebase dir: %w", err)
	}
	if err := d.fetch(ctx, "wdl/"+name+wdlSuffix, name+wdlSuffix, progress); err != nil {
		return fmt.Errorf("downloading WDL: %w", err)
	}
	if err := d.fetch(ctx, "dtz/"+name+dtzSuffix, name+dtzSuffix, progress); err != nil {
		return fmt.Errorf("downloading DTZ: %w", err)
	}
	return nil
}

// DownloadUpTo downloads every table with at most maxPieces pieces that is
// not already present.
func (d *SyzygyDownloader) DownloadUpTo(ctx context.Context, maxPieces int, progress chan<- DownloadProgress) error {
	for _, name := range MaterialNames(maxPieces) {
		if d.HasFile(name) {
			continue
		}
		if err := d.DownloadFile(ctx, name, progress); err != nil {
			return fmt.Errorf("downloading %s: %w", name, err)
		}
	}
	return nil
}

type progressWriter struct {
	name     string
	total    int64
	written  int64
	progress chan<- DownloadProgress
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	if w.progress != nil {
		w.progress <- DownloadProgress{File: w.name, BytesReceived: w.written, TotalBytes: w.total}
	}
	return len(p), nil
}

func (d *SyzygyDownloader) fetch(ctx context.Context, urlPath, file string, progress chan<- DownloadProgress) error {
	path := filepath.Join(d.Dir, file)
	if _, err := os.Stat(path); err == nil {
		if progress != nil {
			progress <- DownloadProgress{File: file, Done: true}
		}
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.BaseURL+urlPath, nil)
	if err != nil {
		return err
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	tmpPath := path + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	pw := &progressWriter{name: file, total: resp.ContentLength, progress: progress}
	_, err = io.Copy(out, io.TeeReader(resp.Body, pw))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmpPath, path)
	}
	if err != nil {
		os.Remove(tmpPath)
		return err
	}

	d.Log.Debug().Str("file", file).Int64("bytes", pw.written).Msg("downloaded")
	if progress != nil {
		progress <- DownloadProgress{File: file, Done: true}
	}
	return nil
}

// AvailableFiles returns the tables in Dir that have both WDL and DTZ files.
func (d *SyzygyDownloader) AvailableFiles() []string {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return nil
	}

	seen := make(map[string]int)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		for _, suffix := range []string{wdlSuffix, dtzSuffix} {
			if base, ok := strings.CutSuffix(name, suffix); ok {
				seen[base]++
			}
		}
	}

	var files []string
	for base, count := range seen {
		if count == 2 {
			files = append(files, base)
		}
	}
	sort.Strings(files)
	return files
}

// MaxPiecesAvailable returns the largest piece count among the tables in Dir.
func (d *SyzygyDownloader) MaxPiecesAvailable() int {
	maxPieces := 0
	for _, f := range d.AvailableFiles() {
		maxPieces = max(maxPieces, countPiecesFromName(f))
	}
	return maxPieces
}

// countPiecesFromName counts pieces in a table name like "KQRvKR".
func countPiecesFromName(name string) int {
	count := 0
	for _, c := range strings.ToUpper(name) {
		if strings.ContainsRune("K"+pieceOrder, c) {
			count++
		}
	}
	return count
}

// FormatBytes formats bytes to a human readable string.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
