package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hailam/tbprobe/internal/board"
	"github.com/hailam/tbprobe/internal/config"
	"github.com/hailam/tbprobe/internal/logx"
	"github.com/hailam/tbprobe/internal/storage"
	"github.com/hailam/tbprobe/internal/tablebase"
)

// errUnavailable reports that no tablebases were found at the configured path.
var errUnavailable = errors.New("tablebases unavailable")

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "tbprobe:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	var (
		path     = flag.String("path", cfg.SyzygyPath, "Syzygy tablebase directory")
		cacheDir = flag.String("cache", cfg.CacheDir, "probe cache directory (empty = memory only, \"auto\" = data dir)")
		fen      = flag.String("fen", "", "position to probe (default: read FENs from stdin)")
		download = flag.Int("download", 0, "download tables up to this many pieces before probing")
		uniform  = flag.Bool("uniform", cfg.UniformMoveWDL, "compare every move against the aggregate WDL")
		logLevel = flag.String("log-level", cfg.LogLevel, "log level")
	)
	flag.Parse()

	log := logx.NewLogger(*logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *download > 0 {
		if err := downloadTables(ctx, *path, *download, log); err != nil {
			return fmt.Errorf("download failed: %w", err)
		}
	}

	if *cacheDir == "auto" {
		if *cacheDir, err = storage.GetCacheDir(); err != nil {
			return fmt.Errorf("resolve cache dir: %w", err)
		}
	}
	cache, err := storage.Open(*cacheDir)
	if err != nil {
		return fmt.Errorf("open probe cache: %w", err)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			log.Warn().Err(err).Msg("close probe cache")
		}
	}()

	oracle := tablebase.NewCachedOracle(
		tablebase.NewLichessOracle(cfg.APIURL, cfg.HTTPTimeout, log),
		cfg.CacheSize, cache, log)

	largest := tablebase.Init(oracle, *path)
	if largest == 0 {
		return fmt.Errorf("%w at %s", errUnavailable, *path)
	}
	fmt.Printf("tablebases: %d pieces\n", largest)

	prober := tablebase.NewRootProber(oracle)
	prober.UniformMoveWDL = *uniform

	if *fen != "" {
		probe(os.Stdout, prober, largest, *fen, log)
		return nil
	}

	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		if ctx.Err() != nil {
			break
		}
		if line := strings.TrimSpace(sc.Text()); line != "" {
			probe(os.Stdout, prober, largest, line, log)
		}
	}
	log.Debug().Float64("hit_rate", oracle.HitRate()).Int("cached", oracle.CacheSize()).Msg("done")
	return sc.Err()
}

func probe(w io.Writer, prober *tablebase.RootProber, largest int, fen string, log zerolog.Logger) {
	pos, err := board.ParseFEN(fen)
	if err != nil {
		log.Error().Err(err).Str("fen", fen).Msg("bad FEN")
		return
	}
	if err := pos.Validate(); err != nil {
		log.Error().Err(err).Str("fen", fen).Msg("invalid position")
		return
	}
	if pos.CountPieces() > largest {
		fmt.Fprintf(w, "%s: %d pieces, not covered\n", fen, pos.CountPieces())
		return
	}

	res := prober.ProbeRoot(pos)
	if !res.Found {
		fmt.Fprintf(w, "%s: not found\n", fen)
		return
	}

	moves := make([]string, len(res.Moves))
	for i, m := range res.Moves {
		moves[i] = m.String()
	}
	fmt.Fprintf(w, "%s: %s score=%d moves=%s\n", fen, res.WDL, res.Score, strings.Join(moves, " "))
}

func downloadTables(ctx context.Context, dir string, maxPieces int, log zerolog.Logger) error {
	d := tablebase.NewSyzygyDownloader(dir, log)
	progress := make(chan tablebase.DownloadProgress, 100)

	errc := make(chan error, 1)
	go func() {
		defer close(progress)
		errc <- d.DownloadUpTo(ctx, maxPieces, progress)
	}()

	for p := range progress {
		if p.Done {
			log.Info().Str("file", p.File).Msg("ready")
		}
	}
	return <-errc
}
