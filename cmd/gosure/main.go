package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/gosure/gosure/internal/config"
	"github.com/gosure/gosure/internal/fs"
	"github.com/gosure/gosure/internal/scan"
	"github.com/gosure/gosure/internal/store"
)

// Exit codes: 0 clean, 1 differences found, 2 any other failure.
const (
	exitDiffs = 1
	exitError = 2
)

func main() {
	cmd := &cli.Command{
		Name:  "gosure",
		Usage: "Track file integrity with hashed snapshots",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Path of the snapshot store",
				Value:   config.DefaultStoreFile,
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Directory tree to scan",
				Value:   ".",
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "~/.gosure.yaml",
				Sources:     cli.EnvVars("GOSURE_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "hash",
				Usage: "Digest algorithm: sha1, sha256 or xxh3",
			},
			&cli.IntFlag{
				Name:    "jobs",
				Aliases: []string{"j"},
				Usage:   "Hashing workers (0 = one per CPU)",
			},
			&cli.StringFlag{
				Name:  "cache",
				Usage: "Path of the SQLite digest cache",
			},
			&cli.BoolFlag{
				Name:  "no-compress",
				Usage: "Write store files without gzip compression",
			},
			&cli.BoolFlag{
				Name:  "rehash-all",
				Usage: "Ignore prior digests and reread every file",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Suppress the progress line on stderr",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "scan",
				Usage:  "Hash the whole tree and record a new snapshot",
				Flags:  tagFlags(),
				Action: runScan,
			},
			{
				Name:   "update",
				Usage:  "Record a new snapshot, rehashing only changed files",
				Flags:  tagFlags(),
				Action: runUpdate,
			},
			{
				Name:   "check",
				Usage:  "Compare the tree against a stored snapshot",
				Flags:  versionFlags(),
				Action: runCheck,
			},
			{
				Name:   "signoff",
				Usage:  "Compare the two most recent snapshots",
				Action: runSignoff,
			},
			{
				Name:   "show",
				Usage:  "Print a stored snapshot",
				Flags:  versionFlags(),
				Action: runShow,
			},
			{
				Name:   "list",
				Usage:  "List stored snapshots",
				Action: runList,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		code := exitError
		var ec cli.ExitCoder
		if errors.As(err, &ec) {
			code = ec.ExitCode()
		}
		if msg := err.Error(); msg != "" {
			slog.Error("gosure failed", slog.String("error", msg))
		}
		os.Exit(code)
	}
}

func tagFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "tag",
			Usage: "key=value recorded with the snapshot (repeatable)",
		},
	}
}

func versionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "version",
			Usage:       "Snapshot to use: latest, prior, or a snapshot name",
			Value:       "latest",
			DefaultText: "latest",
		},
	}
}

// env is the resolved per-invocation setup shared by all subcommands.
type env struct {
	cfg   *config.Config
	st    store.Store
	fsys  fs.FS
	root  string
	path  string
	opts  scan.Options
	cache *store.HashCache
}

func setup(cmd *cli.Command) (*env, error) {
	cfg := config.Default()
	cfgPath := cmd.String("config")
	explicit := cfgPath != ""
	if !explicit {
		cfgPath = config.DefaultPath()
	}
	if err := config.Load(cfgPath, cfg, explicit); err != nil {
		return nil, err
	}

	if v := cmd.String("hash"); v != "" {
		cfg.Hash = v
	}
	if cmd.IsSet("jobs") {
		cfg.Jobs = int(cmd.Int("jobs"))
	}
	if v := cmd.String("cache"); v != "" {
		cfg.Cache = v
	}
	if cmd.Bool("no-compress") {
		cfg.Compress = false
	}
	if cmd.Bool("no-progress") {
		cfg.Progress = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	path := cmd.String("file")
	fsys := fs.NewOSFS()
	st, err := store.Open(path, cfg.Compress, fsys)
	if err != nil {
		return nil, err
	}

	e := &env{
		cfg:  cfg,
		st:   st,
		fsys: fsys,
		root: cmd.String("dir"),
		path: path,
		opts: scan.Options{
			Algo:        cfg.Hash,
			Workers:     cfg.Jobs,
			ForceRehash: cmd.Bool("rehash-all"),
		},
	}
	if cfg.Progress {
		e.opts.Progress = os.Stderr
	}
	if cfg.Cache != "" {
		cache, err := store.OpenHashCache(cfg.Cache, cfg.Hash)
		if err != nil {
			return nil, err
		}
		e.cache = cache
		e.opts.Cache = cache
	}
	return e, nil
}

func (e *env) close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

func parseTags(cmd *cli.Command) (map[string]string, error) {
	tags := make(map[string]string)
	for _, raw := range cmd.StringSlice("tag") {
		k, v, ok := cutTag(raw)
		if !ok {
			return nil, fmt.Errorf("tag %q is not key=value", raw)
		}
		tags[k] = v
	}
	return tags, nil
}

func cutTag(raw string) (string, string, bool) {
	for i := 0; i < len(raw); i++ {
		if raw[i] == '=' {
			return raw[:i], raw[i+1:], i > 0
		}
	}
	return "", "", false
}

func parseVersion(cmd *cli.Command) store.Version {
	switch v := cmd.String("version"); v {
	case "", "latest":
		return store.Latest()
	case "prior":
		return store.Prior()
	default:
		return store.Tagged(v)
	}
}

func runScan(ctx context.Context, cmd *cli.Command) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()
	tags, err := parseTags(cmd)
	if err != nil {
		return err
	}

	lock, err := store.AcquireLock(e.path, e.fsys)
	if err != nil {
		return err
	}
	defer lock.Release()

	res, err := store.Scan(ctx, e.st, e.root, tags, e.opts)
	if err != nil {
		return err
	}
	logWarnings(res.Warnings)
	return nil
}

func runUpdate(ctx context.Context, cmd *cli.Command) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()
	tags, err := parseTags(cmd)
	if err != nil {
		return err
	}

	lock, err := store.AcquireLock(e.path, e.fsys)
	if err != nil {
		return err
	}
	defer lock.Release()

	res, err := store.Update(ctx, e.st, e.root, tags, e.opts)
	if err != nil {
		return err
	}
	logWarnings(res.Warnings)
	return nil
}

func runCheck(ctx context.Context, cmd *cli.Command) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	status, res, err := store.Check(ctx, e.st, e.root, parseVersion(cmd), e.opts, os.Stdout)
	if err != nil {
		return err
	}
	logWarnings(res.Warnings)
	if status == store.DiffsFound {
		return cli.Exit("", exitDiffs)
	}
	return nil
}

func runSignoff(ctx context.Context, cmd *cli.Command) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	status, err := store.Signoff(e.st, os.Stdout)
	if err != nil {
		return err
	}
	if status == store.DiffsFound {
		return cli.Exit("", exitDiffs)
	}
	return nil
}

func runShow(ctx context.Context, cmd *cli.Command) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()
	return store.Show(e.st, parseVersion(cmd), os.Stdout)
}

func runList(ctx context.Context, cmd *cli.Command) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()
	return store.List(e.st, os.Stdout)
}

func logWarnings(warnings []scan.Warning) {
	for _, w := range warnings {
		slog.Warn("skipped entry", slog.String("path", w.Path), slog.String("error", w.Err.Error()))
	}
}
