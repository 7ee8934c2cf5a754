package links

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/averill/bisync/internal/logging"
	"github.com/averill/bisync/internal/model"
	"github.com/averill/bisync/internal/rsync"
)

// Generate scans the resolved elements for symbolic links on the local
// side, serializes them into a manifest, and ships the manifest to the
// remote root through the regular transfer channel. An empty manifest is
// success: nothing is shipped and nothing is logged beyond an info line.
//
// Only a manifest transfer failure is returned as an error; individual
// unserializable links degrade into statistics.
func Generate(ctx context.Context, cfg *model.RunConfig, elements []model.SyncElement, exec *rsync.Executor, stats *model.RunStats) error {
	defer logging.Timer("links-generate")()

	tmp, err := os.CreateTemp("", "bisync-links-*.meta")
	if err != nil {
		return fmt.Errorf("creating manifest temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	records := 0
	for _, el := range elements {
		full := filepath.Join(cfg.LocalRoot, el.String())
		info, err := os.Lstat(full)
		if err != nil {
			continue
		}
		switch {
		case info.Mode()&os.ModeSymlink != 0:
			records += writeRecord(w, cfg, full, stats)
		case info.IsDir():
			records += scanTree(w, cfg, full, stats)
		}
	}

	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing manifest: %w", err)
	}

	if records == 0 {
		logging.Info("no symbolic links found, skipping manifest transfer")
		return nil
	}

	dst := filepath.Join(cfg.RemoteRoot, ManifestName)
	if cfg.DryRun {
		logging.Info("dry-run: would transfer link manifest",
			logging.Path(dst), logging.Count(records))
		return nil
	}
	if err := exec.CopyFile(ctx, cfg, tmp.Name(), dst); err != nil {
		return fmt.Errorf("transferring link manifest: %w", err)
	}
	logging.Info("link manifest transferred", logging.Path(dst), logging.Count(records))
	return nil
}

// scanTree walks a directory recursively and records every symlink below
// it. The walk itself never follows links.
func scanTree(w *bufio.Writer, cfg *model.RunConfig, dir string, stats *model.RunStats) int {
	records := 0
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Warn("skipping unreadable path during link scan",
				logging.Path(path), logging.Err(err))
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			records += writeRecord(w, cfg, path, stats)
		}
		return nil
	})
	return records
}

// writeRecord serializes one symlink into the manifest. Returns 1 on a
// written record, 0 when the link could not be represented.
func writeRecord(w *bufio.Writer, cfg *model.RunConfig, linkPath string, stats *model.RunStats) int {
	rel, err := filepath.Rel(cfg.LocalRoot, linkPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		logging.Warn("link outside local root, not recorded", logging.Path(linkPath))
		stats.LinksFailed++
		return 0
	}

	target, err := os.Readlink(linkPath)
	if err != nil {
		logging.Warn("unreadable symlink, not recorded",
			logging.Path(linkPath), logging.Err(err))
		stats.LinksFailed++
		return 0
	}

	line, err := FormatLine(Record{
		RelPath: rel,
		Target:  NormalizeTarget(target, cfg.LocalRoot),
	})
	if err != nil {
		logging.Warn("link not representable in manifest",
			logging.Path(linkPath), logging.Err(err))
		stats.LinksFailed++
		return 0
	}

	fmt.Fprintln(w, line)
	stats.LinksDetected++
	logging.Debug("recorded symlink", logging.Element(rel), logging.Target(target))
	return 1
}
