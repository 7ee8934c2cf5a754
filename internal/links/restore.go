package links

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/averill/bisync/internal/logging"
	"github.com/averill/bisync/internal/model"
)

// Restore locates the manifest at the remote root and recreates the links
// it describes under the local root. An absent manifest is a no-op: a tree
// may legitimately carry no links. Individual malformed records, unsafe
// targets, and creation failures degrade into statistics; only the manifest
// copy itself failing is an error.
func Restore(cfg *model.RunConfig, stats *model.RunStats) error {
	defer logging.Timer("links-restore")()

	remote := filepath.Join(cfg.RemoteRoot, ManifestName)
	local := filepath.Join(cfg.LocalRoot, ManifestName)

	data, err := os.ReadFile(remote)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("no link manifest present, nothing to restore")
			return nil
		}
		return fmt.Errorf("reading link manifest %s: %w", remote, err)
	}

	// Work from a local copy so the scan is not re-reading the mount.
	if !cfg.DryRun {
		if err := os.WriteFile(local, data, 0o644); err != nil {
			return fmt.Errorf("copying link manifest locally: %w", err)
		}
		defer os.Remove(local)
	}

	username := currentUsername()
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := ParseLine(line)
		if err != nil {
			logging.Warn("skipping malformed manifest line", logging.Err(err))
			stats.LinksFailed++
			continue
		}
		restoreOne(cfg, rec, username, stats)
	}
	if err := scanner.Err(); err != nil {
		// An oversized record stops the scan; everything after it is lost.
		logging.Warn("manifest scan ended early, remaining records skipped",
			logging.Err(err))
		stats.LinksFailed++
	}

	logging.Info("link restore finished",
		logging.Count(stats.LinksCreated),
		logging.Operation("links-restore"),
	)
	return nil
}

// restoreOne recreates a single link record. Every failure path counts
// LinksFailed and returns; nothing here can abort the rest of the manifest.
func restoreOne(cfg *model.RunConfig, rec Record, username string, stats *model.RunStats) {
	linkPath := filepath.Join(cfg.LocalRoot, rec.RelPath)

	// The link location itself must stay under the root: a tampered
	// manifest must not place links anywhere else.
	if filepath.IsAbs(rec.RelPath) || !withinRoot(linkPath, cfg.LocalRoot) {
		logging.Warn("link path escapes the local root, rejected",
			logging.Element(rec.RelPath))
		stats.LinksFailed++
		return
	}

	target := ResolveTarget(rec.Target, cfg.LocalRoot, username)

	if !targetPermitted(target, linkPath, cfg.LocalRoot) {
		logging.Warn("link target resolves outside the local root, rejected",
			logging.Element(rec.RelPath), logging.Target(target))
		stats.LinksFailed++
		return
	}

	parent := filepath.Dir(linkPath)
	if _, err := os.Stat(parent); errors.Is(err, os.ErrNotExist) {
		if cfg.DryRun {
			logging.Info("dry-run: would create directory", logging.Path(parent))
		} else if err := os.MkdirAll(parent, 0o755); err != nil {
			logging.Warn("cannot create link parent directory",
				logging.Path(parent), logging.Err(err))
			stats.LinksFailed++
			return
		}
	}

	if info, err := os.Lstat(linkPath); err == nil {
		if info.Mode()&os.ModeSymlink != 0 {
			current, err := os.Readlink(linkPath)
			if err == nil && current == target {
				logging.Debug("link already correct", logging.Element(rec.RelPath))
				stats.LinksExisting++
				return
			}
			if !cfg.DryRun {
				if err := os.Remove(linkPath); err != nil {
					logging.Warn("cannot replace existing link",
						logging.Path(linkPath), logging.Err(err))
					stats.LinksFailed++
					return
				}
			}
		}
		// A regular file or directory at the link path is left in place;
		// the symlink call below will fail and be counted.
	}

	if cfg.DryRun {
		logging.Info("dry-run: would create link",
			logging.Element(rec.RelPath), logging.Target(target))
		stats.LinksCreated++
		return
	}

	if err := os.Symlink(target, linkPath); err != nil {
		logging.Warn("cannot create link",
			logging.Path(linkPath), logging.Target(target), logging.Err(err))
		stats.LinksFailed++
		return
	}
	logging.Info("created link", logging.Element(rec.RelPath), logging.Target(target))
	stats.LinksCreated++
}

// targetPermitted rejects targets that escape the local root. Absolute
// targets are checked directly; relative targets are checked after
// resolution against the link's parent directory.
func targetPermitted(target, linkPath, root string) bool {
	abs := target
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(filepath.Dir(linkPath), abs)
	}
	return withinRoot(filepath.Clean(abs), root)
}

// withinRoot reports whether the cleaned absolute path lies at or under
// root.
func withinRoot(abs, root string) bool {
	if abs == root {
		return true
	}
	return strings.HasPrefix(abs, root+string(filepath.Separator))
}

// currentUsername returns the login name of the user running the process.
func currentUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if v := os.Getenv("USER"); v != "" {
		return v
	}
	return "unknown"
}
