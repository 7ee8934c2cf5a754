// Package perms applies configured permission modes to freshly downloaded
// files. Cloud mounts rarely preserve execute bits, so a download pass can
// restore them from glob-to-mode rules in the configuration.
package perms

import (
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/averill/bisync/internal/logging"
	"github.com/averill/bisync/internal/model"
)

// Apply walks the synced elements under the local root and chmods entries
// whose base name matches a configured pattern. Failures are warnings; the
// pass never fails the run.
func Apply(cfg *model.RunConfig, elements []model.SyncElement) {
	if len(cfg.FilePerms) == 0 && len(cfg.DirPerms) == 0 {
		return
	}
	defer logging.Timer("perms")()
	logging.Info("applying configured permissions")

	fileRules := parseRules(cfg.FilePerms)
	dirRules := parseRules(cfg.DirPerms)
	if len(fileRules) == 0 && len(dirRules) == 0 {
		return
	}

	for _, el := range elements {
		root := filepath.Join(cfg.LocalRoot, el.String())
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			rules := fileRules
			if d.IsDir() {
				rules = dirRules
			}
			applyRules(cfg, path, d.Name(), rules)
			return nil
		})
	}
}

type rule struct {
	pattern string
	mode    os.FileMode
}

// parseRules converts the octal-string config map into usable rules,
// dropping unparseable entries with a warning.
func parseRules(raw map[string]string) []rule {
	rules := make([]rule, 0, len(raw))
	for pattern, modeStr := range raw {
		n, err := strconv.ParseUint(modeStr, 8, 32)
		if err != nil {
			logging.Warn("invalid permission mode in config",
				logging.Path(pattern), logging.Err(err))
			continue
		}
		rules = append(rules, rule{pattern: pattern, mode: os.FileMode(n)})
	}
	return rules
}

func applyRules(cfg *model.RunConfig, path, base string, rules []rule) {
	for _, r := range rules {
		ok, err := filepath.Match(r.pattern, base)
		if err != nil || !ok {
			continue
		}
		if cfg.DryRun {
			logging.Info("dry-run: would chmod",
				logging.Path(path), logging.Operation(r.mode.String()))
			continue
		}
		if err := os.Chmod(path, r.mode); err != nil {
			logging.Warn("chmod failed", logging.Path(path), logging.Err(err))
		}
	}
}
