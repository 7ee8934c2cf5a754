// Package plan resolves the ordered list of elements a run will
// synchronize and validates each one before transfer.
package plan

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/averill/bisync/internal/logging"
	"github.com/averill/bisync/internal/model"
)

// TraversalError reports an element containing a parent-traversal segment.
// It is a per-element failure: counted as a sync error and skipped, without
// aborting the run.
type TraversalError struct {
	Element model.SyncElement
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("element %q contains a path-traversal segment", e.Element)
}

// OutsideRootError reports an absolute element that does not lie within the
// configured local root. It is fatal for the invocation.
type OutsideRootError struct {
	Element model.SyncElement
	Root    string
}

func (e *OutsideRootError) Error() string {
	return fmt.Sprintf("element %q lies outside the local root %s", e.Element, e.Root)
}

// Resolve computes the ordered element list for this run.
//
// Explicit elements win verbatim (order preserved, duplicates allowed).
// Otherwise the host-specific list from configuration applies, falling back
// to the "default" list. Absolute elements are re-anchored under the local
// root; an absolute element outside the root is a fatal configuration
// error.
func Resolve(cfg *model.RunConfig, hostElements []string) ([]model.SyncElement, error) {
	var raw []model.SyncElement
	if len(cfg.ExplicitElements) > 0 {
		raw = cfg.ExplicitElements
		logging.Debug("using explicit element list", logging.Count(len(raw)))
	} else {
		if len(hostElements) == 0 {
			return nil, fmt.Errorf("no element list configured for host %q", cfg.Hostname)
		}
		raw = make([]model.SyncElement, len(hostElements))
		for i, e := range hostElements {
			raw[i] = model.SyncElement(e)
		}
		logging.Debug("using configured element list",
			logging.Count(len(raw)),
			logging.Operation("resolve"),
		)
	}

	out := make([]model.SyncElement, 0, len(raw))
	for _, el := range raw {
		if el.IsAbs() {
			rel, err := relativize(el, cfg.LocalRoot)
			if err != nil {
				return nil, err
			}
			el = rel
		}
		out = append(out, el)
	}
	return out, nil
}

// Validate rejects elements that must not reach the transfer tool. The only
// per-element rejection is path traversal; everything else was normalized
// by Resolve.
func Validate(el model.SyncElement) error {
	if el.IsTraversal() {
		return &TraversalError{Element: el}
	}
	return nil
}

// relativize anchors an absolute element under root, returning its relative
// form. Elements outside root are rejected.
func relativize(el model.SyncElement, root string) (model.SyncElement, error) {
	cleaned := filepath.Clean(string(el))
	rel, err := filepath.Rel(root, cleaned)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &OutsideRootError{Element: el, Root: root}
	}
	// Preserve the trailing separator so directory semantics survive.
	if strings.HasSuffix(string(el), string(filepath.Separator)) && rel != "." {
		rel += string(filepath.Separator)
	}
	return model.SyncElement(rel), nil
}
