// Package links carries symbolic-link intent between the two synchronized
// roots. Links are excluded from the regular transfer because their targets
// are frequently machine- or user-specific absolute paths; instead the
// upload side serializes them into a manifest and the download side
// reconstitutes them after resolving placeholders.
package links

import (
	"fmt"
	"strings"
)

// ManifestName is the fixed filename the manifest travels under at the
// remote root.
const ManifestName = ".bisync_symlinks.meta"

// placeholder stands in for "this machine's home directory" inside a
// serialized link target. It survives the trip between machines verbatim
// and is resolved against the receiving machine's root and user.
const placeholder = "$USERNAME"

// homePlaceholder is the full home-directory prefix form of the
// placeholder.
const homePlaceholder = "/home/" + placeholder

// Record is one serialized symbolic link: its path relative to the local
// root and the literal target text read from the link, which may be
// relative, absolute, or broken.
type Record struct {
	RelPath string
	Target  string
}

// FormatLine renders a record as one manifest line: two fields separated by
// a single tab, no escaping. Records whose fields embed a tab or newline
// cannot be represented and are rejected.
func FormatLine(rec Record) (string, error) {
	if rec.RelPath == "" || rec.Target == "" {
		return "", fmt.Errorf("manifest record needs both path and target")
	}
	if strings.ContainsAny(rec.RelPath, "\t\n") || strings.ContainsAny(rec.Target, "\t\n") {
		return "", fmt.Errorf("manifest cannot represent tab or newline in %q -> %q", rec.RelPath, rec.Target)
	}
	return rec.RelPath + "\t" + rec.Target, nil
}

// ParseLine parses one manifest line. Lines must split into exactly two
// non-empty tab-separated fields.
func ParseLine(line string) (Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 2 || fields[0] == "" || fields[1] == "" {
		return Record{}, fmt.Errorf("malformed manifest line %q", line)
	}
	return Record{RelPath: fields[0], Target: fields[1]}, nil
}

// NormalizeTarget rewrites machine-specific prefixes of a raw link target
// to the portable placeholder form. A target under the local root, or under
// any user's /home directory, loses that leading segment; everything else
// is stored unchanged.
func NormalizeTarget(target, localRoot string) string {
	if target == localRoot {
		return homePlaceholder
	}
	if strings.HasPrefix(target, localRoot+"/") {
		return homePlaceholder + strings.TrimPrefix(target, localRoot)
	}
	if rest, ok := strings.CutPrefix(target, "/home/"); ok {
		if _, tail, found := strings.Cut(rest, "/"); found {
			return homePlaceholder + "/" + tail
		}
		return homePlaceholder
	}
	return target
}

// ResolveTarget turns a stored target back into a concrete path for this
// machine: the home placeholder prefix becomes the local root and any
// residual username placeholder becomes the current user's login name.
// Targets are normalized first, so a manifest written by an older tool with
// a literal /home/<user>/ prefix still resolves.
func ResolveTarget(target, localRoot, username string) string {
	target = NormalizeTarget(target, localRoot)
	if target == homePlaceholder {
		return localRoot
	}
	if strings.HasPrefix(target, homePlaceholder+"/") {
		target = localRoot + strings.TrimPrefix(target, homePlaceholder)
	}
	return strings.ReplaceAll(target, placeholder, username)
}
