package links

import "testing"

func TestFormatLine(t *testing.T) {
	line, err := FormatLine(Record{RelPath: "subdir/link1", Target: "/home/$USERNAME/Crypto"})
	if err != nil {
		t.Fatalf("FormatLine failed: %v", err)
	}
	if line != "subdir/link1\t/home/$USERNAME/Crypto" {
		t.Errorf("FormatLine = %q, want tab-separated fields", line)
	}
}

func TestFormatLineRejectsUnrepresentable(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
	}{
		{"empty path", Record{Target: "/x"}},
		{"empty target", Record{RelPath: "a"}},
		{"tab in path", Record{RelPath: "a\tb", Target: "/x"}},
		{"newline in target", Record{RelPath: "a", Target: "/x\n/y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FormatLine(tt.rec); err == nil {
				t.Errorf("FormatLine(%+v) expected error", tt.rec)
			}
		})
	}
}

func TestParseLine(t *testing.T) {
	rec, err := ParseLine("subdir/link1\t/home/$USERNAME/Crypto")
	if err != nil {
		t.Fatalf("ParseLine failed: %v", err)
	}
	if rec.RelPath != "subdir/link1" || rec.Target != "/home/$USERNAME/Crypto" {
		t.Errorf("ParseLine = %+v", rec)
	}

	for _, line := range []string{
		"",
		"no-tab-here",
		"a\tb\tc",
		"\ttarget",
		"path\t",
	} {
		if _, err := ParseLine(line); err == nil {
			t.Errorf("ParseLine(%q) expected error", line)
		}
	}
}

func TestNormalizeTarget(t *testing.T) {
	const root = "/home/bob"

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"under local root", "/home/bob/Documents/notes", "/home/$USERNAME/Documents/notes"},
		{"local root itself", "/home/bob", "/home/$USERNAME"},
		{"another user's home", "/home/alice/Crypto", "/home/$USERNAME/Crypto"},
		{"bare foreign home", "/home/alice", "/home/$USERNAME"},
		{"system path unchanged", "/usr/share/fonts", "/usr/share/fonts"},
		{"relative unchanged", "../sibling/file", "../sibling/file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTarget(tt.target, root); got != tt.want {
				t.Errorf("NormalizeTarget(%q) = %q, want %q", tt.target, got, tt.want)
			}
		})
	}
}

func TestResolveTarget(t *testing.T) {
	const root = "/home/bob"
	const username = "bob"

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"placeholder home", "/home/$USERNAME/Documents", "/home/bob/Documents"},
		{"bare placeholder home", "/home/$USERNAME", "/home/bob"},
		// A manifest written on alice's machine resolves onto bob's root.
		{"foreign literal home", "/home/alice/Crypto", "/home/bob/Crypto"},
		{"own literal home", "/home/bob/Music", "/home/bob/Music"},
		{"system path unchanged", "/usr/share/fonts", "/usr/share/fonts"},
		{"relative unchanged", "../sibling/file", "../sibling/file"},
		{"residual placeholder", "/var/run/$USERNAME/sock", "/var/run/bob/sock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveTarget(tt.target, root, username); got != tt.want {
				t.Errorf("ResolveTarget(%q) = %q, want %q", tt.target, got, tt.want)
			}
		})
	}
}

func TestNormalizeResolveRoundTrip(t *testing.T) {
	const root = "/home/bob"

	for _, target := range []string{
		"/home/bob/Documents/notes",
		"/home/bob",
		"/usr/lib/something",
		"relative/target",
	} {
		stored := NormalizeTarget(target, root)
		if got := ResolveTarget(stored, root, "bob"); got != target {
			t.Errorf("round trip of %q: stored %q, resolved %q", target, stored, got)
		}
	}
}
