package plan

import (
	"errors"
	"testing"

	"github.com/averill/bisync/internal/model"
)

func testConfig() *model.RunConfig {
	return &model.RunConfig{
		Direction: model.Upload,
		LocalRoot: "/home/user",
		Hostname:  "box",
	}
}

func TestResolveExplicitWins(t *testing.T) {
	cfg := testConfig()
	cfg.ExplicitElements = []model.SyncElement{"Projects", "Documents"}

	got, err := Resolve(cfg, []string{"Music", "Videos"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(got) != 2 || got[0] != "Projects" || got[1] != "Documents" {
		t.Errorf("Resolve = %v, want explicit list in order", got)
	}
}

func TestResolveConfiguredList(t *testing.T) {
	cfg := testConfig()

	got, err := Resolve(cfg, []string{"Music", "Videos"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(got) != 2 || got[0] != "Music" || got[1] != "Videos" {
		t.Errorf("Resolve = %v, want configured list in order", got)
	}
}

func TestResolveEmptyList(t *testing.T) {
	cfg := testConfig()

	if _, err := Resolve(cfg, nil); err == nil {
		t.Error("expected an error when no element list exists")
	}
}

func TestResolveRelativizesAbsolute(t *testing.T) {
	cfg := testConfig()
	cfg.ExplicitElements = []model.SyncElement{
		"/home/user/Documents",
		"/home/user/Projects/code/",
	}

	got, err := Resolve(cfg, nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got[0] != "Documents" {
		t.Errorf("got[0] = %q, want Documents", got[0])
	}
	if got[1] != "Projects/code/" {
		t.Errorf("got[1] = %q, want the trailing separator preserved", got[1])
	}
}

func TestResolveRejectsAbsoluteOutsideRoot(t *testing.T) {
	cfg := testConfig()
	cfg.ExplicitElements = []model.SyncElement{"/etc/passwd"}

	_, err := Resolve(cfg, nil)
	var outside *OutsideRootError
	if !errors.As(err, &outside) {
		t.Fatalf("Resolve error = %v, want *OutsideRootError", err)
	}
	if outside.Element != "/etc/passwd" {
		t.Errorf("Element = %q, want /etc/passwd", outside.Element)
	}
}

func TestResolveRejectsRootEscapeViaDotDot(t *testing.T) {
	cfg := testConfig()
	cfg.ExplicitElements = []model.SyncElement{"/home/user/../other/secret"}

	var outside *OutsideRootError
	if _, err := Resolve(cfg, nil); !errors.As(err, &outside) {
		t.Fatalf("expected *OutsideRootError, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		element model.SyncElement
		wantErr bool
	}{
		{"Documents", false},
		{"Documents/sub", false},
		{"..", true},
		{"../sibling", true},
		{"a/../../b", true},
		{"dots..inside", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.element), func(t *testing.T) {
			err := Validate(tt.element)
			if tt.wantErr {
				var trav *TraversalError
				if !errors.As(err, &trav) {
					t.Fatalf("Validate(%q) = %v, want *TraversalError", tt.element, err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate(%q) unexpected error: %v", tt.element, err)
			}
		})
	}
}
