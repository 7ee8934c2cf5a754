package model

import "testing"

func TestParseDirection(t *testing.T) {
	tests := []struct {
		input   string
		want    Direction
		wantErr bool
	}{
		{"upload", Upload, false},
		{"download", Download, false},
		{"", "", true},
		{"Upload", "", true},
		{"sideways", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDirection(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDirection(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDirection(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseDirection(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDirectionIsValid(t *testing.T) {
	if !Upload.IsValid() || !Download.IsValid() {
		t.Error("expected upload and download to be valid")
	}
	if Direction("both").IsValid() {
		t.Error("expected arbitrary string to be invalid")
	}
	if Direction("").IsValid() {
		t.Error("expected zero value to be invalid")
	}
}

func TestDirectionOpposite(t *testing.T) {
	if Upload.Opposite() != Download {
		t.Errorf("Upload.Opposite() = %v, want Download", Upload.Opposite())
	}
	if Download.Opposite() != Upload {
		t.Errorf("Download.Opposite() = %v, want Upload", Download.Opposite())
	}
}

func TestParseAreaMode(t *testing.T) {
	tests := []struct {
		input   string
		want    AreaMode
		wantErr bool
	}{
		{"shared", AreaShared, false},
		{"readonly", AreaReadOnly, false},
		{"read-only", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAreaMode(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAreaMode(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAreaMode(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseAreaMode(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
