package types

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "unknown context returns ErrUnknownContext",
			config:  Config{Backend: "sqlite", Context: "oracle"},
			wantErr: ErrUnknownContext,
		},
		{
			name:    "valid sqlite config",
			config:  Config{Backend: "sqlite", DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "sqlite with empty DataDir is valid at config level",
			config:  Config{Backend: "sqlite", DataDir: ""},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigStorageContext(t *testing.T) {
	if got := (Config{Backend: BackendSQLite}).StorageContext(); got != ContextSQLite {
		t.Errorf("StorageContext() = %v, want sqlite", got)
	}
	if got := (Config{Backend: BackendSQLite, Context: "memory"}).StorageContext(); got != ContextMemory {
		t.Errorf("StorageContext() = %v, want memory", got)
	}
	if got := (Config{}).DatabaseName(); got != DefaultDatabase {
		t.Errorf("DatabaseName() = %q, want %q", got, DefaultDatabase)
	}
}

func TestParseContext(t *testing.T) {
	for _, c := range Contexts() {
		got, err := ParseContext(c.String())
		if err != nil {
			t.Fatalf("ParseContext(%q): %v", c, err)
		}
		if got != c {
			t.Errorf("ParseContext(%q) = %v", c, got)
		}
	}
	if got, err := ParseContext(""); err != nil || got != ContextDefault {
		t.Errorf("ParseContext(\"\") = %v, %v; want default", got, err)
	}
}

func TestPermissionString(t *testing.T) {
	tests := []struct {
		perm Permission
		want string
	}{
		{PermNone, "none"},
		{PermRead, "read"},
		{PermRead | PermWrite, "read|write"},
		{PermFull, "read|write|execute"},
	}
	for _, tt := range tests {
		if got := tt.perm.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.perm, got, tt.want)
		}
	}
	if !PermFull.Has(PermWrite) || PermRead.Has(PermWrite) {
		t.Error("Has() mismatch")
	}
}
