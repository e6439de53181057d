package ifdyarchive

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func TestResolveSaltOrder(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "logs.arc")
	userFile := filepath.Join(t.TempDir(), ".saltzaes.txt")

	tests := []struct {
		name     string
		supplied string
		beside   string // salt.txt contents, "" for no file
		user     string // user file contents, "" for no file
		want     string
		wantErr  error
	}{
		{name: "supplied wins", supplied: "given", beside: "beside\n", user: "user\n", want: "given"},
		{name: "beside beats user", beside: "beside\n", user: "user\n", want: "beside"},
		{name: "user only", user: "  user salt \nsecond line\n", want: "user salt"},
		{name: "blank beside is absent", beside: "\n", user: "user", want: "user"},
		{name: "none", wantErr: ErrMissingSalt},
		{name: "blank everywhere", beside: " \n", user: "\n", wantErr: ErrMissingSalt},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			os.Remove(filepath.Join(dir, SaltFileName))
			os.Remove(userFile)
			if tc.beside != "" {
				writeFile(t, filepath.Join(dir, SaltFileName), tc.beside)
			}
			if tc.user != "" {
				writeFile(t, userFile, tc.user)
			}

			var supplied []byte
			if tc.supplied != "" {
				supplied = []byte(tc.supplied)
			}
			got, err := resolveSalt(archive, supplied, userFile, quietLogger())
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("resolveSalt error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveSalt failed: %v", err)
			}
			if string(got) != tc.want {
				t.Errorf("resolveSalt = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolveSaltUnreadable(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "logs.arc")

	// A salt.txt that exists but cannot be read as a file is fatal.
	if err := os.Mkdir(filepath.Join(dir, SaltFileName), 0o755); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}
	if _, err := resolveSalt(archive, nil, filepath.Join(dir, "missing"), quietLogger()); !errors.Is(err, ErrIO) {
		t.Errorf("unreadable salt.txt error = %v, want ErrIO", err)
	}

	// The same problem with the per-user file only falls through.
	other := t.TempDir()
	userDir := filepath.Join(other, "user-salt")
	if err := os.Mkdir(userDir, 0o755); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}
	if _, err := resolveSalt(filepath.Join(other, "logs.arc"), nil, userDir, quietLogger()); !errors.Is(err, ErrMissingSalt) {
		t.Errorf("unreadable user file error = %v, want ErrMissingSalt", err)
	}
}

func TestSaltPathsDefaultsToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	paths := saltPaths("/srv/logs/a.arc", "")
	want := []string{"/srv/logs/salt.txt", filepath.Join(home, ".saltzaes.txt")}
	if len(paths) != 2 || paths[0] != want[0] || paths[1] != want[1] {
		t.Errorf("saltPaths = %v, want %v", paths, want)
	}

	paths = saltPaths("/srv/logs/a.arc", "/etc/ifdy/salt")
	if paths[1] != "/etc/ifdy/salt" {
		t.Errorf("override ignored: %v", paths)
	}
}

func TestReadSaltFileMissing(t *testing.T) {
	_, err := ReadSaltFile(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, ErrIO) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadSaltFile error = %v, want ErrIO wrapping ErrNotExist", err)
	}
}
