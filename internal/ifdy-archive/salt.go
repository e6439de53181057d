package ifdyarchive

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// saltPaths lists the external salt files for an archive in lookup order.
// An empty userSaltFile selects ~/.saltzaes.txt.
func saltPaths(archivePath, userSaltFile string) []string {
	paths := []string{filepath.Join(filepath.Dir(archivePath), SaltFileName)}
	if userSaltFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return paths
		}
		userSaltFile = filepath.Join(home, UserSaltFileName)
	}
	return append(paths, userSaltFile)
}

// resolveSalt picks the salt for an archive whose header does not embed
// one: the supplied value, then salt.txt next to the archive, then the
// per-user file. A missing or unreadable per-user file is expected and
// only logged.
func resolveSalt(archivePath string, supplied []byte, userSaltFile string, logger logrus.FieldLogger) ([]byte, error) {
	if len(supplied) > 0 {
		return supplied, nil
	}

	paths := saltPaths(archivePath, userSaltFile)
	for i, path := range paths {
		salt, err := ReadSaltFile(path)
		userFile := i == len(paths)-1 && i > 0
		switch {
		case err == nil && len(salt) > 0:
			logger.WithField("path", path).Info("Salt found")
			logger.WithField("salt", base64.StdEncoding.EncodeToString(salt)).Debug("Salt read")
			return salt, nil
		case err == nil, errors.Is(err, fs.ErrNotExist):
			logger.WithField("path", path).Warn("No salt found")
		case userFile:
			logger.WithField("path", path).WithError(err).Warn("No salt found")
		default:
			return nil, err
		}
	}
	return nil, ErrMissingSalt
}

// ReadSaltFile returns the first line of path with surrounding whitespace
// removed.
func ReadSaltFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadBytes('\n')
	if err != nil && len(line) == 0 && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrIO, path, err)
	}
	return bytes.TrimSpace(line), nil
}
