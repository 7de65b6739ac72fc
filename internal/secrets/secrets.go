// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: elsevier-api-key, elsevier-insttoken.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/els-search/pkg/types"
)

// Key file names.
const (
	APIKeyFile    = "elsevier-api-key"
	InstTokenFile = "elsevier-insttoken"
)

// Secrets maps key file names to their trimmed contents.
type Secrets map[string]string

// Load reads all files in dir. A missing directory or missing files are
// not errors; Load returns an empty set. Unreadable files are logged as
// warnings and skipped.
func Load(dir string, log *zap.Logger) (Secrets, error) {
	if log == nil {
		log = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	s := make(Secrets)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			s[name] = value
		}
	}

	return s, nil
}

// Apply fills credentials in cfg that are still empty. Values already set
// by flags, config or environment win over files.
func (s Secrets) Apply(cfg *types.APIConfig) {
	if cfg.APIKey == "" {
		cfg.APIKey = s[APIKeyFile]
	}
	if cfg.InstToken == "" {
		cfg.InstToken = s[InstTokenFile]
	}
}
