// Package artifact stores uploaded session and metadata files under a
// tenant-partitioned directory layout:
//
//	{root}/sessions/{tenant}/{hash}.session
//	{root}/json/{tenant}/{hash}.json
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tgmon/entity"
	"tgmon/lib/sl"
)

const (
	sessionExt  = ".session"
	metadataExt = ".json"
)

type Store struct {
	root string
	log  *slog.Logger
	now  func() time.Time
}

func NewStore(root string, log *slog.Logger) *Store {
	return &Store{
		root: root,
		log:  log.With(sl.Module("artifact")),
		now:  time.Now,
	}
}

// Saved points at the two files written for one account.
type Saved struct {
	SessionPath  string
	MetadataPath string
	Metadata     entity.AccountMetadata
}

// Save validates and writes one session artifact and one metadata artifact.
// Extensions must be .session and .json; the metadata must parse as JSON.
// File names are derived from the tenant id and the upload timestamp so
// repeated uploads never collide.
func (s *Store) Save(tenantId, sessionName string, session []byte, metadataName string, metadata []byte) (*Saved, error) {
	if !strings.HasSuffix(strings.ToLower(sessionName), sessionExt) {
		return nil, fmt.Errorf("session file must have %s extension: %w", sessionExt, entity.ErrArtifactInvalid)
	}
	if !strings.HasSuffix(strings.ToLower(metadataName), metadataExt) {
		return nil, fmt.Errorf("metadata file must have %s extension: %w", metadataExt, entity.ErrArtifactInvalid)
	}
	if len(session) == 0 {
		return nil, fmt.Errorf("session file is empty: %w", entity.ErrArtifactInvalid)
	}

	var meta entity.AccountMetadata
	if err := json.Unmarshal(metadata, &meta); err != nil {
		return nil, fmt.Errorf("metadata does not parse: %w", entity.ErrArtifactInvalid)
	}

	name := s.artifactName(tenantId)
	sessionPath := filepath.Join(s.root, "sessions", tenantId, name+sessionExt)
	metadataPath := filepath.Join(s.root, "json", tenantId, name+metadataExt)

	if err := writeFile(sessionPath, session); err != nil {
		return nil, err
	}
	if err := writeFile(metadataPath, metadata); err != nil {
		_ = os.Remove(sessionPath)
		return nil, err
	}

	s.log.With(
		slog.String("tenant", tenantId),
		slog.String("session", sessionPath),
	).Info("artifacts stored")

	return &Saved{
		SessionPath:  sessionPath,
		MetadataPath: metadataPath,
		Metadata:     meta,
	}, nil
}

// Remove deletes both artifacts of an account. Missing files are not an
// error so a delete retry stays idempotent.
func (s *Store) Remove(sessionPath, metadataPath string) error {
	for _, path := range []string{sessionPath, metadataPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing artifact %s: %w", path, err)
		}
	}
	return nil
}

func (s *Store) artifactName(tenantId string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", tenantId, s.now().UnixNano())))
	return hex.EncodeToString(sum[:8])
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating artifact dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}
	return nil
}
