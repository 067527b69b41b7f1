package strata

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MaxSnapshotSize is the maximum allowed snapshot size (100MB).
const MaxSnapshotSize = 100 * 1024 * 1024

// SnapshotVersion is the current snapshot format version.
const SnapshotVersion = "1.0"

// Snapshot errors.
var (
	// ErrSnapshotTooLarge is returned when a snapshot exceeds MaxSnapshotSize.
	ErrSnapshotTooLarge = errors.New("strata: snapshot exceeds 100MB size limit")

	// ErrUnsupportedVersion is returned when reading a snapshot with unknown version.
	ErrUnsupportedVersion = errors.New("strata: unsupported snapshot version")
)

// supportedVersions lists snapshot format versions that ReadSnapshot accepts.
var supportedVersions = map[string]bool{
	"1.0": true,
}

// ConfigSnapshot represents a point-in-time configuration capture.
type ConfigSnapshot struct {
	// Version is the snapshot format version (currently "1.0")
	Version string `json:"version"`

	// Timestamp is when the snapshot was created
	Timestamp time.Time `json:"timestamp"`

	// Environment is the environment selected by the load ("" if none)
	Environment string `json:"environment"`

	// Config holds the merged values keyed by canonical key, with
	// indirections resolved and redacted keys hidden.
	Config map[string]any `json:"config"`

	// Provenance tracks the source of each key.
	Provenance []KeyProvenance `json:"provenance"`
}

// SnapshotOption configures snapshot creation behavior.
type SnapshotOption func(*snapshotConfig)

// snapshotConfig holds internal configuration for snapshot creation.
type snapshotConfig struct {
	excludeKeys []string // Keys to exclude
	redactKeys  []string // Keys whose values are hidden
}

// WithExcludeKeys excludes the given keys from the snapshot.
func WithExcludeKeys(keys ...string) SnapshotOption {
	return func(cfg *snapshotConfig) {
		cfg.excludeKeys = append(cfg.excludeKeys, keys...)
	}
}

// WithRedactedKeys replaces the values of the given keys with a marker.
func WithRedactedKeys(keys ...string) SnapshotOption {
	return func(cfg *snapshotConfig) {
		cfg.redactKeys = append(cfg.redactKeys, keys...)
	}
}

// CreateSnapshot captures the store's current configuration, loading it
// first if needed. The snapshot's Timestamp is captured at creation time.
func CreateSnapshot(s *Store, opts ...SnapshotOption) (*ConfigSnapshot, error) {
	if s == nil {
		return nil, ErrNilStore
	}

	snapCfg := &snapshotConfig{}
	for _, opt := range opts {
		opt(snapCfg)
	}

	st, err := s.loaded()
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().UTC()

	// Exclusion matching is case-insensitive
	exclude := make(map[string]bool)
	for _, k := range snapCfg.excludeKeys {
		exclude[strings.ToLower(k)] = true
	}
	redact := make(map[string]bool)
	for _, k := range snapCfg.redactKeys {
		redact[k] = true
	}

	prov := provenanceOf(st)
	provKeys := make([]KeyProvenance, 0, len(prov.Keys))
	for _, kp := range prov.Keys {
		if !exclude[strings.ToLower(kp.Key)] {
			provKeys = append(provKeys, kp)
		}
	}

	return &ConfigSnapshot{
		Version:     SnapshotVersion,
		Timestamp:   timestamp,
		Environment: st.environment,
		Config:      s.plainConfig(st, exclude, redact),
		Provenance:  provKeys,
	}, nil
}

// ExpandPath expands template variables using current time.
// For consistency with snapshot metadata, prefer WriteSnapshot which
// uses the snapshot's internal timestamp for expansion.
func ExpandPath(template string) string {
	return ExpandPathWithTime(template, time.Now())
}

// ExpandPathWithTime expands template variables using the provided timestamp.
// Replaces all {{timestamp}} occurrences with the time formatted as 20060102-150405.
// Returns the path unchanged if no template variables are present.
func ExpandPathWithTime(template string, t time.Time) string {
	timestamp := t.UTC().Format("20060102-150405")
	return strings.ReplaceAll(template, "{{timestamp}}", timestamp)
}

// WriteSnapshot persists a snapshot to disk with atomic write semantics.
// Supports {{timestamp}} template variable in path - uses snapshot.Timestamp
// (not current time) so the filename matches internal metadata.
// Returns the written path. Returns ErrSnapshotTooLarge if serialized size
// exceeds 100MB.
func WriteSnapshot(snapshot *ConfigSnapshot, pathTemplate string) (string, error) {
	if snapshot == nil {
		return "", errors.New("strata: snapshot is nil")
	}

	targetPath := ExpandPathWithTime(pathTemplate, snapshot.Timestamp)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", err
	}

	if len(data) > MaxSnapshotSize {
		return "", ErrSnapshotTooLarge
	}

	dir := filepath.Dir(targetPath)
	if dir != "" && dir != "." {
		if mkdirErr := os.MkdirAll(dir, 0700); mkdirErr != nil {
			return "", mkdirErr
		}
	}

	// Temp file in the same directory so the rename stays on one filesystem
	tempPath, err := generateTempFileName(targetPath)
	if err != nil {
		return "", err
	}

	var tempFileCreated bool
	defer func() {
		if tempFileCreated {
			_ = os.Remove(tempPath)
		}
	}()

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return "", err
	}
	tempFileCreated = true

	if err := os.Rename(tempPath, targetPath); err != nil {
		return "", err
	}
	tempFileCreated = false

	return targetPath, nil
}

// ReadSnapshot loads a snapshot written by WriteSnapshot.
func ReadSnapshot(path string) (*ConfigSnapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > MaxSnapshotSize {
		return nil, ErrSnapshotTooLarge
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var snapshot ConfigSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	if !supportedVersions[snapshot.Version] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, snapshot.Version)
	}
	return &snapshot, nil
}

// generateTempFileName returns targetPath + ".tmp." + 16 random hex chars.
func generateTempFileName(targetPath string) (string, error) {
	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	suffix := hex.EncodeToString(randomBytes)
	return targetPath + ".tmp." + suffix, nil
}
