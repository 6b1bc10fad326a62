package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	CurrentVersion = 1
	FileName       = "subsync.state.json"
)

// Mode records how the last payload was applied.
type Mode string

const (
	ModeVerbatim Mode = "verbatim"
	ModeMerged   Mode = "merged"
)

// File is the outcome of the last successful sync.
type File struct {
	Version   int       `json:"version"`
	Source    string    `json:"source"`
	Target    string    `json:"target"`
	ProfileID string    `json:"profile_id,omitempty"`
	Mode      Mode      `json:"mode"`
	Proxies   int       `json:"proxies"`
	Warnings  []string  `json:"warnings,omitempty"`
	SyncedAt  time.Time `json:"synced_at"`
}

func New(source, target string, mode Mode, proxies int) *File {
	return &File{
		Version:  CurrentVersion,
		Source:   source,
		Target:   target,
		Mode:     mode,
		Proxies:  proxies,
		SyncedAt: time.Now().UTC(),
	}
}

func Path(confDir string) string {
	return filepath.Join(confDir, FileName)
}

func Save(confDir string, stateFile *File) error {
	if stateFile == nil {
		return fmt.Errorf("state is nil")
	}
	if err := os.MkdirAll(confDir, 0o755); err != nil {
		return fmt.Errorf("create conf dir: %w", err)
	}

	content, err := json.MarshalIndent(stateFile, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	target := Path(confDir)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("write state temp file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("rename state file: %w", err)
	}
	return nil
}

func Load(confDir string) (*File, error) {
	content, err := os.ReadFile(Path(confDir))
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	var stateFile File
	if err := json.Unmarshal(content, &stateFile); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	if stateFile.Version <= 0 {
		return nil, fmt.Errorf("invalid state version: %d", stateFile.Version)
	}
	return &stateFile, nil
}
