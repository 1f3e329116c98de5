package config

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns ~/.noetic when SUBSTRATE_DATA_DIR is unset.
func DefaultDataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".noetic"), nil
}

// ThoughtsPath, AssociationsPath, etc. name the fixed files under a data
// directory. Centralizing them here keeps the store and the scheduler's
// restart path from drifting apart.
func ThoughtsPath(dataDir string) string      { return filepath.Join(dataDir, "thoughts.json") }
func AssociationsPath(dataDir string) string  { return filepath.Join(dataDir, "thought_associations.json") }
func VectorIndexPath(dataDir string) string   { return filepath.Join(dataDir, "vector_index.bin") }
func IndexMetaPath(dataDir string) string     { return filepath.Join(dataDir, "index_meta") }
func ConceptsPath(dataDir string) string      { return filepath.Join(dataDir, "evolved_concepts.json") }
func PatternsPath(dataDir string) string      { return filepath.Join(dataDir, "prompt_patterns.json") }
func SchedulerStatePath(dataDir string) string { return filepath.Join(dataDir, "scheduler_state.json") }
func LogsDir(dataDir string) string           { return filepath.Join(dataDir, "logs") }
func LockPath(dataDir string) string          { return filepath.Join(dataDir, ".lock") }
func ConceptScratchPath(dataDir string) string { return filepath.Join(dataDir, "concept_scratch.db") }
func SettingsPath(dataDir string) string      { return filepath.Join(dataDir, "settings.json") }

// EnsureDataDir creates the data directory and its logs/ subdirectory.
func EnsureDataDir(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(LogsDir(dataDir), 0755)
}
