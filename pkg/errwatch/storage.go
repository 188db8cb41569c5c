package errwatch

import (
	"encoding/json"
	"os"
)

// FileStorage persists the buffer as a JSON file, the client-side analog of
// the browser's local storage. All failures surface as errors the watcher
// swallows.
type FileStorage struct {
	path string
}

// NewFileStorage creates storage backed by path
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Save writes the full buffer state
func (s *FileStorage) Save(events []ErrorEvent) error {
	data, err := json.Marshal(events)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Load reads the persisted buffer; a missing file is an empty buffer
func (s *FileStorage) Load() ([]ErrorEvent, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var events []ErrorEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, err
	}
	return events, nil
}
