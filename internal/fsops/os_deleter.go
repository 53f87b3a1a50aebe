package fsops

import "os"

// OSDeleter is the real Deleter every non-dry-run sweep uses
type OSDeleter struct{}

func (OSDeleter) Remove(path string) error {
	return os.Remove(path)
}

func (OSDeleter) RemoveAll(path string) error {
	return os.RemoveAll(path)
}
