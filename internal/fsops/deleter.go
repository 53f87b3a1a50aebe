package fsops

// Deleter abstracts the delete calls a sweep issues
// Enables mocking in tests to prove dry-run never deletes
type Deleter interface {
	Remove(path string) error
	RemoveAll(path string) error
}
