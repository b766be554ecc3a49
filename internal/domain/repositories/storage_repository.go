package repositories

// StorageRepository is a persistent key-value store. Get decodes the stored value into out and
// reports whether the key existed.
type StorageRepository interface {
	Get(key string, out any) (bool, error)
	Store(key string, value any) error
	Delete(key string) error
}
