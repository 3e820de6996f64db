package storage

// KV is the narrow persistence contract used to mirror the cache snapshot.
// A missing key is not an error: Get reports presence through its second
// return value.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}
