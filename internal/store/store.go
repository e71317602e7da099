package store

// Blob keys owned by the chat state holders.
const (
	KeySessions      = "sessions"
	KeyMessages      = "messages"
	KeyActiveSession = "active_session"
)

// Store is the persistence port: named JSON blobs with whole-value
// replacement on write.
type Store interface {
	// Get unmarshals the blob under key into v. The boolean reports
	// whether the key was present.
	Get(key string, v interface{}) (bool, error)

	// Put marshals v and replaces the blob under key.
	Put(key string, v interface{}) error

	// Close releases the underlying storage.
	Close() error
}
