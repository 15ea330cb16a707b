package index

// schemaVersion is bumped whenever the stored record layout changes.
const schemaVersion = "2"

var (
	bPosts = []byte("posts") // id -> fingerprint(8) + record json
)
