package security

import "github.com/oklog/ulid/v2"

// GenerateULID generates a new ULID string. Used for alert ids, observer ids,
// and snapshot filenames; lexicographically sortable by creation time.
func GenerateULID() string {
	return ulid.Make().String()
}
