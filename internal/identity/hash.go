// Package identity derives the pseudonymous token used to key ban state.
package identity

import (
	"encoding/hex"
	"strconv"

	"github.com/minio/sha256-simd"
)

// Hash returns the hex SHA-256 of the decimal user id. The same id always
// yields the same token and the token cannot be turned back into the id.
func Hash(userID int64) string {
	sum := sha256.Sum256([]byte(strconv.FormatInt(userID, 10)))
	return hex.EncodeToString(sum[:])
}
