// internal/lifecycle/appid.go
package lifecycle

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewApplicationID builds a human-readable application identifier: a
// millisecond timestamp token plus a random suffix, e.g. AGS-M1X2K3ZQ-9F41C7.
// The random suffix keeps concurrent creations collision-resistant; the
// persistence layer still enforces uniqueness.
func NewApplicationID(now time.Time) string {
	token := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("AGS-%s-%s", token, suffix)
}
