package export

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCount is returned by ParseCount for anything but N, "all" or "new".
var ErrInvalidCount = errors.New("count must be a number, 'all' or 'new'")

// CountMode selects how the number of activities to export is decided.
type CountMode int

const (
	// CountN exports the N most recent activities.
	CountN CountMode = iota
	// CountAll exports every activity of the account.
	CountAll
	// CountNew exports the activities added since the last recorded index.
	CountNew
)

// Count is a parsed --count value.
type Count struct {
	Mode CountMode
	N    int
}

// ParseCount parses a non-negative integer, "all" or "new".
func ParseCount(s string) (Count, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "all":
		return Count{Mode: CountAll}, nil
	case "new":
		return Count{Mode: CountNew}, nil
	default:
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Count{}, fmt.Errorf("%w: %q", ErrInvalidCount, s)
		}
		return Count{Mode: CountN, N: n}, nil
	}
}

func (c Count) String() string {
	switch c.Mode {
	case CountAll:
		return "all"
	case CountNew:
		return "new"
	}
	return strconv.Itoa(c.N)
}

// resolve turns the count into a number of activities given the account total
// and the stored resume index.
func (c Count) resolve(total, lastIndex int) int {
	switch c.Mode {
	case CountAll:
		return total
	case CountNew:
		if n := total - lastIndex; n > 0 {
			return n
		}
		return 0
	}
	return c.N
}
