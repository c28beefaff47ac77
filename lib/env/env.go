package env

import (
	"os"
	"strconv"
	"time"
)

func Debug() bool {
	return os.Getenv("DEBUG") != ""
}

// Timeout returns $CANVASGLUE_TIMEOUT in seconds, if set to a valid integer.
func Timeout() (time.Duration, bool) {
	if s := os.Getenv("CANVASGLUE_TIMEOUT"); s != "" {
		i, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			return time.Duration(i) * time.Second, true
		}
	}
	return 0, false
}
