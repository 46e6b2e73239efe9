package transport

import (
	"net"
	"time"
)

func timeNow() time.Time { return time.Now() }

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
