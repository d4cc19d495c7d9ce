package agentloop

import (
	"time"

	"github.com/google/uuid"
)

func newMessageID() string {
	return uuid.New().String()
}

func timeNow() time.Time {
	return time.Now().UTC()
}
