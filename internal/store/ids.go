package store

import (
	"time"

	"github.com/google/uuid"
)

func newID() string {
	return uuid.New().String()
}

func now() time.Time {
	return time.Now().UTC()
}
