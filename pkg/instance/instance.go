package instance

import (
	"fmt"
	"os"
	"sync"

	"github.com/angelmondragon/elibrary-backend/pkg/env"
)

var (
	once sync.Once
	id   string
)

// GetID identifies this process in logs and lock values: WORKER_ID when set, hostname-pid otherwise.
func GetID() string {
	once.Do(func() {
		id = env.Get("WORKER_ID", fallbackID())
	})
	return id
}

func fallbackID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
