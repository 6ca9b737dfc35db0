package lib

import (
	"net/http"
	"time"

	"github.com/pusher/pusher-http-go/v5"
)

const pusherTimeout = 3 * time.Second

// NewPusherClient returns a client that is safe to share between goroutines.
// pusher fills in a nil HTTPClient lazily on first use, so it is set here.
func NewPusherClient(appID string, key string, secret string, cluster string) *pusher.Client {
	return &pusher.Client{
		AppID:      appID,
		Key:        key,
		Secret:     secret,
		Cluster:    cluster,
		Secure:     true,
		HTTPClient: &http.Client{Timeout: pusherTimeout},
	}
}
