package watcher

import (
	"bytes"
	"net/http"
	"time"

	appLog "eventwatcher/internal/log"
)

// RemapNotifier tells the host to re-apply its area mapping after schedule
// changes. If URL is empty the notification is log-only.
type RemapNotifier struct {
	URL    string
	client *http.Client
}

func NewRemapNotifier(url string) *RemapNotifier {
	return &RemapNotifier{
		URL:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *RemapNotifier) ApplyMapping() error {
	appLog.Info("area schedules changed, requesting remap")
	if n.URL == "" {
		return nil
	}
	resp, err := n.client.Post(n.URL, "application/json", bytes.NewReader([]byte(`{"event":"apply_mapping"}`)))
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
