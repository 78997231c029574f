package recording

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cloudgroundcontrol/meet-recorder/pkg/session"
	"github.com/labstack/gommon/log"
)

func (s *service) SendRecordingData(data session.Data) {
	if len(s.options.Webhooks) == 0 {
		return
	}

	// Marshal to JSON
	body, err := json.Marshal(data)
	if err != nil {
		log.Errorf("error marshalling payload | error: %v, data %v", err, data)
		return
	}

	// Send data
	client := http.Client{
		Timeout: 5 * time.Second,
	}
	for _, hook := range s.options.Webhooks {
		go func(url string) {
			resp, err := client.Post(url, "application/json", bytes.NewReader(body))
			if err != nil {
				log.Errorf("error reaching webhook | error: %v, url: %s", err, url)
				return
			}
			resp.Body.Close()
			log.Infof("sent webhook data | url: %s, status: %d, session: %s", url, resp.StatusCode, data.ID)
		}(hook)
	}
}
