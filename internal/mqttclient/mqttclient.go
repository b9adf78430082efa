// Package mqttclient wraps eclipse/paho.mqtt.golang with the station's
// topic layout and JSON payload shapes: subscribing to remote requests and
// publishing identification and weather-update payloads.
package mqttclient

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ttocsneb/station-comms/internal/config"
	"github.com/ttocsneb/station-comms/internal/scheduler"
	"github.com/ttocsneb/station-comms/internal/weather"
)

// Client is a thin wrapper over a connected paho client, scoped to one
// station id.
type Client struct {
	mq        mqtt.Client
	stationID string
}

// Connect dials cfg.Host and blocks until the connection succeeds or
// fails. A connection failure here is unrecoverable setup, surfaced as an
// error rather than retried internally.
func Connect(cfg config.MQTT) (*Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Host).
		SetClientID(fmt.Sprintf("station-comms-%s", cfg.ID)).
		SetAutoReconnect(true)

	if cfg.Timeout > 0 {
		opts.SetConnectTimeout(time.Duration(cfg.Timeout * float64(time.Second)))
	}

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		slog.Error("mqttclient: connection lost", "err", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqttclient: failed to connect to %s: %w", cfg.Host, token.Error())
	}

	return &Client{mq: client, stationID: cfg.ID}, nil
}

// SubscribeRequests subscribes to /station/request/{id} at QoS 1 and
// forwards every well-formed {"action": ...} payload to out. Payloads
// that fail to parse as JSON are logged and discarded.
func (c *Client) SubscribeRequests(out chan<- scheduler.RemoteRequest) error {
	topic := fmt.Sprintf("/station/request/%s", c.stationID)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		var req struct {
			Action string `json:"action"`
		}
		if err := json.Unmarshal(msg.Payload(), &req); err != nil {
			slog.Warn("mqttclient: discarding unparseable request payload", "err", err)
			return
		}
		out <- scheduler.RemoteRequest{Action: req.Action}
	}

	if token := c.mq.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqttclient: failed to subscribe to %s: %w", topic, token.Error())
	}
	return nil
}

// Info is the identification payload published to /station/info/{id}.
type Info struct {
	Make         string  `json:"make"`
	Model        string  `json:"model"`
	Software     string  `json:"software"`
	Version      string  `json:"version"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Elevation    float64 `json:"elevation"`
	District     string  `json:"district"`
	City         string  `json:"city"`
	Region       string  `json:"region"`
	Country      string  `json:"country"`
	RapidWeather bool    `json:"rapid-weather"`
}

// InfoFromConfig builds an Info payload from the loaded configuration.
// RapidWeather is always true, matching the original firmware's hard-coded
// field: it is not derived from the station's current rapid-mode state.
func InfoFromConfig(cfg *config.Config, software, version string) Info {
	return Info{
		Make:         cfg.Make,
		Model:        cfg.Model,
		Software:     software,
		Version:      version,
		Latitude:     cfg.Latitude,
		Longitude:    cfg.Longitude,
		Elevation:    cfg.Elevation,
		District:     cfg.District,
		City:         cfg.City,
		Region:       cfg.Region,
		Country:      cfg.Country,
		RapidWeather: true,
	}
}

// PublishInfo publishes info to /station/info/{id} at QoS 1.
func (c *Client) PublishInfo(info Info) error {
	return c.publish(fmt.Sprintf("/station/info/%s", c.stationID), 1, info)
}

// PublishUpdate publishes u to /station/rapid-weather/{id} when rapid, else
// /station/weather/{id}, at QoS 0.
func (c *Client) PublishUpdate(u weather.Update, rapid bool) error {
	topic := fmt.Sprintf("/station/weather/%s", c.stationID)
	if rapid {
		topic = fmt.Sprintf("/station/rapid-weather/%s", c.stationID)
	}
	return c.publish(topic, 0, u)
}

func (c *Client) publish(topic string, qos byte, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("mqttclient: failed to encode payload for %s: %w", topic, err)
	}

	token := c.mq.Publish(topic, qos, false, raw)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqttclient: failed to publish to %s: %w", topic, token.Error())
	}
	return nil
}
