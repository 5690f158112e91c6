package mqttclient

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/snarg/meetscribe/internal/jobs"
	"github.com/snarg/meetscribe/internal/metrics"
)

// Client publishes job status events to an MQTT broker.
type Client struct {
	conn      mqtt.Client
	prefix    string
	connected atomic.Bool
	log       zerolog.Logger
}

type Options struct {
	BrokerURL   string
	ClientID    string
	TopicPrefix string
	Username    string
	Password    string
	Log         zerolog.Logger
}

func Connect(opts Options) (*Client, error) {
	c := &Client{
		prefix: strings.Trim(opts.TopicPrefix, "/"),
		log:    opts.Log,
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(false).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	c.conn = mqtt.NewClient(clientOpts)
	token := c.conn.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Client) onConnect(_ mqtt.Client) {
	c.connected.Store(true)
	c.log.Info().Str("prefix", c.prefix).Msg("mqtt connected")
}

func (c *Client) onConnectionLost(_ mqtt.Client, err error) {
	c.connected.Store(false)
	c.log.Warn().Err(err).Msg("mqtt connection lost, will auto-reconnect")
}

// PublishJSON encodes v and publishes it at QoS 0 without waiting for the
// broker.
func (c *Client) PublishJSON(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}
	token := c.conn.Publish(topic, 0, false, payload)
	if token.Error() != nil {
		return token.Error()
	}
	metrics.EventsPublishedTotal.Inc()
	return nil
}

// PublishEvent sends ev to the job's status topic. Errors are logged; a
// missing broker must never slow a job down.
func (c *Client) PublishEvent(ev jobs.Event) {
	if !c.IsConnected() {
		return
	}
	if err := c.PublishJSON(JobTopic(c.prefix, ev.JobID), ev); err != nil {
		c.log.Warn().Err(err).Str("job_id", ev.JobID).Msg("mqtt publish failed")
	}
}

func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

func (c *Client) Close() {
	c.log.Info().Msg("disconnecting mqtt client")
	c.conn.Disconnect(1000)
}

// JobTopic returns {prefix}/jobs/{id}/status.
func JobTopic(prefix, id string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return "jobs/" + id + "/status"
	}
	return prefix + "/jobs/" + id + "/status"
}
