package bus

import (
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// MQTTBridge republishes Bus events onto an MQTT broker, one topic per
// bus Topic under a common prefix, for external dashboards or home
// automation integrations that can't hold a long-lived process subscription.
type MQTTBridge struct {
	conn   mqtt.Client
	prefix string
	log    zerolog.Logger
	cancel func()
}

// MQTTBridgeOptions configures the bridge connection.
type MQTTBridgeOptions struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	Prefix    string
	Log       zerolog.Logger
}

// NewMQTTBridge connects to the broker and starts forwarding every event
// published on bus to MQTT. Call Close to disconnect and stop forwarding.
func NewMQTTBridge(b *Bus, opts MQTTBridgeOptions) (*MQTTBridge, error) {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "airwave"
	}

	br := &MQTTBridge{prefix: prefix, log: opts.Log.With().Str("component", "mqtt_bridge").Logger()}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(false).
		SetOnConnectHandler(br.onConnect).
		SetConnectionLostHandler(br.onConnectionLost)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	br.conn = mqtt.NewClient(clientOpts)
	token := br.conn.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}

	ch, cancel := b.Subscribe()
	br.cancel = cancel
	go br.forward(ch)

	return br, nil
}

func (br *MQTTBridge) onConnect(mqtt.Client) {
	br.log.Info().Str("broker_prefix", br.prefix).Msg("mqtt bridge connected")
}

func (br *MQTTBridge) onConnectionLost(_ mqtt.Client, err error) {
	br.log.Warn().Err(err).Msg("mqtt bridge connection lost, will auto-reconnect")
}

func (br *MQTTBridge) forward(ch <-chan Event) {
	for evt := range ch {
		payload, err := json.Marshal(evt.Payload)
		if err != nil {
			br.log.Warn().Err(err).Str("topic", evt.Topic).Msg("mqtt bridge: marshal failed")
			continue
		}
		topic := br.prefix + "/" + evt.Topic
		token := br.conn.Publish(topic, 0, false, payload)
		if !token.WaitTimeout(2 * time.Second) {
			br.log.Warn().Str("topic", topic).Msg("mqtt bridge: publish timed out")
		}
	}
}

// Close stops forwarding and disconnects from the broker.
func (br *MQTTBridge) Close() {
	br.cancel()
	br.conn.Disconnect(1000)
}
