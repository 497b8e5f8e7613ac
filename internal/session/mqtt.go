package session

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"truco-game/internal/game"
)

const (
	mqttQoS         byte = 1
	mqttWaitTimeout      = 5 * time.Second
)

// DialMQTT connects a client to broker, reconnecting automatically after drops.
func DialMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", broker, token.Error())
	}
	return client, nil
}

// MQTTStore mirrors rooms onto an MQTT broker.
//
// Topics:
//
//	{prefix}/rooms/{roomID}/state      retained snapshot
//	{prefix}/players/{playerID}/hand   retained private hand
//	{prefix}/rooms/{roomID}/actions    action stream
type MQTTStore struct {
	client mqtt.Client
	prefix string
	logger *zap.Logger
}

// NewMQTTStore wraps an already connected client.
func NewMQTTStore(client mqtt.Client, prefix string, logger *zap.Logger) *MQTTStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MQTTStore{client: client, prefix: prefix, logger: logger}
}

func (s *MQTTStore) stateTopic(roomID string) string {
	return fmt.Sprintf("%s/rooms/%s/state", s.prefix, roomID)
}

func (s *MQTTStore) handTopic(playerID string) string {
	return fmt.Sprintf("%s/players/%s/hand", s.prefix, playerID)
}

func (s *MQTTStore) actionTopic(roomID string) string {
	return fmt.Sprintf("%s/rooms/%s/actions", s.prefix, roomID)
}

func (s *MQTTStore) Publish(roomID string, snap game.Snapshot) error {
	return s.send(s.stateTopic(roomID), true, snap)
}

func (s *MQTTStore) PublishPrivate(playerID string, hand game.PrivateHand) error {
	return s.send(s.handTopic(playerID), true, hand)
}

func (s *MQTTStore) Submit(roomID string, action game.Action) error {
	return s.send(s.actionTopic(roomID), false, action)
}

// send does not wait for the broker; delivery failures are only logged.
func (s *MQTTStore) send(topic string, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal mqtt payload for %s: %w", topic, err)
	}

	token := s.client.Publish(topic, mqttQoS, retained, payload)
	go func() {
		if !token.WaitTimeout(mqttWaitTimeout) {
			s.logger.Warn("mqtt publish timed out", zap.String("topic", topic))
			return
		}
		if err := token.Error(); err != nil {
			s.logger.Warn("mqtt publish failed", zap.String("topic", topic), zap.Error(err))
		}
	}()
	return nil
}

func (s *MQTTStore) Subscribe(roomID string, onAction ActionHandler) (func(), error) {
	topic := s.actionTopic(roomID)
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		var action game.Action
		if err := json.Unmarshal(msg.Payload(), &action); err != nil {
			s.logger.Warn("dropping malformed action",
				zap.String("topic", msg.Topic()),
				zap.Error(err))
			return
		}
		onAction(action)
	}

	if token := s.client.Subscribe(topic, mqttQoS, handler); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	s.logger.Debug("subscribed to room actions", zap.String("topic", topic))

	return func() {
		if token := s.client.Unsubscribe(topic); token.Wait() && token.Error() != nil {
			s.logger.Warn("mqtt unsubscribe failed", zap.String("topic", topic), zap.Error(token.Error()))
		}
	}, nil
}
