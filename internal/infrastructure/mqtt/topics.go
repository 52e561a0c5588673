package mqtt

import (
	"fmt"
	"strings"
)

// TTN v3 topic layout: v3/{application}@{tenant}/devices/{device}/{event}.
const (
	topicVersion     = "v3"
	topicDevices     = "devices"
	eventUplink      = "up"
	eventActivations = "activations"
	eventJoin        = "join"
	wildcardSingle   = "+"
)

// Topics builds the TTN v3 topics for one application.
//
//	topics := mqtt.NewTopics("+")
//	topics.Uplink()      // v3/+/devices/+/up
//	topics.Activations() // v3/+/devices/+/activations
type Topics struct {
	application string
}

// NewTopics returns topic builders for application. An empty application
// means all applications the credentials can see.
func NewTopics(application string) Topics {
	if application == "" {
		application = wildcardSingle
	}
	return Topics{application: application}
}

// Uplink returns the uplink topic filter for all devices.
func (t Topics) Uplink() string {
	return t.device(wildcardSingle, eventUplink)
}

// Activations returns the activation topic filter for all devices.
func (t Topics) Activations() string {
	return t.device(wildcardSingle, eventActivations)
}

// DeviceUplink returns the uplink topic of one device.
func (t Topics) DeviceUplink(deviceID string) string {
	return t.device(deviceID, eventUplink)
}

// Subscriptions returns every filter the relay subscribes to.
func (t Topics) Subscriptions() []string {
	return []string{t.Activations(), t.Uplink()}
}

func (t Topics) device(deviceID, event string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", topicVersion, t.application, topicDevices, deviceID, event)
}

// TopicKind classifies a received topic.
type TopicKind int

// Topic kinds.
const (
	KindOther TopicKind = iota
	KindUplink
	KindActivation
)

func (k TopicKind) String() string {
	switch k {
	case KindUplink:
		return "uplink"
	case KindActivation:
		return "activation"
	default:
		return "other"
	}
}

// ClassifyTopic reports which TTN event a concrete topic carries.
func ClassifyTopic(topic string) TopicKind {
	parts := strings.Split(topic, "/")
	if len(parts) != 5 || parts[0] != topicVersion || parts[2] != topicDevices {
		return KindOther
	}
	switch parts[4] {
	case eventUplink:
		return KindUplink
	case eventActivations, eventJoin:
		return KindActivation
	default:
		return KindOther
	}
}

// DeviceIDFromTopic extracts the device ID from a TTN v3 device topic.
func DeviceIDFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 5 || parts[0] != topicVersion || parts[2] != topicDevices || parts[3] == "" {
		return "", false
	}
	return parts[3], true
}
