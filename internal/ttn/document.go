package ttn

import (
	"encoding/json"
	"time"
)

// Document is an application message as published by The Things Stack.
type Document struct {
	EndDeviceIDs  EndDeviceIDs   `json:"end_device_ids"`
	ReceivedAt    *time.Time     `json:"received_at,omitempty"`
	UplinkMessage *UplinkMessage `json:"uplink_message,omitempty"`
	JoinAccept    *JoinAccept    `json:"join_accept,omitempty"`
}

// EndDeviceIDs identifies the sending device.
type EndDeviceIDs struct {
	DeviceID       string         `json:"device_id"`
	ApplicationIDs ApplicationIDs `json:"application_ids"`
	DevEUI         string         `json:"dev_eui"`
	JoinEUI        string         `json:"join_eui,omitempty"`
	DevAddr        string         `json:"dev_addr,omitempty"`
}

// ApplicationIDs identifies the TTN application.
type ApplicationIDs struct {
	ApplicationID string `json:"application_id"`
}

// UplinkMessage is the uplink_message object.
type UplinkMessage struct {
	FPort           uint16       `json:"f_port"`
	FCnt            uint32       `json:"f_cnt"`
	FRMPayload      []byte       `json:"frm_payload"`
	RxMetadata      []RxMetadata `json:"rx_metadata"`
	Settings        TxSettings   `json:"settings"`
	ConsumedAirtime string       `json:"consumed_airtime"`
}

// RxMetadata describes one receiving gateway.
type RxMetadata struct {
	GatewayIDs  GatewayIDs `json:"gateway_ids"`
	RSSI        *float64   `json:"rssi,omitempty"`
	ChannelRSSI *float64   `json:"channel_rssi,omitempty"`
	SNR         *float64   `json:"snr,omitempty"`
}

// GatewayIDs identifies a gateway.
type GatewayIDs struct {
	GatewayID string `json:"gateway_id"`
	EUI       string `json:"eui,omitempty"`
}

// TxSettings holds the radio settings of the uplink.
type TxSettings struct {
	DataRate  DataRate    `json:"data_rate"`
	Frequency json.Number `json:"frequency,omitempty"`
}

// DataRate holds exactly one modulation.
type DataRate struct {
	LoRa *LoRaDataRate `json:"lora,omitempty"`
	FSK  *FSKDataRate  `json:"fsk,omitempty"`
}

// LoRaDataRate is a LoRa modulation.
type LoRaDataRate struct {
	Bandwidth       uint64 `json:"bandwidth"`
	SpreadingFactor uint16 `json:"spreading_factor"`
	CodingRate      string `json:"coding_rate,omitempty"`
}

// FSKDataRate is an FSK modulation.
type FSKDataRate struct {
	BitRate uint32 `json:"bit_rate"`
}

// JoinAccept is the join_accept object of an activation document.
type JoinAccept struct {
	SessionKeyID []byte     `json:"session_key_id,omitempty"`
	ReceivedAt   *time.Time `json:"received_at,omitempty"`
}
