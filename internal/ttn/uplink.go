package ttn

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/brocaar/lorawan"
)

// Uplink is a device uplink ready for dispatch.
type Uplink struct {
	// DeviceIdentity is the DevEUI exactly as reported. Registry lookups
	// use it unchanged.
	DeviceIdentity string

	// DevEUI is DeviceIdentity parsed.
	DevEUI lorawan.EUI64

	DeviceID      string
	ApplicationID string
	DevAddr       *lorawan.DevAddr

	// FrameChannel is the LoRaWAN FPort.
	FrameChannel uint16
	FrameCounter uint32
	Payload      []byte
	Link         LinkMetadata
}

// LinkMetadata describes how the uplink was received.
type LinkMetadata struct {
	AirtimeMS       uint32
	SpreadingFactor *uint16
	BandwidthHz     *uint64
	FrequencyHz     *uint64
	Gateways        []Gateway
}

// Gateway is one receiving gateway.
type Gateway struct {
	ID   string
	EUI  *lorawan.EUI64
	RSSI *float64
	SNR  *float64
}

// MaxRSSI returns the best RSSI over all gateways that reported one.
func (l LinkMetadata) MaxRSSI() (float64, bool) {
	return maxOf(l.Gateways, func(g Gateway) *float64 { return g.RSSI })
}

// MaxSNR returns the best SNR over all gateways that reported one.
func (l LinkMetadata) MaxSNR() (float64, bool) {
	return maxOf(l.Gateways, func(g Gateway) *float64 { return g.SNR })
}

func maxOf(gws []Gateway, get func(Gateway) *float64) (float64, bool) {
	best, found := math.Inf(-1), false
	for _, gw := range gws {
		if v := get(gw); v != nil && *v > best {
			best, found = *v, true
		}
	}
	return best, found
}

// Parse decodes a TTN uplink document.
//
// Activation documents return ErrJoinAccept. Anything else without an
// uplink_message or a DevEUI returns ErrInvalidDocument.
func Parse(data []byte) (Uplink, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Uplink{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return doc.Uplink()
}

// Uplink converts the document into an Uplink.
func (d *Document) Uplink() (Uplink, error) {
	if d.JoinAccept != nil {
		return Uplink{}, ErrJoinAccept
	}
	if d.UplinkMessage == nil {
		return Uplink{}, fmt.Errorf("%w: no uplink_message", ErrInvalidDocument)
	}
	if d.EndDeviceIDs.DevEUI == "" {
		return Uplink{}, fmt.Errorf("%w: missing dev_eui", ErrInvalidDocument)
	}
	var devEUI lorawan.EUI64
	if err := devEUI.UnmarshalText([]byte(d.EndDeviceIDs.DevEUI)); err != nil {
		return Uplink{}, fmt.Errorf("%w: dev_eui %q: %w", ErrInvalidDocument, d.EndDeviceIDs.DevEUI, err)
	}

	msg := d.UplinkMessage
	airtime, err := parseAirtime(msg.ConsumedAirtime)
	if err != nil {
		return Uplink{}, fmt.Errorf("%w: consumed_airtime %q: %w", ErrInvalidDocument, msg.ConsumedAirtime, err)
	}

	up := Uplink{
		DeviceIdentity: d.EndDeviceIDs.DevEUI,
		DevEUI:         devEUI,
		DeviceID:       d.EndDeviceIDs.DeviceID,
		ApplicationID:  d.EndDeviceIDs.ApplicationIDs.ApplicationID,
		FrameChannel:   msg.FPort,
		FrameCounter:   msg.FCnt,
		Payload:        msg.FRMPayload,
		Link: LinkMetadata{
			AirtimeMS: airtime,
			Gateways:  make([]Gateway, 0, len(msg.RxMetadata)),
		},
	}

	// DevAddr and gateway EUIs only feed debug logging; a malformed one
	// is left nil rather than rejecting the uplink.
	if d.EndDeviceIDs.DevAddr != "" {
		var addr lorawan.DevAddr
		if err := addr.UnmarshalText([]byte(d.EndDeviceIDs.DevAddr)); err == nil {
			up.DevAddr = &addr
		}
	}

	if lora := msg.Settings.DataRate.LoRa; lora != nil {
		sf, bw := lora.SpreadingFactor, lora.Bandwidth
		up.Link.SpreadingFactor = &sf
		up.Link.BandwidthHz = &bw
	}
	if msg.Settings.Frequency != "" {
		if f, err := strconv.ParseUint(msg.Settings.Frequency.String(), 10, 64); err == nil {
			up.Link.FrequencyHz = &f
		}
	}

	for _, rx := range msg.RxMetadata {
		gw := Gateway{
			ID:   rx.GatewayIDs.GatewayID,
			RSSI: rx.RSSI,
			SNR:  rx.SNR,
		}
		if gw.RSSI == nil {
			gw.RSSI = rx.ChannelRSSI
		}
		if rx.GatewayIDs.EUI != "" {
			var eui lorawan.EUI64
			if err := eui.UnmarshalText([]byte(rx.GatewayIDs.EUI)); err == nil {
				gw.EUI = &eui
			}
		}
		up.Link.Gateways = append(up.Link.Gateways, gw)
	}

	return up, nil
}

// parseAirtime converts a protobuf duration string such as "0.041216s"
// into whole milliseconds.
func parseAirtime(s string) (uint32, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration")
	}
	ms := d.Milliseconds()
	if ms > math.MaxUint32 {
		ms = math.MaxUint32
	}
	return uint32(ms), nil
}
