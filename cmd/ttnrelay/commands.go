package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nerrad567/ttn-relay/internal/infrastructure/influxdb"
	"github.com/nerrad567/ttn-relay/internal/payload"
	"github.com/nerrad567/ttn-relay/internal/relay"
	"github.com/nerrad567/ttn-relay/internal/sensor"
	"github.com/nerrad567/ttn-relay/internal/ttn"
)

// configEnv names the environment variable that overrides the default
// config path.
const configEnv = "TTNRELAY_CONFIG"

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "ttnrelay",
		Short: "TTN uplink relay for water temperature sensors",
		Long: `ttnrelay subscribes to The Things Network v3 MQTT API, decodes
Dragino and Gfroerli sensor uplinks and forwards the measurements to the
measurement API and to InfluxDB.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), getConfigPath(cfgFile))
		},
	}

	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"path to configuration file (default $"+configEnv+" or "+defaultConfigPath+")")

	root.AddCommand(newVersionCmd(), newDecodeCmd())
	return root
}

// getConfigPath resolves the config path: flag, then environment, then default.
func getConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if path := os.Getenv(configEnv); path != "" {
		return path
	}
	return defaultConfigPath
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the relay version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

func newDecodeCmd() *cobra.Command {
	var (
		codec    string
		channel  uint16
		sensorID uint32
		devEUI   string
	)

	cmd := &cobra.Command{
		Use:   "decode HEX",
		Short: "Decode a hex payload offline",
		Long: `Decode a raw frame payload the way the relay would and print the
measurement and the InfluxDB line it produces.

The codec is a sensor type (dragino, gfroerli) or a codec name
(dragino_v1, gfroerli_v1).`,
		Example: "  ttnrelay decode --codec dragino 0b45010500000000000000",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseCodec(codec)
			if err != nil {
				return err
			}

			raw, err := hex.DecodeString(strings.TrimPrefix(strings.ReplaceAll(args[0], " ", ""), "0x"))
			if err != nil {
				return fmt.Errorf("invalid hex payload: %w", err)
			}

			frame, err := payload.Resolve(kind, channel)
			if err != nil {
				return err
			}
			m, err := payload.DecodeFrame(frame, raw)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "frame:          %s\n", frame)
			fmt.Fprintf(out, "water_temp:     %.2f °C\n", m.TemperatureWater)
			if m.TemperatureEnclosure != nil {
				fmt.Fprintf(out, "enclosure_temp: %.2f °C\n", *m.TemperatureEnclosure)
			}
			if m.HumidityEnclosure != nil {
				fmt.Fprintf(out, "enclosure_humi: %.2f %%RH\n", *m.HumidityEnclosure)
			}
			fmt.Fprintf(out, "voltage:        %.3f V\n", m.BatteryVolts())

			up := ttn.Uplink{DeviceIdentity: devEUI, FrameChannel: channel, Payload: raw}
			tags, fields := relay.Point(up, sensor.Profile{Codec: kind, ExternalID: sensorID}, m)
			line, err := influxdb.FormatLine(influxdb.DefaultMeasurement, tags, fields)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, line)
			return nil
		},
	}

	cmd.Flags().StringVar(&codec, "codec", payload.FamilyDragino, "sensor type or codec name")
	cmd.Flags().Uint16Var(&channel, "channel", 1, "LoRaWAN frame port")
	cmd.Flags().Uint32Var(&sensorID, "sensor-id", 0, "sensor_id tag for the printed line")
	cmd.Flags().StringVar(&devEUI, "dev-eui", "", "dev_eui tag for the printed line")
	return cmd
}

func parseCodec(s string) (payload.CodecKind, error) {
	if kind, ok := payload.CodecForFamily(s); ok {
		return kind, nil
	}
	return payload.ParseCodecKind(s)
}
