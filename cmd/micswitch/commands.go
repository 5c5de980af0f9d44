package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stalexteam/micswitch/pkg/micswitch"
)

type audioFactory func() (*micswitch.AudioHelper, error)

var errNoCurrentDevice = errors.New("no current device")

func addCommands(root *cobra.Command, newAudio audioFactory) {
	root.AddCommand(devicesCmd(newAudio))
	root.AddCommand(currentCmd(newAudio))
	root.AddCommand(muteCmd(newAudio))
	root.AddCommand(setDefaultCmd(newAudio))
}

func devicesCmd(newAudio audioFactory) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List audio devices",
		Example: `  micswitch devices
  micswitch devices --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			audio, err := newAudio()
			if err != nil {
				return err
			}

			devices := audio.ListDevices()

			if asJSON {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(devices)
			}

			if len(devices) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No audio devices found.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tCURRENT\tMUTED")
			for _, d := range devices {
				fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%t\n", d.ID, d.Name, d.Kind, d.IsCurrent, d.IsMuted)
			}

			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print devices as JSON")

	return cmd
}

func currentCmd(newAudio audioFactory) *cobra.Command {
	var output bool

	cmd := &cobra.Command{
		Use:   "current",
		Short: "Show the default input (or output) device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			audio, err := newAudio()
			if err != nil {
				return err
			}

			device, ok := audio.CurrentDevice(!output)
			if !ok {
				return errNoCurrentDevice
			}

			fmt.Fprintln(cmd.OutOrStdout(), device)
			return nil
		},
	}

	cmd.Flags().BoolVar(&output, "output", false, "show the default output device instead")

	return cmd
}

func muteCmd(newAudio audioFactory) *cobra.Command {
	var off bool

	cmd := &cobra.Command{
		Use:   "mute <device-id>",
		Short: "Mute (or unmute) an input device",
		Example: `  micswitch mute 73
  micswitch mute 73 --off`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDeviceID(args[0])
			if err != nil {
				return err
			}

			audio, err := newAudio()
			if err != nil {
				return err
			}

			device, err := audio.MuteDevice(id, !off)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), device)
			return nil
		},
	}

	cmd.Flags().BoolVar(&off, "off", false, "unmute instead")

	return cmd
}

func setDefaultCmd(newAudio audioFactory) *cobra.Command {
	var output bool

	cmd := &cobra.Command{
		Use:   "set-default <device-id>",
		Short: "Make a device the default input (or output)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDeviceID(args[0])
			if err != nil {
				return err
			}

			audio, err := newAudio()
			if err != nil {
				return err
			}

			if err := audio.SetCurrentDevice(id, !output); err != nil {
				return err
			}

			device, ok := audio.CurrentDevice(!output)
			if !ok {
				return errNoCurrentDevice
			}

			fmt.Fprintln(cmd.OutOrStdout(), device)
			return nil
		},
	}

	cmd.Flags().BoolVar(&output, "output", false, "set the default output device instead")

	return cmd
}

func parseDeviceID(raw string) (micswitch.ObjectID, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid device id %q: %w", raw, err)
	}

	return micswitch.ObjectID(id), nil
}
