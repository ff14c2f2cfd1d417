// Package cmd holds the auxiliary CLI subcommands.
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aab18011/ffmpeg-v4l2-connector/internal/camera"
	"github.com/aab18011/ffmpeg-v4l2-connector/internal/logging"
	"github.com/aab18011/ffmpeg-v4l2-connector/internal/slots"
)

// CreateValidateCmd builds the validate subcommand. It loads the camera
// list, enumerates capture devices and prints the registration outcome
// without probing or launching anything.
func CreateValidateCmd() *cobra.Command {
	var camerasFile string
	var deviceDir string

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the camera list against available capture devices",
		Long:  `Loads the camera list, enumerates capture devices and prints which camera would bind to which device slot. No streams are probed and no processes are started.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.GetLogger("validate")

			records, err := camera.LoadFile(camerasFile)
			if err != nil {
				return fmt.Errorf("load camera list: %w", err)
			}

			provider := &slots.DevProvider{Dir: deviceDir}
			devices, err := provider.Enumerate()
			if err != nil {
				return fmt.Errorf("enumerate capture devices: %w", err)
			}
			if len(devices) == 0 {
				return slots.ErrNoSlots
			}

			cameras := camera.Register(records, devices, logger)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SLOT\tADDRESS\tDEVICE\tRESULT")
			for _, cam := range cameras {
				result := "ok"
				device := devices[cam.Slot]
				if cam.Skipped {
					result = "skipped: " + cam.SkipReason
					if device == "" {
						device = "-"
					}
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", cam.Slot, cam.Address, device, result)
			}
			return w.Flush()
		},
	}

	validateCmd.Flags().StringVar(&camerasFile, "cameras-file", "/etc/roc/cameras.json", "Path to the JSON camera list")
	validateCmd.Flags().StringVar(&deviceDir, "device-dir", "/dev", "Directory scanned for capture devices")

	return validateCmd
}
