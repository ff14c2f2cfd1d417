package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aab18011/ffmpeg-v4l2-connector/internal/camera"
	"github.com/aab18011/ffmpeg-v4l2-connector/internal/logging"
	"github.com/aab18011/ffmpeg-v4l2-connector/internal/probe"
	"github.com/aab18011/ffmpeg-v4l2-connector/internal/quality"
)

// CreateProbeCmd builds the probe subcommand. It runs a one-shot test
// of every stream variant of one camera and prints the scores, without
// touching any capture device.
func CreateProbeCmd() *cobra.Command {
	var camerasFile string
	var slot int

	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "Probe all stream variants of one camera and print scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.GetLogger("probe")

			records, err := camera.LoadFile(camerasFile)
			if err != nil {
				return fmt.Errorf("load camera list: %w", err)
			}
			if slot < 0 || slot >= len(records) {
				return fmt.Errorf("slot %d out of range, camera list has %d entries", slot, len(records))
			}

			rec := records[slot]
			cam := &camera.Camera{
				Slot:     slot,
				Address:  rec.Address,
				Username: rec.Username,
				Password: rec.Password,
			}
			if cam.Username == "" {
				cam.Username = camera.DefaultUsername
			}
			if cam.Address == "" || cam.Password == "" {
				return fmt.Errorf("camera record %d is missing address or password", slot)
			}

			if !probe.Reachable(cam.Address, probe.DefaultDialTimeout) {
				return fmt.Errorf("camera %s is unreachable", cam.Address)
			}

			prober := probe.NewProber(logger)
			selector := quality.NewSelector()

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "VARIANT\tRESOLUTION\tFPS\tDUP\tSCORE")
			for _, v := range camera.Variants {
				res, probeErr := prober.Probe(cmd.Context(), cam, v)
				if probeErr != nil {
					fmt.Fprintf(w, "%s\t-\t-\t-\tfailed: %v\n", v.Name, probeErr)
					continue
				}
				selector.Offer(v, res)
				fmt.Fprintf(w, "%s\t%s\t%g\t%d\t%.0f\n",
					v.Name, res.Resolution(), res.FPS, res.DupFrames, quality.Score(res))
			}
			w.Flush()

			if best := selector.Best(); best != nil {
				fmt.Printf("\nbest: %s (%s@%g, score %.0f)\n",
					best.Variant.Name, best.Result.Resolution(), best.Result.FPS, best.Score)
			} else {
				fmt.Println("\nno usable variant")
			}
			return nil
		},
	}

	probeCmd.Flags().StringVar(&camerasFile, "cameras-file", "/etc/roc/cameras.json", "Path to the JSON camera list")
	probeCmd.Flags().IntVar(&slot, "slot", 0, "Camera list index to probe")

	return probeCmd
}
