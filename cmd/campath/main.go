// Command campath samples and inspects camera path track files offline,
// using the same evaluation and reconciliation code the in-editor engine
// runs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/voxeline/campath"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "campath",
		Short:         "Sample and inspect camera path track files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "tunables YAML file (defaults apply when empty)")

	loadTunables := func() (campath.Tunables, error) {
		if configPath == "" {
			return campath.DefaultTunables(), nil
		}
		return campath.LoadTunables(configPath)
	}

	root.AddCommand(sampleCmd(loadTunables))
	root.AddCommand(anchorsCmd(loadTunables))
	return root
}

func sampleCmd(loadTunables func() (campath.Tunables, error)) *cobra.Command {
	var points int
	var out string

	cmd := &cobra.Command{
		Use:   "sample <tracks.yaml>",
		Short: "Sample the path into a polyline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tf, err := loadTracks(args[0])
			if err != nil {
				return err
			}
			tun, err := loadTunables()
			if err != nil {
				return err
			}
			if points > 1 {
				tun.SampleCount = points
			}

			curve := campath.Build(tf.tracks(), tf.Length, tun)
			if out != "" {
				log, _ := zap.NewDevelopment()
				defer log.Sync()
				campath.Export(out, curve.Polyline, nil, log)
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d points to %s\n", len(curve.Polyline), out)
				return nil
			}
			for _, pt := range curve.Polyline {
				fmt.Fprintf(cmd.OutOrStdout(), "%g %g %g\n", pt.X, pt.Y, pt.Z)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %d points, path length %g\n",
				len(curve.Polyline), curve.Polyline.Length())
			return nil
		},
	}
	cmd.Flags().IntVar(&points, "points", 0, "number of samples (default from tunables)")
	cmd.Flags().StringVar(&out, "out", "", "write an OBJ line object instead of printing")
	return cmd
}

func anchorsCmd(loadTunables func() (campath.Tunables, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "anchors <tracks.yaml>",
		Short: "Print the reconciled anchor and segment table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tf, err := loadTracks(args[0])
			if err != nil {
				return err
			}
			tun, err := loadTunables()
			if err != nil {
				return err
			}

			curve := campath.Build(tf.tracks(), tf.Length, tun)
			w := cmd.OutOrStdout()
			for _, a := range curve.Anchors {
				fmt.Fprintf(w, "anchor %s t=%g pos=%s\n", a.Key, a.Time, a.Position)
			}
			for _, s := range curve.Segments {
				fmt.Fprintf(w, "segment %s → %s out=%s in=%s\n",
					s.Start.Key, s.End.Key, s.Out.Position, s.In.Position)
			}
			return nil
		},
	}
}
