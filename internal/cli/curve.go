package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tessro/riffdeck/internal/crossfade"
)

var curveSteps int

var curveCmd = &cobra.Command{
	Use:   "curve [linear|smooth|power]",
	Short: "Preview a crossfade curve",
	Long: `Prints the deck gains an A to B crossfade produces along the chosen
curve. Defaults to the configured autofade.curve.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCurve,
}

func init() {
	curveCmd.Flags().IntVarP(&curveSteps, "steps", "n", 10, "number of samples")
	rootCmd.AddCommand(curveCmd)
}

type curveSample struct {
	Progress float64 `json:"progress"`
	Fade     float64 `json:"fade"`
	GainA    float64 `json:"gain_a"`
	GainB    float64 `json:"gain_b"`
}

func sampleCurve(c crossfade.Curve, steps int) []curveSample {
	if steps < 1 {
		steps = 1
	}
	samples := make([]curveSample, 0, steps+1)
	for i := 0; i <= steps; i++ {
		p := float64(i) / float64(steps)
		fade := c.Apply(p)
		g := crossfade.Compute(fade, 1, 1)
		samples = append(samples, curveSample{Progress: p, Fade: fade, GainA: g.A, GainB: g.B})
	}
	return samples
}

func runCurve(cmd *cobra.Command, args []string) error {
	name := cfg.AutoFade.Curve
	if len(args) == 1 {
		name = args[0]
	}
	c, err := crossfade.ParseCurve(name)
	if err != nil {
		return err
	}
	samples := sampleCurve(c, curveSteps)

	if JSONOutput() {
		return printJSON(map[string]any{"curve": c, "samples": samples})
	}

	fmt.Printf("Curve: %s\n\n", c)
	table := NewTable("PROGRESS", "DECK A", "", "DECK B", "")
	for _, s := range samples {
		table.Row(
			fmt.Sprintf("%3.0f%%", s.Progress*100),
			FormatBar(s.GainA, 20), fmt.Sprintf("%.2f", s.GainA),
			FormatBar(s.GainB, 20), fmt.Sprintf("%.2f", s.GainB),
		)
	}
	table.Flush()
	return nil
}
