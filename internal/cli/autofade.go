package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/tessro/riffdeck/internal/autofade"
	"github.com/tessro/riffdeck/internal/config"
	"github.com/tessro/riffdeck/internal/effects"
)

var autofadeCmd = &cobra.Command{
	Use:   "autofade",
	Short: "Show or edit auto-crossfade settings",
}

var autofadeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective auto-crossfade settings",
	RunE:  runAutofadeShow,
}

var autofadeSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Edit auto-crossfade settings interactively",
	Long:  `Walks through the [autofade] settings and saves them to the config file.`,
	RunE:  runAutofadeSetup,
}

func init() {
	autofadeCmd.AddCommand(autofadeShowCmd)
	autofadeCmd.AddCommand(autofadeSetupCmd)
	rootCmd.AddCommand(autofadeCmd)
}

func runAutofadeShow(cmd *cobra.Command, args []string) error {
	fade, err := autofade.FromConfig(cfg.AutoFade)
	if err != nil {
		return err
	}

	if JSONOutput() {
		return printJSON(cfg.AutoFade)
	}

	effect := "none"
	if fade.Effect != nil {
		effect = fade.Effect.String()
	}
	table := NewTable()
	table.Row("Enabled", strconv.FormatBool(fade.Enabled))
	table.Row("Duration", fade.Duration.String())
	table.Row("Trigger lead", fade.TriggerLead.String())
	table.Row("Curve", fade.Curve.String())
	table.Row("Switch timing", fmt.Sprintf("%.0f%% (%s in)", fade.SwitchTiming*100,
		scaleDuration(fade.Duration, fade.SwitchTiming)))
	table.Row("Activate next", strconv.FormatBool(fade.AutoActivateNext))
	table.Row("Transition effect", effect)
	table.Flush()
	return nil
}

// autofadeForm holds the form's string-typed inputs.
type autofadeForm struct {
	enabled      bool
	activateNext bool
	duration     string
	triggerLead  string
	switchTiming string
	curve        string
	effect       string
}

func newAutofadeForm(c config.AutoFadeConfig) *autofadeForm {
	effect := c.TransitionEffect
	if effect == "" {
		effect = "none"
	}
	return &autofadeForm{
		enabled:      c.Enabled,
		activateNext: c.ActivateNext(),
		duration:     formatFloat(c.Duration),
		triggerLead:  formatFloat(c.TriggerLead),
		switchTiming: formatFloat(c.SwitchTiming),
		curve:        c.Curve,
		effect:       effect,
	}
}

// settings converts the form back into config values.
func (f *autofadeForm) settings() (map[string]string, error) {
	out := map[string]string{
		"autofade.enabled":            strconv.FormatBool(f.enabled),
		"autofade.auto_activate_next": strconv.FormatBool(f.activateNext),
		"autofade.duration":           f.duration,
		"autofade.trigger_lead":       f.triggerLead,
		"autofade.switch_timing":      f.switchTiming,
		"autofade.curve":              f.curve,
		"autofade.transition_effect":  f.effect,
	}

	check := cfg.AutoFade
	check.Enabled = f.enabled
	check.AutoActivateNext = &f.activateNext
	check.Curve = f.curve
	check.TransitionEffect = f.effect
	var err error
	if check.Duration, err = strconv.ParseFloat(f.duration, 64); err != nil {
		return nil, fmt.Errorf("duration: %w", err)
	}
	if check.TriggerLead, err = strconv.ParseFloat(f.triggerLead, 64); err != nil {
		return nil, fmt.Errorf("trigger lead: %w", err)
	}
	if check.SwitchTiming, err = strconv.ParseFloat(f.switchTiming, 64); err != nil {
		return nil, fmt.Errorf("switch timing: %w", err)
	}
	if _, err := autofade.FromConfig(check); err != nil {
		return nil, err
	}
	return out, nil
}

func runAutofadeSetup(cmd *cobra.Command, args []string) error {
	f := newAutofadeForm(cfg.AutoFade)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable auto-crossfade on start?").
				Value(&f.enabled),
			huh.NewInput().
				Title("Fade duration (seconds)").
				Value(&f.duration).
				Validate(positiveFloat),
			huh.NewInput().
				Title("Trigger lead (seconds before the end)").
				Value(&f.triggerLead).
				Validate(positiveFloat),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Fade curve").
				Options(huh.NewOptions("linear", "smooth", "power")...).
				Value(&f.curve),
			huh.NewInput().
				Title("Switch timing (fraction of the fade)").
				Description("The incoming deck takes over the player at this point").
				Value(&f.switchTiming).
				Validate(unitFloat),
			huh.NewConfirm().
				Title("Activate the next deck automatically?").
				Value(&f.activateNext),
			huh.NewSelect[string]().
				Title("Effect on the outgoing deck").
				Options(effectOptions()...).
				Value(&f.effect),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}

	settings, err := f.settings()
	if err != nil {
		return err
	}
	path := getConfigPath()
	if err := updateConfigFile(path, settings); err != nil {
		return err
	}

	fmt.Printf("Saved auto-crossfade settings to %s\n", path)
	return nil
}

func effectOptions() []huh.Option[string] {
	names := []string{"none"}
	for _, k := range effects.Kinds {
		names = append(names, k.String())
	}
	return huh.NewOptions(names...)
}

func scaleDuration(d time.Duration, f float64) time.Duration {
	return time.Duration(float64(d) * f).Round(time.Millisecond)
}

func positiveFloat(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number")
	}
	if v <= 0 {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

func unitFloat(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number")
	}
	if v <= 0 || v >= 1 {
		return fmt.Errorf("must be between 0 and 1")
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
