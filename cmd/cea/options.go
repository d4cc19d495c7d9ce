package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// options holds the flag values cobra parsed, before any config-file/env
// layering (internal/config owns that; these are the overrides a flag
// takes precedence over).
type options struct {
	prompt       string
	model        string
	think        bool
	toolFallback bool
	resume       string
	persist      bool
	maxCostUSD   float64
	maxSteps     int
	restricted   bool
}

func optionsFromFlags(cmd *cobra.Command) (options, error) {
	flags := cmd.Flags()

	var o options
	var err error
	if o.prompt, err = flags.GetString("prompt"); err != nil {
		return options{}, err
	}
	if o.prompt == "" {
		return options{}, fmt.Errorf("cea: -p/--prompt is required")
	}
	if o.model, err = flags.GetString("model"); err != nil {
		return options{}, err
	}
	if o.think, err = flags.GetBool("think"); err != nil {
		return options{}, err
	}
	if o.toolFallback, err = flags.GetBool("tool-fallback"); err != nil {
		return options{}, err
	}
	if o.resume, err = flags.GetString("resume"); err != nil {
		return options{}, err
	}
	if o.persist, err = flags.GetBool("persist"); err != nil {
		return options{}, err
	}
	if o.maxCostUSD, err = flags.GetFloat64("max-cost-usd"); err != nil {
		return options{}, err
	}
	if o.maxSteps, err = flags.GetInt("max-steps"); err != nil {
		return options{}, err
	}
	if o.restricted, err = flags.GetBool("restricted"); err != nil {
		return options{}, err
	}
	return o, nil
}
