package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// The flagOrViper helpers resolve a setting: an explicitly set flag wins,
// then viper (environment, config file, default), then the flag default.
// A nil viper skips straight to the flag.

func flagOrViperString(cmd *cobra.Command, flagName string, v *viper.Viper, key string) string {
	val, _ := cmd.Flags().GetString(flagName)
	if cmd.Flags().Changed(flagName) {
		return val
	}
	if key != "" && v != nil && v.IsSet(key) {
		return v.GetString(key)
	}
	return val
}

func flagOrViperBool(cmd *cobra.Command, flagName string, v *viper.Viper, key string) bool {
	val, _ := cmd.Flags().GetBool(flagName)
	if cmd.Flags().Changed(flagName) {
		return val
	}
	if key != "" && v != nil && v.IsSet(key) {
		return v.GetBool(key)
	}
	return val
}

func flagOrViperInt(cmd *cobra.Command, flagName string, v *viper.Viper, key string) int {
	val, _ := cmd.Flags().GetInt(flagName)
	if cmd.Flags().Changed(flagName) {
		return val
	}
	if key != "" && v != nil && v.IsSet(key) {
		return v.GetInt(key)
	}
	return val
}

// flagOrViperList resolves a list setting. Entries may themselves be
// comma-separated, as they are when the list comes from an environment
// variable.
func flagOrViperList(cmd *cobra.Command, flagName string, v *viper.Viper, key string) []string {
	val, _ := cmd.Flags().GetStringSlice(flagName)
	if !cmd.Flags().Changed(flagName) && key != "" && v != nil && v.IsSet(key) {
		val = v.GetStringSlice(key)
	}
	return splitList(val)
}

func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
