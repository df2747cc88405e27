package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"optable/adscript/pkg/policy"
)

var validateFlags struct {
	rulesOnly bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and policy rules",
	Long: `Check the configuration file and the policy rules file without
starting the server.

The validate command loads the configuration the same way "adscript run"
does, including environment variable overrides, and then parses the policy
rules file it points at. It reports the first problem it finds.

Examples:
  # Validate the default config
  adscript validate

  # Validate a specific config
  adscript validate --config /etc/adscript/config.yaml

  # Only check the policy rules file
  adscript validate --rules-only`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateFlags.rulesOnly, "rules-only", false, "skip config checks, only validate the rules file")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !validateFlags.rulesOnly {
		fmt.Printf("✓ Configuration valid: %s\n", cfgFile)
	}

	if cfg.Policy.Git.Enabled {
		fmt.Printf("✓ Policy rules sourced from git: %s (%s)\n",
			cfg.Policy.Git.Repository, cfg.Policy.Git.Branch)
		return nil
	}

	rules, err := loadRuleSet(cfg.Policy.RulesPath)
	if err != nil {
		return err
	}

	def := rules.Default
	if def == "" {
		def = policy.EffectAllow
	}
	fmt.Printf("✓ Policy rules valid: %s (%d rules, default %s)\n",
		cfg.Policy.RulesPath, len(rules.Rules), def)
	return nil
}

// loadRuleSet parses and validates the rules file without installing it as
// the active gate.
func loadRuleSet(path string) (*policy.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %q: %w", path, err)
	}

	var rules policy.RuleSet
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %q: %w", path, err)
	}

	if _, err := policy.NewStaticRuleGate(&rules, nil); err != nil {
		return nil, fmt.Errorf("invalid rules file %q: %w", path, err)
	}
	return &rules, nil
}
