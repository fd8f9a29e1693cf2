package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mavplan/internal/config"
	"mavplan/internal/display"
	"mavplan/internal/mission"
	"mavplan/internal/session"
	"mavplan/internal/units"
)

const maxParallelValidations = 4

var (
	validateMode string
	validateHome string
	validateJSON bool
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Check mission files against the mission rules",
	Long: `Validate one or more mission files (internal or MAVLink JSON) with the
final-check rules of the chosen mode. Exits non-zero if any mission is not
valid.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		mode, err := parseMode(validateMode)
		if err != nil {
			return err
		}
		home, err := parseHome(validateHome)
		if err != nil {
			return err
		}

		reports, err := validateFiles(cfg.Agent, mode, home, args)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if validateJSON {
			if err := writeJSON(out, reports); err != nil {
				return err
			}
		} else {
			for _, r := range reports {
				fmt.Fprintln(out, display.FormatValidationReport(r.File, r.Validation, r.Summary))
			}
		}

		invalid := 0
		for _, r := range reports {
			if !r.Validation.Valid {
				invalid++
			}
		}
		if invalid > 0 {
			return fmt.Errorf("%d of %d mission(s) are not valid", invalid, len(reports))
		}
		return nil
	},
}

type validationReport struct {
	File       string             `json:"file"`
	Format     string             `json:"format"`
	Validation session.Validation `json:"validation"`
	Summary    session.Summary    `json:"summary"`
}

// validateFiles checks files concurrently. Reports keep argument order; the
// first unreadable file fails the batch.
func validateFiles(rules config.Agent, mode mission.Mode, home *units.LatLon, files []string) ([]validationReport, error) {
	reports := make([]validationReport, len(files))
	var g errgroup.Group
	g.SetLimit(maxParallelValidations)
	for i, file := range files {
		g.Go(func() error {
			m, format, err := readMissionFile(file)
			if err != nil {
				return err
			}
			v, s := session.Check(m, mode, rules, home)
			reports[i] = validationReport{File: file, Format: format, Validation: v, Summary: s}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

var (
	convertTo  string
	convertOut string
)

var convertCmd = &cobra.Command{
	Use:   "convert FILE",
	Short: "Convert a mission between the internal and MAVLink JSON forms",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, from, err := readMissionFile(args[0])
		if err != nil {
			return err
		}
		to := convertTo
		if strings.TrimSpace(to) == "" {
			to = formatMAVLink
			if from == formatMAVLink {
				to = formatInternal
			}
		}
		out, err := encodeMission(m, to)
		if err != nil {
			return err
		}
		if convertOut == "" {
			return writeJSON(cmd.OutOrStdout(), out)
		}
		f, err := os.Create(convertOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", convertOut, err)
		}
		defer f.Close()
		return writeJSON(f, out)
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateMode, "mode", "m", string(mission.ModeMission), "mission or command")
	validateCmd.Flags().StringVar(&validateHome, "home", "", "home position as lat,lon")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "print reports as JSON")

	convertCmd.Flags().StringVarP(&convertTo, "to", "t", "", "target format: mavlink or internal (default: the other one)")
	convertCmd.Flags().StringVarP(&convertOut, "output", "o", "", "output file (default stdout)")
}
