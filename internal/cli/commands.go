package cli

import (
	"io"
	"strings"

	"github.com/specialistvlad/pipecheck/internal/dataset"
	"github.com/specialistvlad/pipecheck/internal/validate"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const idUsage = `Data ID selector, e.g. "visit=12345 ccd=1..3^7". Repeat to select more.`

func newCalibValidationCmd(out io.Writer, v *viper.Viper) *cobra.Command {
	var ids []string
	var calibToTest string

	calibNames := make([]string, 0, 4)
	for _, k := range dataset.CalibKinds() {
		calibNames = append(calibNames, k.String())
	}

	cmd := &cobra.Command{
		Use:   "calibValidation REPO",
		Short: "Check that master calibrations are ingested, float-valued and non-degenerate.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := dataset.ParseCalibKind(calibToTest)
			if err != nil {
				return usageError(err)
			}
			return runTask(cmd.Context(), out, v, args[0], ids, validate.CalibValidation{Calib: kind})
		},
	}
	cmd.Flags().StringArrayVar(&ids, "id", nil, idUsage)
	cmd.Flags().StringVar(&calibToTest, "calibToTest", "",
		"Calibration type to validate. Options: "+strings.Join(calibNames, ", ")+".")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("calibToTest")
	return cmd
}

func newProcessCcdValidationCmd(out io.Writer, v *viper.Viper) *cobra.Command {
	var ids []string

	cmd := &cobra.Command{
		Use:   "processCcdValidation REPO",
		Short: "Check the exposures and catalogs written by CCD processing.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTask(cmd.Context(), out, v, args[0], ids, validate.ProcessCcdValidation{})
		},
	}
	cmd.Flags().StringArrayVar(&ids, "id", nil, idUsage)
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
