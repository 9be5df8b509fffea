package cli

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const imageLongDesc string = `Upload a medical image (JPEG or PNG) for a structured
radiology report.

Examples:
  medimentor image chest-xray.png`

func newImageCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "image <path>",
		Short: "Analyze a medical image",
		Long:  imageLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("could not read image %s: %w", path, err)
			}

			// Unknown extensions are left to server-side detection.
			mimeType := mime.TypeByExtension(filepath.Ext(path))

			reply, err := opts.client().AnalyzeImage(contextOf(cmd), filepath.Base(path), mimeType, data)
			return opts.printReply(cmd, reply, err)
		},
	}
}
