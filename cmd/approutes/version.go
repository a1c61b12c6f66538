package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/approutes/internal/config"
	"github.com/vango-dev/approutes/pkg/router"
)

// versionOutput is the build of the CLI plus the defaults it resolves with
// when no config file overrides them.
type versionOutput struct {
	Version           string   `json:"version"`
	Commit            string   `json:"commit"`
	Built             string   `json:"built"`
	Go                string   `json:"go"`
	Platform          string   `json:"platform"`
	PageExtensions    []string `json:"pageExtensions"`
	ConfigFiles       []string `json:"configFiles"`
	NotFoundComponent string   `json:"notFoundComponent"`
}

func currentVersion() versionOutput {
	return versionOutput{
		Version:           version,
		Commit:            commit,
		Built:             date,
		Go:                runtime.Version(),
		Platform:          runtime.GOOS + "/" + runtime.GOARCH,
		PageExtensions:    append([]string(nil), config.DefaultPageExtensions...),
		ConfigFiles:       append([]string(nil), config.ConfigFileNames...),
		NotFoundComponent: router.DefaultNotFoundComponent,
	}
}

func versionCmd() *cobra.Command {
	var (
		short  bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version and resolver defaults",
		Long: `Print the approutes build along with the defaults routes are resolved
with: the page extensions, the config files looked up in the project
directory, and the component used for the root not-found fallback.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := currentVersion()
			switch {
			case short:
				fmt.Println(v.Version)
				return nil
			case asJSON:
				return printJSON(v)
			}

			printBanner()
			fmt.Println()
			fmt.Printf("  Version:    %s (%s, %s)\n", v.Version, v.Commit, v.Built)
			fmt.Printf("  Go:         %s %s\n", v.Go, v.Platform)
			fmt.Println()
			fmt.Printf("  Extensions: %s\n", extensionList(v.PageExtensions))
			fmt.Printf("  Config:     %s\n", strings.Join(v.ConfigFiles, ", "))
			fmt.Printf("  Not found:  %s\n", v.NotFoundComponent)
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only the version number")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")

	return cmd
}

// extensionList renders extensions the way they appear on disk: ".tsx .ts".
func extensionList(exts []string) string {
	dotted := make([]string, len(exts))
	for i, ext := range exts {
		dotted[i] = "." + ext
	}
	return strings.Join(dotted, " ")
}
