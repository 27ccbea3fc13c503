package commands

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ewagner-dev/nestup/pkg/config"
	"github.com/ewagner-dev/nestup/pkg/engine"
	"github.com/ewagner-dev/nestup/pkg/errors"
	"github.com/ewagner-dev/nestup/pkg/filesystem"
	"github.com/ewagner-dev/nestup/pkg/installer"
	"github.com/ewagner-dev/nestup/pkg/report"
	"github.com/ewagner-dev/nestup/pkg/vcs"
)

func newSyncCmd(v *viper.Viper) *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Update subproject checkouts and install reconciled dependencies",
		Long: `sync discovers subprojects under the root path, updates each git
checkout that is cleanly behind its upstream, reconciles every
subproject's requirements against the main project's, and installs the
result into the target environment.

By default this is a preview; pass --execute to apply the changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, v)
		},
	}

	flags := syncCmd.Flags()
	flags.StringP("root-path", "r", ".", "Root directory to scan for subprojects")
	flags.StringP("env-path", "e", "", "Target environment to install packages into")
	flags.Bool("execute", false, "Apply changes instead of previewing them")
	flags.Bool("git-only", false, "Only update checkouts, skip all installs")
	flags.Int("max-depth", config.DefaultMaxDepth, "Maximum discovery depth below the root")
	flags.StringSlice("ignore", config.DefaultIgnore(), "Directory names to skip during discovery")
	flags.Bool("allow-override", false, "Let subproject requirements win version conflicts")
	flags.StringP("format", "f", "text", "Report format (text, yaml, junit)")
	flags.Duration("timeout", config.DefaultBackendTimeout, "Timeout for each git and pip call")

	for _, name := range []string{
		"root-path", "env-path", "execute", "git-only", "max-depth",
		"ignore", "allow-override", "format", "timeout",
	} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	return syncCmd
}

func runSync(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	if cfg.RootPath, err = cfg.AbsRoot(); err != nil {
		return err
	}
	if !cfg.GitOnly {
		if err := installer.ValidateEnv(cfg.EnvPath); err != nil {
			return err
		}
	}

	gitRec := vcs.NewRecorder(vcs.NewShellGit(), cfg.Execute)
	pipRec := installer.NewRecorder(installer.NewPip(), cfg.Execute)

	eng := engine.New(engine.Options{
		Config:    cfg,
		FS:        filesystem.NewOS(),
		VCS:       gitRec,
		Installer: pipRec,
	})
	results, err := eng.Run(cmd.Context())
	if err != nil {
		return err
	}

	rep := report.New(results, cfg.Execute)
	out := cmd.OutOrStdout()
	switch cfg.Format {
	case "yaml":
		err = report.RenderYAML(out, rep)
	case "junit":
		err = report.RenderJUnit(out, rep)
	default:
		color := false
		if f, ok := out.(*os.File); ok {
			color = report.UseColor(f)
		}
		err = report.RenderText(out, rep, color)
	}
	if err != nil {
		return err
	}

	if rep.AllFailed() {
		return errors.New(errors.ErrInternal, "every subproject failed")
	}
	return nil
}
