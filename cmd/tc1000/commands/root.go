package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ftl/tc1000/config"
	"github.com/ftl/tc1000/logger"
)

type Info struct {
	Version string `json:"version"`
	Date    string `json:"date"`
}

type rootFlags struct {
	configFile  string
	development bool
	logLevel    string
}

var flags rootFlags

func RootCmd(info Info) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tc1000",
		Short: "Serial bridge for the TC-1000 temperature controller",
		Long: "tc1000 connects to a TC-1000 PID temperature controller on a serial port, shows its\n" +
			"readings and lets you adjust the target temperature and the display unit. The bridge\n" +
			"finds the controller on its own and reconnects whenever the cable is pulled.",
		SilenceUsage: true,
	}

	addRootFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		RunCmd(),
		PortsCmd(),
		SetPortCmd(),
		DecodeCmd(),
		VersionCmd(info),
	)
	return cmd
}

func addRootFlags(fs *pflag.FlagSet) {
	fs.StringVar(&flags.configFile, "config", "", "configuration file (default is ./tc1000.yaml or $HOME/.config/tc1000/tc1000.yaml)")
	fs.BoolVar(&flags.development, "dev", false, "development logging with colored levels and callers")
	fs.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides log.level)")
}

// setup loads the configuration and builds the logger that all commands use.
func setup() (*zap.SugaredLogger, *config.Store, config.Config, error) {
	bootstrap, err := logger.New(flags.logLevel, flags.development)
	if err != nil {
		return nil, nil, config.Config{}, err
	}

	store := config.NewStore(flags.configFile, bootstrap)
	cfg, err := store.Load()
	if err != nil {
		return nil, nil, config.Config{}, err
	}

	level := cfg.Log.Level
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	log, err := logger.New(level, flags.development)
	if err != nil {
		return nil, nil, config.Config{}, fmt.Errorf("%s: %w", config.LogLevelKey, err)
	}
	return log, store.WithLogger(log), cfg, nil
}
