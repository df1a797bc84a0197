package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inov8tr/ecolab/internal/archive"
	"github.com/inov8tr/ecolab/internal/extract"
	"github.com/inov8tr/ecolab/internal/lifecycle"
	"github.com/inov8tr/ecolab/internal/llm"
	"github.com/inov8tr/ecolab/internal/models"
	"github.com/inov8tr/ecolab/internal/output"
	"github.com/inov8tr/ecolab/internal/store"
	"github.com/inov8tr/ecolab/internal/telemetry"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore *store.SQLStore
	publisher archive.Publisher
	service   *lifecycle.Service

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "ecolab",
	Short: "Binder test curation - parse, confirm, summarize and review lab results",
	Long: `ecolab curates asphalt binder test results.
It parses data files into metrics, gates them behind technician confirmation,
freezes confirmed metrics into versioned summaries, tracks peer review and
keeps an audit ledger of every change.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/ecolab/config.yaml)")
	rootCmd.PersistentFlags().String("user", "", "Acting user id recorded in the audit ledger")
	rootCmd.PersistentFlags().String("role", "", "Acting user role recorded in the audit ledger")
	_ = viper.BindPFlag("actor.user_id", rootCmd.PersistentFlags().Lookup("user"))
	_ = viper.BindPFlag("actor.role", rootCmd.PersistentFlags().Lookup("role"))
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "ecolab")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ECOLAB")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	home, _ := os.UserHomeDir()
	setDefaults(filepath.Join(home, ".config", "ecolab"))

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers every config key's default, rooted at stateDir.
func setDefaults(stateDir string) {
	viper.SetDefault("state_dir", stateDir)
	viper.SetDefault("db.driver", string(store.DriverSQLite))
	viper.SetDefault("db.path", filepath.Join(stateDir, "ecolab.db"))
	viper.SetDefault("db.dsn", "")
	viper.SetDefault("parser.version", extract.DefaultParserVersion)
	viper.SetDefault("summary.namespace", lifecycle.DefaultNamespace)
	viper.SetDefault("archive.driver", string(archive.DriverNone))
	viper.SetDefault("archive.dir", filepath.Join(stateDir, "archive"))
	viper.SetDefault("archive.s3.bucket", "")
	viper.SetDefault("archive.s3.region", "us-east-1")
	viper.SetDefault("archive.s3.endpoint", "")
	viper.SetDefault("archive.s3.path_style", false)
	viper.SetDefault("archive.s3.access_key_id", "")
	viper.SetDefault("archive.s3.secret_access_key", "")
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", llm.DefaultModel)
	viper.SetDefault("port", 8080)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("actor.user_id", "")
	viper.SetDefault("actor.role", "")
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	// Store and service are opened lazily so config/version run without a db.
}

// currentActor returns the identity recorded on mutations made from the CLI.
func currentActor() models.Actor {
	a := models.Actor{
		UserID: viper.GetString("actor.user_id"),
		Role:   viper.GetString("actor.role"),
	}
	if a.UserID == "" {
		a.UserID = os.Getenv("USER")
	}
	return a
}

// getStore returns the shared store, initializing it on first call.
func getStore() (*store.SQLStore, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	ctx := context.Background()
	s, err := store.Open(ctx, store.Config{
		Driver: store.Driver(viper.GetString("db.driver")),
		Path:   viper.GetString("db.path"),
		DSN:    viper.GetString("db.dsn"),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// getPublisher returns the shared summary archive, configured on first call.
func getPublisher() (archive.Publisher, error) {
	if publisher != nil {
		return publisher, nil
	}
	p, err := archive.New(context.Background(), archive.Config{
		Driver: archive.Driver(viper.GetString("archive.driver")),
		Dir:    viper.GetString("archive.dir"),
		S3: archive.S3Config{
			Bucket:    viper.GetString("archive.s3.bucket"),
			Region:    viper.GetString("archive.s3.region"),
			Endpoint:  viper.GetString("archive.s3.endpoint"),
			PathStyle: viper.GetBool("archive.s3.path_style"),

			AccessKeyID:     viper.GetString("archive.s3.access_key_id"),
			SecretAccessKey: viper.GetString("archive.s3.secret_access_key"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("configure archive: %w", err)
	}
	publisher = p
	return publisher, nil
}

// getService returns the shared lifecycle service, wiring its collaborators
// from config on first call. rec may be nil.
func getService(rec telemetry.Recorder) (*lifecycle.Service, error) {
	if service != nil {
		return service, nil
	}
	s, err := getStore()
	if err != nil {
		return nil, err
	}

	pub, err := getPublisher()
	if err != nil {
		return nil, err
	}

	opts := []lifecycle.Option{
		lifecycle.WithExtractor(extract.Placeholder{}),
		lifecycle.WithPublisher(pub),
		lifecycle.WithParserVersion(viper.GetString("parser.version")),
		lifecycle.WithNamespace(viper.GetString("summary.namespace")),
		lifecycle.WithLogger(slog.Default()),
	}
	if d := notesDrafter(); d != nil {
		opts = append(opts, lifecycle.WithNotesDrafter(d))
	}
	if rec != nil {
		opts = append(opts, lifecycle.WithRecorder(rec))
	}

	service = lifecycle.NewService(s, opts...)
	return service, nil
}
