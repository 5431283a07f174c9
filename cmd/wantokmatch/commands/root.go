package commands

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hyperjump/wantokmatch/internal/cli"
)

const app = "wantokmatch"

var (
	cfgFile      string
	verbose      bool
	quiet        bool
	outputFormat string

	// settings carries environment and flag overrides on top of the config file.
	settings = viper.New()
)

// apiKeyEnv binds provider keys to their conventional variable names.
var apiKeyEnv = map[string]string{
	"embedding.cohere.api_key":      "COHERE_API_KEY",
	"embedding.huggingface.api_key": "HUGGINGFACE_API_KEY",
	"embedding.openai.api_key":      "OPENAI_API_KEY",
	"embedding.gemini.api_key":      "GEMINI_API_KEY",
}

// NewRootCmd builds the command tree. Each call starts from fresh settings.
func NewRootCmd() *cobra.Command {
	settings = viper.New()
	settings.SetEnvPrefix("WANTOK")
	settings.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	settings.AutomaticEnv()
	for key, env := range apiKeyEnv {
		// Cannot fail: key is non-empty.
		_ = settings.BindEnv(key, env, "WANTOK_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}

	cmd := &cobra.Command{
		Use:   app,
		Short: "Semantic job matching for Papua New Guinea job boards",
		Long: `wantokmatch embeds job postings and job seeker profiles and matches them
by meaning, with Tok Pisin query expansion and a full-text fallback.

Configuration comes from config.yaml (or --config), a .env file, and
WANTOK_* environment variables, in increasing order of precedence.
Provider keys are read from COHERE_API_KEY, HUGGINGFACE_API_KEY,
OPENAI_API_KEY and GEMINI_API_KEY.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := cli.ParseFormat(outputFormat)
			return err
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml when present)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress informational output")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "output format: text or json")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
	_ = settings.BindPFlag("debug", cmd.PersistentFlags().Lookup("verbose"))

	cmd.AddCommand(
		NewServeCmd(),
		NewMCPCmd(),
		NewSearchCmd(),
		NewSimilarCmd(),
		NewMatchJobsCmd(),
		NewMatchCandidatesCmd(),
		NewCompatibilityCmd(),
		NewIndexCmd(),
		NewDeleteCmd(),
		NewClearCmd(),
		NewStatusCmd(),
		NewUsageCmd(),
		NewWatchCmd(),
		NewVersionCmd(),
	)
	return cmd
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

func format() cli.OutputFormat {
	f, _ := cli.ParseFormat(outputFormat)
	return f
}
