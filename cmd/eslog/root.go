package main

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/coffersTech/esrestlog/eslog"
	"github.com/coffersTech/esrestlog/internal/consolelog"
)

// newRootCommand constructs the eslog command tree. Global flags fall back
// to ESLOG_* environment variables.
func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "eslog",
		Short:        "Day-bucketed logging to an Elasticsearch-compatible store",
		SilenceUsage: true,
	}

	f := root.PersistentFlags()
	f.String("host", envString("ESLOG_HOST", eslog.DefaultHost), "Store host")
	f.Int("port", envInt("ESLOG_PORT", eslog.DefaultPort), "Store port")
	f.String("scheme", envString("ESLOG_SCHEME", eslog.DefaultScheme), "Store URL scheme")
	f.String("stream", envString("ESLOG_STREAM", eslog.DefaultStreamType), "Stream type embedded in index names")
	f.String("prefix", envString("ESLOG_PREFIX", eslog.DefaultPrefix), "Index name prefix")
	f.String("template-name", envString("ESLOG_TEMPLATE_NAME", eslog.DefaultTemplateName), "Index template name")
	f.String("template-file", envString("ESLOG_TEMPLATE_FILE", ""), "Register this JSON document as the index template")
	f.Bool("compress", envBool("ESLOG_COMPRESS", false), "Gzip request bodies")
	f.Duration("cache-ttl", envDuration("ESLOG_CACHE_TTL", 0), "Skip provisioning checks for this long after a success (0 = always check)")
	f.Bool("quiet", envBool("ESLOG_QUIET", false), "Do not mirror log calls to the console")
	f.String("console-file", envString("ESLOG_CONSOLE_FILE", ""), "Also write mirrored lines to this rotating file")
	f.BoolP("verbose", "v", envBool("ESLOG_VERBOSE", false), "Print provisioning diagnostics")

	root.AddCommand(
		newInitCommand(),
		newLogCommand(),
		newGetCommand(),
		newSearchCommand(),
		newTeardownCommand(),
		newPruneCommand(),
		newDevstoreCommand(),
	)
	return root
}

// newLogger builds a Logger from the global flags. Mirrored lines go to the
// command's output streams.
func newLogger(cmd *cobra.Command) (*eslog.Logger, error) {
	flags := cmd.Flags()
	host, _ := flags.GetString("host")
	port, _ := flags.GetInt("port")
	scheme, _ := flags.GetString("scheme")
	stream, _ := flags.GetString("stream")
	prefix, _ := flags.GetString("prefix")
	templateName, _ := flags.GetString("template-name")
	templateFile, _ := flags.GetString("template-file")
	compress, _ := flags.GetBool("compress")
	cacheTTL, _ := flags.GetDuration("cache-ttl")
	quiet, _ := flags.GetBool("quiet")
	consoleFile, _ := flags.GetString("console-file")
	verbose, _ := flags.GetBool("verbose")

	console, err := consolelog.New(consolelog.Config{
		Out:      cmd.OutOrStdout(),
		Err:      cmd.ErrOrStderr(),
		FilePath: consoleFile,
	})
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := eslog.DefaultOptions()
	opts.Host = host
	opts.Port = port
	opts.Scheme = scheme
	opts.StreamType = stream
	opts.Prefix = prefix
	opts.TemplateName = templateName
	if templateFile != "" {
		body, err := os.ReadFile(templateFile)
		if err != nil {
			return nil, err
		}
		opts.TemplateBody = body
	}
	opts.CompressRequests = compress
	opts.ProvisionCacheTTL = cacheTTL
	opts.DisableConsoleMirror = quiet
	opts.Console = console
	opts.Diagnostics = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return eslog.New(opts)
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return def
}

func envBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return def
}
