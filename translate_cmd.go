package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minios-linux/dstrans/config"
	"github.com/minios-linux/dstrans/dataset"
	"github.com/minios-linux/dstrans/i18n"
	"github.com/minios-linux/dstrans/lambdaapi"
	"github.com/minios-linux/dstrans/langmeta"
	"github.com/minios-linux/dstrans/llm"
	"github.com/minios-linux/dstrans/registry"
	"github.com/minios-linux/dstrans/settings"
	"github.com/minios-linux/dstrans/translate"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// --column flag
// ---------------------------------------------------------------------------

// columnsFlag collects repeated --column name:kind[:key] values.
type columnsFlag []translate.ColumnSpec

var _ pflag.Value = (*columnsFlag)(nil)

func (c *columnsFlag) String() string {
	parts := make([]string, len(*c))
	for i, spec := range *c {
		parts[i] = spec.String()
	}
	return strings.Join(parts, ",")
}

// Set accepts one spec or a comma-separated list of specs.
func (c *columnsFlag) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		spec, err := translate.ParseColumnSpec(part)
		if err != nil {
			return err
		}
		*c = append(*c, spec)
	}
	return nil
}

func (c *columnsFlag) Type() string {
	return "name:kind[:key]"
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

type translateFlags struct {
	// Data
	input, output, csv string
	columns            columnsFlag

	// Languages
	source, target string

	// Backend
	mode                             string
	provider, model, baseURL, apiKey string
	proxy, keepAlive                 string
	timeout                          time.Duration
	maxConcurrent                    int
	temperature                      float64
	maxTokens                        int
	prompt                           string
	function, region                 string
	chunkTokens                      int

	// Batching
	batchSize, workers int
	flatten            bool

	// Registry
	noPush bool
}

func newTranslateCmd() *cobra.Command {
	var f translateFlags

	cmd := &cobra.Command{
		Use:   "translate [input]",
		Short: "Translate dataset columns",
		Long: `Translate declared columns of a dataset.

Settings come from the run file (--config, or ./dstrans.yaml when present)
and can be overridden with flags. Each column is declared as name:kind with
kind one of string, list or dict_list; dict_list columns also name the
string field to translate (name:dict_list:key).

Examples:
  # MS MARCO to Danish with a local vLLM server
  dstrans translate train.jsonl --target da --model google/gemma-3-27b-it \
    --column query:string --column answers:list \
    --column passages:dict_list:passage_text

  # Same columns through a remote translation function
  dstrans translate train.jsonl --target de --mode api \
    --function translator-en-de --column query:string

  # Everything from a run file
  dstrans translate -c msmarco-da.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				f.input = args[0]
			}
			return runTranslate(cmd.Context(), cmd.Flags(), &f)
		},
	}

	flags := cmd.Flags()

	// Data
	flags.StringVarP(&f.input, "input", "i", "", "Dataset to translate (.jsonl or .json)")
	flags.StringVarP(&f.output, "output", "o", "", "Output file (default: <input>.<target>.jsonl)")
	flags.StringVar(&f.csv, "csv", "", "Also export the translated dataset as CSV")
	flags.Var(&f.columns, "column", "Column to translate, repeatable (name:kind[:key])")

	// Languages
	flags.StringVarP(&f.source, "source", "s", "", "Source language code or name (default: en)")
	flags.StringVarP(&f.target, "target", "t", "", "Target language code or name")

	// Backend
	flags.StringVar(&f.mode, "mode", "", "Backend mode: local or api (default: local)")
	flags.StringVar(&f.provider, "provider", "", "Inference server: "+strings.Join(llm.ProviderIDs(), ", ")+" (default: vllm)")
	flags.StringVarP(&f.model, "model", "m", "", "Model to load (local mode)")
	flags.StringVar(&f.baseURL, "base-url", "", "Inference server base URL")
	flags.StringVar(&f.apiKey, "api-key", "", "API key (or "+settings.APIKeyEnv+" env var)")
	flags.StringVar(&f.proxy, "proxy", "", "HTTP/HTTPS proxy URL")
	flags.DurationVar(&f.timeout, "timeout", 0, "Request timeout (0 = provider default)")
	flags.IntVar(&f.maxConcurrent, "max-concurrent", 0, "Concurrent requests per batch (0 = 8)")
	flags.StringVar(&f.keepAlive, "keep-alive", "", "How long Ollama keeps the model loaded")
	flags.Float64Var(&f.temperature, "temperature", 0, "Sampling temperature")
	flags.IntVar(&f.maxTokens, "max-tokens", 0, "Maximum generated tokens per text")
	flags.StringVar(&f.prompt, "prompt", "", "Prompt template ({{sourceLang}}, {{targetLang}}, {{text}})")
	flags.StringVar(&f.function, "function", "", "Translation function name or ARN (api mode)")
	flags.StringVar(&f.region, "region", "", "AWS region (api mode)")
	flags.IntVar(&f.chunkTokens, "chunk-tokens", 0, "Estimated tokens per API request (0 = 3000)")

	// Batching
	flags.IntVar(&f.batchSize, "batch-size", 0, "Rows per batch (default 32)")
	flags.IntVar(&f.workers, "workers", 0, "Batches translated concurrently (default 1)")
	flags.BoolVar(&f.flatten, "flatten-lists", false, "Send each list column as one request per batch")

	// Registry
	flags.BoolVar(&f.noPush, "no-push", false, "Do not upload outputs to the configured registry")

	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"vllm\tvLLM OpenAI-compatible server",
			"ollama\tOllama local server",
			"custom-openai\tCustom OpenAI-compatible endpoint",
		}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("mode", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{config.ModeLocal, config.ModeAPI}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// loadRunFile returns the run file named by --config, ./dstrans.yaml when
// present, or an empty one.
func loadRunFile() (*config.RunFile, error) {
	if runFilePath != "" {
		return config.ReadRunFile(runFilePath)
	}
	rf, err := config.FindRunFile(".")
	if err != nil {
		return nil, err
	}
	if rf == nil {
		rf = &config.RunFile{}
	}
	return rf, nil
}

// applyFlags overrides run file values with the flags that were set.
func applyFlags(rf *config.RunFile, fs *pflag.FlagSet, f *translateFlags) {
	set := func(name string) bool {
		return fs.Changed(name)
	}

	// Paths given on the command line are relative to the working
	// directory, not to the run file.
	if f.input != "" {
		rf.Input = absPath(f.input)
	}
	if set("output") {
		rf.Output = absPath(f.output)
	}
	if set("csv") {
		rf.CSV = absPath(f.csv)
	}
	if len(f.columns) > 0 {
		rf.Columns = append([]translate.ColumnSpec(nil), f.columns...)
	}
	if set("source") {
		rf.SourceLang = f.source
	}
	if set("target") {
		rf.TargetLang = f.target
	}
	if set("batch-size") {
		rf.BatchSize = f.batchSize
	}
	if set("workers") {
		rf.Workers = f.workers
	}
	if set("flatten-lists") {
		rf.FlattenLists = f.flatten
	}
	if set("prompt") {
		rf.Prompt = f.prompt
	}

	b := &rf.Backend
	if set("mode") {
		b.Mode = f.mode
	}
	if set("provider") {
		b.Provider = f.provider
	}
	if set("model") {
		b.Model = f.model
	}
	if set("base-url") {
		b.BaseURL = f.baseURL
	}
	if set("api-key") {
		b.APIKey = f.apiKey
	}
	if set("proxy") {
		b.Proxy = f.proxy
	}
	if set("timeout") {
		b.Timeout = f.timeout
	}
	if set("max-concurrent") {
		b.MaxConcurrent = f.maxConcurrent
	}
	if set("keep-alive") {
		b.KeepAlive = f.keepAlive
	}
	if set("temperature") || set("max-tokens") {
		if b.Sampling == nil {
			s := llm.DefaultSamplingParams()
			b.Sampling = &s
		}
		if set("temperature") {
			b.Sampling.Temperature = f.temperature
		}
		if set("max-tokens") {
			b.Sampling.MaxTokens = f.maxTokens
		}
	}
	if set("function") {
		b.API.Function = f.function
	}
	if set("region") {
		b.API.Region = f.region
	}
	if set("chunk-tokens") {
		b.API.MaxTokens = f.chunkTokens
	}
}

func absPath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func runTranslate(ctx context.Context, fs *pflag.FlagSet, f *translateFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	rf, err := loadRunFile()
	if err != nil {
		return err
	}
	applyFlags(rf, fs, f)
	rf.ApplyDefaults()
	if rf.Backend.Mode == config.ModeLocal && rf.Backend.BaseURL == "" {
		rf.Backend.BaseURL = settings.GetBaseURL(rf.Backend.Provider)
	}
	if err := rf.Validate(); err != nil {
		return err
	}

	logger := newLogger()
	defer func() { _ = logger.Sync() }()
	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))

	inPath := rf.InputPath()
	logInfo(i18n.T("Loading %s"), inPath)
	ds, err := dataset.Load(inPath)
	if err != nil {
		return err
	}
	logInfo(i18n.N("%d row, columns: %s", "%d rows, columns: %s", ds.Len()), ds.Len(), strings.Join(ds.Columns(), ", "))

	cfg, err := buildConfig(ctx, rf, logger)
	if err != nil {
		return err
	}
	cfg.OnProgress = func(done, total int) {
		percent := 100
		if total > 0 {
			percent = done * 100 / total
		}
		fmt.Fprintf(os.Stderr, "\r  %s %d/%d", progressBar(percent, 30), done, total)
		if done >= total {
			fmt.Fprintln(os.Stderr)
		}
	}

	start := time.Now()
	if rf.Backend.Mode == config.ModeLocal {
		logInfo(i18n.T("Loading model %s..."), rf.Backend.Model)
	}
	tr, err := translate.New(ctx, cfg)
	if err != nil {
		return err
	}

	logInfo(i18n.T("Translating %s to %s (%s)"), langmeta.Label(rf.SourceLang), langmeta.Label(rf.TargetLang), describeBackend(rf.Backend))
	for _, spec := range tr.Columns() {
		logInfo("  %s → %s", spec, spec.TranslatedName())
	}
	out, err := tr.Translate(ctx, ds)
	if err != nil {
		if ctx.Err() != nil {
			logWarning(i18n.T("Translation interrupted, nothing was written"))
		}
		if errors.Is(err, translate.ErrUnimplementedBackend) {
			return fmt.Errorf("%w: %s", err, i18n.T("the configured api client cannot translate"))
		}
		return err
	}
	logSuccess(i18n.T("Translated %d rows in %s"), out.Len(), time.Since(start).Round(time.Second))

	files, err := writeOutputs(rf, out)
	if err != nil {
		return err
	}

	if rf.Registry.Enabled() && !f.noPush {
		if err := pushOutputs(ctx, rf.Registry, runID, files, logger); err != nil {
			return err
		}
	}
	return nil
}

// buildConfig turns a validated run file into a translator configuration.
func buildConfig(ctx context.Context, rf *config.RunFile, logger *zap.Logger) (translate.Config, error) {
	cfg := translate.Config{
		Columns:      rf.Columns,
		FlattenLists: rf.FlattenLists,
		BatchSize:    rf.BatchSize,
		Workers:      rf.Workers,
		Logger:       logger,
	}

	b := rf.Backend
	switch b.Mode {
	case config.ModeLocal:
		prov, err := providerFor(b)
		if err != nil {
			return cfg, err
		}
		local := translate.LocalConfig{
			ModelID:  b.Model,
			Loader:   translate.HTTPLoader(prov, logger),
			Sampling: llm.DefaultSamplingParams(),
		}
		if b.Sampling != nil {
			local.Sampling = *b.Sampling
		}
		if rf.Prompt != "" {
			prompt, err := translate.TemplatePrompt(rf.Prompt)
			if err != nil {
				return cfg, err
			}
			local.Prompt = prompt
		}
		// Prompts read better with language names than with codes.
		cfg.SourceLanguage = langmeta.Name(rf.SourceLang)
		cfg.TargetLanguage = langmeta.Name(rf.TargetLang)
		cfg.Backend = local

	case config.ModeAPI:
		client, err := lambdaapi.New(ctx, lambdaapi.Options{
			FunctionName: b.API.Function,
			Region:       b.API.Region,
			MaxTokens:    b.API.MaxTokens,
			Logger:       logger,
		})
		if err != nil {
			return cfg, err
		}
		cfg.SourceLanguage = rf.SourceLang
		cfg.TargetLanguage = rf.TargetLang
		cfg.Backend = translate.RemoteConfig{Client: client}

	default:
		return cfg, fmt.Errorf("unknown backend mode %q", b.Mode)
	}
	return cfg, nil
}

// providerFor resolves the inference server preset and its overrides.
func providerFor(b config.Backend) (llm.Provider, error) {
	prov, err := llm.LookupProvider(b.Provider)
	if err != nil {
		return llm.Provider{}, err
	}
	if b.BaseURL != "" {
		prov.BaseURL = b.BaseURL
	}
	prov.APIKey = settings.ResolveAPIKey(b.Provider, b.APIKey)
	prov.Proxy = b.Proxy
	if b.Timeout > 0 {
		prov.Timeout = b.Timeout
	}
	prov.MaxConcurrent = b.MaxConcurrent
	if b.KeepAlive != "" {
		prov.KeepAlive = b.KeepAlive
	}
	if err := prov.Validate(); err != nil {
		return llm.Provider{}, err
	}
	return prov, nil
}

func describeBackend(b config.Backend) string {
	if b.Mode == config.ModeAPI {
		return fmt.Sprintf("%s %s", b.API.Kind, b.API.Function)
	}
	return fmt.Sprintf("%s %s", b.Provider, b.Model)
}

// writeOutputs saves the translated dataset and the optional CSV export,
// returning the written paths.
func writeOutputs(rf *config.RunFile, ds *dataset.Dataset) ([]string, error) {
	paths := []string{rf.OutputPath()}
	if csvPath := rf.CSVPath(); csvPath != "" {
		paths = append(paths, csvPath)
	}
	for _, p := range paths {
		if err := dataset.Save(p, ds); err != nil {
			return nil, err
		}
		logSuccess(i18n.T("Wrote %s"), p)
	}
	return paths, nil
}

// pushOutputs uploads the written files to the registry. Missing keys are
// taken from the credential store.
func pushOutputs(ctx context.Context, cfg registry.Config, runID string, files []string, logger *zap.Logger) error {
	if cfg.AccessKey == "" && cfg.SecretKey == "" {
		if access, secret, ok := settings.GetRegistryKeys(); ok {
			cfg.AccessKey, cfg.SecretKey = access, secret
		}
	}
	reg, err := registry.New(ctx, cfg, registry.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	keys, err := reg.Push(ctx, runID, files)
	for _, key := range keys {
		logSuccess(i18n.T("Uploaded s3://%s/%s"), reg.Bucket(), key)
	}
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	return nil
}
