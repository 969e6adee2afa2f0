// textrans translates text files and source code comments through AI and
// machine translation providers, chunk by chunk, keeping the original order.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/minios-linux/textrans/config"
	"github.com/minios-linux/textrans/dispatch"
	"github.com/minios-linux/textrans/i18n"
	"github.com/minios-linux/textrans/job"
	"github.com/minios-linux/textrans/langmeta"
	"github.com/minios-linux/textrans/memo"
	"github.com/minios-linux/textrans/segment"
	"github.com/minios-linux/textrans/settings"
	"github.com/minios-linux/textrans/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flag
// ---------------------------------------------------------------------------

var configPath string

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "textrans",
		Short: "Translate text files and code comments with AI providers",
		Long: `textrans: chunked translation of text files and source code comments.

Plain text is split into chunks at sentence boundaries. In code mode only
comments and docstrings are translated; code and string literals are kept
byte for byte. Chunks are translated concurrently with bounded retries and
reassembled in their original order.

Commands:
  translate   Translate one or more files
  languages   List known language codes
  auth        Manage provider API keys
  version     Show version information

Providers:
  google            Google AI (Gemini), API key
  groq              Groq, API key
  openai            OpenAI, API key
  anthropic         Anthropic, API key
  opencode          OpenCode (multi-format dispatcher)
  ollama            Ollama local server
  custom-openai     Custom OpenAI-compatible endpoint
  google-translate  Google Cloud Translation v2, API key, no model`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ./"+config.FileName+" if present)")

	root.AddCommand(
		newTranslateCmd(),
		newLanguagesCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("textrans version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
			fmt.Printf("  locale:    %s\n", i18n.Lang())
		},
	}
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

type translateArgs struct {
	from, to                                string
	mode, grammar                           string
	provider, apiKey, model, baseURL, proxy string
	prompt                                  string
	chunkSize, concurrency, maxRetries      int
	maxFailures                             int
	retryDelay, timeout                     time.Duration
	output, memory                          string
	langSuffix, dryRun, verbose             bool
}

// providerFlags returns the flags that select and configure a provider.
func providerFlags(a *translateArgs) *pflag.FlagSet {
	fs := pflag.NewFlagSet("provider", pflag.ContinueOnError)
	fs.StringVar(&a.provider, "provider", "", "Provider: "+strings.Join(translate.ProviderIDs(), ", ")+", or an endpoint URL")
	fs.StringVar(&a.model, "model", "", "Model name (not needed for google-translate)")
	fs.StringVar(&a.apiKey, "api-key", "", "API key (or "+settings.EnvAPIKey+" env var)")
	fs.StringVar(&a.baseURL, "base-url", "", "Custom API base URL")
	fs.StringVar(&a.proxy, "proxy", "", "HTTP/HTTPS proxy URL")
	fs.StringVar(&a.prompt, "prompt", "", "Custom system prompt ({{sourceLang}} and {{targetLang}} placeholders)")
	return fs
}

// dispatchFlags returns the flags that tune chunking and the worker pool.
func dispatchFlags(a *translateArgs) *pflag.FlagSet {
	fs := pflag.NewFlagSet("dispatch", pflag.ContinueOnError)
	fs.IntVar(&a.chunkSize, "chunk-size", segment.DefaultMaxChunkSize, "Maximum chunk size in characters")
	fs.IntVar(&a.concurrency, "concurrency", dispatch.DefaultConcurrency, "Number of concurrent requests")
	fs.IntVar(&a.maxRetries, "max-retries", dispatch.DefaultMaxRetries, "Retries per chunk after the first attempt")
	fs.DurationVar(&a.retryDelay, "retry-delay", dispatch.DefaultRetryDelay, "Base delay of the exponential backoff")
	fs.DurationVar(&a.timeout, "timeout", dispatch.DefaultCallTimeout, "Timeout of a single translation call")
	fs.IntVar(&a.maxFailures, "max-failures", 0, "Abort when more chunks than this fail (0 = never)")
	return fs
}

func newTranslateCmd() *cobra.Command {
	a := &translateArgs{}

	cmd := &cobra.Command{
		Use:   "translate FILE...",
		Short: "Translate files",
		Long: `Translate text files or the comments of source files.

Each file is written next to the input as <name>_translated<ext>
(<name>_translated_<LANG><ext> with --lang-suffix) unless --output is given.
Nothing is written when the run is interrupted.

Examples:
  # Translate a text file into German
  textrans translate --provider google --model gemini-2.5-flash --to de notes.txt

  # Translate the comments of a Python script from Russian to English
  textrans translate --provider groq --model llama-3.3-70b-versatile \
      --from ru --to en --mode code tool.py

  # Machine translation without an LLM
  textrans translate --provider google-translate --to fr README.txt

  # Show how the files would be chunked
  textrans translate --to de --dry-run *.py`,
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := runTranslate(cmd.Flags(), a, args); err != nil {
				logError("%v", err)
				os.Exit(1)
			}
		},
	}

	// Languages
	cmd.Flags().StringVar(&a.from, "from", langmeta.Auto, "Source language code or name (auto = detect)")
	cmd.Flags().StringVar(&a.to, "to", "", "Target language code or name (required)")

	// Segmentation
	cmd.Flags().StringVar(&a.mode, "mode", "auto", "Segmentation mode: plain, code, auto")
	cmd.Flags().StringVar(&a.grammar, "grammar", "", "Comment grammar for code mode (default: by file extension)")

	cmd.Flags().AddFlagSet(providerFlags(a))
	cmd.Flags().AddFlagSet(dispatchFlags(a))

	// Output
	cmd.Flags().StringVarP(&a.output, "output", "o", "", "Output file (single input only)")
	cmd.Flags().BoolVar(&a.langSuffix, "lang-suffix", false, "Append the target language to output file names")
	cmd.Flags().StringVar(&a.memory, "memory", "", "Translation memory file or directory")
	cmd.Flags().BoolVar(&a.dryRun, "dry-run", false, "Show chunk counts without calling the provider")
	cmd.Flags().BoolVar(&a.verbose, "verbose", false, "Enable detailed logging")

	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		defaults := translate.DefaultProviders()
		out := make([]string, 0, len(defaults))
		for _, id := range translate.ProviderIDs() {
			out = append(out, id+"\t"+defaults[id].Name)
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})

	_ = cmd.RegisterFlagCompletionFunc("model", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		p, _ := cmd.Flags().GetString("provider")
		switch p {
		case translate.ProviderGoogle:
			return []string{"gemini-2.5-flash", "gemini-2.0-flash", "gemini-1.5-pro"}, cobra.ShellCompDirectiveNoFileComp
		case translate.ProviderGroq:
			return []string{"llama-3.3-70b-versatile", "mixtral-8x7b-32768"}, cobra.ShellCompDirectiveNoFileComp
		case translate.ProviderOpenAI:
			return []string{"gpt-4o", "gpt-4o-mini"}, cobra.ShellCompDirectiveNoFileComp
		case translate.ProviderAnthropic:
			return []string{"claude-sonnet-4-5", "claude-haiku-4-5"}, cobra.ShellCompDirectiveNoFileComp
		case translate.ProviderOpenCode:
			return []string{"big-pickle", "gemini-2.5-flash", "claude-sonnet-4.5", "gpt-4o"}, cobra.ShellCompDirectiveNoFileComp
		case translate.ProviderOllama:
			return []string{"llama3.2", "qwen2.5", "mistral", "phi3"}, cobra.ShellCompDirectiveNoFileComp
		default:
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
	})

	langCompletion := func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		codes := langmeta.Codes()
		out := make([]string, 0, len(codes))
		for _, c := range codes {
			out = append(out, c+"\t"+langmeta.EnglishName(c))
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
	_ = cmd.RegisterFlagCompletionFunc("from", langCompletion)
	_ = cmd.RegisterFlagCompletionFunc("to", langCompletion)

	_ = cmd.RegisterFlagCompletionFunc("mode", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto\tby file extension", "plain\tprose", "code\tcomments only"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("grammar", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return segment.GrammarNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// loadConfig reads --config, or .textrans.yaml from the working directory.
func loadConfig() (*config.File, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.Find(".")
}

// applyConfig copies config values into a for every flag the user did not
// set, so flags win over the config file and the file wins over defaults.
func applyConfig(flags *pflag.FlagSet, a *translateArgs, cfg *config.File) {
	if cfg == nil {
		return
	}
	str := func(name string, dst *string, v string) {
		if v != "" && !flags.Changed(name) {
			*dst = v
		}
	}
	num := func(name string, dst *int, v int) {
		if v != 0 && !flags.Changed(name) {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration, v time.Duration) {
		if v != 0 && !flags.Changed(name) {
			*dst = v
		}
	}

	str("provider", &a.provider, cfg.Provider)
	str("model", &a.model, cfg.Model)
	str("base-url", &a.baseURL, cfg.BaseURL)
	str("proxy", &a.proxy, cfg.Proxy)
	str("from", &a.from, cfg.From)
	str("to", &a.to, cfg.To)
	str("mode", &a.mode, cfg.Mode)
	str("grammar", &a.grammar, cfg.Grammar)
	str("memory", &a.memory, cfg.Memory)
	str("prompt", &a.prompt, cfg.Prompt)
	num("chunk-size", &a.chunkSize, cfg.ChunkSize)
	num("concurrency", &a.concurrency, cfg.Concurrency)
	num("max-failures", &a.maxFailures, cfg.MaxFailures)
	dur("retry-delay", &a.retryDelay, cfg.RetryDelay)
	dur("timeout", &a.timeout, cfg.Timeout)

	if cfg.MaxRetries != nil && !flags.Changed("max-retries") {
		a.maxRetries = *cfg.MaxRetries
	}
	if cfg.LangSuffix && !flags.Changed("lang-suffix") {
		a.langSuffix = true
	}
}

// dispatchRetries maps the --max-retries value onto dispatch.Options, where
// zero selects the default.
func dispatchRetries(n int) int {
	if n <= 0 {
		return -1
	}
	return n
}

// progressDue reports whether done/total crosses a tenth of the work.
func progressDue(done, total int) bool {
	step := total / 10
	if step < 1 {
		step = 1
	}
	return done == total || done%step == 0
}

// attemptLine formats a failed attempt for the log.
func attemptLine(index, attempt, maxAttempts int, err error) string {
	return fmt.Sprintf("chunk=%d attempt=%d/%d err=%v", index, attempt, maxAttempts, err)
}

// checkInputs verifies every input is a readable regular file before any
// chunking happens.
func checkInputs(paths []string) error {
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return &job.IOError{Op: "stat", Path: p, Err: err}
		}
		if fi.IsDir() {
			return &job.IOError{Op: "read", Path: p, Err: errors.New("is a directory")}
		}
	}
	return nil
}

// resolveProvider builds the provider from flags, environment and the
// credential store.
func resolveProvider(a *translateArgs) (translate.Provider, error) {
	if a.provider == "" {
		return translate.Provider{}, fmt.Errorf("no provider specified. Use --provider to choose a translation service.\n\n"+
			"Available providers:\n  %s\n\n"+
			"Example: textrans translate --provider google --model gemini-2.5-flash --to de FILE",
			strings.Join(translate.ProviderIDs(), "\n  "))
	}

	prov := translate.ResolveProvider(a.provider, a.baseURL, "", a.model, a.proxy, 0)
	prov.APIKey = settings.ResolveAPIKey(prov.ID, a.apiKey)
	if prov.BaseURL == "" {
		prov.BaseURL = settings.ResolveBaseURL(prov.ID, "")
	}
	if a.timeout > prov.Timeout {
		prov.Timeout = a.timeout
	}
	return prov, translate.Validate(prov)
}

func runTranslate(flags *pflag.FlagSet, a *translateArgs, files []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg != nil {
		if err := cfg.RegisterGrammars(); err != nil {
			return fmt.Errorf("%s: %w", cfg.Path(), err)
		}
		applyConfig(flags, a, cfg)
		if a.verbose {
			logInfo("Config: %s", cfg.Path())
		}
	}

	// Validate everything before the first chunk is cut.
	source, err := langmeta.Parse(a.from, true)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	if a.to == "" {
		return errors.New("--to is required (target language code or name)")
	}
	target, err := langmeta.Parse(a.to, false)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}
	if a.chunkSize <= 0 {
		return fmt.Errorf("--chunk-size: %w", segment.ErrInvalidChunkSize)
	}
	if a.output != "" && len(files) > 1 {
		return errors.New("--output can only be used with a single input file")
	}
	if err := checkInputs(files); err != nil {
		return err
	}

	var prov translate.Provider
	if !a.dryRun {
		if prov, err = resolveProvider(a); err != nil {
			return err
		}
		logInfo(i18n.T("Provider: %s (%s), Model: %s"), prov.Name, prov.ID, prov.Model)
	} else {
		logInfo("%s", i18n.T("Dry run: nothing is sent to the provider"))
	}
	logInfo(i18n.T("Translating %s -> %s"), langmeta.EnglishName(source), langmeta.EnglishName(target))

	var mem *memo.Memory
	if a.memory != "" {
		if mem, err = memo.Load(a.memory); err != nil {
			return err
		}
		logInfo(i18n.T("Translation memory: %s"), mem.Path()+" ("+mem.Summary()+")")
	}

	// Setup signal handling for graceful cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logWarning("%s", i18n.T("Interrupted, finishing chunks already in flight..."))
			cancel()
		case <-ctx.Done():
		}
	}()

	// One client per mode: code mode uses the comment prompt.
	clients := make(map[segment.Mode]*translate.Client)
	clientFor := func(mode segment.Mode) (*translate.Client, error) {
		if a.dryRun {
			return nil, nil
		}
		if c, ok := clients[mode]; ok {
			return c, nil
		}
		b, err := translate.NewBackend(prov, translate.PromptOptions{
			SystemPrompt: a.prompt,
			Code:         mode == segment.ModeCode,
		})
		if err != nil {
			return nil, err
		}
		b.Verbose = a.verbose
		c := translate.NewClient(b)
		clients[mode] = c
		return c, nil
	}

	failedFiles := 0
	for _, file := range files {
		mode, grammar, err := job.ResolveMode(file, a.mode, a.grammar)
		if err != nil {
			return err
		}

		j := job.New(file, source, target)
		j.Mode, j.Grammar = mode, grammar
		j.MaxChunkSize = a.chunkSize
		j.DryRun = a.dryRun
		j.OutputPath = job.OutputPath(file, target, a.langSuffix)
		if a.output != "" {
			j.OutputPath = a.output
		}
		j.Dispatch = dispatch.Options{
			Concurrency: a.concurrency,
			MaxRetries:  dispatchRetries(a.maxRetries),
			RetryDelay:  a.retryDelay,
			CallTimeout: a.timeout,
			MaxFailures: a.maxFailures,
		}
		maxAttempts := j.Dispatch.MaxAttempts()
		j.Dispatch.OnAttempt = func(index, attempt int, err error) {
			logWarning("%s", attemptLine(index, attempt, maxAttempts, err))
		}
		verbose := a.verbose
		j.Dispatch.OnProgress = func(done, total int) {
			if verbose || progressDue(done, total) {
				logInfo("  %s: %d/%d", file, done, total)
			}
		}
		if a.verbose {
			j.Dispatch.OnLog = logInfo
		}

		client, err := clientFor(mode)
		if err != nil {
			return err
		}
		runner := &job.Runner{Client: client, Memory: mem, OnLog: logWarning}

		rep, err := runner.Run(ctx, j)
		if ctx.Err() != nil {
			logWarning("%s", i18n.T("Translation interrupted, no output written"))
			if mem != nil {
				logInfo(i18n.T("Translation memory: %s"), mem.Path()+" ("+mem.Summary()+")")
			}
			return ctx.Err()
		}
		if err != nil {
			logError("%s: %v", file, err)
			failedFiles++
			continue
		}
		reportJob(rep, a.verbose)
	}

	if failedFiles > 0 {
		return fmt.Errorf(i18n.N("%d file failed", "%d files failed", failedFiles), failedFiles)
	}
	if !a.dryRun {
		logSuccess("%s", i18n.T("Translation complete"))
	}
	return nil
}

// reportJob logs the outcome of one file.
func reportJob(rep *job.Report, verbose bool) {
	if !rep.Written {
		text := rep.TextChunks
		logInfo("%s: %s, %d to translate (mode %s)", rep.InputPath,
			fmt.Sprintf(i18n.N("%d chunk", "%d chunks", rep.Chunks), rep.Chunks), text, rep.Mode)
		return
	}

	logSuccess("%s -> %s (%s)", rep.InputPath, rep.OutputPath, rep.Elapsed.Round(time.Millisecond))
	if rep.MemoryHits > 0 {
		logInfo(i18n.N("%d chunk answered from memory", "%d chunks answered from memory", rep.MemoryHits), rep.MemoryHits)
	}
	if n := len(rep.Failed); n > 0 {
		logWarning(i18n.N("%d chunk kept its original text", "%d chunks kept their original text", n), n)
		if verbose {
			for _, r := range rep.Failed {
				logWarning("  chunk=%d attempts=%d err=%v", r.Index, r.Attempts, r.Cause)
			}
		}
	}
}

// ---------------------------------------------------------------------------
// languages
// ---------------------------------------------------------------------------

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "languages",
		Aliases: []string{"langs"},
		Short:   "List known language codes",
		Long: `List the language codes accepted by --from and --to.

Codes are matched case-insensitively; English and native names are accepted
too, so --to french and --to français both select fr.`,
		Run: func(cmd *cobra.Command, args []string) {
			for _, line := range languageLines() {
				fmt.Println(line)
			}
		},
	}
}

// languageLines renders the registry as aligned table rows.
func languageLines() []string {
	codes := langmeta.Codes()
	width := 0
	for _, c := range codes {
		width = max(width, len(c))
	}
	lines := make([]string, 0, len(codes))
	for _, c := range codes {
		m := langmeta.Resolve(c)
		line := fmt.Sprintf("%-*s  %-24s %s", width, c, m.English, m.Native)
		if m.Flag != "" {
			line += " " + m.Flag
		}
		lines = append(lines, line)
	}
	return lines
}

// ---------------------------------------------------------------------------
// auth
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider API keys",
		Long: `Manage API keys for translation providers.

Keys are stored in ` + settings.FilePath() + ` (mode 0600).
The lookup order is --api-key, ` + settings.EnvAPIKey + `, the provider's own
environment variable (GOOGLE_API_KEY, GROQ_API_KEY, ...), then this store.

Examples:
  textrans auth login --provider google          Read a key from stdin
  textrans auth login --provider groq --key KEY  Store a key directly
  textrans auth login --provider custom-openai --base-url http://llm:8080/v1
  textrans auth logout --provider google         Remove one key
  textrans auth logout                           Remove all keys
  textrans auth list                             Show stored keys`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthListCmd(),
	)

	return cmd
}

func providerCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	defaults := translate.DefaultProviders()
	out := make([]string, 0, len(defaults))
	for _, id := range translate.ProviderIDs() {
		if id == translate.ProviderOllama {
			continue
		}
		out = append(out, id+"\t"+defaults[id].Name)
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func newAuthLoginCmd() *cobra.Command {
	var provider, key, baseURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API key",
		Run: func(cmd *cobra.Command, args []string) {
			if err := authLogin(provider, key, baseURL); err != nil {
				logError("%v", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Provider ID (required)")
	cmd.Flags().StringVar(&key, "key", "", "API key (default: read from stdin)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Endpoint URL (custom-openai)")
	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.RegisterFlagCompletionFunc("provider", providerCompletion)

	return cmd
}

func authLogin(provider, key, baseURL string) error {
	prov, ok := translate.DefaultProviders()[provider]
	if !ok {
		return fmt.Errorf("unknown provider '%s' (known: %s)", provider, strings.Join(translate.ProviderIDs(), ", "))
	}
	if prov.ID == translate.ProviderCustomOpenAI && baseURL == "" {
		baseURL = settings.GetBaseURL(prov.ID)
		if baseURL == "" {
			return errors.New("custom-openai needs --base-url")
		}
	}

	if key == "" {
		existing := settings.GetAPIKey(prov.ID)
		if existing != "" {
			fmt.Fprintf(os.Stderr, "  Current key: %s%s%s\n", colorYellow, settings.MaskKey(existing), colorReset)
		}
		fmt.Fprintf(os.Stderr, "  Enter API key for %s: ", prov.Name)
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			key = strings.TrimSpace(scanner.Text())
		}
		if key == "" && translate.NeedsAPIKey(prov.ID) {
			if existing != "" {
				logInfo("Keeping existing key")
				return nil
			}
			return errors.New("no API key provided")
		}
	}

	var err error
	if baseURL != "" {
		err = settings.SetAPIKeyWithBaseURL(prov.ID, key, baseURL)
	} else {
		err = settings.SetAPIKey(prov.ID, key)
	}
	if err != nil {
		return fmt.Errorf("saving API key: %w", err)
	}
	logSuccess("%s API key saved", prov.Name)
	return nil
}

func newAuthLogoutCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		Long: `Remove stored credentials for one or all providers.

If --provider is not specified, credentials for ALL providers are removed.`,
		Run: func(cmd *cobra.Command, args []string) {
			if provider != "" {
				if err := settings.Remove(provider); err != nil {
					logError("Failed to remove %s credentials: %v", provider, err)
					os.Exit(1)
				}
				logSuccess("%s credentials removed", provider)
				return
			}
			if err := settings.RemoveAll(); err != nil {
				logError("Failed to remove credentials: %v", err)
				os.Exit(1)
			}
			logSuccess("All stored credentials removed")
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Provider to logout (default: all)")
	_ = cmd.RegisterFlagCompletionFunc("provider", providerCompletion)

	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show stored credentials and status",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(os.Stderr, "\n%sStored Credentials%s\n", colorBlue, colorReset)
			fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
			for _, line := range credentialLines() {
				fmt.Fprintln(os.Stderr, line)
			}
			fmt.Fprintln(os.Stderr)
		},
	}
}

// credentialLines describes the key status of every provider.
func credentialLines() []string {
	var lines []string
	for _, id := range translate.ProviderIDs() {
		entry := settings.Get(id)
		var status string
		switch {
		case entry != nil && entry.Key != "":
			status = fmt.Sprintf("%sconfigured%s (key: %s)", colorGreen, colorReset, settings.MaskKey(entry.Key))
		case entry != nil && entry.BaseURL != "":
			status = fmt.Sprintf("%sconfigured%s (no key)", colorGreen, colorReset)
		case !translate.NeedsAPIKey(id):
			status = "no key needed"
		default:
			status = fmt.Sprintf("%snot configured%s", colorRed, colorReset)
		}
		if env := settings.EnvVarForProvider(id); env != "" && os.Getenv(env) != "" {
			status += fmt.Sprintf(" [%s set]", env)
		}
		lines = append(lines, fmt.Sprintf("  %-17s %s", id, status))
		if entry != nil && entry.BaseURL != "" {
			lines = append(lines, fmt.Sprintf("  %17s endpoint: %s", "", entry.BaseURL))
		}
	}

	if envKey := os.Getenv(settings.EnvAPIKey); envKey != "" {
		lines = append(lines, fmt.Sprintf("\n  %s: %s%s%s (overrides stored keys)", settings.EnvAPIKey, colorGreen, settings.MaskKey(envKey), colorReset))
	} else {
		lines = append(lines, fmt.Sprintf("\n  %s: %snot set%s", settings.EnvAPIKey, colorRed, colorReset))
	}
	return lines
}
