package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"light-translator/src/capture"
	"light-translator/src/config"
	"light-translator/src/dispatch"
	"light-translator/src/gateway"
	"light-translator/src/ocr"
	"light-translator/src/settings"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

type cliOptions struct {
	envFile    string
	jsonOutput bool
	verbose    bool

	filePath string
	outPath  string

	method  string
	headers []string
	data    string
	hasData bool
	proxy   string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args))
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"lt-cli"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "lt-cli",
		Short:         "Exercise the LightTranslator core from a terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Configure logging BEFORE any other operations.
			if !opts.verbose {
				log.SetOutput(io.Discard)
			} else {
				log.SetOutput(os.Stderr)
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "Path to .env configuration file")
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")

	cmd.AddCommand(newProbeCmd(opts), newOCRCmd(opts), newCaptureCmd(opts), newRequestCmd(opts))
	return cmd
}

func newProbeCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Report which OCR tools are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pipeline(opts)
			if err != nil {
				return err
			}
			status := p.ProbeDependencies(cmd.Context())
			if !status.TesseractInstalled || !status.GnomeScreenshotInstalled {
				fmt.Fprintln(cmd.ErrOrStderr(), ocr.InstallHint)
			}
			return writeJSON(cmd.OutOrStdout(), status)
		},
	}
}

func newOCRCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ocr",
		Short: "Recognize text in a PNG image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pipeline(opts)
			if err != nil {
				return err
			}
			return processOCR(cmd.Context(), cmd.OutOrStdout(), p, *opts)
		},
	}
	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to PNG file (use '-' for stdin)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newCaptureCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Select a screen area; write it as PNG or print it as a data URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pipeline(opts)
			if err != nil {
				return err
			}
			img, ok, err := p.CaptureScreen(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.ErrOrStderr(), capture.ErrCancelled)
				return nil
			}
			if opts.outPath == "" {
				fmt.Fprintln(cmd.OutOrStdout(), img)
				return nil
			}
			data, err := base64.StdEncoding.DecodeString(ocr.StripDataURL(img))
			if err != nil {
				return fmt.Errorf("decode capture: %w", err)
			}
			if err := os.WriteFile(opts.outPath, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", opts.outPath, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.outPath, "out", "o", "", "Write the captured PNG to this path")
	return cmd
}

func newRequestCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request <url>",
		Short: "Send an HTTP request through the proxy-aware dispatcher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.hasData = cmd.Flags().Changed("data")
			return runRequest(cmd.Context(), cmd.OutOrStdout(), args[0], *opts)
		},
	}
	cmd.Flags().StringVarP(&opts.method, "request", "X", "GET", "HTTP method")
	cmd.Flags().StringArrayVarP(&opts.headers, "header", "H", nil, "Header as 'Name: value' (repeatable)")
	cmd.Flags().StringVarP(&opts.data, "data", "d", "", "Request body")
	cmd.Flags().StringVar(&opts.proxy, "proxy", "", "Proxy as protocol://[user[:password]@]host:port")
	return cmd
}

func pipeline(opts *cliOptions) (*ocr.Pipeline, error) {
	cfg, err := config.LoadWithOptions(config.LoadOptions{EnvFileOverride: opts.envFile})
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.verbose {
		fmt.Fprintf(os.Stderr, "[verbose] Config loaded: env=%q languages=%v\n", cfg.EnvPath, cfg.OCRLanguages)
	}
	return ocr.NewSystem(gateway.ExecRunner{},
		ocr.WithLanguages(cfg.OCRLanguages),
		ocr.WithScratchDir(cfg.ScratchDir)), nil
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"file", "json", "verbose", "env-file", "proxy", "out"} {
			switch {
			case arg == "-"+name:
				normalized[i] = "--" + name
			case strings.HasPrefix(arg, "-"+name+"="):
				normalized[i] = "--" + arg[1:]
			}
		}
	}

	return normalized
}

// validatePNG enforces the size limit and the PNG signature.
func validatePNG(imageData []byte) error {
	if len(imageData) == 0 {
		return fmt.Errorf("input file is empty")
	}
	if len(imageData) > maxFileSize {
		return fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	if len(imageData) < len(pngMagic) || !bytes.Equal(imageData[:len(pngMagic)], pngMagic) {
		return fmt.Errorf("input is not a valid PNG file (invalid magic number)")
	}
	return nil
}

func readInput(filePath string, verbose bool) ([]byte, error) {
	if filePath == "-" {
		if verbose {
			fmt.Fprintf(os.Stderr, "[verbose] Reading image from stdin\n")
		}
		data, err := io.ReadAll(io.LimitReader(os.Stdin, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return data, nil
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] Reading image from file: %s\n", filePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	return data, nil
}

func processOCR(ctx context.Context, out io.Writer, rec capture.Recognizer, opts cliOptions) error {
	imageData, err := readInput(opts.filePath, opts.verbose)
	if err != nil {
		return err
	}
	if err := validatePNG(imageData); err != nil {
		return err
	}
	if opts.verbose {
		fmt.Fprintf(os.Stderr, "[verbose] PNG validation passed (%d bytes)\n", len(imageData))
	}

	startTime := time.Now()
	outcome, err := rec.OCRImage(ctx, base64.StdEncoding.EncodeToString(imageData))
	elapsed := time.Since(startTime)
	if err != nil {
		return fmt.Errorf("OCR failed: %w", err)
	}
	if !outcome.Success {
		msg := ""
		if outcome.Error != nil {
			msg = strings.TrimSpace(*outcome.Error)
		}
		return fmt.Errorf("OCR failed: %s", msg)
	}

	text := ""
	if outcome.Text != nil {
		text = *outcome.Text
	}
	if opts.verbose {
		fmt.Fprintf(os.Stderr, "[verbose] OCR completed in %v, extracted %d characters\n", elapsed, len(text))
	}
	return outputResult(out, text, opts.filePath, elapsed, opts.jsonOutput)
}

type OCRResult struct {
	Text      string  `json:"text"`
	Source    string  `json:"source"`
	Timestamp string  `json:"timestamp"`
	Duration  float64 `json:"duration_seconds"`
	CharCount int     `json:"character_count"`
}

func outputResult(out io.Writer, text string, sourcePath string, elapsed time.Duration, jsonOutput bool) error {
	if !jsonOutput {
		fmt.Fprint(out, text)
		return nil
	}
	return writeJSON(out, OCRResult{
		Text:      text,
		Source:    sourcePath,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Duration:  elapsed.Seconds(),
		CharCount: len(text),
	})
}

func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}

// parseHeaders turns curl-style "Name: value" pairs into a header map.
func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q, want 'Name: value'", h)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

// parseProxy reads protocol://[user[:password]@]host:port into an enabled proxy configuration.
func parseProxy(raw string) (*settings.ProxyConfig, error) {
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Hostname() == "" || u.Port() == "" {
		return nil, fmt.Errorf("invalid proxy %q: want protocol://host:port", raw)
	}
	port, err := strconv.ParseUint(u.Port(), 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy port %q: %w", u.Port(), err)
	}

	cfg := &settings.ProxyConfig{
		Enabled:  true,
		Protocol: u.Scheme,
		Host:     u.Hostname(),
		Port:     uint16(port),
	}
	if u.User != nil {
		name := u.User.Username()
		cfg.Username = &name
		if pw, ok := u.User.Password(); ok {
			cfg.Password = &pw
		}
	}
	return cfg, nil
}

type fixedProxy struct{ cfg *settings.ProxyConfig }

func (f fixedProxy) Proxy() *settings.ProxyConfig { return f.cfg }

func runRequest(ctx context.Context, out io.Writer, target string, opts cliOptions) error {
	headers, err := parseHeaders(opts.headers)
	if err != nil {
		return err
	}
	proxyCfg, err := parseProxy(opts.proxy)
	if err != nil {
		return err
	}
	if opts.verbose && proxyCfg != nil {
		fmt.Fprintf(os.Stderr, "[verbose] Using proxy %s\n", proxyCfg)
	}

	reqOpts := &dispatch.Options{Method: &opts.method, Headers: headers}
	if opts.hasData {
		body := opts.data
		reqOpts.Body = &body
	}

	res := dispatch.New(fixedProxy{cfg: proxyCfg}).Dispatch(ctx, dispatch.NewSpec(target, reqOpts))
	if opts.jsonOutput {
		return writeJSON(out, res)
	}
	if res.Error != nil {
		return fmt.Errorf("request failed: %s", *res.Error)
	}
	if res.Data != nil {
		fmt.Fprint(out, *res.Data)
	}
	if !res.OK {
		return fmt.Errorf("request returned status %d", *res.StatusCode)
	}
	return nil
}
