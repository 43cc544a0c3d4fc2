package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvFileEnvVar       = "LIGHT_TRANSLATOR_ENV"
	DefaultHotkey       = "CommandOrControl+Shift+X"
	DefaultCommandAddr  = "127.0.0.1:47321"
	DefaultQuickTitle   = "Quick Translate"
	DefaultOCRLanguages = "chi_sim+chi_tra+eng+jpn+kor"
	settingsDBOff       = "off"
)

type LoadOptions struct {
	EnvFileOverride string
	AddrOverride    string
}

type Config struct {
	EnvPath           string
	EnableFileLogging bool
	Hotkey            string
	CommandAddr       string
	SettingsDB        string // empty when persistence is disabled
	OCRLanguages      []string
	QuickWindowTitle  string
	ScratchDir        string
	ClampToDisplay    bool
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Load configuration from sources in priority order:
	// 1) --env-file, if given
	// 2) .env in the application (executable) directory
	// 3) LIGHT_TRANSLATOR_ENV as a path to a config file
	// Values in the file win over the process environment so that reloads take effect.
	envPath := resolveEnvPath(opts)
	values := readDotenvValues(envPath)
	get := func(key, def string) string {
		if v := strings.TrimSpace(values[key]); v != "" {
			return v
		}
		return getEnvWithDefault(key, def)
	}

	addr := get("COMMAND_ADDR", DefaultCommandAddr)
	if override := strings.TrimSpace(opts.AddrOverride); override != "" {
		addr = override
	}

	cfg := &Config{
		EnvPath:           envPath,
		EnableFileLogging: strings.ToLower(get("ENABLE_FILE_LOGGING", "false")) == "true",
		Hotkey:            get("HOTKEY", DefaultHotkey),
		CommandAddr:       addr,
		SettingsDB:        resolveSettingsDB(get("SETTINGS_DB", "")),
		OCRLanguages:      splitLanguages(get("OCR_LANGUAGES", DefaultOCRLanguages)),
		QuickWindowTitle:  get("QUICK_WINDOW_TITLE", DefaultQuickTitle),
		ScratchDir:        get("SCRATCH_DIR", os.TempDir()),
		ClampToDisplay:    strings.ToLower(get("CLAMP_TO_DISPLAY", "false")) == "true",
	}

	return cfg, nil
}

func resolveEnvPath(opts LoadOptions) string {
	if override := strings.TrimSpace(opts.EnvFileOverride); override != "" {
		return override
	}

	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvFileEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func readDotenvValues(envPath string) map[string]string {
	if envPath == "" {
		return map[string]string{}
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		return map[string]string{}
	}

	return values
}

func resolveSettingsDB(value string) string {
	switch strings.ToLower(value) {
	case settingsDBOff:
		return ""
	case "":
		dir, err := os.UserConfigDir()
		if err != nil {
			return ""
		}
		return filepath.Join(dir, "light-translator", "settings.db")
	default:
		return value
	}
}

func splitLanguages(value string) []string {
	var langs []string
	for _, l := range strings.FieldsFunc(value, func(r rune) bool { return r == '+' || r == ',' }) {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	return langs
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
