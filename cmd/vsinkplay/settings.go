package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gogpu/vsink/config"
)

// settingFlags registers the flags that map onto config.Settings keys.
// Defaults come from config.Default so unset flags never override a file.
func settingFlags(fs *pflag.FlagSet) {
	d := config.Default()
	fs.String("title", d.Title, "window title")
	fs.Bool("force-aspect-ratio", d.ForceAspectRatio, "letterbox to keep the display aspect ratio")
	fs.String("orientation", d.Orientation.Method, "video orientation method")
	fs.String("msaa", d.MSAA, "MSAA mode (disabled, 2x, 4x, 8x)")
	fs.String("overlay", d.Overlay, "overlay mode (none or gpu+interop+draw-context)")
	fs.Bool("fullscreen", d.Fullscreen, "start fullscreen")
	fs.Bool("fullscreen-on-alt-enter", d.FullscreenOnAltEnter, "toggle fullscreen with Alt+Enter")
	fs.String("display-format", d.DisplayFormat, "swap chain format")
	fs.String("filter", d.Filter, "scaling filter")
	fs.String("border-color", d.BorderColor, "letterbox colour (#rrggbb)")
	fs.Int("buffer-count", d.BufferCount, "swap chain back buffers")
}

// flagKeys maps flag names to their settings keys.
var flagKeys = map[string]string{
	"title":                   "title",
	"force-aspect-ratio":      "force_aspect_ratio",
	"orientation":             "orientation.method",
	"msaa":                    "msaa",
	"overlay":                 "overlay",
	"fullscreen":              "fullscreen",
	"fullscreen-on-alt-enter": "fullscreen_on_alt_enter",
	"display-format":          "display_format",
	"filter":                  "filter",
	"border-color":            "border_color",
	"buffer-count":            "buffer_count",
}

// loadSettings merges defaults, the config file, the environment and the
// flags of cmd into validated settings.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("VSINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return config.Settings{}, err
			}
		}
	}

	if cfgFile != "" {
		if _, err := config.FormatOf(cfgFile); err != nil {
			return config.Settings{}, err
		}
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("vsink")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(dir + "/vsink")
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config.Settings{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		slog.Debug("vsinkplay: config loaded", "file", v.ConfigFileUsed())
	}

	s := config.Default()
	if err := v.Unmarshal(&s); err != nil {
		return config.Settings{}, fmt.Errorf("decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return config.Settings{}, err
	}
	return s, nil
}

func newSettingsCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Print the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := config.FormatOf("settings." + format)
			if err != nil {
				return err
			}
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			return config.Encode(cmd.OutOrStdout(), s, f)
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "output format (yaml, toml)")
	settingFlags(cmd.Flags())
	return cmd
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}
