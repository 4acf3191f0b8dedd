package log

import (
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// Color modes accepted by [Config.Color].
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

var (
	// ErrInvalidArgument indicates an invalid argument was provided.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnknownColorMode indicates an unrecognized color mode string.
	ErrUnknownColorMode = errors.New("unknown color mode")
	// ErrUnknownLineEnding indicates an unrecognized line ending name.
	ErrUnknownLineEnding = errors.New("unknown line ending")
)

// Flags holds CLI flag names for log configuration, allowing callers to
// customize flag names while keeping sensible defaults via [NewConfig].
type Flags struct {
	Level        string
	Color        string
	LineEnding   string
	SyslogHost   string
	SyslogPort   string
	SyslogOrigin string
	File         string
}

// NewConfig creates a new [Config] embedding these flag names.
func (f Flags) NewConfig() *Config {
	return &Config{
		Flags: f,
	}
}

// Config holds CLI flag values for log configuration.
//
// Create instances with [NewConfig] and register CLI flags with
// [Config.RegisterFlags]. Optionally merge a config file with
// [Config.MergeFile], then use [Config.NewLogger] to build a [Logger].
type Config struct {
	Flags Flags

	Level      string
	Color      string
	LineEnding string

	// SyslogHost is a hostname or numeric address; empty disables syslog.
	SyslogHost   string
	SyslogOrigin string
	SyslogPort   uint16

	// File is the path of an optional YAML or JSON5 config file.
	File string
}

// NewConfig returns a new [Config] with zero-value fields and default flag
// names. Use [Config.RegisterFlags] to add CLI flags, or set values
// directly.
func NewConfig() *Config {
	f := Flags{
		Level:        "log-level",
		Color:        "log-color",
		LineEnding:   "log-line-ending",
		SyslogHost:   "syslog-host",
		SyslogPort:   "syslog-port",
		SyslogOrigin: "syslog-origin",
		File:         "log-config",
	}

	return f.NewConfig()
}

// RegisterFlags adds logging flags to the given [*pflag.FlagSet].
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Level, c.Flags.Level, "debug",
		fmt.Sprintf("local log threshold, one of: %s", GetAllLevelStrings()))
	flags.StringVar(&c.Color, c.Flags.Color, ColorAuto,
		fmt.Sprintf("color framing, one of: %s", colorModes()))
	flags.StringVar(&c.LineEnding, c.Flags.LineEnding, "lf",
		fmt.Sprintf("record terminator, one of: %s", lineEndingNames()))
	flags.StringVar(&c.SyslogHost, c.Flags.SyslogHost, "",
		"syslog collector hostname or address (empty disables syslog)")
	flags.Uint16Var(&c.SyslogPort, c.Flags.SyslogPort, DefaultSyslogPort,
		"syslog collector UDP port")
	flags.StringVar(&c.SyslogOrigin, c.Flags.SyslogOrigin, "",
		"hostname reported in syslog messages (default: this host's name)")
	flags.StringVar(&c.File, c.Flags.File, "",
		"path to a YAML, JSON, or JSON5 log config file")
}

// RegisterCompletions registers shell completions for log flags on cmd.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	fixed := map[string][]string{
		c.Flags.Level:      GetAllLevelStrings(),
		c.Flags.Color:      colorModes(),
		c.Flags.LineEnding: lineEndingNames(),
	}

	for _, name := range []string{c.Flags.Level, c.Flags.Color, c.Flags.LineEnding} {
		err := cmd.RegisterFlagCompletionFunc(name,
			cobra.FixedCompletions(fixed[name], cobra.ShellCompDirectiveNoFileComp))
		if err != nil {
			return fmt.Errorf("registering %s completion: %w", name, err)
		}
	}

	noFileComp := func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	for _, name := range []string{c.Flags.SyslogHost, c.Flags.SyslogPort, c.Flags.SyslogOrigin} {
		err := cmd.RegisterFlagCompletionFunc(name, noFileComp)
		if err != nil {
			return fmt.Errorf("registering %s completion: %w", name, err)
		}
	}

	err := cmd.RegisterFlagCompletionFunc(c.Flags.File,
		func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return configExtensions(), cobra.ShellCompDirectiveFilterFileExt
		})
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.File, err)
	}

	return nil
}

// MergeFile copies values from fc into c for every flag that was not set
// explicitly on flags. Explicit flags win over the file.
func (c *Config) MergeFile(flags *pflag.FlagSet, fc *FileConfig) {
	if fc == nil {
		return
	}

	unset := func(name string) bool {
		return flags == nil || !flags.Changed(name)
	}

	if fc.Level != "" && unset(c.Flags.Level) {
		c.Level = fc.Level
	}

	if fc.Color != "" && unset(c.Flags.Color) {
		c.Color = fc.Color
	}

	if fc.LineEnding != "" && unset(c.Flags.LineEnding) {
		c.LineEnding = fc.LineEnding
	}

	if fc.Syslog == nil {
		return
	}

	if fc.Syslog.Host != "" && unset(c.Flags.SyslogHost) {
		c.SyslogHost = fc.Syslog.Host
	}

	if fc.Syslog.Port != 0 && unset(c.Flags.SyslogPort) {
		c.SyslogPort = fc.Syslog.Port
	}

	if fc.Syslog.Origin != "" && unset(c.Flags.SyslogOrigin) {
		c.SyslogOrigin = fc.Syslog.Origin
	}
}

// NewLogger creates a [Logger] writing to w from the values stored in c.
// Extra options are applied last.
func (c *Config) NewLogger(w io.Writer, opts ...Option) (*Logger, error) {
	level := LevelDebug

	if c.Level != "" {
		lvl, err := ParseLevel(c.Level)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}

		level = lvl
	}

	color, err := resolveColor(c.Color, w)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	ending, err := ParseLineEnding(c.LineEnding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	base := []Option{
		WithOutput(w),
		WithLevel(level),
		WithColor(color),
		WithLineEnding(ending),
	}

	l := New(append(base, opts...)...)

	if c.SyslogHost != "" {
		origin := c.SyslogOrigin
		if origin == "" {
			origin = hostname()
		}

		port := c.SyslogPort
		if port == 0 {
			port = DefaultSyslogPort
		}

		addr, parseErr := netip.ParseAddr(c.SyslogHost)
		if parseErr == nil {
			l.SetSyslogAddr(addr, port, origin)
		} else {
			l.SetSyslogServer(c.SyslogHost, port, origin)
		}
	}

	return l, nil
}

// ParseLineEnding maps "lf" or "crlf" (case-insensitive) to the terminator.
// An empty name means LF.
func ParseLineEnding(name string) (string, error) {
	switch strings.ToLower(name) {
	case "", "lf":
		return LF, nil
	case "crlf":
		return CRLF, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownLineEnding, name)
}

func resolveColor(mode string, w io.Writer) (bool, error) {
	switch strings.ToLower(mode) {
	case "", ColorAuto:
		f, ok := w.(interface{ Fd() uintptr })
		if !ok {
			return false, nil
		}

		return term.IsTerminal(int(f.Fd())), nil //nolint:gosec // File descriptors fit in int.
	case ColorAlways:
		return true, nil
	case ColorNever:
		return false, nil
	}

	return false, fmt.Errorf("%w: %q", ErrUnknownColorMode, mode)
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "-"
	}

	return name
}

func colorModes() []string {
	return []string{ColorAuto, ColorAlways, ColorNever}
}

func lineEndingNames() []string {
	return []string{"lf", "crlf"}
}
