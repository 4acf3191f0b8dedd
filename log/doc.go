// Package log provides a leveled, printf-style logger for small devices that
// writes color-framed records to a local output and mirrors every message to
// a remote syslog collector over UDP.
//
// There are four levels, from most to least severe: [LevelError],
// [LevelWarn], [LevelInfo], and [LevelDebug]. A [Logger] writes a local
// record only when the message level passes its threshold:
//
//	l := log.New(log.WithOutput(os.Stderr), log.WithLevel(log.LevelInfo))
//	l.Info("net", "link up at %d Mbit/s", 100)
//	// \x1b[0;32m[INFO][net] link up at 100 Mbit/s\x1b[0m
//
// Once a syslog destination is set, each call also sends one datagram in
// the form "<PRI>1 - origin module - - - BOM message". The syslog mirror is
// not filtered by the local threshold:
//
//	l.SetSyslogServer("collector.lan", log.DefaultSyslogPort, "device1")
//	l.Debug("sys", "heap %d", free) // not printed locally, still sent
//
// Logging never fails from the caller's point of view. Local write errors
// and datagram send errors are dropped.
//
// Use [Config] to build a Logger from CLI flags via
// [github.com/spf13/pflag], with shell completion support via
// [github.com/spf13/cobra] and an optional YAML or JSON5 file:
//
//	cfg := log.NewConfig()
//	cfg.RegisterFlags(rootCmd.PersistentFlags())
//	cfg.RegisterCompletions(rootCmd)
//
//	l, err := cfg.NewLogger(os.Stdout)
//	log.SetDefault(l)
//
// A [Publisher] fans out records to multiple subscribers, which is useful
// for displaying logs inside a Bubble Tea TUI:
//
//	pub := log.NewPublisher()
//	l := log.New(log.WithOutput(pub))
//
//	sub := pub.Subscribe()
//	go func() {
//	    for rec := range sub.C() {
//	        // Deliver rec to the TUI.
//	    }
//	}()
package log
