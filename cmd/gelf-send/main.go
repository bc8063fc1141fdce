// Command gelf-send sends a single GELF message over UDP.
//
//	gelf-send [flags] message
//
// Settings are read from the -config YAML file, then GELF_* environment
// variables, then flags.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"

	"github.com/grafana/gelfsend/gelf"
	"github.com/grafana/gelfsend/internal/config"
)

const (
	exitSuccess = 0
	exitArgs    = 1
	exitSend    = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// fieldsFlag collects repeated -D key=value flags.
type fieldsFlag map[string]string

func (f fieldsFlag) String() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		keys[i] = k + "=" + f[k]
	}
	return strings.Join(keys, ",")
}

func (f fieldsFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	f[k] = v
	return nil
}

type options struct {
	configPath   string
	host         string
	port         int
	originHost   string
	facility     string
	level        string
	fields       fieldsFlag
	uncompressed bool
	verbose      bool
	message      string
	set          map[string]bool
}

func parseArgs(args []string, out io.Writer) (*options, error) {
	o := &options{fields: fieldsFlag{}, set: map[string]bool{}}

	fs := flag.NewFlagSet("gelf-send", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprintf(out, "Usage: gelf-send [flags] message\n\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&o.configPath, "config", "", "YAML file with the target settings")
	fs.StringVar(&o.host, "host", "", "the host to send the message to (default the local host)")
	fs.IntVar(&o.port, "port", gelf.DefaultPort, "the port on the server")
	fs.StringVar(&o.originHost, "origin-host", "", "the name of the host that generated the message (default the local host)")
	fs.StringVar(&o.facility, "facility", gelf.DefaultFacility, "the facility against which the message is logged")
	fs.StringVar(&o.level, "level", gelf.LevelAlert.String(),
		"the syslog level, numeric (0-7) or one of EMERG,ALERT,CRIT,ERR,WARNING,NOTICE,INFO,DEBUG")
	fs.Var(o.fields, "D", "additional field `key=value` added to the message, may be repeated")
	fs.BoolVar(&o.uncompressed, "u", false, "shorthand for -uncompressed-chunking")
	fs.BoolVar(&o.uncompressed, "uncompressed-chunking", false, "use the uncompressed chunking format used by graylog prior to 0.9.6")
	fs.BoolVar(&o.verbose, "v", false, "shorthand for -verbose")
	fs.BoolVar(&o.verbose, "verbose", false, "print progress while sending the message")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })

	switch fs.NArg() {
	case 0:
		return nil, errors.New("must specify log message")
	case 1:
		o.message = fs.Arg(0)
	default:
		return nil, fmt.Errorf("duplicate message specified: %q", fs.Arg(1))
	}
	return o, nil
}

// targetConfig applies the flags given on the command line over the
// loaded settings.
func (o *options) targetConfig() (gelf.TargetConfig, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	if o.set["host"] {
		cfg.Host = o.host
	}
	if o.set["port"] {
		cfg.Port = o.port
	}
	if o.set["origin-host"] {
		cfg.OriginHost = o.originHost
	}
	if o.set["facility"] {
		cfg.Facility = o.facility
	}
	if o.uncompressed {
		cfg.CompressedChunking = false
	}
	if len(o.fields) > 0 {
		if cfg.AdditionalFields == nil {
			cfg.AdditionalFields = make(map[string]string, len(o.fields))
		}
		for k, v := range o.fields {
			cfg.AdditionalFields[k] = v
		}
	}
	return cfg, cfg.Validate()
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !color,
	}))
}

func run(args []string, stderr io.Writer) int {
	o, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitSuccess
	}
	if err != nil {
		newLogger(stderr, false).Error("parsing arguments", "err", err)
		return exitArgs
	}
	log := newLogger(stderr, o.verbose)

	level, err := gelf.ParseLevel(o.level)
	if err != nil {
		log.Error("parsing level", "level", o.level, "err", err)
		return exitArgs
	}
	cfg, err := o.targetConfig()
	if err != nil {
		log.Error("loading configuration", "err", err)
		return exitArgs
	}

	log.Info("target",
		"host", cfg.Host,
		"port", cfg.Port,
		"origin_host", cfg.OriginHost,
		"compressed_chunking", cfg.CompressedChunking,
		"facility", cfg.Facility,
		"level", level,
		"additional_fields", fieldsFlag(cfg.AdditionalFields).String(),
	)

	log.Info("attempting to transmit message")
	if err := send(cfg, level, o.message); err != nil {
		log.Error("transmitting message", "err", err)
		return exitSend
	}
	log.Info("log transmitted")
	return exitSuccess
}

func send(cfg gelf.TargetConfig, level gelf.Level, text string) error {
	w, err := cfg.Open()
	if err != nil {
		return err
	}
	defer w.Close()

	return w.WriteMessage(&gelf.Message{
		Short:    text,
		TimeUnix: gelf.Timestamp(time.Now()),
		Level:    level,
	})
}
