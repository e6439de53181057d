package ifdyarchive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/indigoparadox/ifdyutil/internal/config"
	"github.com/indigoparadox/ifdyutil/internal/search"
)

// Aliases for the CLI commands for convenience.
var (
	aliasesCreate  = map[string]bool{"c": true, "-c": true, "create": true, "--create": true}
	aliasesList    = map[string]bool{"l": true, "-l": true, "ls": true, "--ls": true}
	aliasesExtract = map[string]bool{"x": true, "-x": true, "extract": true, "--extract": true}
	aliasesSearch  = map[string]bool{"s": true, "-s": true, "search": true, "--search": true}
	aliasesHelp    = map[string]bool{"h": true, "-h": true, "help": true, "--help": true}
)

// cliFlags are shared by every command; each command ignores the ones
// that do not apply to it.
type cliFlags struct {
	configPath     string
	saltFile       string
	passphraseFile string
	logLevel       string
	legacy         bool
	noIndex        bool
	limit          int
}

func parseFlags(command string, args []string) (*cliFlags, []string, error) {
	var f cliFlags
	flagSet := pflag.NewFlagSet("ifdyarc "+command, pflag.ContinueOnError)
	flagSet.StringVar(&f.configPath, "config", "", "path to the YAML config file")
	flagSet.StringVar(&f.saltFile, "salt-file", "", "read the salt from the first line of this file")
	flagSet.StringVar(&f.passphraseFile, "passphrase-file", "", "read the passphrase from this file")
	flagSet.StringVar(&f.logLevel, "log-level", "", "log level (overrides the config)")
	flagSet.BoolVar(&f.legacy, "legacy", false, "create: write a legacy container without embedded salt")
	flagSet.BoolVar(&f.noIndex, "no-index", false, "create: skip the search index")
	flagSet.IntVar(&f.limit, "limit", -1, "search: maximum results, 0 for all (default from config)")
	if err := flagSet.Parse(args); err != nil {
		return nil, nil, err
	}
	return &f, flagSet.Args(), nil
}

// RunCLI parses os.Args and dispatches to create, ls, extract or search.
func RunCLI(argv []string) error {
	if len(argv) < 2 || aliasesHelp[argv[1]] {
		printHelp()
		return nil
	}

	cmd := argv[1]
	flags, args, err := parseFlags(cmd, argv[2:])
	if err != nil {
		return err
	}
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, flags.logLevel)
	if err != nil {
		return err
	}

	var salt []byte
	if flags.saltFile != "" {
		if salt, err = ReadSaltFile(flags.saltFile); err != nil {
			return err
		}
	}

	switch {
	case aliasesCreate[cmd]:
		if len(args) < 2 {
			return errors.New("usage: ifdyarc create ARCHIVE PATH [PATH ...]")
		}
		items, err := collectItems(args[1:], logger)
		if err != nil {
			return err
		}
		pass, err := readPassphrase(cfg, flags.passphraseFile)
		if err != nil {
			return err
		}
		defer wipe(pass)
		return Create(args[0], pass, items, CreateOptions{
			Salt:               salt,
			Legacy:             flags.legacy,
			UserSaltFile:       cfg.SaltFile(),
			NoIndex:            flags.noIndex || !cfg.Index.Enabled,
			CompressionLevel:   cfg.CompressionLevel,
			SegmentCompression: cfg.Index.Compression,
			MaxSegmentDocs:     cfg.Index.MaxSegmentDocs,
			Logger:             logger,
		})

	case aliasesList[cmd]:
		if len(args) < 1 {
			return errors.New("usage: ifdyarc ls ARCHIVE [PREFIX ...]")
		}
		h, err := openFromCLI(args[0], cfg, flags, salt, logger)
		if err != nil {
			return err
		}
		defer h.Close()
		return h.List(os.Stdout, args[1:])

	case aliasesExtract[cmd]:
		if len(args) < 2 {
			return errors.New("usage: ifdyarc extract ARCHIVE DEST [FILE ...]")
		}
		h, err := openFromCLI(args[0], cfg, flags, salt, logger)
		if err != nil {
			return err
		}
		defer h.Close()
		var files []string
		if len(args) > 2 {
			files = args[2:]
		}
		return h.Extract(args[1], files)

	case aliasesSearch[cmd]:
		if len(args) < 2 {
			return errors.New("usage: ifdyarc search ARCHIVE PHRASE ...")
		}
		phrase := strings.Join(args[1:], " ")
		query, err := search.Parse(phrase)
		if err != nil {
			return err
		}
		h, err := openFromCLI(args[0], cfg, flags, salt, logger)
		if err != nil {
			return err
		}
		defer h.Close()
		limit := cfg.Index.ResultLimit
		if flags.limit >= 0 {
			limit = flags.limit
		}
		results, err := h.SearchLimit(phrase, limit)
		if err != nil {
			return err
		}
		return printResults(os.Stdout, results, query.Terms())

	default:
		return fmt.Errorf("unknown command %q. Use --help", cmd)
	}
}

func openFromCLI(path string, cfg *config.Config, flags *cliFlags, salt []byte, logger logrus.FieldLogger) (*Handle, error) {
	pass, err := readPassphrase(cfg, flags.passphraseFile)
	if err != nil {
		return nil, err
	}
	defer wipe(pass)
	return Open(path, pass, OpenOptions{Salt: salt, UserSaltFile: cfg.SaltFile(), Logger: logger})
}

// newLogger builds a stderr logger at the configured level; a non-empty
// override wins over the config.
func newLogger(cfg *config.Config, override string) (*logrus.Logger, error) {
	name := cfg.LogLevel
	if override != "" {
		name = override
	}
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(level)
	return logger, nil
}

// readPassphrase takes the passphrase from a file, the configured
// environment variable, or an echo-free terminal prompt, in that order.
func readPassphrase(cfg *config.Config, path string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		data = []byte(strings.TrimRight(string(data), "\r\n"))
		if len(data) == 0 {
			return nil, fmt.Errorf("passphrase file %s is empty", path)
		}
		return data, nil
	}
	if pass := os.Getenv(cfg.PassphraseEnv); pass != "" {
		return []byte(pass), nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("%s must be set or --passphrase-file given when stdin is not a terminal", cfg.PassphraseEnv)
	}
	fmt.Fprint(os.Stderr, "Passphrase: ")
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	if len(pass) == 0 {
		return nil, errors.New("empty passphrase")
	}
	return pass, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// collectItems walks the inputs and returns every regular file as an item
// stored under its cleaned, slash-separated path.
func collectItems(inputs []string, logger logrus.FieldLogger) ([]Item, error) {
	var paths []string
	for _, in := range inputs {
		in = filepath.Clean(in)
		err := filepath.WalkDir(in, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if !d.Type().IsRegular() {
				if !d.IsDir() {
					logger.WithField("path", p).Warn("Skipping non-regular file")
				}
				return nil
			}
			paths = append(paths, p)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	// Sort and drop inputs that were named twice.
	sort.Strings(paths)
	items := make([]Item, 0, len(paths))
	var last string
	for _, p := range paths {
		if p == last {
			continue
		}
		last = p
		contents, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		items = append(items, Item{PathRel: "/" + strings.TrimLeft(filepath.ToSlash(p), "/"), Contents: contents})
	}
	return items, nil
}

// printResults prints each hit's filename followed by its lines that
// contain one of the query terms.
func printResults(w io.Writer, results []Result, terms []string) error {
	wanted := make(map[string]bool, len(terms))
	for _, t := range terms {
		wanted[t] = true
	}
	for _, result := range results {
		if _, err := fmt.Fprintln(w, result.Filename); err != nil {
			return err
		}
		for _, line := range strings.Split(string(result.Contents), "\n") {
			for _, word := range search.Terms(line) {
				if wanted[word] {
					if _, err := fmt.Fprintf(w, "    %s\n", strings.TrimRight(line, "\r")); err != nil {
						return err
					}
					break
				}
			}
		}
	}
	return nil
}

// printHelp prints CLI usage, environment, and examples.
func printHelp() {
	fmt.Println(`ifdyarc: encrypted, searchable log archives

USAGE:
  ifdyarc (c|-c|create|--create)   ARCHIVE  PATH [PATH ...]
  ifdyarc (l|-l|ls|--ls)           ARCHIVE  [PREFIX ...]
  ifdyarc (x|-x|extract|--extract) ARCHIVE  DEST [FILE ...]
  ifdyarc (s|-s|search|--search)   ARCHIVE  PHRASE ...
  ifdyarc (h|-h|help|--help)

FLAGS:
  --config FILE           YAML config (default $IFDYARC_CONFIG, then ~/.config/ifdyarc/config.yaml)
  --passphrase-file FILE  read the passphrase from FILE
  --salt-file FILE        salt for legacy archives (first line of FILE)
  --legacy                create a container without embedded salt
  --no-index              create without a search index
  --limit N               maximum search results (0 for all)
  --log-level LEVEL       logrus level (default warning)

ENV:
  IFDYARC_PASS  Passphrase for AES-256-CBC (PBKDF2 HMAC-SHA1, 1000 iter)

SALT LOOKUP (legacy archives):
  --salt-file, then salt.txt next to the archive, then ~/.saltzaes.txt

EXAMPLES:
  export IFDYARC_PASS=secret
  ifdyarc create logs.arc /var/log/syslog /var/log/auth.log
  ifdyarc ls      logs.arc
  ifdyarc search  logs.arc disk full
  ifdyarc extract logs.arc /restore`)
}
