package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/samber/oops"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/beam-connectivity/grafana-dashboard-manager/mailer"
	"github.com/beam-connectivity/grafana-dashboard-manager/sync"
)

type GrafanaConfig struct {
	Url      string
	Username string
	Password string
}
type MailConfig struct {
	Host     string
	Username string
	Password string
	From     string
	To       string
}

type Config struct {
	Grafana        GrafanaConfig
	Mail           MailConfig
	Source         string
	NonInteractive bool
}

var logger = log.NewWithOptions(os.Stdout, log.Options{
	Prefix:          "",
	ReportCaller:    false,
	ReportTimestamp: true,
})
var v = viper.NewWithOptions(viper.WithLogger(slog.New(logger)))

func main() {
	// configure oops
	oops.SourceFragmentsHidden = false

	// Allow credentials via a local .env during development
	godotenv.Load()

	// Configure viper
	pflag.String("grafana.url", "http://localhost:3000/api", "Grafana endpoint")
	pflag.String("grafana.user", "", "Grafana Username (BasicAuth)")
	pflag.String("grafana.pass", "", "Grafana Password (BasicAuth)")
	pflag.String("source", "", "Dashboard source/destination directory")
	pflag.Bool("non-interactive", false, "Skip the upload confirmation prompt")
	pflag.Bool("verbose", false, "Enable debug logs")
	pflag.String("mail.host", "", "SMTP host for the sync summary mail (optional)")
	pflag.String("mail.user", "", "SMTP username")
	pflag.String("mail.pass", "", "SMTP password")
	pflag.String("mail.from", "", "Summary mail sender")
	pflag.String("mail.to", "", "Summary mail recipient")
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("dashboards")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("gdm")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.Warn("No config file found; using just ENV.")
		} else {
			err := oops.Wrap(err)
			logger.Fatal(err.Error(), "error", err)
		}
	}

	// Import the config
	config := Config{
		Grafana: GrafanaConfig{
			Url:      v.GetString("grafana.url"),
			Username: v.GetString("grafana.user"),
			Password: v.GetString("grafana.pass"),
		},
		Mail: MailConfig{
			Host:     v.GetString("mail.host"),
			Username: v.GetString("mail.user"),
			Password: v.GetString("mail.pass"),
			From:     v.GetString("mail.from"),
			To:       v.GetString("mail.to"),
		},
		Source:         v.GetString("source"),
		NonInteractive: v.GetBool("non-interactive"),
	}
	if v.GetBool("verbose") {
		logger.SetLevel(log.DebugLevel)
	}

	logger.Info("Configuration loaded!")

	command := "upload"
	if args := pflag.Args(); len(args) > 0 {
		command = args[0]
	}

	grafana, err := MakeGrafanaClient(
		config.Grafana.Url,
		config.Grafana.Username,
		config.Grafana.Password,
	)
	if err != nil {
		logger.Fatal(err.Error(), "error", err)
	}
	if _, err := grafana.IsOK(); err != nil {
		err := oops.Wrap(err)
		logger.Fatal(err.Error(), "error", err)
	}

	fsys := afero.NewOsFs()

	switch command {
	case "upload":
		runUpload(config, grafana, fsys)
	case "download":
		runDownload(config, grafana, fsys)
	default:
		logger.Fatal("Unknown command", "command", command)
	}
}

func runUpload(config Config, grafana *GrafanaClient, fsys afero.Fs) {
	if config.Source == "" {
		logger.Fatal("No source directory configured")
	}

	logger.Info("Uploading dashboards", "source", config.Source)
	showDashboards(fsys, config.Source)

	if !config.NonInteractive {
		confirm("Folder hierarchy will be preserved. Press enter to confirm upload...")
	}

	uploader := &sync.Uploader{Fs: fsys, Grafana: grafana, Log: logger}
	report, err := uploader.Run(config.Source)
	if err != nil {
		logger.Fatal(err.Error(), "error", err)
	}

	if config.Mail.Host != "" && config.Mail.To != "" {
		m := &mailer.Mailer{
			Host:     config.Mail.Host,
			Username: config.Mail.Username,
			Password: config.Mail.Password,
			From:     config.Mail.From,
		}
		if err := m.Send(config.Mail.To, "Dashboard sync complete", report.Summary()); err != nil {
			logger.Error("Could not send the summary mail", "error", err)
		}
	}
}

func runDownload(config Config, grafana *GrafanaClient, fsys afero.Fs) {
	if config.Source == "" {
		logger.Fatal("No destination directory configured")
	}

	logger.Info("Downloading dashboards", "destination", config.Source)
	downloader := &sync.Downloader{Fs: fsys, Grafana: grafana, Log: logger}
	if err := downloader.Run(config.Source); err != nil {
		logger.Fatal(err.Error(), "error", err)
	}
}

// showDashboards logs the folder/dashboard tree about to be uploaded.
func showDashboards(fsys afero.Fs, sourceDir string) {
	entries, err := afero.ReadDir(fsys, sourceDir)
	if err != nil {
		logger.Fatal(err.Error(), "error", oops.Wrap(err))
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		files, err := afero.ReadDir(fsys, filepath.Join(sourceDir, entry.Name()))
		if err != nil {
			logger.Fatal(err.Error(), "error", oops.Wrap(err))
		}
		for _, file := range files {
			if strings.HasSuffix(file.Name(), ".json") {
				logger.Info("Found dashboard", "folder", entry.Name(), "file", file.Name())
			}
		}
	}
}

func confirm(prompt string) {
	fmt.Println(prompt)
	if _, err := bufio.NewReader(os.Stdin).ReadString('\n'); err != nil {
		logger.Fatal("Aborted", "error", err)
	}
}
