package main

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/alecthomas/kingpin.v2"
)

var version = "dev"

var (
	app = kingpin.New(
		"geotally",
		"Count IP addresses per country and prepare data for a choropleth map.")

	debug = app.Flag("debug", "Run in debug mode.").
		Short('d').
		Envar("GEOTALLY_DEBUG").
		Bool()
	configPath = app.Flag("config", "Path to the config file (hjson or toml).").
			Short('c').
			Envar("GEOTALLY_CONFIG").
			ExistingFile()
	inputPath = app.Flag("input", "Path to the file with IP addresses, one per line.").
			Short('i').
			String()
	datasetPath = app.Flag("dataset", "Path to the geolocation dataset.").
			String()
	datasetKind = app.Flag("dataset-kind", "A kind of the geolocation dataset.").
			String()

	tallyCmd   = app.Command("tally", "Print a country of each address and a frequency table.").Default()
	tallyQuiet = tallyCmd.Flag("quiet", "Print only a frequency table.").
			Short('q').
			Bool()

	renderCmd    = app.Command("render", "Render a choropleth table.")
	renderFormat = renderCmd.Flag("format", "Output format (json, csv or text).").
			Short('f').
			String()
	renderOutput = renderCmd.Flag("output", "Path to the output file. Default is stdout.").
			Short('o').
			String()
	renderBoundaries = renderCmd.Flag("boundaries", "Path to CSV export of the boundary dataset.").
				Short('b').
				String()

	serveCmd    = app.Command("serve", "Serve a tally over HTTP and keep it up to date.")
	serveListen = serveCmd.Flag("listen", "host:port to listen on.").
			Short('l').
			String()

	fetchCmd        = app.Command("fetch", "Download a fresh country database.")
	fetchLicenseKey = fetchCmd.Flag("license-key", "MaxMind license key.").
			Envar("GEOTALLY_LICENSE_KEY").
			String()
	fetchSource = fetchCmd.Flag("source", "Where to download a database from (maxmind or dbip).").
			Short('s').
			String()
)

func applyFlags(conf *config) {
	overrides := []struct {
		value  string
		target *string
	}{
		{*inputPath, &conf.Input},
		{*datasetPath, &conf.Dataset},
		{*datasetKind, &conf.DatasetKind},
		{*renderFormat, &conf.Format},
		{*renderOutput, &conf.Output},
		{*renderBoundaries, &conf.Boundaries},
		{*serveListen, &conf.Listen},
		{*fetchLicenseKey, &conf.LicenseKey},
		{*fetchSource, &conf.Source},
	}

	for _, v := range overrides {
		if v.value != "" {
			*v.target = v.value
		}
	}
}

func main() {
	app.Version(version)
	app.HelpFlag.Short('h')

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	setupLogging(*debug)

	conf, err := parseConfig(*configPath, applyFlags)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot parse config")
	}

	ctx, cancel := makeRootContext()

	err = run(ctx, command, conf)

	cancel()

	if err != nil {
		log.Fatal().Err(err).Str("command", command).Msg("Command has failed")
	}
}

func run(ctx context.Context, command string, conf *config) error {
	switch command {
	case renderCmd.FullCommand():
		return runRender(ctx, conf)
	case serveCmd.FullCommand():
		return runServe(ctx, conf)
	case fetchCmd.FullCommand():
		return runFetch(ctx, conf, os.Stdout)
	}

	return runTally(ctx, conf, os.Stdout, *tallyQuiet)
}
