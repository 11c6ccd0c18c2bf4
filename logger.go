package main

import (
	"net"
	"os"

	"github.com/9seconds/geotally/tallylib"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type logger struct {
	lookupLog zerolog.Logger
	updateLog zerolog.Logger
}

func (l *logger) LookupError(ip net.IP, name string, err error) {
	l.lookupLog.Error().Str("dataset", name).Stringer("ip", ip).Err(err).Msg("")
}

func (l *logger) ConversionError(ip net.IP, country string) {
	l.lookupLog.Warn().Stringer("ip", ip).Str("country", country).Msg("Cannot convert country to alpha-3 code")
}

func (l *logger) UpdateInfo(name, msg string) {
	l.updateLog.Info().Str("dataset", name).Msg(msg)
}

func (l *logger) UpdateError(name string, err error) {
	l.updateLog.Error().Str("dataset", name).Err(err).Msg("")
}

func newLogger() tallylib.Logger {
	return &logger{
		lookupLog: log.Logger.With().Str("event_name", "lookup").Logger(),
		updateLog: log.Logger.With().Str("event_name", "update").Logger(),
	}
}

func setupLogging(debug bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}
