package main

import (
	"os"

	"github.com/danmuck/edgexchange/internal/config"
	"github.com/danmuck/edgexchange/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

const defaultPath = "cmd/edgectl/config.toml"

func main() {
	output := pflag.StringP("output", "o", defaultPath, "output path for config template")
	validate := pflag.Bool("validate", false, "validate an existing config file")
	input := pflag.StringP("input", "i", defaultPath, "config path for validation")
	force := pflag.Bool("force", false, "overwrite existing config file")
	pflag.Parse()

	logging.ConfigureRuntime()

	if *validate {
		if _, err := config.Load(*input); err != nil {
			log.Error().Err(err).Str("path", *input).Msg("configgen.validate")
			os.Exit(1)
		}
		log.Info().Msgf("validated edgectl config at %s", *input)
		return
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		log.Error().Err(err).Str("path", *output).Msg("configgen.write")
		os.Exit(1)
	}
	log.Info().Msgf("wrote edgectl config template to %s", *output)
}
