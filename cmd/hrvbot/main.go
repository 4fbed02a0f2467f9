package main

import (
	"errors"
	"log"

	"github.com/m3rciful/hrvbot/core/cmd"
	"github.com/m3rciful/hrvbot/internal/hrvbot"
)

func main() {
	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			cfg, err := hrvbot.LoadConfig(path)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		},
		Bootstrap: hrvbot.Bootstrap,
	})
	if err != nil && !errors.Is(err, cmd.ErrVersionShown) {
		log.Fatalf("hrvbot: %v", err)
	}
}
