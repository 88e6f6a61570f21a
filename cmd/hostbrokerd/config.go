package main

import "github.com/cuemby/hostbroker/pkg/config"

func loadConfig(explicitPath string) (*config.Config, error) {
	return config.Load(explicitPath)
}
