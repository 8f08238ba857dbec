package providers

import (
	"fmt"
	"path/filepath"
	"strings"
	"verity/internal/structures"

	"github.com/spf13/viper"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.BindEnv("logger.level", "VERITY_LOG_LEVEL")
	viper.BindEnv("ledger.rpcUrl", "VERITY_LEDGER_RPC_URL")
	viper.BindEnv("ledger.wsUrl", "VERITY_LEDGER_WS_URL")
	viper.BindEnv("ledger.registryAddress", "VERITY_REGISTRY_ADDRESS")
	viper.BindEnv("ledger.stakingAddress", "VERITY_STAKING_ADDRESS")
	viper.BindEnv("scorer.url", "VERITY_SCORER_URL")
	viper.BindEnv("scorer.sentimentUrl", "VERITY_SENTIMENT_URL")
	viper.BindEnv("scorer.sentimentKey", "VERITY_SENTIMENT_KEY")
	viper.BindEnv("content.gatewayUrl", "VERITY_CONTENT_GATEWAY_URL")
	viper.BindEnv("content.pinUrl", "VERITY_CONTENT_PIN_URL")
	viper.BindEnv("content.pinKey", "VERITY_CONTENT_PIN_KEY")
	viper.BindEnv("content.pinSecret", "VERITY_CONTENT_PIN_SECRET")
	viper.BindEnv("store.driver", "VERITY_STORE_DRIVER")
	viper.BindEnv("store.dsn", "VERITY_STORE_DSN")
	viper.BindEnv("cache.enabled", "VERITY_CACHE_ENABLED")
	viper.BindEnv("cache.size", "VERITY_CACHE_SIZE")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "VerityEngine"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
