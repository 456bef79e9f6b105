package model

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding the
// configuration, e.g. RECONTHING_DATABASE_DSN for database.dsn.
const EnvPrefix = "RECONTHING"

// ApplyEnv overrides cfg with the values present in the environment.
func ApplyEnv(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	strs := map[string]*string{
		"server.addr":     &cfg.Server.Addr,
		"database.driver": &cfg.Database.Driver,
		"database.dsn":    &cfg.Database.DSN,
		"service.log":     &cfg.Service.Log,
		"client.url":      &cfg.Client.URL,
	}
	for key, dst := range strs {
		if s := v.GetString(key); s != "" {
			*dst = s
		}
	}
	if v.IsSet("service.verbose") {
		cfg.Service.Verbose = v.GetBool("service.verbose")
	}
}
