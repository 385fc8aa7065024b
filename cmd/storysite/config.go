package main

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/eringen/storysite"
	"github.com/eringen/storysite/pages"
)

// newViper returns a viper instance with defaults, reading every key from
// the environment: nested keys map to upper-case names joined by "_", so
// storyblok.public_token is STORYBLOK_PUBLIC_TOKEN.
func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", "3000")
	v.SetDefault("storyblok.region", "eu")
	v.SetDefault("allowed_origins", "*")
	v.SetDefault("dist_dir", "dist")
	v.SetDefault("cache.backend", storysite.CacheMemory)
	v.SetDefault("cache.path", "data/storysite.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("posts_per_page", pages.DefaultPostsPerPage)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// readConfigFile reads cfgFile, or ./storysite.yaml when cfgFile is empty.
// Only an explicitly named file has to exist.
func readConfigFile(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("storysite")
		v.SetConfigType("yaml")
	}
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) && cfgFile == "" {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// loadConfig maps viper keys onto the server configuration.
func loadConfig(v *viper.Viper) (storysite.Config, error) {
	port := v.GetString("port")
	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		return storysite.Config{}, fmt.Errorf("invalid PORT %q", port)
	}
	env := strings.ToLower(firstNonEmpty(v.GetString("app_env"), v.GetString("node_env"), "development"))

	cfg := storysite.Config{
		Addr:       net.JoinHostPort(v.GetString("host"), port),
		URL:        v.GetString("site_url"),
		Production: env == "production",

		PublicToken:   v.GetString("storyblok.public_token"),
		PreviewToken:  v.GetString("storyblok.preview_token"),
		Region:        strings.ToLower(v.GetString("storyblok.region")),
		SpaceID:       v.GetString("storyblok.space_id"),
		WebhookSecret: v.GetString("storyblok.webhook_secret"),
		CMSBaseURL:    v.GetString("storyblok.base_url"),
		CMSTimeout:    v.GetDuration("storyblok.timeout"),

		AllowedOrigins: stringList(v, "allowed_origins"),
		DistDir:        v.GetString("dist_dir"),

		CacheBackend: strings.ToLower(v.GetString("cache.backend")),
		CachePath:    v.GetString("cache.path"),
		CacheTTL:     v.GetDuration("cache.ttl"),

		SessionSecret: v.GetString("session_secret"),
		CookieSecure:  v.GetBool("cookie_secure"),
		PreviewBridge: v.GetBool("preview_bridge"),

		PostsPerPage:    v.GetInt("posts_per_page"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		Debug:           strings.EqualFold(v.GetString("log_level"), "debug"),
	}
	return cfg, nil
}

// stringList reads a list given either as a YAML sequence or as a comma
// separated string.
func stringList(v *viper.Viper, key string) []string {
	var out []string
	for _, s := range v.GetStringSlice(key) {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
