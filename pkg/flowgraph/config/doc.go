/*
Package config loads the interviewer's configuration.

Config wraps a map[string]any decoded from YAML or JSON and offers typed
accessors that fall back to a default on missing keys or type mismatches:

	cfg, err := config.FromFile("interviewer.yaml")
	retries := cfg.Section("retry").Int("attempts", 6)

String values may reference the environment as ${VAR} or ${VAR:-default}.
FromFile, FromYAML and FromJSON resolve them while loading; ExpandEnv does
the same for a Config built with New. LoadDotEnv reads .env.local and .env.

Settings is the typed view used by the binary. LoadSettings runs the whole
sequence:

	settings, err := config.LoadSettings("interviewer.yaml")
	if err != nil {
	    return err
	}
	key := settings.APIKey()

Config is safe for concurrent reads. Callers must not modify the map
returned by Raw.
*/
package config
