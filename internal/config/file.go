package config

import (
	"os"

	"github.com/jrsteele09/go-gopay-client/internal/errors"
	"gopkg.in/yaml.v3"
)

// fileValues mirrors the optional YAML config file:
//
//	client_id: "1061399163"
//	client_secret: stDTmVXF
//	environment: sandbox
//	goid: "8123456789"
//	request_timeout_seconds: 20
//	session:
//	  name: shop
//	  seal_key: 6f1d...
type fileValues struct {
	ClientID              string `yaml:"client_id"`
	ClientSecret          string `yaml:"client_secret"`
	Scope                 string `yaml:"scope"`
	Environment           string `yaml:"environment"`
	GoID                  string `yaml:"goid"`
	BaseURL               string `yaml:"base_url"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	LogLevel              string `yaml:"log_level"`
	Session               struct {
		Dir       string `yaml:"dir"`
		Name      string `yaml:"name"`
		RedisAddr string `yaml:"redis_addr"`
		SealKey   string `yaml:"seal_key"`
	} `yaml:"session"`
}

func readFile(path string) (fileValues, error) {
	var values fileValues
	if path == "" {
		return values, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return values, nil
	}
	if err != nil {
		return values, errors.Wrapf(err, "reading config file %s", path)
	}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return values, errors.Wrapf(err, "parsing config file %s", path)
	}
	return values, nil
}
