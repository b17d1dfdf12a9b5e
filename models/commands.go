package models

// CommandsConfig holds the "commands" section of config.yaml.
type CommandsConfig struct {
	Auth CommandAuth `json:"auth" mapstructure:"auth"`
}

// CommandAuth lists users allowed to run management commands regardless of guild permissions.
type CommandAuth struct {
	Developers []string `json:"developers" mapstructure:"developers"`
}
