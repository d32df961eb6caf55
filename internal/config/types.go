package config

type Config struct {
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	Environment        string
	PromptTemplatePath string
}
