package config

import "github.com/spf13/viper"

// Logger logger config struct
type Logger struct {
	Level      int    `json:"level" yaml:"level"`
	Format     string `json:"format" yaml:"format"`
	Output     string `json:"output" yaml:"output"`
	OutputFile string `json:"output_file" yaml:"output_file"`
}

func getLoggerConfig(v *viper.Viper) *Logger {
	return &Logger{
		Level:      v.GetInt("logger.level"),
		Format:     v.GetString("logger.format"),
		Output:     v.GetString("logger.output"),
		OutputFile: v.GetString("logger.output_file"),
	}
}

func setLoggerDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", 4) // logrus.InfoLevel
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
}
