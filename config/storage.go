package config

import "github.com/spf13/viper"

// Storage object storage config struct
type Storage struct {
	Provider string `json:"provider" yaml:"provider"` // filesystem, minio, s3
	ID       string `json:"id" yaml:"id"`
	Secret   string `json:"secret" yaml:"secret"`
	Region   string `json:"region" yaml:"region"`
	Bucket   string `json:"bucket" yaml:"bucket"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	UseSSL   bool   `json:"use_ssl" yaml:"use_ssl"`
}

func getStorageConfig(v *viper.Viper) *Storage {
	return &Storage{
		Provider: v.GetString("storage.provider"),
		ID:       v.GetString("storage.id"),
		Secret:   v.GetString("storage.secret"),
		Region:   v.GetString("storage.region"),
		Bucket:   v.GetString("storage.bucket"),
		Endpoint: v.GetString("storage.endpoint"),
		UseSSL:   v.GetBool("storage.use_ssl"),
	}
}
